package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "simulation not found",
			},
			want: "simulation not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodePersistence,
				Message: "failed to store results",
				Cause:   errors.New("disk full"),
			},
			want: "failed to store results: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(%v, cause) = false", err)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *AppError
		code  ErrorCode
		check func(error) bool
	}{
		{"not found", NotFound("x"), ErrCodeNotFound, IsNotFound},
		{"not found formatted", NotFoundf("simulation %s", "a"), ErrCodeNotFound, IsNotFound},
		{"conflict", Conflict("x"), ErrCodeConflict, IsConflict},
		{"conflict formatted", Conflictf("simulation %s is running", "a"), ErrCodeConflict, IsConflict},
		{"validation", Validation("x"), ErrCodeValidation, IsValidation},
		{"validation field", ValidationField("name", "required"), ErrCodeValidation, IsValidation},
		{"execution", Execution("x"), ErrCodeExecution, IsExecution},
		{"internal", Internalf("x %d", 1), ErrCodeInternal, IsInternal},
		{"persistence", Wrap(errors.New("db"), ErrCodePersistence, "x"), ErrCodePersistence, IsPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if !tt.check(fmt.Errorf("outer: %w", tt.err)) {
				t.Errorf("checker did not match wrapped %v", tt.err)
			}
		})
	}
}

func TestFormattingWithoutArgsKeepsPercent(t *testing.T) {
	err := Validation("progress must be 0-100%")
	if err.Message != "progress must be 0-100%" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, ErrCodeInternal, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}

func TestGetCodeAndField(t *testing.T) {
	err := fmt.Errorf("ctx: %w", ValidationField("start_date", "invalid"))
	if GetCode(err) != ErrCodeValidation {
		t.Errorf("GetCode = %v", GetCode(err))
	}
	if GetField(err) != "start_date" {
		t.Errorf("GetField = %v", GetField(err))
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("GetCode on plain error should be empty")
	}
	if GetField(errors.New("plain")) != "" {
		t.Error("GetField on plain error should be empty")
	}
}
