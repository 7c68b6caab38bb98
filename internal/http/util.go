package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
)

// statusForCode maps application error codes to HTTP status codes. Illegal
// state transitions are client errors and share 400 with validation failures;
// the body's error code tells them apart.
//
//nolint:gochecknoglobals // static read-only lookup
var statusForCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeValidation: http.StatusBadRequest,
	apperrors.ErrCodeNotFound:   http.StatusNotFound,
	apperrors.ErrCodeConflict:   http.StatusBadRequest,
}

// WriteServiceError maps a service error onto the JSON error body.
// Validation, not-found and conflict errors carry their message; anything else is a 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if status, ok := statusForCode[appErr.Code]; ok {
			WriteError(w, ErrorParams{Code: status, ErrCode: string(appErr.Code), Err: appErr})
			return
		}
	}
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// Client went away; nobody is listening for a body.
		return
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	WriteError(w, ErrorParams{
		Code:    http.StatusInternalServerError,
		ErrCode: string(apperrors.ErrCodeInternal),
		Err:     err,
	})
}

// parseIntQuery returns the integer value of the first present query param among keys.
// A missing param yields def; a malformed one is a validation error.
func parseIntQuery(r *http.Request, def int, keys ...string) (int, error) {
	q := r.URL.Query()
	for _, key := range keys {
		v := q.Get(key)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, apperrors.ValidationField(key, fmt.Sprintf("%s must be an integer", key))
		}
		return i, nil
	}
	return def, nil
}

// parseListOptions reads status, limit and offset (or skip) for simulation listings.
// Bounds are applied by the service.
func parseListOptions(r *http.Request) (model.SimulationListOptions, error) {
	var opts model.SimulationListOptions

	limit, err := parseIntQuery(r, 0, "limit")
	if err != nil {
		return opts, err
	}
	offset, err := parseIntQuery(r, 0, "offset", "skip")
	if err != nil {
		return opts, err
	}
	opts.Limit, opts.Offset = limit, offset

	if raw := r.URL.Query().Get("status"); raw != "" {
		var status model.SimulationStatus
		if err := status.UnmarshalText([]byte(raw)); err != nil {
			return opts, apperrors.ValidationField("status", err.Error())
		}
		opts.Status = &status
	}
	return opts, nil
}
