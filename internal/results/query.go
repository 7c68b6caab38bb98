package results

import (
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
	apperrors "github.com/target/hydrosim/internal/errors"
)

// QueryEvaluator abstracts JMESPath operations for testability.
type QueryEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// JMESPath implements QueryEvaluator using go-jmespath.
type JMESPath struct{}

// Validate compiles expr. An empty expression is valid.
func (JMESPath) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

// Evaluate searches data with expr.
func (JMESPath) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// Project applies expr to v after converting it to plain JSON values, so
// struct field names follow their json tags. An empty expr returns v as is.
func Project(ev QueryEvaluator, expr string, v any) (any, error) {
	if strings.TrimSpace(expr) == "" {
		return v, nil
	}
	if ev == nil {
		ev = JMESPath{}
	}
	if err := ev.Validate(expr); err != nil {
		return nil, apperrors.ValidationField("query", fmt.Sprintf("invalid query: %v", err))
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode query input: %w", err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode query input: %w", err)
	}
	out, err := ev.Evaluate(expr, data)
	if err != nil {
		return nil, apperrors.ValidationField("query", fmt.Sprintf("query failed: %v", err))
	}
	return out, nil
}
