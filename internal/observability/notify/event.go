// Package notify defines the failure notification payload and the sinks that deliver it.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// SimulationFailurePayload captures the data we emit when a simulation attempt fails.
type SimulationFailurePayload struct {
	SimulationID   string
	SimulationName string
	OwnerID        string
	ModelType      string
	Attempt        int
	Error          string
	ErrorClass     string
	Severity       string
	OccurredAt     time.Time
	Metadata       map[string]string
}

// Sink describes a destination capable of consuming failure notifications.
type Sink interface {
	SendSimulationFailure(ctx context.Context, payload SimulationFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload SimulationFailurePayload) error

// SendSimulationFailure implements the Sink interface.
func (f SinkFunc) SendSimulationFailure(ctx context.Context, payload SimulationFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
