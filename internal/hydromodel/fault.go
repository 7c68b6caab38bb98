package hydromodel

import (
	"context"
	"errors"
	"fmt"
)

// ErrInjectedFault is returned by sub-models wrapped with a FaultInjector.
var ErrInjectedFault = errors.New("injected sub-model fault")

// FaultInjector forces a named sub-model to fail deterministically.
// Target "*" matches every sub-model; an empty Target disables injection.
type FaultInjector struct {
	Target string
	Panic  bool
}

// Decorate wraps m when it matches the target.
func (f FaultInjector) Decorate(m SubModel) SubModel {
	if f.Target == "" || (f.Target != "*" && f.Target != m.Name()) {
		return m
	}
	return faultySubModel{SubModel: m, panic: f.Panic}
}

type faultySubModel struct {
	SubModel
	panic bool
}

func (f faultySubModel) Run(context.Context, Inputs) (Output, error) {
	if f.panic {
		panic(fmt.Sprintf("injected panic in %s", f.Name()))
	}
	return Output{}, fmt.Errorf("%s: %w", f.Name(), ErrInjectedFault)
}
