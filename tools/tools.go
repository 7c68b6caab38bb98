//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// They are run with `go run pkg@version` or installed with `go install`
// and are not tracked in go.mod.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks from the core interfaces
//   Run: go generate ./internal/mocks/...
//   Version: go.uber.org/mock/mockgen@v0.6.0 (matches go.mod)
//
// Air - live reload of cmd/hydrosim during local development
//   Install: go install github.com/air-verse/air@v1.63.0
//   Docs: https://github.com/air-verse/air
