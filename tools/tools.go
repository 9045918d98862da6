//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// Code-generation tools are tracked through go.mod tool directives; the rest
// are installed globally via `go install` since they are development tools,
// not runtime dependencies.
package tools

// Development tools:
//
// mockgen - Type-safe mock generation for the auth ports
//   Pinned via the `tool go.uber.org/mock/mockgen` directive in go.mod;
//   run as `go tool mockgen` (see internal/mocks/generate.go).
//   Docs: https://github.com/uber-go/mock
//
// Air - Live reload for Go apps (install via `go install`)
//   Install: go install github.com/air-verse/air@v1.63.0
//   Version: v1.63.0 (pinned 2025-01-01)
//   Docs: https://github.com/air-verse/air
