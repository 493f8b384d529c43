// Package mocks provides testify mocks for the tracer package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/atlanticdynamic/bpftracer/internal/tracer"
)

// MockEngine is a mock implementation of tracer.Engine
type MockEngine struct {
	mock.Mock
}

// NewMockEngine returns a MockEngine whose Version call succeeds with version.
func NewMockEngine(version string) *MockEngine {
	m := &MockEngine{}
	m.On("Version", mock.Anything).Return(version, nil)
	return m
}

// Version is a mock implementation of Engine.Version
func (m *MockEngine) Version(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Run is a mock implementation of Engine.Run
func (m *MockEngine) Run(ctx context.Context, program string, env []string) (tracer.Result, error) {
	args := m.Called(ctx, program, env)
	return args.Get(0).(tracer.Result), args.Error(1)
}
