// Package enginemock provides testify mocks for the engine package.
package enginemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/qchat/internal/model"
)

// MockEngine is a mock of engine.Engine.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Execute(ctx context.Context, command string) (*model.Result, error) {
	args := m.Called(ctx, command)
	res, _ := args.Get(0).(*model.Result)
	return res, args.Error(1)
}
