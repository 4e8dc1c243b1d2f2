package engine

import (
	"context"

	"github.com/slok/qchat/internal/model"
)

// Engine is the task processor that executes user commands.
//
// Implementations are not required to be safe for concurrent use, callers
// must serialize Execute calls.
type Engine interface {
	Execute(ctx context.Context, command string) (*model.Result, error)
}

// EngineFunc is a helper to use a function as an Engine.
type EngineFunc func(ctx context.Context, command string) (*model.Result, error)

func (f EngineFunc) Execute(ctx context.Context, command string) (*model.Result, error) {
	return f(ctx, command)
}
