package conversation

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/shopassist/internal/domain/chat"
	"github.com/kailas-cloud/shopassist/internal/domain/fcall"
)

// Completer is the chat model.
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (chat.Completion, error)
}

// Executor runs the function calls the model asks for.
type Executor interface {
	Execute(ctx context.Context, userID, name string, args json.RawMessage) fcall.Result
}

// Sessions stores per-session history.
type Sessions interface {
	Claim(ctx context.Context, sessionID, userID string) error
	History(ctx context.Context, sessionID string) ([]chat.Message, error)
	Append(ctx context.Context, sessionID string, msgs ...chat.Message) error
}
