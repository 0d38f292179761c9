package intent

import (
	"context"

	"github.com/kailas-cloud/shopassist/internal/domain/chat"
)

// Completer is the chat model used to extract intents.
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (chat.Completion, error)
}
