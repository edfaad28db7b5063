package capability

import (
	"context"
	"fmt"

	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
)

// Responder produces the assistant reply for a chat payload. The language
// model backend plugs in here; the default is a canned acknowledgement so
// the core stays functional without one.
type Responder func(ctx context.Context, payload string) (string, error)

// Chat is the default and fallback conversational capability.
type Chat struct {
	responder Responder
}

// NewChat creates a Chat capability. A nil responder falls back to the
// canned acknowledgement.
func NewChat(responder Responder) *Chat {
	if responder == nil {
		responder = func(_ context.Context, payload string) (string, error) {
			return fmt.Sprintf("Aye! Heard ye: %s", payload), nil
		}
	}
	return &Chat{responder: responder}
}

func (c *Chat) Name() string { return "chat" }

func (c *Chat) Invoke(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error) {
	reply, err := c.responder(ctx, cmd.Payload)
	if err != nil {
		return nil, fmt.Errorf("chat responder: %w", err)
	}
	return []eventlog.Draft{eventlog.Text(reply)}, nil
}
