// Package chat talks to the generative-language backend. The relay
// treats it as a black box: full turn history in, assistant turns and a
// flattened reply text out.
package chat

import (
	"context"

	"github.com/docbot/relay/internal/conversation"
)

// Request is the completion input: a system preamble plus the ordered
// turn sequence ending in the new user turn.
type Request struct {
	System   string
	Messages []conversation.Turn
}

// Result is the completion output.
type Result struct {
	// ReplyText is the flattened text dispatched back to the platform.
	ReplyText string
	// Turns are the assistant turns appended to the conversation.
	Turns []conversation.Turn
}

// Completer generates a reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, req Request) (Result, error)
}
