// Package flow runs the per-delivery workflow: normalize the inbound
// message, run the completion, persist the extended history and
// dispatch the reply.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docbot/relay/internal/channel"
	"github.com/docbot/relay/internal/chat"
	"github.com/docbot/relay/internal/conversation"
	"github.com/docbot/relay/internal/media"
)

// Webhook acknowledgment texts. Deliberately generic: processing
// failures must not reveal anything to the sender's platform.
const (
	AckOK      = "ok"
	AckSkipped = "ignoring non-message event"
	AckFailed  = "unable to process message"
)

// PlatformClient bundles the per-platform REST collaborators: media
// resolution and reply dispatch.
type PlatformClient interface {
	media.Source
	SendText(ctx context.Context, recipientID, text string) error
}

// Resolver orchestrates one inbound message end to end. Stateless
// between deliveries; the conversation store is the only shared
// mutable resource it touches.
type Resolver struct {
	logger     *slog.Logger
	store      conversation.Store
	completer  chat.Completer
	normalizer *channel.Normalizer
	now        func() time.Time
}

func NewResolver(log *slog.Logger, store conversation.Store, completer chat.Completer, normalizer *channel.Normalizer) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		logger:     log.With(slog.String("component", "flow")),
		store:      store,
		completer:  completer,
		normalizer: normalizer,
		now:        time.Now,
	}
}

// Resolve runs the round for one authenticated inbound message and
// returns the acknowledgment text for the webhook response.
//
// Message-processing failures (unsupported type, media validation,
// completion errors) abort the round with no store mutation and an
// AckFailed acknowledgment; the delivery itself still succeeds so the
// platform does not redeliver an event we have already seen. A non-nil
// error is returned only when the extended history could not be
// persisted; that one case must surface to the operator.
func (r *Resolver) Resolve(ctx context.Context, client PlatformClient, msg channel.InboundMessage) (string, error) {
	log := r.logger.With(
		slog.String("platform", string(msg.Platform)),
		slog.String("delivery_id", uuid.NewString()),
	)

	key := conversation.DeriveKey(string(msg.Platform), msg.SenderID)

	userTurn, err := r.normalizer.Normalize(ctx, client, msg)
	if err != nil {
		log.Warn("normalize inbound message failed", slog.Any("error", err))
		return AckFailed, nil
	}

	convo, err := r.store.Load(ctx, key)
	if err != nil {
		log.Error("load conversation failed", slog.Any("error", err))
		return "", err
	}

	history := append(convo.Context, userTurn)
	result, err := r.completer.Complete(ctx, chat.Request{
		System:   chat.SystemPrompt(string(msg.Platform), r.now()),
		Messages: history,
	})
	if err != nil {
		log.Warn("completion failed", slog.Any("error", err))
		return AckFailed, nil
	}

	// Durability before dispatch: the reply only goes out once the
	// extended history is persisted.
	turns := append([]conversation.Turn{userTurn}, result.Turns...)
	if err := r.store.AppendAndSave(ctx, key, turns); err != nil {
		log.Error("persist conversation failed", slog.Any("error", err))
		return "", err
	}

	if err := client.SendText(ctx, msg.SenderID, result.ReplyText); err != nil {
		// State is already durable; the delivery is acknowledged anyway
		// so the platform does not re-run an applied round.
		log.Error("send reply failed", slog.Any("error", err))
	}

	return AckOK, nil
}
