package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/docbot/relay/internal/channel"
	"github.com/docbot/relay/internal/chat"
	"github.com/docbot/relay/internal/conversation"
	"github.com/docbot/relay/internal/media"
)

type fakeClient struct {
	resolved media.Resolved
	data     []byte

	sendErr    error
	sentTo     []string
	sentText   []string
	fetchCalls int
}

func (c *fakeClient) Resolve(_ context.Context, id string) (media.Resolved, error) {
	return c.resolved, nil
}

func (c *fakeClient) Fetch(_ context.Context, url string) ([]byte, error) {
	c.fetchCalls++
	return c.data, nil
}

func (c *fakeClient) SendText(_ context.Context, recipientID, text string) error {
	c.sentTo = append(c.sentTo, recipientID)
	c.sentText = append(c.sentText, text)
	return c.sendErr
}

type fakeCompleter struct {
	result   chat.Result
	err      error
	requests []chat.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req chat.Request) (chat.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return chat.Result{}, f.err
	}
	return f.result, nil
}

type failingStore struct {
	conversation.Store
	appendErr error
}

func (s *failingStore) AppendAndSave(ctx context.Context, key string, turns []conversation.Turn) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.Store.AppendAndSave(ctx, key, turns)
}

func newTestResolver(store conversation.Store, completer chat.Completer) *Resolver {
	r := NewResolver(nil, store, completer, channel.NewNormalizer(nil, media.NewIngestor(nil)))
	r.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func textMessage(text string) channel.InboundMessage {
	return channel.InboundMessage{
		Platform: channel.PlatformWhatsApp,
		SenderID: "15551234567",
		Type:     channel.TypeText,
		Text:     text,
	}
}

func TestResolveTextRound(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore()
	completer := &fakeCompleter{
		result: chat.Result{
			ReplyText: "Hi! How can I help?",
			Turns:     []conversation.Turn{conversation.NewTextTurn(conversation.RoleAssistant, "Hi! How can I help?")},
		},
	}
	client := &fakeClient{}
	resolver := newTestResolver(store, completer)

	ack, err := resolver.Resolve(context.Background(), client, textMessage("Hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack != AckOK {
		t.Fatalf("unexpected ack %q", ack)
	}

	// Completion saw exactly the new user turn on an empty history.
	if len(completer.requests) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(completer.requests))
	}
	req := completer.requests[0]
	if len(req.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != conversation.RoleUser || req.Messages[0].TextContent() != "Hello" {
		t.Fatalf("unexpected completion input: %#v", req.Messages[0])
	}
	if !strings.Contains(req.System, "The Doctor") || !strings.Contains(req.System, "WhatsApp") {
		t.Fatalf("unexpected system preamble: %q", req.System)
	}

	// History holds the user turn then the assistant turn.
	key := conversation.DeriveKey("whatsapp", "15551234567")
	convo, err := store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(convo.Context) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(convo.Context))
	}
	if convo.Context[0].Role != conversation.RoleUser || convo.Context[1].Role != conversation.RoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", convo.Context[0].Role, convo.Context[1].Role)
	}

	// Reply went out once, to the sender.
	if len(client.sentTo) != 1 || client.sentTo[0] != "15551234567" {
		t.Fatalf("unexpected send targets: %#v", client.sentTo)
	}
	if client.sentText[0] != "Hi! How can I help?" {
		t.Fatalf("unexpected reply text %q", client.sentText[0])
	}
}

func TestResolveLoadsPriorHistory(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore()
	key := conversation.DeriveKey("whatsapp", "15551234567")
	seed := []conversation.Turn{
		conversation.NewTextTurn(conversation.RoleUser, "earlier question"),
		conversation.NewTextTurn(conversation.RoleAssistant, "earlier answer"),
	}
	if err := store.AppendAndSave(context.Background(), key, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	completer := &fakeCompleter{result: chat.Result{ReplyText: "ok"}}
	resolver := newTestResolver(store, completer)

	if _, err := resolver.Resolve(context.Background(), &fakeClient{}, textMessage("follow-up")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := completer.requests[0]
	if len(req.Messages) != 3 {
		t.Fatalf("expected prior history plus user turn, got %d messages", len(req.Messages))
	}
	if req.Messages[2].TextContent() != "follow-up" {
		t.Fatalf("user turn must come last, got %q", req.Messages[2].TextContent())
	}
}

func TestResolveUnsupportedMessageAcksWithoutSideEffects(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore()
	completer := &fakeCompleter{}
	client := &fakeClient{}
	resolver := newTestResolver(store, completer)

	msg := channel.InboundMessage{
		Platform: channel.PlatformWhatsApp,
		SenderID: "15551234567",
		Type:     channel.TypeImage, // no caption
		Media:    &media.Ref{ID: "p1", MimeType: "image/jpeg"},
	}
	ack, err := resolver.Resolve(context.Background(), client, msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack != AckFailed {
		t.Fatalf("unexpected ack %q", ack)
	}
	if len(completer.requests) != 0 {
		t.Fatal("completion must not run for a failed normalization")
	}
	key := conversation.DeriveKey("whatsapp", "15551234567")
	convo, _ := store.Load(context.Background(), key)
	if len(convo.Context) != 0 {
		t.Fatal("store must not be mutated for a failed round")
	}
	if len(client.sentTo) != 0 {
		t.Fatal("no reply must be sent for a failed round")
	}
}

func TestResolveCompletionFailureAcksWithoutStoreMutation(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore()
	completer := &fakeCompleter{err: errors.New("backend unavailable")}
	resolver := newTestResolver(store, completer)

	ack, err := resolver.Resolve(context.Background(), &fakeClient{}, textMessage("Hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack != AckFailed {
		t.Fatalf("unexpected ack %q", ack)
	}
	convo, _ := store.Load(context.Background(), conversation.DeriveKey("whatsapp", "15551234567"))
	if len(convo.Context) != 0 {
		t.Fatal("store must not be mutated when completion fails")
	}
}

func TestResolvePersistenceFailureSurfaces(t *testing.T) {
	t.Parallel()

	store := &failingStore{
		Store:     conversation.NewMemoryStore(),
		appendErr: conversation.ErrPersistence,
	}
	completer := &fakeCompleter{result: chat.Result{ReplyText: "reply"}}
	client := &fakeClient{}
	resolver := newTestResolver(store, completer)

	_, err := resolver.Resolve(context.Background(), client, textMessage("Hello"))
	if !errors.Is(err, conversation.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(client.sentTo) != 0 {
		t.Fatal("reply must not be dispatched when persistence fails")
	}
}

func TestResolveSendFailureStillAcks(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore()
	completer := &fakeCompleter{result: chat.Result{
		ReplyText: "reply",
		Turns:     []conversation.Turn{conversation.NewTextTurn(conversation.RoleAssistant, "reply")},
	}}
	client := &fakeClient{sendErr: errors.New("network down")}
	resolver := newTestResolver(store, completer)

	ack, err := resolver.Resolve(context.Background(), client, textMessage("Hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack != AckOK {
		t.Fatalf("unexpected ack %q", ack)
	}
	// State is durable even though the send failed.
	convo, _ := store.Load(context.Background(), conversation.DeriveKey("whatsapp", "15551234567"))
	if len(convo.Context) != 2 {
		t.Fatalf("expected durable history, got %d turns", len(convo.Context))
	}
}
