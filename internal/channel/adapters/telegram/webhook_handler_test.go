package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"

	"github.com/docbot/relay/internal/auth"
	"github.com/docbot/relay/internal/channel"
	"github.com/docbot/relay/internal/chat"
	"github.com/docbot/relay/internal/conversation"
	"github.com/docbot/relay/internal/conversation/flow"
	"github.com/docbot/relay/internal/media"
)

const testSecretToken = "webhook-secret"

type staticCompleter struct {
	reply string
}

func (s staticCompleter) Complete(_ context.Context, _ chat.Request) (chat.Result, error) {
	return chat.Result{
		ReplyText: s.reply,
		Turns:     []conversation.Turn{conversation.NewTextTurn(conversation.RoleAssistant, s.reply)},
	}, nil
}

// newTestHandler wires a handler against a stub Bot API server and an
// in-memory store.
func newTestHandler(t *testing.T, store conversation.Store) (*WebhookHandler, *[]string) {
	t.Helper()

	var sent []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"relay","username":"relay_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			sent = append(sent, r.FormValue("text"))
			w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":987654321,"type":"private"},"date":0}}`))
		default:
			w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	t.Cleanup(server.Close)

	bot, err := tgbotapi.NewBotAPIWithClient("test-token", server.URL+"/bot%s/%s", server.Client())
	if err != nil {
		t.Fatalf("bot init: %v", err)
	}
	client := &Client{
		bot:        bot,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	resolver := flow.NewResolver(nil, store, staticCompleter{reply: "Hi there!"},
		channel.NewNormalizer(nil, media.NewIngestor(nil)))
	return NewWebhookHandler(nil, auth.NewTokenVerifier(testSecretToken), resolver, client), &sent
}

func postUpdate(handler *WebhookHandler, body, secretToken string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	if secretToken != "" {
		req.Header.Set(secretTokenHeader, secretToken)
	}
	rec := httptest.NewRecorder()
	return rec, handler.Handle(e.NewContext(req, rec))
}

func TestHandleRejectsBadSecretToken(t *testing.T) {
	t.Parallel()

	handler, sent := newTestHandler(t, conversation.NewMemoryStore())

	tests := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"wrong token", "not-the-secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := postUpdate(handler, `{"update_id":1}`, tt.token)

			var httpErr *echo.HTTPError
			if !errors.As(err, &httpErr) || httpErr.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %v", err)
			}
			if len(*sent) != 0 {
				t.Fatal("no reply must be dispatched")
			}
		})
	}
}

func TestHandleAcksNonMessageUpdates(t *testing.T) {
	t.Parallel()

	handler, sent := newTestHandler(t, conversation.NewMemoryStore())
	body := `{"update_id":2,"callback_query":{"id":"cb1","data":"yes"}}`

	rec, err := postUpdate(handler, body, testSecretToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != flow.AckSkipped {
		t.Fatalf("body = %q, want %q", rec.Body.String(), flow.AckSkipped)
	}
	if len(*sent) != 0 {
		t.Fatal("no reply must be dispatched")
	}
}

func TestHandleTextRound(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore()
	handler, sent := newTestHandler(t, store)
	body := `{
		"update_id": 3,
		"message": {
			"message_id": 101,
			"chat": {"id": 987654321, "type": "private"},
			"date": 1718000000,
			"text": "Hello"
		}
	}`

	rec, err := postUpdate(handler, body, testSecretToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != flow.AckOK {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if len(*sent) != 1 || (*sent)[0] != "Hi there!" {
		t.Fatalf("unexpected replies: %#v", *sent)
	}

	convo, err := store.Load(context.Background(), "telegram:987654321")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(convo.Context) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(convo.Context))
	}
	if convo.Context[0].TextContent() != "Hello" {
		t.Fatalf("unexpected first turn %q", convo.Context[0].TextContent())
	}
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	handler, _ := newTestHandler(t, conversation.NewMemoryStore())
	_, err := postUpdate(handler, `{not json`, testSecretToken)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
