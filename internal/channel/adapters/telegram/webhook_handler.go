package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"

	"github.com/docbot/relay/internal/auth"
	"github.com/docbot/relay/internal/conversation/flow"
)

const (
	secretTokenHeader   = "X-Telegram-Bot-Api-Secret-Token"
	webhookMaxBodyBytes = int64(1 << 20) // 1 MiB
)

// WebhookHandler receives Telegram bot webhook updates.
type WebhookHandler struct {
	logger   *slog.Logger
	secret   *auth.TokenVerifier
	resolver *flow.Resolver
	client   *Client
}

func NewWebhookHandler(log *slog.Logger, secret *auth.TokenVerifier, resolver *flow.Resolver, client *Client) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger:   log.With(slog.String("handler", "telegram_webhook")),
		secret:   secret,
		resolver: resolver,
		client:   client,
	}
}

// Register registers the webhook route.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/telegram/webhook", h.Handle)
}

// Handle authenticates the delivery against the secret token header,
// then runs the round for the update's message.
func (h *WebhookHandler) Handle(c echo.Context) error {
	if !h.secret.Verify(c.Request().Header.Get(secretTokenHeader)) {
		return echo.NewHTTPError(http.StatusForbidden, "invalid secret token")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookMaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body")
	}
	if int64(len(body)) > webhookMaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed update")
	}

	msg, ok := extractInbound(update)
	if !ok {
		return c.String(http.StatusOK, flow.AckSkipped)
	}

	ack, err := h.resolver.Resolve(c.Request().Context(), h.client, msg)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "persistence failure")
	}
	return c.String(http.StatusOK, ack)
}
