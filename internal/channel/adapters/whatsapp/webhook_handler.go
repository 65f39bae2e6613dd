package whatsapp

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docbot/relay/internal/auth"
	"github.com/docbot/relay/internal/conversation/flow"
)

const (
	signatureHeader     = "X-Hub-Signature-256"
	webhookMaxBodyBytes = int64(1 << 20) // 1 MiB
	subscribeMode       = "subscribe"
)

// WebhookHandler receives WhatsApp Business webhook deliveries and the
// subscription handshake.
type WebhookHandler struct {
	logger    *slog.Logger
	signature *auth.SignatureVerifier
	verify    *auth.TokenVerifier
	resolver  *flow.Resolver
	client    *Client
}

func NewWebhookHandler(log *slog.Logger, signature *auth.SignatureVerifier, verify *auth.TokenVerifier, resolver *flow.Resolver, client *Client) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger:    log.With(slog.String("handler", "whatsapp_webhook")),
		signature: signature,
		verify:    verify,
		resolver:  resolver,
		client:    client,
	}
}

// Register registers the webhook routes.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/meta/hub", h.HandleSubscribe)
	e.POST("/meta/hub", h.HandleMessage)
}

// HandleSubscribe answers the webhook subscription handshake: echo the
// challenge when the verify token matches, 400 otherwise.
func (h *WebhookHandler) HandleSubscribe(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == subscribeMode && challenge != "" && h.verify.Verify(token) {
		return c.String(http.StatusOK, challenge)
	}
	return c.String(http.StatusBadRequest, "Bad Request")
}

// HandleMessage authenticates a delivery against the body signature,
// then runs the round for its first message.
func (h *WebhookHandler) HandleMessage(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookMaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body")
	}
	if int64(len(body)) > webhookMaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	}

	// Nothing runs before the signature check passes.
	if !h.signature.Verify(body, c.Request().Header.Get(signatureHeader)) {
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed event")
	}

	msg, ok := extractInbound(event)
	if !ok {
		return c.String(http.StatusOK, flow.AckSkipped)
	}

	ack, err := h.resolver.Resolve(c.Request().Context(), h.client, msg)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "persistence failure")
	}
	return c.String(http.StatusOK, ack)
}
