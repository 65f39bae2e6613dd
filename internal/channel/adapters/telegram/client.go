package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/docbot/relay/internal/media"
)

// Client wraps the Bot API for media resolution and reply dispatch.
type Client struct {
	bot        *tgbotapi.BotAPI
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient authenticates the bot token against the Bot API.
func NewClient(log *slog.Logger, botToken string) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Client{
		bot:        bot,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.With(slog.String("adapter", "telegram")),
	}, nil
}

// Resolve calls getFile for the id. The Bot API reports the file size
// but not the mime type; the declared type from the message applies.
func (c *Client) Resolve(_ context.Context, id string) (media.Resolved, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: id})
	if err != nil {
		return media.Resolved{}, fmt.Errorf("get file: %w", err)
	}
	return media.Resolved{
		URL:      file.Link(c.bot.Token),
		FileSize: int64(file.FileSize),
	}, nil
}

// Fetch downloads the file bytes from the Bot API file endpoint.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download: status %d", resp.StatusCode)
	}
	return media.ReadAllWithLimit(resp.Body, media.MaxFileBytes)
}

// SendText sends a plain text message to the chat.
func (c *Client) SendText(_ context.Context, recipientID, text string) error {
	chatID, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", recipientID, err)
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
