package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/docbot/relay/internal/media"
)

// Client talks to the Graph API: media lookup and download, and text
// replies through the business phone number.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	phoneNumberID string
	accessToken   string
	logger        *slog.Logger
}

func NewClient(log *slog.Logger, baseURL, phoneNumberID, accessToken string) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		logger:        log.With(slog.String("adapter", "whatsapp")),
	}
}

// Resolve looks up a media id and returns its short-lived download URL
// together with the authoritative mime type and file size.
func (c *Client) Resolve(ctx context.Context, id string) (media.Resolved, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/"+id, nil)
	if err != nil {
		return media.Resolved{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return media.Resolved{}, fmt.Errorf("media lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return media.Resolved{}, fmt.Errorf("media lookup: status %d", resp.StatusCode)
	}

	var lookup mediaLookup
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return media.Resolved{}, fmt.Errorf("media lookup: decode: %w", err)
	}
	size, err := lookup.FileSize.Int64()
	if err != nil {
		return media.Resolved{}, fmt.Errorf("media lookup: file size %q: %w", lookup.FileSize, err)
	}
	return media.Resolved{URL: lookup.URL, MimeType: lookup.MimeType, FileSize: size}, nil
}

// Fetch downloads media bytes from a resolved URL. The URL is only
// valid with the access token attached.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download: status %d", resp.StatusCode)
	}
	return media.ReadAllWithLimit(resp.Body, media.MaxFileBytes)
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             TextBody `json:"text"`
}

// SendText posts a text reply to the given phone number.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	payload, err := json.Marshal(sendTextRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipientID,
		Type:             "text",
		Text:             TextBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("send text: encode: %w", err)
	}

	url := c.baseURL + "/" + c.phoneNumberID + "/messages"
	req, err := c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send text: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
