package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/docbot/relay/internal/conversation"
)

// OpenAIClient is a Completer backed by an OpenAI-compatible chat
// completion endpoint.
type OpenAIClient struct {
	client  osdk.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewOpenAIClient(log *slog.Logger, apiKey, baseURL, model string, timeout time.Duration) *OpenAIClient {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client:  osdk.NewClient(opts...),
		model:   model,
		timeout: timeout,
		logger:  log.With(slog.String("service", "completion")),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]osdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	messages = append(messages, osdk.SystemMessage(req.System))
	for _, turn := range req.Messages {
		messages = append(messages, toCompletionMessage(turn))
	}

	started := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, osdk.ChatCompletionNewParams{
		Model:    osdk.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Result{}, fmt.Errorf("chat completion: empty choices")
	}

	reply := completion.Choices[0].Message.Content
	c.logger.Debug("completion finished",
		slog.String("model", c.model),
		slog.Int("input_turns", len(req.Messages)),
		slog.Duration("latency", time.Since(started)),
	)

	return Result{
		ReplyText: reply,
		Turns:     []conversation.Turn{conversation.NewTextTurn(conversation.RoleAssistant, reply)},
	}, nil
}

func toCompletionMessage(turn conversation.Turn) osdk.ChatCompletionMessageParamUnion {
	if turn.Role == conversation.RoleAssistant {
		return osdk.AssistantMessage(turn.TextContent())
	}
	parts := turn.Parts()
	if parts == nil {
		return osdk.UserMessage(turn.TextContent())
	}
	content := make([]osdk.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case conversation.PartText:
			content = append(content, osdk.TextContentPart(p.Text))
		case conversation.PartFile:
			content = append(content, fileContentPart(p))
		}
	}
	return osdk.UserMessage(content)
}

func fileContentPart(p conversation.Part) osdk.ChatCompletionContentPartUnionParam {
	encoded := base64.StdEncoding.EncodeToString(p.Data)
	if strings.HasPrefix(p.MimeType, "audio/") {
		return osdk.InputAudioContentPart(osdk.ChatCompletionContentPartInputAudioInputAudioParam{
			Data:   encoded,
			Format: audioFormat(p.MimeType),
		})
	}
	return osdk.ImageContentPart(osdk.ChatCompletionContentPartImageImageURLParam{
		URL: "data:" + p.MimeType + ";base64," + encoded,
	})
}

func audioFormat(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/wav"):
		return "wav"
	default:
		return "mp3"
	}
}
