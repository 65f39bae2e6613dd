package channel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docbot/relay/internal/conversation"
	"github.com/docbot/relay/internal/media"
)

// audioPlaceholder is the leading text part attached to audio turns,
// since audio messages carry no caption of their own.
const audioPlaceholder = "Here is an audio message"

// Normalizer converts a normalized inbound message into a user turn,
// fetching and validating referenced media on the way. Only text,
// audio, and captioned image/video become model input; everything else
// is rejected rather than guessed at.
type Normalizer struct {
	ingestor *media.Ingestor
	logger   *slog.Logger
}

func NewNormalizer(log *slog.Logger, ingestor *media.Ingestor) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{
		ingestor: ingestor,
		logger:   log.With(slog.String("service", "normalizer")),
	}
}

// Normalize builds the user turn for msg. src is the platform media
// collaborator used for non-text messages.
func (n *Normalizer) Normalize(ctx context.Context, src media.Source, msg InboundMessage) (conversation.Turn, error) {
	switch msg.Type {
	case TypeText:
		return conversation.NewTextTurn(conversation.RoleUser, msg.Text), nil

	case TypeAudio:
		if msg.Media == nil {
			return conversation.Turn{}, fmt.Errorf("%w: audio without media reference", ErrUnsupportedMessageType)
		}
		file, err := n.ingestor.Ingest(ctx, src, *msg.Media, media.CategoryAudio)
		if err != nil {
			return conversation.Turn{}, err
		}
		return conversation.NewMixedTurn(conversation.RoleUser, []conversation.Part{
			{Type: conversation.PartText, Text: audioPlaceholder},
			{Type: conversation.PartFile, MimeType: file.MimeType, Data: file.Data},
		}), nil

	case TypeImage, TypeVideo:
		if msg.Caption == "" || msg.Media == nil {
			return conversation.Turn{}, fmt.Errorf("%w: %s without caption", ErrUnsupportedMessageType, msg.Type)
		}
		file, err := n.ingestor.Ingest(ctx, src, *msg.Media, media.CategoryImage)
		if err != nil {
			return conversation.Turn{}, err
		}
		return conversation.NewMixedTurn(conversation.RoleUser, []conversation.Part{
			{Type: conversation.PartText, Text: msg.Caption},
			{Type: conversation.PartFile, MimeType: file.MimeType, Data: file.Data},
		}), nil

	default:
		return conversation.Turn{}, fmt.Errorf("%w: %s", ErrUnsupportedMessageType, msg.Type)
	}
}
