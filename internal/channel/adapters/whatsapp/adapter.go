package whatsapp

import (
	"github.com/docbot/relay/internal/channel"
	"github.com/docbot/relay/internal/media"
)

// Type is the platform identifier for this adapter.
const Type = channel.PlatformWhatsApp

// extractInbound pulls the first message out of a delivery. A delivery
// may carry no messages at all (status callbacks and other non-message
// events); those report ok=false and are acknowledged without work.
func extractInbound(event Event) (channel.InboundMessage, bool) {
	if len(event.Entry) == 0 || len(event.Entry[0].Changes) == 0 {
		return channel.InboundMessage{}, false
	}
	messages := event.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return channel.InboundMessage{}, false
	}

	raw := messages[0]
	msg := channel.InboundMessage{
		Platform: Type,
		SenderID: raw.From,
	}

	switch {
	case raw.Type == "text" && raw.Text != nil:
		msg.Type = channel.TypeText
		msg.Text = raw.Text.Body
	case raw.Type == "audio" && raw.Audio != nil:
		msg.Type = channel.TypeAudio
		msg.Media = &media.Ref{ID: raw.Audio.ID, MimeType: raw.Audio.MimeType}
	case raw.Type == "image" && raw.Image != nil:
		msg.Type = channel.TypeImage
		msg.Caption = raw.Image.Caption
		msg.Media = &media.Ref{ID: raw.Image.ID, MimeType: raw.Image.MimeType}
	case raw.Type == "video" && raw.Video != nil:
		msg.Type = channel.TypeVideo
		msg.Caption = raw.Video.Caption
		msg.Media = &media.Ref{ID: raw.Video.ID, MimeType: raw.Video.MimeType}
	default:
		msg.Type = channel.TypeUnsupported
	}
	return msg, true
}
