// Package telegram adapts the Telegram bot webhook and Bot API to the
// relay's inbound message shape.
package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/docbot/relay/internal/channel"
	"github.com/docbot/relay/internal/media"
)

// Type is the platform identifier for this adapter.
const Type = channel.PlatformTelegram

// photoMimeType is fixed: Telegram re-encodes photo uploads as JPEG
// and reports no mime type for them.
const photoMimeType = "image/jpeg"

// extractInbound pulls the message out of a webhook update. Updates
// without a message (edits, callbacks, member events) report ok=false.
func extractInbound(update tgbotapi.Update) (channel.InboundMessage, bool) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return channel.InboundMessage{}, false
	}

	msg := channel.InboundMessage{
		Platform: Type,
		SenderID: strconv.FormatInt(m.Chat.ID, 10),
	}

	switch {
	case m.Text != "":
		msg.Type = channel.TypeText
		msg.Text = m.Text
	case m.Voice != nil:
		msg.Type = channel.TypeAudio
		msg.Media = &media.Ref{ID: m.Voice.FileID, MimeType: m.Voice.MimeType}
	case m.Audio != nil:
		msg.Type = channel.TypeAudio
		msg.Media = &media.Ref{ID: m.Audio.FileID, MimeType: m.Audio.MimeType}
	case len(m.Photo) > 0:
		// Sizes arrive smallest first; take the largest rendition.
		largest := m.Photo[len(m.Photo)-1]
		msg.Type = channel.TypeImage
		msg.Caption = m.Caption
		msg.Media = &media.Ref{ID: largest.FileID, MimeType: photoMimeType}
	case m.Video != nil:
		msg.Type = channel.TypeVideo
		msg.Caption = m.Caption
		msg.Media = &media.Ref{ID: m.Video.FileID, MimeType: m.Video.MimeType}
	default:
		msg.Type = channel.TypeUnsupported
	}
	return msg, true
}
