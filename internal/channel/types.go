// Package channel defines the normalized inbound message shape shared
// by all platform adapters, and its conversion into conversation turns.
package channel

import (
	"errors"

	"github.com/docbot/relay/internal/media"
)

// Platform identifies a messaging platform.
type Platform string

const (
	PlatformWhatsApp Platform = "whatsapp"
	PlatformTelegram Platform = "telegram"
)

// MessageType classifies an inbound message.
type MessageType string

const (
	TypeText        MessageType = "text"
	TypeAudio       MessageType = "audio"
	TypeImage       MessageType = "image"
	TypeVideo       MessageType = "video"
	TypeUnsupported MessageType = "unsupported"
)

// ErrUnsupportedMessageType indicates a message shape the relay does
// not turn into model input.
var ErrUnsupportedMessageType = errors.New("unsupported message type")

// InboundMessage is the unified representation of one platform-native
// message. Produced fresh per delivery and never persisted directly.
type InboundMessage struct {
	Platform Platform
	// SenderID is the platform-native sender identifier, also the
	// recipient of the reply.
	SenderID string
	Type     MessageType
	// Text is the message body for TypeText.
	Text string
	// Caption accompanies image and video messages.
	Caption string
	// Media references the platform media for non-text messages.
	Media *media.Ref
}
