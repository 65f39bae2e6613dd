// Package whatsapp adapts the WhatsApp Business webhook and Graph API
// to the relay's inbound message shape.
package whatsapp

import "encoding/json"

// Event is the webhook envelope for a WhatsApp Business account.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Value Value  `json:"value"`
	Field string `json:"field"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts"`
	// Messages is empty for non-message events such as status callbacks.
	Messages []Message `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	Profile Profile `json:"profile"`
	WaID    string  `json:"wa_id"`
}

type Profile struct {
	Name string `json:"name"`
}

// Message is one inbound message. Exactly one of Text, Audio, Image or
// Video is set, matching Type.
type Message struct {
	From      string     `json:"from"`
	ID        string     `json:"id"`
	Timestamp string     `json:"timestamp"`
	Type      string     `json:"type"`
	Text      *TextBody  `json:"text,omitempty"`
	Audio     *MediaBody `json:"audio,omitempty"`
	Image     *MediaBody `json:"image,omitempty"`
	Video     *MediaBody `json:"video,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

type MediaBody struct {
	ID       string `json:"id"`
	Caption  string `json:"caption,omitempty"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
}

// mediaLookup is the Graph API response for a media id lookup.
// file_size arrives as a JSON number or string depending on API
// version, hence json.Number.
type mediaLookup struct {
	MessagingProduct string      `json:"messaging_product"`
	URL              string      `json:"url"`
	MimeType         string      `json:"mime_type"`
	SHA256           string      `json:"sha256"`
	FileSize         json.Number `json:"file_size"`
	ID               string      `json:"id"`
}
