// Package conversation defines the conversation history model and the
// store that owns its persisted state.
package conversation

import (
	"encoding/json"
	"strings"
)

// Turn role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content part type constants.
const (
	PartText = "text"
	PartFile = "file"
)

// Part is one element of a multi-part turn content.
type Part struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	// Data carries raw file bytes; encoding/json base64-encodes it.
	Data []byte `json:"data,omitempty"`
}

// Turn is one unit of conversation history. Content is either a JSON
// string (plain text) or a JSON array of Part.
type Turn struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// NewTextTurn builds a turn with plain string content.
func NewTextTurn(role, text string) Turn {
	data, _ := json.Marshal(text)
	return Turn{Role: role, Content: data}
}

// NewMixedTurn builds a turn with multi-part content.
func NewMixedTurn(role string, parts []Part) Turn {
	data, _ := json.Marshal(parts)
	return Turn{Role: role, Content: data}
}

// TextContent extracts the plain text of the turn. For multi-part
// content it joins the text parts.
func (t Turn) TextContent() string {
	if len(t.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(t.Content, &s); err == nil {
		return s
	}
	texts := make([]string, 0, 2)
	for _, p := range t.Parts() {
		if strings.TrimSpace(p.Text) != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Parts parses the content as multi-part. Returns nil for plain string
// content.
func (t Turn) Parts() []Part {
	if len(t.Content) == 0 {
		return nil
	}
	var parts []Part
	if err := json.Unmarshal(t.Content, &parts); err != nil {
		return nil
	}
	return parts
}

// Conversation holds the ordered history for one conversation key.
// Context order is chronological; the store only ever appends to it.
type Conversation struct {
	Context []Turn `json:"context"`
}
