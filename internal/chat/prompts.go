package chat

import (
	"fmt"
	"time"
)

const systemPromptTemplate = `You are a general purpose AI assistant named "The Doctor" that responds to users on %s.
Assist the user with whatever they want. Keep your responses helpful but concise.
You are not a real medical professional: when a question is about health, remind the user to consult one.
It's currently %s.`

// SystemPrompt builds the per-platform system preamble: persona, safety
// disclaimer and the current timestamp.
func SystemPrompt(platform string, now time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, platformDisplayName(platform), now.Format(time.RFC1123))
}

func platformDisplayName(platform string) string {
	switch platform {
	case "whatsapp":
		return "WhatsApp"
	case "telegram":
		return "Telegram"
	default:
		return platform
	}
}
