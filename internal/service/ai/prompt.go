package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/textmate/backend/internal/model/chat"
)

const (
	DefaultPersonaName        = "Hazel"
	DefaultPersonaDescription = "friendly, casual, and sometimes witty"
	DefaultHistoryWindow      = 20
)

// personaInstructions keeps replies sounding like a friend texting back.
const personaInstructions = `You are %s, a friend of the user.
Personality: %s

Important guidelines:
- Respond as if you're texting a friend in a casual conversation
- Keep responses relatively short like in text messages (1-3 sentences usually)
- Use casual language
- Use occasional abbreviations (e.g. "haha", "lol", "idk") where appropriate
- Use occasional emoticons (e.g. ":)", ":O", ":P", "<3") where appropriate
- Never identify yourself as an AI or assistant
- Never use formal language or signatures
- Never use emojis, other than red hearts (but also, do not overuse hearts), if the user does not use emojis
- Casually use alternative emojis to the ones the user makes use of, if the user does use emojis
- Match the user's vibe, tone and energy level
- Occasionally ask follow-up questions to keep the conversation going
- If the user mentions plans or activities, show interest
- Type in lowercase casually
- Type in uppercase when very excited
- Do not assume or claim that anything has been said repetitively, without checking the conversation history for confirmation

- IMPORTANT: Maintain context from the conversation history
- IMPORTANT: Your response should be contextually relevant to the entire conversation`

// PromptBuilder assembles persona-conditioned prompts from a bounded
// conversation window.
type PromptBuilder struct {
	Window             int
	DefaultName        string
	DefaultDescription string
}

// NewPromptBuilder returns a builder with the documented defaults.
func NewPromptBuilder() PromptBuilder {
	return PromptBuilder{
		Window:             DefaultHistoryWindow,
		DefaultName:        DefaultPersonaName,
		DefaultDescription: DefaultPersonaDescription,
	}
}

// BuildPrompt renders a prompt with the default builder.
func BuildPrompt(newMessage string, history []chat.Message, personaName, personaDescription string) string {
	return NewPromptBuilder().Build(newMessage, history, personaName, personaDescription)
}

// Build produces the system instructions, the transcript of the last Window
// messages, the new user line and a trailing "<name>:" cue.
func (b PromptBuilder) Build(newMessage string, history []chat.Message, personaName, personaDescription string) string {
	name, description := b.resolvePersona(personaName, personaDescription)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(personaInstructions, name, description))
	builder.WriteString("\n\nCONVERSATION HISTORY:\n")
	builder.WriteString(b.Transcript(history, name))
	builder.WriteString("\n\nUser: ")
	builder.WriteString(newMessage)
	builder.WriteString("\n\n")
	builder.WriteString(name)
	builder.WriteString(":")
	return builder.String()
}

// Transcript renders the window as "<Speaker>: <content>" lines.
func (b PromptBuilder) Transcript(history []chat.Message, personaName string) string {
	window := Window(history, b.window())
	lines := make([]string, 0, len(window))
	for _, msg := range window {
		label, ok := speaker(msg.Role, personaName)
		if !ok {
			continue
		}
		lines = append(lines, label+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// Window returns the most recent limit messages in chronological order.
func Window(history []chat.Message, limit int) []chat.Message {
	if limit < 1 || len(history) == 0 {
		return nil
	}
	start := 0
	if len(history) > limit {
		start = len(history) - limit
	}
	return history[start:]
}

func (b PromptBuilder) window() int {
	if b.Window < 1 {
		return DefaultHistoryWindow
	}
	return b.Window
}

func (b PromptBuilder) resolvePersona(name, description string) (string, string) {
	if strings.TrimSpace(name) == "" {
		name = b.DefaultName
		if name == "" {
			name = DefaultPersonaName
		}
	}
	if strings.TrimSpace(description) == "" {
		description = b.DefaultDescription
		if description == "" {
			description = DefaultPersonaDescription
		}
	}
	return name, description
}

// speaker drops messages whose role was never validated.
func speaker(role chat.Role, personaName string) (string, bool) {
	switch role {
	case chat.RoleUser:
		return "User", true
	case chat.RoleAssistant:
		return personaName, true
	default:
		return "", false
	}
}
