package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role identifies who sent a message in a simulated thread.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TimestampLayout matches the clock shown next to each bubble.
const TimestampLayout = "03:04 PM"

// ParseRole accepts only the two known senders.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("unknown message role %q", raw)
	}
}

// UnmarshalJSON rejects roles other than user/assistant.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Message is a single turn in a conversation. Transcripts are append-only.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// NewMessage stamps a message with the given clock time.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: at.Format(TimestampLayout),
	}
}

// SeedTranscript is the opening exchange a fresh thread can start with.
func SeedTranscript() []Message {
	return []Message{
		{Role: RoleAssistant, Content: "hey!", Timestamp: "10:30 AM"},
		{Role: RoleUser, Content: "hi! just finished that project I was telling you about", Timestamp: "10:31 AM"},
		{Role: RoleAssistant, Content: "YAY", Timestamp: "10:32 AM"},
		{Role: RoleUser, Content: "so relieved!", Timestamp: "10:33 AM"},
		{Role: RoleAssistant, Content: "that's good to hear! let's ", Timestamp: "10:34 AM"},
	}
}
