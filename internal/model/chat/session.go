package chat

import "time"

// Session captures one in-memory thread with a contact.
type Session struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"personaId"`
	CreatedAt time.Time `json:"createdAt"`
}
