package chat

import "time"

// Sender tags used by the front end and the server-side transcripts.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Message is one entry of a conversation transcript.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId,omitempty"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind,omitempty"` // text | question | draft
	CreatedAt time.Time `json:"createdAt"`
}
