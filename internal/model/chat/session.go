package chat

import "time"

// Session captures a transient logging conversation, optionally about a
// known HCP from the directory.
type Session struct {
	ID        string    `json:"id"`
	HCPID     string    `json:"hcpId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
