package chat

import "time"

// Transcript identifies a transient, in-memory conversation.
type Transcript struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
