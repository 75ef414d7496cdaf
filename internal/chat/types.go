package chat

import "time"

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        int64       `json:"id"`
	SessionID string      `json:"session_id"`
	Role      string      `json:"role"` // user | assistant
	Content   string      `json:"content"`
	Sources   []SourceRef `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// SourceRef points an assistant answer back at the chunk it was grounded
// on. Stored as JSONB alongside the message.
type SourceRef struct {
	ChunkID    int64   `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
