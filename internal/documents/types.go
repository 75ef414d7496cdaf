package documents

import "time"

const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Document struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Filename       string    `json:"filename"`
	FilePath       string    `json:"file_path"`
	FileSizeBytes  int64     `json:"file_size_bytes"`
	UploadedBy     string    `json:"uploaded_by"`
	Status         string    `json:"status"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	PageCount      *int      `json:"page_count,omitempty"`
	ChunksTotal    int       `json:"chunks_total"`
	ChunksEmbedded int       `json:"chunks_embedded"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Detail adds the per-status chunk breakdown for the admin document page.
type Detail struct {
	Document
	ChunksByStatus map[string]int `json:"chunks_by_status"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}
