package indexerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	longTimeout    = 120 * time.Second // indexing a large PDF can take a while
)

// Client talks to the indexer service.
type Client struct {
	baseURL       string
	defaultClient *http.Client
	longClient    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:       baseURL,
		defaultClient: &http.Client{Timeout: defaultTimeout},
		longClient:    &http.Client{Timeout: longTimeout},
	}
}

type RetrievedChunk struct {
	ChunkID    int64   `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
}

type indexReq struct {
	DocumentID int64  `json:"document_id"`
	FilePath   string `json:"file_path"`
}

type retrieveReq struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	DocumentID *int64 `json:"document_id,omitempty"`
}

type retrieveResp struct {
	OK      bool             `json:"ok"`
	Results []RetrievedChunk `json:"results"`
	Error   string           `json:"error"`
}

// Index asks the indexer to extract and chunk a stored PDF.
func (c *Client) Index(ctx context.Context, documentID int64, filePath string) error {
	body, err := json.Marshal(indexReq{DocumentID: documentID, FilePath: filePath})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/index", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.longClient.Do(req)
	if err != nil {
		return fmt.Errorf("indexer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}
	return nil
}

// Retrieve runs semantic search over embedded chunks.
func (c *Client) Retrieve(ctx context.Context, query string, topK int, documentID *int64) ([]RetrievedChunk, error) {
	body, err := json.Marshal(retrieveReq{Query: query, TopK: topK, DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/retrieve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.defaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var out retrieveResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Results, nil
}

// RetryFailed resets failed chunks so the embed scheduler picks them up
// again. A nil documentID retries across all documents.
func (c *Client) RetryFailed(ctx context.Context, documentID *int64) error {
	u, err := url.Parse(c.baseURL + "/retry-failed")
	if err != nil {
		return fmt.Errorf("parse base URL: %w", err)
	}
	if documentID != nil {
		q := u.Query()
		q.Set("document_id", strconv.FormatInt(*documentID, 10))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.defaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("indexer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}
	return nil
}

func readBodySnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(bytes.TrimSpace(b))
}
