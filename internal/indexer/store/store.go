package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const (
	ChunkPending  = "pending"
	ChunkEmbedded = "embedded"
	ChunkFailed   = "failed"
)

// Store wraps the indexer's database access. It runs on database/sql so
// the chunk state machine can be tested with sqlmock.
type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &Store{db: db}, nil
}

// NewWithDB wires an existing handle (tests).
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- documents ---

func (s *Store) SetDocumentProcessing(ctx context.Context, id int64) error {
	const q = `UPDATE documents SET status = 'processing', error_message = NULL, updated_at = now() WHERE id = $1;`
	return s.execDocumentUpdate(ctx, q, id)
}

func (s *Store) SetDocumentCompleted(ctx context.Context, id int64, pageCount int) error {
	const q = `UPDATE documents SET status = 'completed', page_count = $2, error_message = NULL, updated_at = now() WHERE id = $1;`
	return s.execDocumentUpdate(ctx, q, id, pageCount)
}

func (s *Store) SetDocumentFailed(ctx context.Context, id int64, errMsg string) error {
	const q = `UPDATE documents SET status = 'failed', error_message = $2, updated_at = now() WHERE id = $1;`
	return s.execDocumentUpdate(ctx, q, id, errMsg)
}

func (s *Store) execDocumentUpdate(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- chunks ---

type NewChunk struct {
	Content string
	Index   int
}

// InsertChunks bulk-inserts chunks in the pending state inside one
// transaction.
func (s *Store) InsertChunks(ctx context.Context, documentID int64, chunks []NewChunk) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO chunks (document_id, content, chunk_index, status) VALUES ($1, $2, $3, 'pending');`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx, documentID, ch.Content, ch.Index); err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", ch.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(chunks), nil
}

type EmbeddableChunk struct {
	ID         int64
	Content    string
	RetryCount int
}

// SelectEmbeddable returns the next batch of chunks waiting for an
// embedding: pending or failed rows under the retry limit, oldest first.
func (s *Store) SelectEmbeddable(ctx context.Context, documentID *int64, maxRetries, batchSize int) ([]EmbeddableChunk, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if documentID != nil {
		const q = `
SELECT id, content, retry_count
FROM chunks
WHERE document_id = $1
  AND status IN ('pending', 'failed')
  AND retry_count < $2
ORDER BY id
LIMIT $3;`
		rows, err = s.db.QueryContext(ctx, q, *documentID, maxRetries, batchSize)
	} else {
		const q = `
SELECT id, content, retry_count
FROM chunks
WHERE status IN ('pending', 'failed')
  AND retry_count < $1
ORDER BY id
LIMIT $2;`
		rows, err = s.db.QueryContext(ctx, q, maxRetries, batchSize)
	}
	if err != nil {
		return nil, fmt.Errorf("select embeddable: %w", err)
	}
	defer rows.Close()

	var out []EmbeddableChunk
	for rows.Next() {
		var ch EmbeddableChunk
		if err := rows.Scan(&ch.ID, &ch.Content, &ch.RetryCount); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// MarkEmbedded stores the vector and settles the chunk. The embedding is
// non-null exactly when status is embedded.
func (s *Store) MarkEmbedded(ctx context.Context, chunkID int64, embedding []float32) error {
	const q = `
UPDATE chunks
SET embedding = $2,
    status = 'embedded',
    error_message = NULL,
    updated_at = now()
WHERE id = $1;`
	if _, err := s.db.ExecContext(ctx, q, chunkID, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("mark embedded: %w", err)
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, chunkID int64, errMsg string) error {
	const q = `
UPDATE chunks
SET status = 'failed',
    error_message = $2,
    retry_count = retry_count + 1,
    updated_at = now()
WHERE id = $1;`
	if _, err := s.db.ExecContext(ctx, q, chunkID, errMsg); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// ResetFailed puts failed chunks back into the pending state with a fresh
// retry budget.
func (s *Store) ResetFailed(ctx context.Context, documentID *int64) (int, error) {
	var (
		res sql.Result
		err error
	)

	if documentID != nil {
		const q = `
UPDATE chunks
SET status = 'pending', retry_count = 0, error_message = NULL, updated_at = now()
WHERE document_id = $1 AND status = 'failed';`
		res, err = s.db.ExecContext(ctx, q, *documentID)
	} else {
		const q = `
UPDATE chunks
SET status = 'pending', retry_count = 0, error_message = NULL, updated_at = now()
WHERE status = 'failed';`
		res, err = s.db.ExecContext(ctx, q)
	}
	if err != nil {
		return 0, fmt.Errorf("reset failed chunks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// --- retrieval ---

type Match struct {
	ChunkID    int64   `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
}

// MatchChunks runs the cosine-similarity search over embedded chunks.
func (s *Store) MatchChunks(ctx context.Context, queryEmbedding []float32, topK int, documentID *int64) ([]Match, error) {
	const q = `SELECT chunk_id, document_id, content, chunk_index, similarity FROM match_chunks($1, $2, $3);`

	var docID any
	if documentID != nil {
		docID = *documentID
	}

	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(queryEmbedding), topK, docID)
	if err != nil {
		return nil, fmt.Errorf("match chunks: %w", err)
	}
	defer rows.Close()

	out := []Match{}
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ChunkID, &m.DocumentID, &m.Content, &m.ChunkIndex, &m.Similarity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- stats ---

type Stats struct {
	DocumentsByStatus map[string]int `json:"documents_by_status"`
	ChunksByStatus    map[string]int `json:"chunks_by_status"`
	ChunksTotal       int            `json:"chunks_total"`
	ChunksEmbedded    int            `json:"chunks_with_embeddings"`
}

func (s *Store) CollectStats(ctx context.Context) (*Stats, error) {
	out := &Stats{
		DocumentsByStatus: map[string]int{},
		ChunksByStatus:    map[string]int{},
	}

	if err := s.groupCount(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`, out.DocumentsByStatus); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, `SELECT status, COUNT(*) FROM chunks GROUP BY status`, out.ChunksByStatus); err != nil {
		return nil, err
	}

	const totalsQ = `SELECT COUNT(*), COUNT(embedding) FROM chunks;`
	if err := s.db.QueryRowContext(ctx, totalsQ).Scan(&out.ChunksTotal, &out.ChunksEmbedded); err != nil {
		return nil, fmt.Errorf("chunk totals: %w", err)
	}

	return out, nil
}

func (s *Store) groupCount(ctx context.Context, q string, dst map[string]int) error {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("group count: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dst[key] = count
	}
	return rows.Err()
}
