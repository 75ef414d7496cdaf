package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tutorai/tutorai-backend/internal/indexer/chunker"
	"github.com/tutorai/tutorai-backend/internal/indexer/extract"
	"github.com/tutorai/tutorai-backend/internal/indexer/store"
	"github.com/tutorai/tutorai-backend/internal/logger"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrNoText       = errors.New("no text extracted from PDF")
	ErrNoChunks     = errors.New("no chunks created from text")
)

// Store is the slice of the chunk store the pipeline needs.
type Store interface {
	SetDocumentProcessing(ctx context.Context, id int64) error
	SetDocumentCompleted(ctx context.Context, id int64, pageCount int) error
	SetDocumentFailed(ctx context.Context, id int64, errMsg string) error
	InsertChunks(ctx context.Context, documentID int64, chunks []store.NewChunk) (int, error)
	SelectEmbeddable(ctx context.Context, documentID *int64, maxRetries, batchSize int) ([]store.EmbeddableChunk, error)
	MarkEmbedded(ctx context.Context, chunkID int64, embedding []float32) error
	MarkFailed(ctx context.Context, chunkID int64, errMsg string) error
	ResetFailed(ctx context.Context, documentID *int64) (int, error)
	MatchChunks(ctx context.Context, queryEmbedding []float32, topK int, documentID *int64) ([]store.Match, error)
	CollectStats(ctx context.Context) (*store.Stats, error)
}

// Extractor turns a stored file into plain text plus a page count.
type Extractor interface {
	Extract(path string) (text string, pages int, err error)
}

// Embedder computes vectors for chunks and queries.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Service struct {
	store     Store
	extractor Extractor
	chunker   *chunker.Chunker
	embedder  Embedder
}

func New(st Store, extractor Extractor, ch *chunker.Chunker, embedder Embedder) *Service {
	return &Service{store: st, extractor: extractor, chunker: ch, embedder: embedder}
}

// IndexDocument extracts, chunks and stores a PDF. Chunks land in the
// pending state; embedding happens separately (EmbedPending). The
// document status tracks the outcome.
func (s *Service) IndexDocument(ctx context.Context, documentID int64, filePath string) (int, error) {
	if err := s.store.SetDocumentProcessing(ctx, documentID); err != nil {
		return 0, fmt.Errorf("set document processing: %w", err)
	}

	created, err := s.indexDocument(ctx, documentID, filePath)
	if err != nil {
		if ferr := s.store.SetDocumentFailed(ctx, documentID, err.Error()); ferr != nil {
			logger.Error().Err(ferr).Int64("document_id", documentID).Msg("set document failed")
		}
		return 0, err
	}

	return created, nil
}

func (s *Service) indexDocument(ctx context.Context, documentID int64, filePath string) (int, error) {
	text, pages, err := s.extractor.Extract(filePath)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrNoText):
			return 0, ErrNoText
		case errors.Is(err, os.ErrNotExist):
			return 0, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
		default:
			return 0, fmt.Errorf("extract text: %w", err)
		}
	}

	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, ErrNoChunks
	}

	rows := make([]store.NewChunk, 0, len(chunks))
	for _, ch := range chunks {
		rows = append(rows, store.NewChunk{Content: ch.Content, Index: ch.Index})
	}

	created, err := s.store.InsertChunks(ctx, documentID, rows)
	if err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	if err := s.store.SetDocumentCompleted(ctx, documentID, pages); err != nil {
		return 0, fmt.Errorf("set document completed: %w", err)
	}

	logger.Info().Int64("document_id", documentID).Int("chunks", created).Int("pages", pages).Msg("document chunked")
	return created, nil
}

// EmbedReport summarizes one embed pass.
type EmbedReport struct {
	Processed      int     `json:"processed"`
	Succeeded      int     `json:"succeeded"`
	Failed         int     `json:"failed"`
	FailedChunkIDs []int64 `json:"failed_chunk_ids,omitempty"`
}

// EmbedPending drains one batch of pending/failed chunks. Every chunk
// settles independently: an embedding failure records the error and moves
// on rather than aborting the batch.
func (s *Service) EmbedPending(ctx context.Context, documentID *int64, batchSize, maxRetries int) (*EmbedReport, error) {
	chunks, err := s.store.SelectEmbeddable(ctx, documentID, maxRetries, batchSize)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}

	report := &EmbedReport{Processed: len(chunks)}
	if len(chunks) == 0 {
		return report, nil
	}

	for _, ch := range chunks {
		embedding, err := s.embedder.EmbedDocument(ctx, ch.Content)
		if err != nil {
			logger.Warn().Err(err).Int64("chunk_id", ch.ID).Int("retry_count", ch.RetryCount).Msg("embed chunk failed")
			if merr := s.store.MarkFailed(ctx, ch.ID, err.Error()); merr != nil {
				return nil, fmt.Errorf("mark chunk %d failed: %w", ch.ID, merr)
			}
			report.Failed++
			report.FailedChunkIDs = append(report.FailedChunkIDs, ch.ID)
			continue
		}

		if err := s.store.MarkEmbedded(ctx, ch.ID, embedding); err != nil {
			return nil, fmt.Errorf("mark chunk %d embedded: %w", ch.ID, err)
		}
		report.Succeeded++
	}

	logger.Info().Int("processed", report.Processed).Int("succeeded", report.Succeeded).Int("failed", report.Failed).Msg("embed pass complete")
	return report, nil
}

// RetryFailed resets failed chunks to pending with a fresh retry budget.
func (s *Service) RetryFailed(ctx context.Context, documentID *int64) (int, error) {
	return s.store.ResetFailed(ctx, documentID)
}

// Retrieve embeds the query and returns the closest embedded chunks.
func (s *Service) Retrieve(ctx context.Context, query string, topK int, documentID *int64) ([]store.Match, error) {
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.store.MatchChunks(ctx, embedding, topK, documentID)
}

func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.CollectStats(ctx)
}
