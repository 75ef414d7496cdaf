package documents

import (
	"context"
	"os"
	"time"

	"github.com/tutorai/tutorai-backend/internal/logger"
)

// Indexer is the slice of the indexer client this package needs.
type Indexer interface {
	Index(ctx context.Context, documentID int64, filePath string) error
	RetryFailed(ctx context.Context, documentID *int64) error
}

type Service struct {
	repo    *Repo
	indexer Indexer
}

func NewService(repo *Repo, indexer Indexer) *Service {
	return &Service{repo: repo, indexer: indexer}
}

// TriggerIndex kicks off indexing in the background. Upload responses
// should not wait on PDF extraction; the document status tracks progress.
func (s *Service) TriggerIndex(doc *Document) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := s.indexer.Index(ctx, doc.ID, doc.FilePath); err != nil {
			logger.Error().Err(err).Int64("document_id", doc.ID).Msg("index trigger failed")
			return
		}
		logger.Info().Int64("document_id", doc.ID).Msg("indexing triggered")
	}()
}

// Reindex wipes existing chunks and runs indexing again.
func (s *Service) Reindex(ctx context.Context, id int64) (*Document, error) {
	doc, err := s.repo.ResetForReindex(ctx, id)
	if err != nil {
		return nil, err
	}
	s.TriggerIndex(doc)
	return doc, nil
}

// Delete removes the document row and best-effort removes the stored file.
func (s *Service) Delete(ctx context.Context, id int64) error {
	filePath, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if filePath != "" {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("file_path", filePath).Msg("remove uploaded file")
		}
	}
	return nil
}

// RetryFailedChunks resets failed chunks for one document.
func (s *Service) RetryFailedChunks(ctx context.Context, id int64) error {
	return s.indexer.RetryFailed(ctx, &id)
}
