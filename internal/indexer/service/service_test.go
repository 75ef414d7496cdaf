package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorai/tutorai-backend/internal/indexer/chunker"
	"github.com/tutorai/tutorai-backend/internal/indexer/extract"
	"github.com/tutorai/tutorai-backend/internal/indexer/store"
)

type fakeStore struct {
	processing  []int64
	completed   map[int64]int
	failed      map[int64]string
	inserted    map[int64][]store.NewChunk
	embeddable  []store.EmbeddableChunk
	embedded    map[int64][]float32
	chunkErrors map[int64]string
	resetCount  int
	matches     []store.Match
	stats       *store.Stats
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		completed:   map[int64]int{},
		failed:      map[int64]string{},
		inserted:    map[int64][]store.NewChunk{},
		embedded:    map[int64][]float32{},
		chunkErrors: map[int64]string{},
	}
}

func (f *fakeStore) SetDocumentProcessing(_ context.Context, id int64) error {
	f.processing = append(f.processing, id)
	return nil
}

func (f *fakeStore) SetDocumentCompleted(_ context.Context, id int64, pageCount int) error {
	f.completed[id] = pageCount
	return nil
}

func (f *fakeStore) SetDocumentFailed(_ context.Context, id int64, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

func (f *fakeStore) InsertChunks(_ context.Context, documentID int64, chunks []store.NewChunk) (int, error) {
	f.inserted[documentID] = chunks
	return len(chunks), nil
}

func (f *fakeStore) SelectEmbeddable(_ context.Context, _ *int64, _, _ int) ([]store.EmbeddableChunk, error) {
	return f.embeddable, nil
}

func (f *fakeStore) MarkEmbedded(_ context.Context, chunkID int64, embedding []float32) error {
	f.embedded[chunkID] = embedding
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, chunkID int64, errMsg string) error {
	f.chunkErrors[chunkID] = errMsg
	return nil
}

func (f *fakeStore) ResetFailed(_ context.Context, _ *int64) (int, error) {
	return f.resetCount, nil
}

func (f *fakeStore) MatchChunks(_ context.Context, _ []float32, _ int, _ *int64) ([]store.Match, error) {
	return f.matches, nil
}

func (f *fakeStore) CollectStats(_ context.Context) (*store.Stats, error) {
	return f.stats, nil
}

type fakeExtractor struct {
	text  string
	pages int
	err   error
}

func (f *fakeExtractor) Extract(string) (string, int, error) {
	return f.text, f.pages, f.err
}

type fakeEmbedder struct {
	vec     []float32
	failOn  map[string]error
	queries []string
}

func (f *fakeEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	if err, ok := f.failOn[text]; ok {
		return nil, err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	return f.vec, nil
}

func newService(st *fakeStore, ex *fakeExtractor, em *fakeEmbedder) *Service {
	return New(st, ex, chunker.New(100, 20), em)
}

func TestIndexDocument(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		st := newFakeStore()
		ex := &fakeExtractor{text: "First sentence of the lecture. Second sentence here.", pages: 4}
		svc := newService(st, ex, &fakeEmbedder{})

		n, err := svc.IndexDocument(context.Background(), 7, "/uploads/doc.pdf")
		require.NoError(t, err)
		assert.Greater(t, n, 0)
		assert.Equal(t, []int64{7}, st.processing)
		assert.Equal(t, 4, st.completed[7])
		assert.Len(t, st.inserted[7], n)
		assert.Empty(t, st.failed)
	})

	t.Run("missing file marks document failed", func(t *testing.T) {
		st := newFakeStore()
		ex := &fakeExtractor{err: errors.New("stat file: file does not exist")}
		svc := newService(st, ex, &fakeEmbedder{})

		_, err := svc.IndexDocument(context.Background(), 7, "/uploads/missing.pdf")
		require.Error(t, err)
		assert.NotEmpty(t, st.failed[7])
	})

	t.Run("empty pdf maps to ErrNoText", func(t *testing.T) {
		st := newFakeStore()
		ex := &fakeExtractor{err: extract.ErrNoText}
		svc := newService(st, ex, &fakeEmbedder{})

		_, err := svc.IndexDocument(context.Background(), 7, "/uploads/scan.pdf")
		assert.ErrorIs(t, err, ErrNoText)
		assert.Equal(t, ErrNoText.Error(), st.failed[7])
	})
}

func TestEmbedPending(t *testing.T) {
	t.Run("settles each chunk independently", func(t *testing.T) {
		st := newFakeStore()
		st.embeddable = []store.EmbeddableChunk{
			{ID: 1, Content: "good chunk"},
			{ID: 2, Content: "bad chunk", RetryCount: 1},
			{ID: 3, Content: "another good chunk"},
		}
		em := &fakeEmbedder{
			vec:    []float32{0.1, 0.2},
			failOn: map[string]error{"bad chunk": errors.New("quota exceeded")},
		}
		svc := newService(st, &fakeExtractor{}, em)

		report, err := svc.EmbedPending(context.Background(), nil, 50, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Processed)
		assert.Equal(t, 2, report.Succeeded)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, []int64{2}, report.FailedChunkIDs)

		assert.Contains(t, st.embedded, int64(1))
		assert.Contains(t, st.embedded, int64(3))
		assert.Equal(t, "quota exceeded", st.chunkErrors[2])
	})

	t.Run("empty batch", func(t *testing.T) {
		st := newFakeStore()
		svc := newService(st, &fakeExtractor{}, &fakeEmbedder{})

		report, err := svc.EmbedPending(context.Background(), nil, 50, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Processed)
	})
}

func TestRetrieve(t *testing.T) {
	st := newFakeStore()
	st.matches = []store.Match{{ChunkID: 5, DocumentID: 1, Content: "answer text", Similarity: 0.88}}
	em := &fakeEmbedder{vec: []float32{0.3, 0.4}}
	svc := newService(st, &fakeExtractor{}, em)

	got, err := svc.Retrieve(context.Background(), "what is a goroutine", 5, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].ChunkID)
	assert.Equal(t, []string{"what is a goroutine"}, em.queries)
}

func TestRetryFailed(t *testing.T) {
	st := newFakeStore()
	st.resetCount = 6
	svc := newService(st, &fakeExtractor{}, &fakeEmbedder{})

	n, err := svc.RetryFailed(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}
