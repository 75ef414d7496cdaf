package indexerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	t.Run("posts document id and path", func(t *testing.T) {
		var got indexReq
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/index", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok": true, "chunks_created": 12}`))
		}))
		defer srv.Close()

		c := New(srv.URL)
		err := c.Index(context.Background(), 7, "/uploads/doc.pdf")
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.DocumentID)
		assert.Equal(t, "/uploads/doc.pdf", got.FilePath)
	})

	t.Run("surfaces upstream error body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"ok": false, "error": "file not found"}`))
		}))
		defer srv.Close()

		c := New(srv.URL)
		err := c.Index(context.Background(), 7, "/gone.pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
		assert.Contains(t, err.Error(), "file not found")
	})
}

func TestRetrieve(t *testing.T) {
	t.Run("decodes results", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/retrieve", r.URL.Path)

			var req retrieveReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "what is a channel", req.Query)
			assert.Equal(t, 3, req.TopK)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok": true, "results": [
				{"chunk_id": 11, "document_id": 2, "content": "a channel is", "chunk_index": 0, "similarity": 0.93}
			]}`))
		}))
		defer srv.Close()

		c := New(srv.URL)
		got, err := c.Retrieve(context.Background(), "what is a channel", 3, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(11), got[0].ChunkID)
		assert.InDelta(t, 0.93, got[0].Similarity, 1e-9)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New(srv.URL)
		_, err := c.Retrieve(context.Background(), "query", 5, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}

func TestRetryFailed(t *testing.T) {
	t.Run("without document filter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/retry-failed", r.URL.Path)
			assert.Empty(t, r.URL.Query().Get("document_id"))
			w.Write([]byte(`{"ok": true, "reset_count": 2}`))
		}))
		defer srv.Close()

		require.NoError(t, New(srv.URL).RetryFailed(context.Background(), nil))
	})

	t.Run("with document filter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "9", r.URL.Query().Get("document_id"))
			w.Write([]byte(`{"ok": true, "reset_count": 1}`))
		}))
		defer srv.Close()

		docID := int64(9)
		require.NoError(t, New(srv.URL).RetryFailed(context.Background(), &docID))
	})
}
