package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdemo/internal/chunker"
	"ragdemo/internal/domain"
	"ragdemo/internal/index"
	"ragdemo/internal/service"
)

type stubGenerator struct{ answer string }

func (g *stubGenerator) Answer(context.Context, string, []domain.ScoredChunk) (string, error) {
	return g.answer, nil
}

func (g *stubGenerator) StreamAnswer(_ context.Context, _ string, _ []domain.ScoredChunk, onDelta func(string)) (string, error) {
	for _, part := range strings.SplitAfter(g.answer, " ") {
		if onDelta != nil {
			onDelta(part)
		}
	}
	return g.answer, nil
}

type staticSource struct{ docs []domain.Document }

func (s *staticSource) Documents() []domain.Document { return s.docs }

func newTestRouter(t *testing.T, source DocumentSource) http.Handler {
	t.Helper()
	ch, err := chunker.NewParagraphChunker(400, 80)
	require.NoError(t, err)
	svc := service.New(ch, index.NewSearcher(), &stubGenerator{answer: "cats are mammals [1]."}, nil, 5, 5)
	api := NewAPI(svc, source, slog.New(slog.NewTextHandler(io.Discard, nil)), 400, 80)
	return NewRouter(api)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestChunk(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := postJSON(t, h, "/api/v1/chunk", map[string]any{
		"documents": []map[string]string{
			{"name": "A", "text": "cats are mammals.\n\ncats are mammals."},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chunks []struct {
			ID      int    `json:"id"`
			Text    string `json:"text"`
			DocName string `json:"doc_name"`
		} `json:"chunks"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Chunks, 1)
	assert.Equal(t, "cats are mammals.\n\ncats are mammals.", resp.Chunks[0].Text)
	assert.Equal(t, "A", resp.Chunks[0].DocName)
}

func TestChunk_Validation(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := postJSON(t, h, "/api/v1/chunk", map[string]any{"documents": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no documents provided")

	// overlap >= chunk_size is a configuration error, not a hang.
	rec = postJSON(t, h, "/api/v1/chunk", map[string]any{
		"documents":  []map[string]string{{"name": "A", "text": "hello world"}},
		"chunk_size": 100,
		"overlap":    100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "overlap")
}

func TestChunk_ExplicitZeroOverlap(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := postJSON(t, h, "/api/v1/chunk", map[string]any{
		"documents":  []map[string]string{{"name": "A", "text": strings.Repeat("x", 25)}},
		"chunk_size": 10,
		"overlap":    0,
	})

	// With the default overlap (80) this chunk_size would be rejected, so a
	// 200 with non-overlapping windows proves the explicit zero is honored.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chunks []struct {
			Text      string `json:"text"`
			StartChar int    `json:"start_char"`
		} `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Chunks, 3)
	assert.Equal(t, 0, resp.Chunks[0].StartChar)
	assert.Equal(t, 10, resp.Chunks[1].StartChar)
	assert.Equal(t, 20, resp.Chunks[2].StartChar)
	assert.Len(t, resp.Chunks[2].Text, 5)
}

func TestSearch(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := postJSON(t, h, "/api/v1/search", map[string]any{
		"documents": []map[string]string{
			{"name": "dogs", "text": "dog food recipes"},
			{"name": "cats", "text": "cat food recipes"},
		},
		"query": "food",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ChunkCount int `json:"chunk_count"`
		Results    []struct {
			DocName     string   `json:"doc_name"`
			Score       float64  `json:"score"`
			TermMatches []string `json:"term_matches"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.ChunkCount)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "dogs", resp.Results[0].DocName)
	assert.Positive(t, resp.Results[0].Score)
	assert.Equal(t, []string{"food"}, resp.Results[0].TermMatches)
}

func TestSearch_Validation(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := postJSON(t, h, "/api/v1/search", map[string]any{
		"documents": []map[string]string{{"name": "A", "text": "hello"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no query provided")

	rec = postJSON(t, h, "/api/v1/search", map[string]any{"query": "hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no documents provided")
}

func TestSearch_UsesDocumentSource(t *testing.T) {
	source := &staticSource{docs: []domain.Document{{Name: "reg.txt", Text: "registry food content"}}}
	h := newTestRouter(t, source)

	rec := postJSON(t, h, "/api/v1/search", map[string]any{"query": "food"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reg.txt")
}

func TestAsk_StreamsSourcesDeltasAndDone(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := postJSON(t, h, "/api/v1/ask", map[string]any{
		"documents": []map[string]string{{"name": "animals", "text": "cats are mammals"}},
		"query":     "mammals",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	sourcesAt := strings.Index(body, "event: sources")
	deltaAt := strings.Index(body, "event: delta")
	doneAt := strings.Index(body, "event: done")
	require.GreaterOrEqual(t, sourcesAt, 0)
	require.GreaterOrEqual(t, deltaAt, 0)
	require.GreaterOrEqual(t, doneAt, 0)
	assert.Less(t, sourcesAt, deltaAt)
	assert.Less(t, deltaAt, doneAt)
	assert.Contains(t, body, "cats are mammals [1].")
}

func TestAsk_NoMatches(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := postJSON(t, h, "/api/v1/ask", map[string]any{
		"documents": []map[string]string{{"name": "animals", "text": "cats are mammals"}},
		"query":     "submarines",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "no relevant content found")
	assert.NotContains(t, body, "event: delta")
}

func TestDocuments(t *testing.T) {
	source := &staticSource{docs: []domain.Document{{Name: "a.txt"}, {Name: "b.txt"}}}
	h := newTestRouter(t, source)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Documents []string `json:"documents"`
		Count     int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{"a.txt", "b.txt"}, resp.Documents)
}
