package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"ragdemo/internal/chunker"
	"ragdemo/internal/domain"
	"ragdemo/internal/service"
)

// RAGService is the API-facing subset of the application core.
type RAGService interface {
	Search(docs []domain.Document, query string, topK int) (*service.SearchOutput, error)
	AnswerFrom(ctx context.Context, query string, sources []domain.ScoredChunk, onDelta func(string)) (string, error)
}

// DocumentSource supplies the server-side document set when a request does
// not carry its own documents. May be nil.
type DocumentSource interface {
	Documents() []domain.Document
}

// API holds the HTTP handlers for the retrieval pipeline.
type API struct {
	svc       RAGService
	source    DocumentSource
	log       *slog.Logger
	chunkSize int
	overlap   int
}

// NewAPI creates the API handlers. chunkSize and overlap are the configured
// defaults used when a chunk request does not override them.
func NewAPI(svc RAGService, source DocumentSource, log *slog.Logger, chunkSize, overlap int) *API {
	return &API{svc: svc, source: source, log: log, chunkSize: chunkSize, overlap: overlap}
}

type documentPayload struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type chunkPayload struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	DocIndex  int    `json:"doc_index"`
	DocName   string `json:"doc_name"`
	StartChar int    `json:"start_char"`
}

type scoredChunkPayload struct {
	chunkPayload
	Score       float64  `json:"score"`
	TermMatches []string `json:"term_matches"`
}

func toChunkPayload(c domain.Chunk) chunkPayload {
	return chunkPayload{ID: c.ID, Text: c.Text, DocIndex: c.DocIndex, DocName: c.DocName, StartChar: c.StartChar}
}

func toScoredPayloads(results []domain.ScoredChunk) []scoredChunkPayload {
	out := make([]scoredChunkPayload, len(results))
	for i, r := range results {
		matches := r.TermMatches
		if matches == nil {
			matches = []string{}
		}
		out[i] = scoredChunkPayload{chunkPayload: toChunkPayload(r.Chunk), Score: r.Score, TermMatches: matches}
	}
	return out
}

func toDocuments(payloads []documentPayload) []domain.Document {
	docs := make([]domain.Document, len(payloads))
	for i, p := range payloads {
		docs[i] = domain.Document{Name: p.Name, Text: p.Text}
	}
	return docs
}

// resolveDocuments picks the request documents, falling back to the
// server-side document source.
func (a *API) resolveDocuments(payloads []documentPayload) []domain.Document {
	if len(payloads) > 0 {
		return toDocuments(payloads)
	}
	if a.source != nil {
		return a.source.Documents()
	}
	return nil
}

type chunkRequest struct {
	Documents []documentPayload `json:"documents"`
	ChunkSize int               `json:"chunk_size,omitempty"`
	// Pointer so an explicit zero overlap is distinguishable from an
	// absent field.
	Overlap *int `json:"overlap,omitempty"`
}

type chunkResponse struct {
	Chunks []chunkPayload `json:"chunks"`
	Count  int            `json:"count"`
}

// Chunk handles POST /api/v1/chunk.
func (a *API) Chunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "no documents provided")
		return
	}

	size, overlap := a.chunkSize, a.overlap
	if req.ChunkSize > 0 {
		size = req.ChunkSize
	}
	if req.Overlap != nil {
		overlap = *req.Overlap
	}
	ch, err := chunker.NewParagraphChunker(size, overlap)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chunks, err := ch.Chunk(toDocuments(req.Documents))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "chunking failed")
		return
	}
	payloads := make([]chunkPayload, len(chunks))
	for i, c := range chunks {
		payloads[i] = toChunkPayload(c)
	}
	writeJSON(w, http.StatusOK, chunkResponse{Chunks: payloads, Count: len(payloads)})
}

type searchRequest struct {
	Documents []documentPayload `json:"documents,omitempty"`
	Query     string            `json:"query"`
	TopK      int               `json:"top_k,omitempty"`
}

type searchResponse struct {
	Query      string               `json:"query"`
	ChunkCount int                  `json:"chunk_count"`
	Results    []scoredChunkPayload `json:"results"`
}

// Search handles POST /api/v1/search.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "no query provided")
		return
	}
	docs := a.resolveDocuments(req.Documents)
	if len(docs) == 0 {
		writeError(w, http.StatusBadRequest, "no documents provided")
		return
	}

	out, err := a.svc.Search(docs, req.Query, req.TopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Query:      req.Query,
		ChunkCount: out.ChunkCount,
		Results:    toScoredPayloads(out.Results),
	})
}

// Ask handles POST /api/v1/ask. The response is an SSE stream: a "sources"
// event with the ranked chunks, "delta" events as the answer streams in, and
// a final "done" event carrying the full answer.
func (a *API) Ask(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "no query provided")
		return
	}
	docs := a.resolveDocuments(req.Documents)
	if len(docs) == 0 {
		writeError(w, http.StatusBadRequest, "no documents provided")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	out, err := a.svc.Search(docs, req.Query, req.TopK)
	if err != nil {
		stream("error", map[string]string{"error": err.Error()})
		return
	}
	stream("sources", toScoredPayloads(out.Results))
	if len(out.Results) == 0 {
		stream("done", map[string]string{"answer": "", "message": "no relevant content found"})
		return
	}

	answer, err := a.svc.AnswerFrom(r.Context(), req.Query, out.Results, func(delta string) {
		stream("delta", map[string]string{"text": delta})
	})
	if err != nil {
		a.log.Error("ask failed", "error", err)
		stream("error", map[string]string{"error": "generation failed"})
		return
	}
	stream("done", map[string]string{"answer": answer})
}

type documentsResponse struct {
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
}

// Documents handles GET /api/v1/documents, listing the server-side set.
func (a *API) Documents(w http.ResponseWriter, _ *http.Request) {
	var names []string
	if a.source != nil {
		for _, d := range a.source.Documents() {
			names = append(names, d.Name)
		}
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: names, Count: len(names)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
