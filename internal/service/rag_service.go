// Package service wires the retrieval core to its collaborators: it chunks
// documents, ranks the chunks against a query, and hands the top results to
// the generator for a cited answer. Every call is request-scoped; the index
// lives only for the duration of one search.
package service

import (
	"context"
	"errors"
	"strings"

	"ragdemo/internal/domain"
)

// SearchOutput carries the ranked results plus display counters.
type SearchOutput struct {
	ChunkCount int
	Results    []domain.ScoredChunk
}

// AskOutput is the result of a retrieve-then-generate round trip. Answer is
// empty when no chunk matched the query; that is a normal outcome, not an
// error, and the presentation layer decides the messaging.
type AskOutput struct {
	Answer     string
	Sources    []domain.ScoredChunk
	ChunkCount int
}

// Service orchestrates chunking, scoring, summarization and generation.
type Service struct {
	chunker             domain.Chunker
	searcher            domain.Searcher
	generator           domain.Generator
	summarizer          domain.Summarizer
	topK                int
	summaryMaxSentences int
}

// New creates a Service. generator may be nil when answer generation is not
// needed (chunk/search only); Ask then returns an error.
func New(chunker domain.Chunker, searcher domain.Searcher, generator domain.Generator, summarizer domain.Summarizer, topK, summaryMaxSentences int) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		chunker:             chunker,
		searcher:            searcher,
		generator:           generator,
		summarizer:          summarizer,
		topK:                topK,
		summaryMaxSentences: summaryMaxSentences,
	}
}

// ChunkDocuments splits the documents into ordered chunks. Empty input
// yields an empty chunk sequence.
func (s *Service) ChunkDocuments(docs []domain.Document) ([]domain.Chunk, error) {
	return s.chunker.Chunk(docs)
}

// Search chunks the documents and ranks the chunks against the query.
// topK <= 0 falls back to the configured default.
func (s *Service) Search(docs []domain.Document, query string, topK int) (*SearchOutput, error) {
	chunks, err := s.chunker.Chunk(docs)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.topK
	}
	return &SearchOutput{
		ChunkCount: len(chunks),
		Results:    s.searcher.Search(chunks, query, topK),
	}, nil
}

// Ask retrieves the top chunks for the query and generates a cited answer.
// onDelta, when non-nil, receives answer fragments as they stream in. When
// nothing matches the query, generation is skipped and Answer stays empty.
func (s *Service) Ask(ctx context.Context, docs []domain.Document, query string, topK int, onDelta func(string)) (*AskOutput, error) {
	if s.generator == nil {
		return nil, errors.New("no generator configured")
	}
	out, err := s.Search(docs, query, topK)
	if err != nil {
		return nil, err
	}
	result := &AskOutput{Sources: out.Results, ChunkCount: out.ChunkCount}
	if len(out.Results) == 0 {
		return result, nil
	}

	result.Answer, err = s.AnswerFrom(ctx, query, out.Results, onDelta)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AnswerFrom generates a cited answer from already-retrieved sources. Used
// by callers that emit the sources before generation starts.
func (s *Service) AnswerFrom(ctx context.Context, query string, sources []domain.ScoredChunk, onDelta func(string)) (string, error) {
	if s.generator == nil {
		return "", errors.New("no generator configured")
	}
	if onDelta != nil {
		return s.generator.StreamAnswer(ctx, query, sources, onDelta)
	}
	return s.generator.Answer(ctx, query, sources)
}

// Summary produces a short overview of the whole document set, shown by the
// presentation layer after ingest.
func (s *Service) Summary(docs []domain.Document) (string, error) {
	if s.summarizer == nil || len(docs) == 0 {
		return "", nil
	}
	var all strings.Builder
	for _, d := range docs {
		all.WriteString(d.Text)
		all.WriteString("\n")
	}
	return s.summarizer.Summarize(all.String(), s.summaryMaxSentences)
}
