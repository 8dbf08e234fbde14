package domain

import "context"

// Document is a single input text supplied by the caller. Name is a display
// label and is not required to be unique.
type Document struct {
	Name string
	Text string
}

// Chunk is a contiguous excerpt of one document's text. IDs are assigned in
// emission order starting at 0 and are unique across a whole chunking call.
type Chunk struct {
	ID        int
	Text      string
	DocIndex  int
	DocName   string
	StartChar int
}

// ScoredChunk is a chunk ranked against a query. Score is a non-negative
// BM25 relevance score; TermMatches lists the distinct query terms found in
// the chunk text.
type ScoredChunk struct {
	Chunk
	Score       float64
	TermMatches []string
}

// Chunker splits documents into ordered chunks suitable for retrieval.
type Chunker interface {
	Chunk(documents []Document) ([]Chunk, error)
}

// Searcher ranks chunks against a query and returns the top-k results.
// Implementations must be pure: no mutation of the input chunks, identical
// output for identical input.
type Searcher interface {
	Search(chunks []Chunk, query string, topK int) []ScoredChunk
}

// Generator produces a grounded answer for a query from retrieved sources.
type Generator interface {
	Answer(ctx context.Context, query string, sources []ScoredChunk) (string, error)
	StreamAnswer(ctx context.Context, query string, sources []ScoredChunk, onDelta func(string)) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
