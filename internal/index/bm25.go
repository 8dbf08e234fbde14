// Package index implements the lexical retrieval engine: an in-memory
// inverted index over a chunk sequence and Okapi BM25 scoring against a
// tokenized query. The index is request-scoped: built once per Search call
// and discarded afterwards.
package index

import (
	"math"
	"sort"
	"strings"

	"ragdemo/internal/domain"
)

// BM25 tuning constants: k1 controls term-frequency saturation, b controls
// document-length normalization strength.
const (
	k1 = 1.5
	b  = 0.75
)

// DefaultTopK is the number of results returned when topK is not positive.
const DefaultTopK = 5

// Tokenize lower-cases the text, replaces every character outside [a-z0-9]
// and whitespace with a space, splits on whitespace runs, and discards tokens
// of length <= 2. Indexing and querying must share this exact rule.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '\t', r == '\n', r == '\r':
			return r
		default:
			return ' '
		}
	}, lower)
	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Index holds the term statistics for one chunk corpus. It is never mutated
// after Build returns and is never shared across Search calls.
type Index struct {
	termFreqs []map[string]int // per-chunk term -> occurrence count
	docFreq   map[string]int   // term -> number of chunks containing it
	lengths   []int            // per-chunk token count
	avgLen    float64          // corpus-wide mean token count
}

// Build constructs the inverted index for the given chunk sequence.
func Build(chunks []domain.Chunk) *Index {
	ix := &Index{
		termFreqs: make([]map[string]int, len(chunks)),
		docFreq:   make(map[string]int),
		lengths:   make([]int, len(chunks)),
	}
	total := 0
	for i, chunk := range chunks {
		tokens := Tokenize(chunk.Text)
		freqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freqs[t]++
		}
		for t := range freqs {
			ix.docFreq[t]++
		}
		ix.termFreqs[i] = freqs
		ix.lengths[i] = len(tokens)
		total += len(tokens)
	}
	if len(chunks) > 0 {
		ix.avgLen = float64(total) / float64(len(chunks))
	}
	return ix
}

// Search scores every chunk against the query with BM25 and returns at most
// topK chunks with score > 0, ordered by descending score. Ties keep the
// original chunk order. Empty input or a query with no usable terms yields
// an empty result.
func Search(chunks []domain.Chunk, query string, topK int) []domain.ScoredChunk {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(chunks) == 0 {
		return nil
	}

	queryTerms := distinct(Tokenize(query))
	if len(queryTerms) == 0 {
		return nil
	}

	ix := Build(chunks)
	n := float64(len(chunks))

	var scored []domain.ScoredChunk
	for i, chunk := range chunks {
		score := 0.0
		var matches []string
		for _, term := range queryTerms {
			freq := ix.termFreqs[i][term]
			if freq > 0 {
				matches = append(matches, term)
			}
			df := ix.docFreq[term]
			if df == 0 || freq == 0 || ix.avgLen == 0 {
				// Unknown terms carry no evidence; absent terms contribute nothing.
				continue
			}
			idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
			norm := float64(freq) * (k1 + 1) / (float64(freq) + k1*(1-b+b*float64(ix.lengths[i])/ix.avgLen))
			score += idf * norm
		}
		if score > 0 {
			scored = append(scored, domain.ScoredChunk{
				Chunk:       chunk,
				Score:       score,
				TermMatches: matches,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// Searcher adapts the package-level Search to the domain.Searcher interface.
type Searcher struct{}

// NewSearcher returns a stateless BM25 searcher.
func NewSearcher() *Searcher { return &Searcher{} }

// Search implements domain.Searcher.
func (*Searcher) Search(chunks []domain.Chunk, query string, topK int) []domain.ScoredChunk {
	return Search(chunks, query, topK)
}

// distinct keeps the first occurrence of every token, preserving order so
// that TermMatches ordering stays deterministic.
func distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
