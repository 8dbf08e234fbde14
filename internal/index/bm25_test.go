package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdemo/internal/domain"
)

func TestTokenize(t *testing.T) {
	var cases = []struct {
		input  string
		output []string
	}{
		{input: "Cats are Mammals!", output: []string{"cats", "are", "mammals"}},
		{input: "dog-food, recipes.", output: []string{"dog", "food", "recipes"}},
		{input: "is a an", output: nil},
		{input: "", output: nil},
		{input: "   \n\t ", output: nil},
		{input: "C3PO met R2D2 at 10:30", output: []string{"c3po", "met", "r2d2"}},
		{input: "naïve café", output: []string{"caf"}},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			got := Tokenize(c.input)
			if len(c.output) == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, c.output, got)
			}
		})
	}
}

func TestTokenize_SharedRuleForQueryAndChunks(t *testing.T) {
	// Punctuation and case must not break term matching.
	assert.Equal(t, Tokenize("FOOD!"), Tokenize("food"))
}

func chunksFromTexts(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{ID: i, Text: text, DocIndex: i, DocName: fmt.Sprintf("doc-%d", i)}
	}
	return chunks
}

func TestSearch_EmptyInputs(t *testing.T) {
	assert.Empty(t, Search(nil, "anything", 5))
	assert.Empty(t, Search(chunksFromTexts("some text here"), "", 5))
	// Tokens of length <= 2 are dropped, leaving no query terms.
	assert.Empty(t, Search(chunksFromTexts("some text here"), "is a an", 5))
}

func TestSearch_TieBreaksByOriginalOrder(t *testing.T) {
	chunks := chunksFromTexts("dog food recipes", "cat food recipes")
	results := Search(chunks, "food", 5)

	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-12)
	assert.Positive(t, results[0].Score)
	assert.Equal(t, 0, results[0].ID)
	assert.Equal(t, 1, results[1].ID)
}

func TestSearch_RareTermsRankHigher(t *testing.T) {
	chunks := chunksFromTexts(
		"the weather today involves rain and wind",
		"quantum computing uses qubits for parallel computation",
		"more weather discussion with rain again and more wind",
	)
	results := Search(chunks, "quantum qubits", 5)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ID)
	assert.ElementsMatch(t, []string{"quantum", "qubits"}, results[0].TermMatches)
}

func TestSearch_ZeroScoreChunksExcluded(t *testing.T) {
	chunks := chunksFromTexts("cats are mammals", "submarines travel underwater")
	results := Search(chunks, "mammals", 5)

	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].ID)
	for _, r := range results {
		assert.Positive(t, r.Score)
	}
}

func TestSearch_UnknownTermsContributeNothing(t *testing.T) {
	chunks := chunksFromTexts("cats are mammals", "dogs are mammals")
	with := Search(chunks, "mammals", 5)
	without := Search(chunks, "mammals zzzqqq", 5)

	require.Equal(t, len(with), len(without))
	for i := range with {
		assert.InDelta(t, with[i].Score, without[i].Score, 1e-12)
		assert.Equal(t, with[i].TermMatches, without[i].TermMatches)
	}
}

func TestSearch_NonNegativeEvenForUbiquitousTerms(t *testing.T) {
	// A term present in every chunk would get a negative IDF under the
	// textbook formula; the smoothed variant keeps it non-negative.
	chunks := chunksFromTexts("mammals everywhere", "mammals here too", "mammals again")
	results := Search(chunks, "mammals", 5)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
	}
}

func TestSearch_TopKBound(t *testing.T) {
	var texts []string
	for i := 0; i < 10; i++ {
		texts = append(texts, fmt.Sprintf("shared keyword plus filler number %d", i))
	}
	chunks := chunksFromTexts(texts...)

	assert.Len(t, Search(chunks, "keyword", 3), 3)
	assert.Len(t, Search(chunks, "keyword", 100), 10)
	// Non-positive topK falls back to the default.
	assert.Len(t, Search(chunks, "keyword", 0), DefaultTopK)
}

func TestSearch_Deterministic(t *testing.T) {
	chunks := chunksFromTexts(
		"alpha beta gamma delta",
		"beta gamma delta epsilon",
		"gamma delta epsilon zeta",
		"delta epsilon zeta eta",
	)
	first := Search(chunks, "beta delta zeta", 4)
	for i := 0; i < 20; i++ {
		again := Search(chunks, "beta delta zeta", 4)
		require.Equal(t, first, again)
	}
}

func TestSearch_DoesNotMutateInput(t *testing.T) {
	chunks := chunksFromTexts("dog food recipes", "cat food recipes")
	before := make([]domain.Chunk, len(chunks))
	copy(before, chunks)

	_ = Search(chunks, "food recipes", 5)
	assert.Equal(t, before, chunks)
}

func TestSearch_TermMatchesIndependentOfScore(t *testing.T) {
	chunks := chunksFromTexts("apple banana", "apple cherry")
	results := Search(chunks, "apple banana", 5)

	require.Len(t, results, 2)
	top := results[0]
	assert.Equal(t, 0, top.ID)
	assert.Equal(t, []string{"apple", "banana"}, top.TermMatches)
	assert.Equal(t, []string{"apple"}, results[1].TermMatches)
}

func TestBuild_Statistics(t *testing.T) {
	ix := Build(chunksFromTexts("apple banana apple", "banana cherry"))

	assert.Equal(t, 2, ix.termFreqs[0]["apple"])
	assert.Equal(t, 1, ix.termFreqs[0]["banana"])
	assert.Equal(t, 2, ix.docFreq["banana"])
	assert.Equal(t, 1, ix.docFreq["cherry"])
	assert.Equal(t, []int{3, 2}, ix.lengths)
	assert.InDelta(t, 2.5, ix.avgLen, 1e-12)
}
