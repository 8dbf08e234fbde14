package generation

import (
	"fmt"
	"strings"

	"ragdemo/internal/domain"
)

// Message is a single turn in a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const systemPrompt = "You are a careful assistant that answers strictly from the provided sources. " +
	"Cite every claim with the bracketed source number, e.g. [1]. " +
	"If the sources do not contain the answer, say so instead of guessing."

// BuildPrompt assembles the chat messages for a grounded answer: a citation
// instruction plus the numbered source blocks and the user's question.
func BuildPrompt(query string, sources []domain.ScoredChunk) []Message {
	var user strings.Builder
	user.WriteString("Sources:\n\n")
	for i, src := range sources {
		fmt.Fprintf(&user, "[%d] (%s)\n%s\n\n", i+1, src.DocName, src.Text)
	}
	user.WriteString("Question: ")
	user.WriteString(query)

	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user.String()},
	}
}
