// Package mcpserver exposes the retrieval pipeline as an MCP tool so agent
// clients can search the watched document set.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ragdemo/internal/domain"
	"ragdemo/internal/service"
)

type searchPort interface {
	Search(docs []domain.Document, query string, topK int) (*service.SearchOutput, error)
}

type documentSource interface {
	Documents() []domain.Document
}

// New builds an MCP server with a single document-search tool backed by the
// given document source.
func New(svc searchPort, source documentSource, log *slog.Logger) *server.MCPServer {
	tool := mcp.NewTool("search_documents",
		mcp.WithDescription("Rank chunks of the loaded documents against a query and return the best matches for RAG"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of results to return (default 5)"),
		))

	srv := server.NewMCPServer("ragdemo", "0.1.0", server.WithToolCapabilities(false))
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		topK := int(request.GetFloat("top_k", 0))

		out, err := svc.Search(source.Documents(), query, topK)
		if err != nil {
			log.Error("mcp search failed", "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, r := range out.Results {
			raw, marshalErr := json.Marshal(struct {
				Score       float64  `json:"score"`
				Doc         string   `json:"doc"`
				Text        string   `json:"text"`
				TermMatches []string `json:"term_matches"`
			}{
				Score:       r.Score,
				Doc:         r.DocName,
				Text:        r.Text,
				TermMatches: r.TermMatches,
			})
			if marshalErr != nil {
				return mcp.NewToolResultError(marshalErr.Error()), nil
			}
			response += fmt.Sprintf("%s\n", string(raw))
		}
		if response == "" {
			response = "no relevant content found"
		}
		return mcp.NewToolResultText(response), nil
	})

	return srv
}
