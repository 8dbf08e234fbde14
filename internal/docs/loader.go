// Package docs loads documents from disk: one-shot path loading for the CLI
// and a directory registry with change watching for the server.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ragdemo/internal/domain"
)

// textExtensions lists the file types treated as plain-text documents.
var textExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// LoadPaths reads the given paths (globs allowed) into documents. Files with
// unsupported extensions are skipped; at least one document must remain.
func LoadPaths(paths []string) ([]domain.Document, error) {
	var documents []domain.Document
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if !textExtensions[strings.ToLower(filepath.Ext(m))] {
				continue
			}
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, fmt.Errorf("read document %s: %w", m, err)
			}
			documents = append(documents, domain.Document{
				Name: filepath.Base(m),
				Text: string(data),
			})
		}
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("no .txt or .md documents found")
	}
	return documents, nil
}
