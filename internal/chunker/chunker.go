package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"ragdemo/internal/domain"
)

// DefaultChunkSize is the target maximum chunk length in characters.
const DefaultChunkSize = 400

// DefaultOverlap is the character overlap applied when a single paragraph
// has to be split into fixed-size windows.
const DefaultOverlap = 80

var paragraphSplitter = regexp.MustCompile(`\n{2,}`)

// ParagraphChunker splits documents into overlapping chunks. Consecutive
// paragraphs are merged while they fit into chunkSize; a paragraph larger
// than chunkSize falls back to fixed-size character windows with overlap.
type ParagraphChunker struct {
	chunkSize int
	overlap   int
}

// NewParagraphChunker validates the size parameters and returns a chunker.
// overlap must stay below chunkSize: the window step is chunkSize-overlap,
// and a zero or negative step would never advance.
func NewParagraphChunker(chunkSize, overlap int) (*ParagraphChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be non-negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}
	return &ParagraphChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits every document into ordered chunks. Chunk IDs are consecutive
// starting at 0 across all documents; a chunk never spans two documents.
// Documents that are empty after trimming yield no chunks.
func (c *ParagraphChunker) Chunk(documents []domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	nextID := 0
	for docIndex, doc := range documents {
		emit := func(text string, start int) {
			chunks = append(chunks, domain.Chunk{
				ID:        nextID,
				Text:      text,
				DocIndex:  docIndex,
				DocName:   doc.Name,
				StartChar: start,
			})
			nextID++
		}
		c.chunkDocument(doc.Text, emit)
	}
	return chunks, nil
}

// chunkDocument walks the paragraphs of one document, accumulating them into
// a buffer until the next paragraph would push it past chunkSize. The offset
// passed to emit is approximate: it assumes a two-character separator between
// paragraphs and does not track irregular whitespace runs exactly.
func (c *ParagraphChunker) chunkDocument(text string, emit func(text string, start int)) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	var buf strings.Builder
	bufStart := 0
	offset := 0
	flush := func() {
		if buf.Len() > 0 {
			emit(buf.String(), bufStart)
			buf.Reset()
		}
	}

	for _, para := range paragraphSplitter.Split(trimmed, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraStart := offset
		offset += len(para) + 2

		if len(para) > c.chunkSize {
			// The paragraph cannot be accumulated; split it into fixed
			// windows, bypassing the buffer.
			flush()
			step := c.chunkSize - c.overlap
			for ws := 0; ws < len(para); ws += step {
				end := ws + c.chunkSize
				if end > len(para) {
					end = len(para)
				}
				emit(para[ws:end], paraStart+ws)
				if end == len(para) {
					break
				}
			}
			continue
		}

		switch {
		case buf.Len() == 0:
			buf.WriteString(para)
			bufStart = paraStart
		case buf.Len()+2+len(para) <= c.chunkSize:
			buf.WriteString("\n\n")
			buf.WriteString(para)
		default:
			flush()
			buf.WriteString(para)
			bufStart = paraStart
		}
	}
	flush()
}
