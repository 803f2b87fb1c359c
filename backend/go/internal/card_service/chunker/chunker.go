// Package chunker splits long text into bounded, ordered windows.
package chunker

import (
	"unicode/utf8"

	"Synapse/backend/go/internal/models"
)

// DefaultMaxLen is the chunk size used when the caller passes a non-positive limit.
const DefaultMaxLen = 6000

// Split cuts text into contiguous, non-overlapping chunks of at most maxLen
// characters. Every chunk except the last has exactly maxLen characters, and
// concatenating the chunks in order reproduces text. Empty input yields no chunks.
func Split(text string, maxLen int) []models.ContentChunk {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if text == "" {
		return nil
	}

	chunks := make([]models.ContentChunk, 0, utf8.RuneCountInString(text)/maxLen+1)
	start, count := 0, 0
	for i := range text {
		if count == maxLen {
			chunks = append(chunks, models.ContentChunk{Index: len(chunks), Text: text[start:i]})
			start, count = i, 0
		}
		count++
	}
	chunks = append(chunks, models.ContentChunk{Index: len(chunks), Text: text[start:]})
	return chunks
}
