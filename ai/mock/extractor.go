package mock

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/verdantlabs/canopy/ai"
	"github.com/verdantlabs/canopy/core"
)

// MockChunkExtractor is a test double for ai.ChunkExtractor.
// It allows custom behavior injection via function fields.
type MockChunkExtractor struct {
	// ExtractChunksFunc is called by ExtractChunks if set.
	// If nil, uses default paragraph splitting.
	ExtractChunksFunc func(ctx context.Context, text string) ([]ai.ExtractedChunk, error)

	callCount int
}

// NewMockChunkExtractor creates a mock chunk extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockChunkExtractor() *MockChunkExtractor {
	return &MockChunkExtractor{}
}

// ExtractChunks splits text into mock chunks.
// Default behavior: splits the text on blank lines, drops paragraphs that are
// too short, and derives a trivial summary and tags from each paragraph.
func (m *MockChunkExtractor) ExtractChunks(ctx context.Context, text string) ([]ai.ExtractedChunk, error) {
	m.callCount++

	if m.ExtractChunksFunc != nil {
		return m.ExtractChunksFunc(ctx, text)
	}

	paragraphs := strings.Split(text, "\n\n")
	chunks := make([]ai.ExtractedChunk, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if utf8.RuneCountInString(paragraph) < core.MinChunkLength {
			continue
		}

		words := strings.Fields(strings.ToLower(paragraph))
		tags := make([]string, 0, 3)
		for _, word := range words {
			if len(tags) >= 3 {
				break
			}
			word = strings.Trim(word, ".,!?;:\"'()[]{}")
			if len(word) > 4 {
				tags = append(tags, word)
			}
		}

		summary := paragraph
		if idx := strings.IndexAny(summary, ".!?"); idx > 0 && idx < len(summary)-1 {
			summary = summary[:idx+1]
		}

		chunks = append(chunks, ai.ExtractedChunk{
			Index:        len(chunks),
			Content:      paragraph,
			Summary:      summary,
			Tags:         tags,
			Propositions: []string{summary},
			TokenCount:   len(words),
		})
	}

	return chunks, nil
}

// CallCount returns the number of times ExtractChunks was called.
func (m *MockChunkExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockChunkExtractor) Reset() {
	m.callCount = 0
	m.ExtractChunksFunc = nil
}
