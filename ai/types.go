package ai

// ExtractedChunk is one semantically coherent span of a document, produced by
// a ChunkExtractor.
type ExtractedChunk struct {
	// Index is the zero-based position of the chunk within the document.
	Index int

	// Content is the chunk text, taken verbatim from the document.
	Content string

	// Summary is a one- or two-sentence condensation of the chunk.
	Summary string

	// Tags are lowercase topic labels, 1-3 words each.
	Tags []string

	// Propositions are standalone factual statements the chunk supports.
	Propositions []string

	// TokenCount is the approximate token count of Content.
	TokenCount int
}
