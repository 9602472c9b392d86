package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the identifier of the embedding model in use. Stored on
	// embedding links so re-embedding can tell which vectors are outdated.
	Model() string
}

// ChunkExtractor splits cleaned document text into semantically coherent
// chunks, each enriched with a summary, tags and propositions.
// Implementations must be thread-safe for concurrent use.
type ChunkExtractor interface {
	// ExtractChunks analyzes a document and splits it into chunks. Chunks are
	// returned in document order with ascending Index values. Chunks whose
	// content falls below the minimum length are dropped, so a valid document
	// can yield an empty slice.
	// Returns an error if extraction fails.
	ExtractChunks(ctx context.Context, text string) ([]ExtractedChunk, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and ChunkExtractor instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ChunkExtractor returns the chunk extraction service.
	// The returned ChunkExtractor is safe for concurrent use.
	ChunkExtractor() ChunkExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
