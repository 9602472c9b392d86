package vector

import "context"

// Document is one chunk of content to be embedded and stored in the derived
// vector index, together with the payload used to trace it back to the
// durable store.
type Document struct {
	// Content is the text to embed.
	Content string

	// ObjectID identifies the owning content object in the durable store.
	ObjectID uint64

	// ChunkID identifies the chunk in the durable store.
	ChunkID uint64

	// Seq is the chunk's position within its object.
	Seq int

	// Summary, Tags and Propositions are carried into the payload for
	// filtered retrieval by downstream consumers.
	Summary      string
	Tags         []string
	Propositions []string

	// Title and SourceLocator describe the owning object.
	Title         string
	SourceLocator string
}

// Store is a derived vector index over chunk content. The durable store
// remains authoritative; everything written here can be rebuilt from it.
// Implementations must be thread-safe for concurrent use.
type Store interface {
	// Upsert embeds the documents and writes them to the index. It returns
	// exactly one vector id per input document, in input order; a response
	// with any other cardinality is an error and nothing may be linked to it.
	Upsert(ctx context.Context, docs []Document) ([]string, error)

	// DeleteByIDs removes vectors by their ids. Unknown ids are ignored, so
	// the call is safe to repeat.
	DeleteByIDs(ctx context.Context, ids []string) error

	// Close releases the store's resources.
	Close() error
}
