package pipeline

import "errors"

var (
	// ErrObjectRepositoryRequired is returned when an object repository is not provided.
	ErrObjectRepositoryRequired = errors.New("object repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrLinkRepositoryRequired is returned when a link repository is not provided.
	ErrLinkRepositoryRequired = errors.New("embedding link repository required")

	// ErrJobRepositoryRequired is returned when a job repository is not provided.
	ErrJobRepositoryRequired = errors.New("job repository required")

	// ErrExtractorRequired is returned when a chunk extractor is not provided.
	ErrExtractorRequired = errors.New("chunk extractor required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrNoCleanedText indicates a parsed object reached embedding with no
	// cleaned text to extract from.
	ErrNoCleanedText = errors.New("object has no cleaned text")

	// ErrNoChunks indicates the extractor returned zero usable chunks.
	ErrNoChunks = errors.New("extraction returned no chunks")

	// ErrClaimLost indicates another worker claimed the object first.
	ErrClaimLost = errors.New("object claim lost to another worker")
)
