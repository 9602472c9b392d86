package storage

import (
	"context"
	"time"

	"github.com/verdantlabs/canopy/core"
)

// TransitionOptions carries the optional columns written alongside a status
// transition. A transition is always a single atomic update; there is no
// separate transaction log.
type TransitionOptions struct {
	// ErrorText is stored with the new status. An empty value clears any
	// previously stored error text, which is required for every transition to
	// a non-failure status.
	ErrorText string

	// ParsedAt, when non-nil, updates the parsed timestamp.
	ParsedAt *time.Time
}

// JobUpdate is a partial patch for an ingestion job. Nil fields are left
// untouched, so callers never need to supply unrelated fields.
type JobUpdate struct {
	Status         *core.JobStatus
	ChunkingStatus *core.ChunkingStatus
	ErrorText      *string
	CompletedAt    *time.Time
}

// ObjectRepository provides operations for managing content objects.
// Implementations must be thread-safe and support concurrent access.
type ObjectRepository interface {
	// CreateObject adds a content object to storage, generating an ID from
	// sequence and setting timestamps. If the object carries a non-empty
	// source locator that already exists, the existing record is returned
	// instead of an error.
	CreateObject(ctx context.Context, object *core.ContentObject) (*core.ContentObject, error)

	// GetObject retrieves a single object by ID.
	// Returns ErrNotFound if the object doesn't exist.
	GetObject(ctx context.Context, id core.ID) (*core.ContentObject, error)

	// GetObjects retrieves multiple objects by their IDs. Missing IDs are
	// silently skipped.
	GetObjects(ctx context.Context, ids ...core.ID) ([]*core.ContentObject, error)

	// FindObjectsByStatus retrieves up to limit objects in the given status,
	// ordered oldest-created-first (FIFO fairness for the pipeline).
	FindObjectsByStatus(ctx context.Context, status core.ObjectStatus, limit int) ([]*core.ContentObject, error)

	// FindStalledObjects retrieves objects in the given status whose last
	// update is older than the cutoff.
	FindStalledObjects(ctx context.Context, status core.ObjectStatus, cutoff time.Time) ([]*core.ContentObject, error)

	// TransitionStatus atomically moves an object to a new lifecycle status.
	// The current status is read inside the write transaction and the move is
	// validated against the lifecycle table; an illegal move returns
	// core.ErrIllegalTransition without writing. Error text is replaced from
	// opts (cleared when empty). Callers that use the transition as a claim
	// must still re-read the object afterwards: last-writer-wins across
	// processes is resolved by read-after-write verification, not by this
	// call's success alone.
	TransitionStatus(ctx context.Context, id core.ID, to core.ObjectStatus, opts *TransitionOptions) error

	// DeleteObject removes an object and cascade-deletes its chunks and
	// embedding links. It returns the vector-store record ids of the removed
	// links so the caller can best-effort delete them from the derived store;
	// the durable store remains authoritative regardless.
	DeleteObject(ctx context.Context, id core.ID) (vectorIDs []string, err error)

	// Close releases repository resources.
	Close() error
}

// ChunkRepository provides operations for managing chunks.
type ChunkRepository interface {
	// AddChunks adds chunks in bulk, generating IDs from sequence and setting
	// timestamps. Returns ErrDuplicateKey if an (object, seq) pair exists.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunksByObject retrieves all chunks of an object ordered by Seq.
	GetChunksByObject(ctx context.Context, objectID core.ID) ([]*core.Chunk, error)

	// ReassignNotebook moves a chunk to a notebook (0 clears the assignment).
	// This is the only in-place chunk update.
	ReassignNotebook(ctx context.Context, chunkID, notebookID core.ID) error

	// DeleteChunk removes a single chunk and its embedding link, if any.
	// It returns the vector-store record id of the removed link ("" if none).
	DeleteChunk(ctx context.Context, id core.ID) (vectorID string, err error)

	// DeleteChunksByObject removes every chunk of an object along with their
	// embedding links, returning the vector-store record ids of the removed
	// links.
	DeleteChunksByObject(ctx context.Context, objectID core.ID) (vectorIDs []string, err error)

	// ForEachChunk iterates every stored chunk. Iteration stops at the first
	// error returned by fn.
	ForEachChunk(ctx context.Context, fn func(chunk *core.Chunk) error) error

	// Close releases repository resources.
	Close() error
}

// EmbeddingLinkRepository provides operations for managing embedding links.
// Links are keyed by chunk id; at most one link exists per chunk.
type EmbeddingLinkRepository interface {
	// AddLinks adds links in bulk, setting timestamps.
	AddLinks(ctx context.Context, links ...*core.EmbeddingLink) error

	// GetLinkByChunk retrieves the link for a chunk.
	// Returns ErrNotFound if no link exists.
	GetLinkByChunk(ctx context.Context, chunkID core.ID) (*core.EmbeddingLink, error)

	// GetLinksByChunks retrieves the links for the given chunks. Chunks
	// without a link are silently skipped.
	GetLinksByChunks(ctx context.Context, chunkIDs ...core.ID) ([]*core.EmbeddingLink, error)

	// DeleteLinkByChunk removes the link for a chunk. Deleting a missing link
	// is not an error.
	DeleteLinkByChunk(ctx context.Context, chunkID core.ID) error

	// ForEachLink iterates every stored link. Iteration stops at the first
	// error returned by fn.
	ForEachLink(ctx context.Context, fn func(link *core.EmbeddingLink) error) error

	// Close releases repository resources.
	Close() error
}

// JobRepository provides operations for the ingestion job ledger.
type JobRepository interface {
	// CreateJob adds a job to the ledger, generating an ID from sequence and
	// setting timestamps.
	CreateJob(ctx context.Context, job *core.IngestionJob) (*core.IngestionJob, error)

	// GetJob retrieves a single job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id core.ID) (*core.IngestionJob, error)

	// FindJobAwaitingChunking returns the most recent job for the object
	// whose chunking stage is pending or in progress.
	// Returns ErrNotFound if no such job exists (the object is orphaned).
	FindJobAwaitingChunking(ctx context.Context, objectID core.ID) (*core.IngestionJob, error)

	// UpdateJob applies a partial patch to a job and bumps UpdatedAt.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, id core.ID, update *JobUpdate) (*core.IngestionJob, error)

	// MarkRetryable requeues a stuck job with a reason and delay. The
	// previousStatus guard makes the call idempotent under concurrent sweeps:
	// if the job has moved on since it was observed, the call is a no-op.
	MarkRetryable(ctx context.Context, id core.ID, reason string, previousStatus core.JobStatus, delay time.Duration) error

	// FindStuckJobs retrieves jobs in an in-progress status whose last update
	// is older than the cutoff.
	FindStuckJobs(ctx context.Context, cutoff time.Time) ([]*core.IngestionJob, error)

	// Close releases repository resources.
	Close() error
}
