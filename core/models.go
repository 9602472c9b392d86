package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs. It is used for
// the source-locator dedupe index, where the same locator must always map to
// the same key.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ObjectType identifies the kind of content an object was ingested from.
type ObjectType int

const (
	// ObjectTypeBookmark represents a saved web page.
	ObjectTypeBookmark ObjectType = iota + 1
	// ObjectTypePDF represents an imported PDF document.
	ObjectTypePDF
	// ObjectTypeEmail represents an ingested email message.
	ObjectTypeEmail
	// ObjectTypeNotebook represents a user notebook page.
	ObjectTypeNotebook
	// ObjectTypeNote represents a free-standing note.
	ObjectTypeNote
)

// String returns the lowercase name of the object type.
func (t ObjectType) String() string {
	switch t {
	case ObjectTypeBookmark:
		return "bookmark"
	case ObjectTypePDF:
		return "pdf"
	case ObjectTypeEmail:
		return "email"
	case ObjectTypeNotebook:
		return "notebook"
	case ObjectTypeNote:
		return "note"
	default:
		return "unknown"
	}
}

// Prechunked reports whether objects of this type arrive from the parse stage
// with a single pre-built chunk and therefore skip structured extraction.
// The pipeline embeds the existing chunk directly.
func (t ObjectType) Prechunked() bool {
	return t == ObjectTypePDF
}

// ContentObject is one ingested item (bookmark, PDF, email, ...) tracked
// through the object lifecycle. It is created by the intake stage and advanced
// by the chunking pipeline via status transitions.
type ContentObject struct {
	Id            ID
	Type          ObjectType
	SourceLocator string // unique when non-empty; "" for items without a source URL
	Title         string
	Status        ObjectStatus
	RawRef        string // reference to the raw fetched content
	CleanedText   string // empty for binary types that chunk differently
	Summary       string // populated by a separate summarization step
	Tags          []string
	Propositions  []string
	ErrorText     string // present only in failure states
	ParsedAt      time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk is a semantically coherent fragment of an object's text, the unit of
// embedding and search. (ObjectId, Seq) is unique within the store.
type Chunk struct {
	Id           ID
	ObjectId     ID
	Seq          int
	Content      string
	Summary      string
	Tags         []string
	Propositions []string
	NotebookId   ID // 0 = not assigned to a notebook
	TokenCount   int
	CreatedAt    time.Time
}

// EmbeddingLink maps a chunk to its vector-store record. At most one link
// exists per chunk; the link is keyed by ChunkId.
type EmbeddingLink struct {
	ChunkId   ID
	Model     string // embedding model identifier the vector was produced with
	VectorId  string // vector-store record id
	CreatedAt time.Time
}

// IngestionJob is the durable ledger entry for one ingestion attempt of one
// object. It mirrors but outlives the object's own status field: an object may
// accumulate historical jobs across retries, but at most one is active.
type IngestionJob struct {
	Id             ID
	ObjectId       ID
	Status         JobStatus
	ChunkingStatus ChunkingStatus
	ErrorText      string
	RetryReason    string
	RetryDelay     time.Duration
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    time.Time // zero until the job reaches a terminal status
}
