package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/verdantlabs/canopy/core"
)

// Key prefixes for different data types
const (
	objectRecordPrefix  = "objrec"
	objectStatusPrefix  = "objst"
	objectLocatorPrefix = "objloc"
	objectIDSeq         = "objrecseq"
	chunkRecordPrefix   = "chkrec"
	chunkObjectPrefix   = "chkobj"
	chunkIDSeq          = "chkrecseq"
	linkRecordPrefix    = "lnkrec"
	jobRecordPrefix     = "jobrec"
	jobObjectPrefix     = "jobobj"
	jobIDSeq            = "jobrecseq"
)

// makeObjectKey generates a key for a content object by ID.
func makeObjectKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", objectRecordPrefix, id))
}

// makeObjectStatusKey generates a composite key for the status index.
// Format: prefix:status:createdAt:id. CreatedAt is written BigEndian so
// lexicographic iteration yields oldest-created-first (FIFO for the pipeline).
func makeObjectStatusKey(status core.ObjectStatus, createdAt time.Time, id core.ID) []byte {
	prefix := fmt.Sprintf("%s:%d:", objectStatusPrefix, status)
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+16) // 8 bytes timestamp + 8 bytes ID
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeObjectStatusPrefix generates the iteration prefix for one status.
func makeObjectStatusPrefix(status core.ObjectStatus) []byte {
	return []byte(fmt.Sprintf("%s:%d:", objectStatusPrefix, status))
}

// makeObjectLocatorKey generates a key for the source-locator dedupe index.
// Locators can be arbitrarily long URLs, so the key stores a BLAKE2b hash.
func makeObjectLocatorKey(locator string) []byte {
	return []byte(fmt.Sprintf("%s:%d", objectLocatorPrefix, core.IDFromContent(locator)))
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkObjectKey generates a composite key for the object-chunk index.
// Format: prefix:objectID:seq. Seq is written BigEndian so iteration yields
// chunks in sequence order.
func makeChunkObjectKey(objectID core.ID, seq int) []byte {
	prefix := fmt.Sprintf("%s:%d:", chunkObjectPrefix, objectID)
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(seq))
	return buf
}

// makeChunkObjectPrefix generates the iteration prefix for one object's chunks.
func makeChunkObjectPrefix(objectID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d:", chunkObjectPrefix, objectID))
}

// makeLinkKey generates a key for an embedding link by chunk ID. Keying links
// by chunk enforces the at-most-one-link-per-chunk invariant structurally.
func makeLinkKey(chunkID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", linkRecordPrefix, chunkID))
}

// makeJobKey generates a key for an ingestion job by ID.
func makeJobKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", jobRecordPrefix, id))
}

// makeJobObjectKey generates a composite key for the object-job index.
// Format: prefix:objectID:jobID. Job IDs come from a monotonic sequence, so
// reverse iteration yields the most recent job first.
func makeJobObjectKey(objectID, jobID core.ID) []byte {
	prefix := fmt.Sprintf("%s:%d:", jobObjectPrefix, objectID)
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(jobID))
	return buf
}

// makeJobObjectPrefix generates the iteration prefix for one object's jobs.
func makeJobObjectPrefix(objectID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d:", jobObjectPrefix, objectID))
}
