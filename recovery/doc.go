// Package recovery repairs the inconsistencies a crash mid-pipeline can
// leave behind: chunks that were persisted but never linked to a vector,
// links whose chunk is gone, claims abandoned in embedding, objects stalled
// in parsed, and jobs stuck in an in-progress status.
//
// The durable store is authoritative and the vector store is a derived
// index, so repairs always commit to the durable store; vector-store deletes
// are best-effort and a failure there only delays cleanup until the next
// sweep. All sweeps are idempotent and safe to run on a schedule or on
// demand. CheckIntegrity exposes the same scans as read-only counts for
// health reporting.
package recovery
