// Package reembed provides functionality for reembedding every stored chunk
// with a new or updated embedding model.
//
// This package supports batch processing of chunks, progress tracking, retry
// logic with exponential backoff, and link rewriting that only happens after
// a fully successful vector-store upsert.
package reembed
