// Package pipeline drives parsed content objects through chunk extraction,
// embedding and linkage.
//
// A single poller goroutine periodically selects objects in the parsed
// status, bounded by a concurrency cap and a rolling-window rate limit on
// collaborator requests, and launches one fire-and-forget task per object on
// a worker pool. Each task claims its object by transitioning it from parsed
// to embedding and re-reading to confirm the claim, so the design stays
// correct even when several processes share the same durable store.
//
// Failures inside one object's task never affect the poller or other tasks;
// they are recorded on the object and its ingestion job and picked up later
// by the recovery sweeps.
package pipeline
