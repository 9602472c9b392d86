// Copyright 2025 Verdant Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
	"github.com/verdantlabs/canopy/vector"
)

// processObject runs the full per-object sequence: job lookup, claim,
// extraction, embedding, linkage and status bookkeeping. Failures never
// propagate to the poller; every exit path removes the object from the
// in-flight set.
func (p *Pipeline) processObject(ctx context.Context, id core.ID) {
	if !p.inflight.Add(id) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while processing object", "object", id, "panic", r)
		}
		p.inflight.Remove(id)
	}()

	// An object with no job awaiting chunking is an orphan. Tolerate a few
	// misses (the job writer may simply be behind), then escalate.
	job, err := p.jobs.FindJobAwaitingChunking(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.logger.Error("job lookup failed", "object", id, "err", err)
			return
		}
		misses := p.orphans.Miss(id)
		if misses < p.orphanBudget {
			p.logger.Warn("no job awaiting chunking for object",
				"object", id, "misses", misses)
			return
		}
		p.orphans.Clear(id)
		p.logger.Error("object has no ingestion job after repeated lookups, marking errored",
			"object", id, "misses", misses)
		if terr := p.objects.TransitionStatus(ctx, id, core.StatusError, &storage.TransitionOptions{
			ErrorText: fmt.Sprintf("no ingestion job found after %d lookups", misses),
		}); terr != nil {
			p.logger.Error("failed to mark orphaned object errored", "object", id, "err", terr)
		}
		return
	}

	// Claim the object. The transition can succeed here and still lose to a
	// concurrent worker in another process, so the claim is only trusted
	// after a re-read confirms the status actually is embedding.
	if err := p.objects.TransitionStatus(ctx, id, core.StatusEmbedding, nil); err != nil {
		if errors.Is(err, core.ErrIllegalTransition) {
			p.lostClaim(ctx, id, job.Id)
			return
		}
		p.logger.Error("claim transition failed", "object", id, "err", err)
		return
	}

	object, err := p.objects.GetObject(ctx, id)
	if err != nil {
		p.logger.Error("claim re-read failed", "object", id, "err", err)
		return
	}
	if object.Status != core.StatusEmbedding {
		p.lostClaim(ctx, id, job.Id)
		return
	}

	inProgress := core.ChunkingStatusInProgress
	jobStatus := core.JobStatusChunkingInProgress
	if _, err := p.jobs.UpdateJob(ctx, job.Id, &storage.JobUpdate{
		Status:         &jobStatus,
		ChunkingStatus: &inProgress,
	}); err != nil {
		p.logger.Error("failed to mark job chunking in progress", "job", job.Id, "err", err)
	}

	var procErr error
	if object.Type.Prechunked() {
		procErr = p.processMonolithic(ctx, object)
	} else {
		procErr = p.processGeneric(ctx, object)
	}

	if procErr != nil {
		p.logger.Error("object processing failed",
			"object", id, "type", object.Type, "err", procErr)
		p.recordFailure(ctx, id, job.Id, procErr)
		return
	}

	p.recordSuccess(ctx, id, job.Id)
	p.orphans.Clear(id)
}

// processGeneric extracts chunks from the object's cleaned text, embeds them
// as one batch and links each chunk to its vector.
func (p *Pipeline) processGeneric(ctx context.Context, object *core.ContentObject) error {
	if object.CleanedText == "" {
		return ErrNoCleanedText
	}

	p.window.Record()
	extracted, err := p.extractor.ExtractChunks(ctx, object.CleanedText)
	if err != nil {
		return fmt.Errorf("chunk extraction: %w", err)
	}
	if len(extracted) == 0 {
		return ErrNoChunks
	}

	records := make([]*core.Chunk, len(extracted))
	for i, chunk := range extracted {
		records[i] = &core.Chunk{
			ObjectId:     object.Id,
			Seq:          chunk.Index,
			Content:      chunk.Content,
			Summary:      chunk.Summary,
			Tags:         chunk.Tags,
			Propositions: chunk.Propositions,
			TokenCount:   chunk.TokenCount,
		}
	}
	if _, err := p.chunks.AddChunks(ctx, records...); err != nil {
		return fmt.Errorf("persisting chunks: %w", err)
	}

	// Re-fetch through the store so linkage works from persisted state, not
	// from what this worker thinks it wrote.
	persisted, err := p.chunks.GetChunksByObject(ctx, object.Id)
	if err != nil {
		return fmt.Errorf("re-fetching chunks: %w", err)
	}
	if len(persisted) != len(extracted) {
		return fmt.Errorf("expected %d persisted chunks, found %d", len(extracted), len(persisted))
	}

	docs := make([]vector.Document, len(persisted))
	for i, chunk := range persisted {
		docs[i] = vector.Document{
			Content:       chunk.Content,
			ObjectID:      uint64(object.Id),
			ChunkID:       uint64(chunk.Id),
			Seq:           chunk.Seq,
			Summary:       chunk.Summary,
			Tags:          chunk.Tags,
			Propositions:  chunk.Propositions,
			Title:         object.Title,
			SourceLocator: object.SourceLocator,
		}
	}

	return p.embedAndLink(ctx, persisted, docs)
}

// processMonolithic embeds an object's single pre-existing chunk directly,
// folding the object-level tags and propositions into the vector payload.
// Used for types whose chunk is produced upstream (for example PDFs).
func (p *Pipeline) processMonolithic(ctx context.Context, object *core.ContentObject) error {
	persisted, err := p.chunks.GetChunksByObject(ctx, object.Id)
	if err != nil {
		return fmt.Errorf("fetching chunks: %w", err)
	}
	if len(persisted) != 1 {
		return fmt.Errorf("monolithic object has %d chunks, expected exactly 1", len(persisted))
	}

	chunk := persisted[0]
	docs := []vector.Document{{
		Content:       chunk.Content,
		ObjectID:      uint64(object.Id),
		ChunkID:       uint64(chunk.Id),
		Seq:           chunk.Seq,
		Summary:       object.Summary,
		Tags:          object.Tags,
		Propositions:  object.Propositions,
		Title:         object.Title,
		SourceLocator: object.SourceLocator,
	}}

	return p.embedAndLink(ctx, persisted, docs)
}

// embedAndLink submits one vector-store batch for the chunks and writes one
// embedding link per (chunk, vector id) pair. A vector-id count that differs
// from the chunk count fails the whole batch; partial linkage is never
// attempted.
func (p *Pipeline) embedAndLink(ctx context.Context, chunks []*core.Chunk, docs []vector.Document) error {
	p.window.Record()
	vectorIDs, err := p.store.Upsert(ctx, docs)
	if err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}
	if len(vectorIDs) != len(chunks) {
		return fmt.Errorf("%w: %d vector ids for %d chunks",
			vector.ErrCountMismatch, len(vectorIDs), len(chunks))
	}

	links := make([]*core.EmbeddingLink, len(chunks))
	for i, chunk := range chunks {
		links[i] = &core.EmbeddingLink{
			ChunkId:  chunk.Id,
			Model:    p.embeddingModel,
			VectorId: vectorIDs[i],
		}
	}
	if err := p.links.AddLinks(ctx, links...); err != nil {
		return fmt.Errorf("writing embedding links: %w", err)
	}
	return nil
}

// lostClaim records a lost claim race: the job is marked failed and the
// object is left alone, since the winning worker owns it now.
func (p *Pipeline) lostClaim(ctx context.Context, objectID, jobID core.ID) {
	p.logger.Warn("lost claim race", "object", objectID)

	failed := core.JobStatusFailed
	chunkingFailed := core.ChunkingStatusFailed
	errText := ErrClaimLost.Error()
	completedAt := time.Now().UTC()
	if _, err := p.jobs.UpdateJob(ctx, jobID, &storage.JobUpdate{
		Status:         &failed,
		ChunkingStatus: &chunkingFailed,
		ErrorText:      &errText,
		CompletedAt:    &completedAt,
	}); err != nil {
		p.logger.Error("failed to record lost claim on job", "job", jobID, "err", err)
	}
}

// recordSuccess advances the object to embedded and completes the job. The
// two writes are independently best-effort; a failure in either is logged
// and left to the recovery sweeps.
func (p *Pipeline) recordSuccess(ctx context.Context, objectID, jobID core.ID) {
	if err := p.objects.TransitionStatus(ctx, objectID, core.StatusEmbedded, nil); err != nil {
		p.logger.Error("failed to mark object embedded", "object", objectID, "err", err)
	}

	completed := core.JobStatusCompleted
	chunkingCompleted := core.ChunkingStatusCompleted
	completedAt := time.Now().UTC()
	if _, err := p.jobs.UpdateJob(ctx, jobID, &storage.JobUpdate{
		Status:         &completed,
		ChunkingStatus: &chunkingCompleted,
		CompletedAt:    &completedAt,
	}); err != nil {
		p.logger.Error("failed to mark job completed", "job", jobID, "err", err)
	}
}

// recordFailure moves the object to embedding_failed and fails the job, both
// with the truncated error text. Each write is independently best-effort.
func (p *Pipeline) recordFailure(ctx context.Context, objectID, jobID core.ID, procErr error) {
	errText := core.TruncateErrorText(procErr.Error())

	if err := p.objects.TransitionStatus(ctx, objectID, core.StatusEmbeddingFailed, &storage.TransitionOptions{
		ErrorText: errText,
	}); err != nil {
		p.logger.Error("failed to mark object embedding_failed", "object", objectID, "err", err)
	}

	failed := core.JobStatusFailed
	chunkingFailed := core.ChunkingStatusFailed
	completedAt := time.Now().UTC()
	if _, err := p.jobs.UpdateJob(ctx, jobID, &storage.JobUpdate{
		Status:         &failed,
		ChunkingStatus: &chunkingFailed,
		ErrorText:      &errText,
		CompletedAt:    &completedAt,
	}); err != nil {
		p.logger.Error("failed to mark job failed", "job", jobID, "err", err)
	}
}
