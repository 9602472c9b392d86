// Copyright 2025 Verdant Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
	"github.com/verdantlabs/canopy/vector"
)

// Config holds the sweep thresholds for the recovery service.
type Config struct {
	// StalledThreshold is how long an object may sit in parsed before the
	// stalled-object sweep inspects it.
	StalledThreshold time.Duration

	// ClaimThreshold is how long an object may sit in embedding before its
	// claim is considered abandoned and the object is reclaimed.
	ClaimThreshold time.Duration

	// StuckThreshold is how long a job may sit in an in-progress status
	// before it is marked retryable.
	StuckThreshold time.Duration

	// RetryDelay is the delay attached to requeued jobs.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		StalledThreshold: 1 * time.Hour,
		ClaimThreshold:   1 * time.Hour,
		StuckThreshold:   30 * time.Minute,
		RetryDelay:       5 * time.Second,
	}
}

// withDefaults returns a copy of the config with zero fields filled in from
// the defaults.
func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	out := *c
	if out.StalledThreshold == 0 {
		out.StalledThreshold = defaults.StalledThreshold
	}
	if out.ClaimThreshold == 0 {
		out.ClaimThreshold = defaults.ClaimThreshold
	}
	if out.StuckThreshold == 0 {
		out.StuckThreshold = defaults.StuckThreshold
	}
	if out.RetryDelay == 0 {
		out.RetryDelay = defaults.RetryDelay
	}
	return &out
}

// Service detects and repairs inconsistencies that can only arise from a
// crash or bug mid-pipeline: orphaned chunks, orphaned embedding links,
// abandoned claims, stalled objects and stuck jobs. Every repair is
// idempotent, so running the service twice with no intervening pipeline
// activity changes nothing on the second run.
type Service struct {
	objects storage.ObjectRepository
	chunks  storage.ChunkRepository
	links   storage.EmbeddingLinkRepository
	jobs    storage.JobRepository
	store   vector.Store
	config  *Config
	logger  *slog.Logger
}

// NewService creates a recovery service. A nil config selects the defaults;
// zero fields in a supplied config are filled in from the defaults.
func NewService(
	objects storage.ObjectRepository,
	chunks storage.ChunkRepository,
	links storage.EmbeddingLinkRepository,
	jobs storage.JobRepository,
	store vector.Store,
	config *Config,
	logger *slog.Logger,
) *Service {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.withDefaults()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		objects: objects,
		chunks:  chunks,
		links:   links,
		jobs:    jobs,
		store:   store,
		config:  config,
		logger:  logger.With("component", "recovery"),
	}
}

// PerformRecovery runs every repair sweep and returns what was changed.
// Sweeps are independent: a failure in one does not stop the others, and all
// sweep errors are joined into the returned error.
func (s *Service) PerformRecovery(ctx context.Context) (*Report, error) {
	report := &Report{}
	var errs []error

	if err := s.repairOrphanedChunks(ctx, report); err != nil {
		errs = append(errs, fmt.Errorf("orphaned chunk sweep: %w", err))
	}
	if err := s.repairOrphanedLinks(ctx, report); err != nil {
		errs = append(errs, fmt.Errorf("orphaned link sweep: %w", err))
	}
	if err := s.reclaimAbandonedClaims(ctx, report); err != nil {
		errs = append(errs, fmt.Errorf("abandoned claim sweep: %w", err))
	}
	if err := s.repairStalledObjects(ctx, report); err != nil {
		errs = append(errs, fmt.Errorf("stalled object sweep: %w", err))
	}
	if err := s.requeueStuckJobs(ctx, report); err != nil {
		errs = append(errs, fmt.Errorf("stuck job sweep: %w", err))
	}

	if report.Changed() {
		s.logger.Info("recovery sweep applied repairs",
			"orphaned_chunks_deleted", report.OrphanedChunksDeleted,
			"objects_demoted", report.ObjectsDemoted,
			"orphaned_links_deleted", report.OrphanedLinksDeleted,
			"objects_reclaimed", report.ObjectsReclaimed,
			"objects_reset", report.ObjectsReset,
			"objects_promoted", report.ObjectsPromoted,
			"jobs_requeued", report.JobsRequeued)
	}

	return report, errors.Join(errs...)
}

// findOrphanedChunks returns every chunk with no embedding link, grouped by
// owning object.
func (s *Service) findOrphanedChunks(ctx context.Context) (map[core.ID][]*core.Chunk, error) {
	orphans := make(map[core.ID][]*core.Chunk)
	err := s.chunks.ForEachChunk(ctx, func(chunk *core.Chunk) error {
		_, err := s.links.GetLinkByChunk(ctx, chunk.Id)
		if errors.Is(err, storage.ErrNotFound) {
			orphans[chunk.ObjectId] = append(orphans[chunk.ObjectId], chunk)
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

// repairOrphanedChunks handles chunks that were persisted but never linked to
// a vector. If the owning object is gone or terminally failed, the chunks are
// partial debris and are deleted. If the object claims to be embedded despite
// carrying unembedded chunks, it is demoted to parsed so the pipeline retries
// it. Objects still moving through the pipeline are left alone.
func (s *Service) repairOrphanedChunks(ctx context.Context, report *Report) error {
	orphans, err := s.findOrphanedChunks(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for objectID, chunks := range orphans {
		object, err := s.objects.GetObject(ctx, objectID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			errs = append(errs, s.deleteChunks(ctx, chunks, report))

		case err != nil:
			errs = append(errs, err)

		case object.Status == core.StatusEmbeddingFailed || object.Status == core.StatusError:
			errs = append(errs, s.deleteChunks(ctx, chunks, report))

		case object.Status == core.StatusEmbedded:
			if err := s.objects.TransitionStatus(ctx, objectID, core.StatusParsed, nil); err != nil {
				errs = append(errs, fmt.Errorf("demote object %d: %w", objectID, err))
				continue
			}
			report.ObjectsDemoted++
			s.logger.Warn("demoted embedded object with unembedded chunks",
				"object_id", objectID, "orphaned_chunks", len(chunks))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) deleteChunks(ctx context.Context, chunks []*core.Chunk, report *Report) error {
	var errs []error
	for _, chunk := range chunks {
		if _, err := s.chunks.DeleteChunk(ctx, chunk.Id); err != nil {
			errs = append(errs, fmt.Errorf("delete chunk %d: %w", chunk.Id, err))
			continue
		}
		report.OrphanedChunksDeleted++
	}
	return errors.Join(errs...)
}

// repairOrphanedLinks removes links whose chunk no longer exists. The
// vector-store records are deleted best-effort first; the link rows are
// deleted regardless of the outcome, because the durable store is
// authoritative and the vector store is a derived index.
func (s *Service) repairOrphanedLinks(ctx context.Context, report *Report) error {
	var chunkIDs []core.ID
	var vectorIDs []string

	err := s.links.ForEachLink(ctx, func(link *core.EmbeddingLink) error {
		_, err := s.chunks.GetChunk(ctx, link.ChunkId)
		if errors.Is(err, storage.ErrNotFound) {
			chunkIDs = append(chunkIDs, link.ChunkId)
			vectorIDs = append(vectorIDs, link.VectorId)
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	if len(chunkIDs) == 0 {
		return nil
	}

	if err := s.store.DeleteByIDs(ctx, vectorIDs); err != nil {
		s.logger.Warn("failed to delete orphaned vector records, links will be removed anyway",
			"count", len(vectorIDs), "error", err)
	}

	var errs []error
	for _, chunkID := range chunkIDs {
		if err := s.links.DeleteLinkByChunk(ctx, chunkID); err != nil {
			errs = append(errs, fmt.Errorf("delete link for chunk %d: %w", chunkID, err))
			continue
		}
		report.OrphanedLinksDeleted++
	}
	return errors.Join(errs...)
}

// reclaimAbandonedClaims returns objects stuck in embedding past the claim
// threshold to parsed so the pipeline can claim them again. A crashed worker
// may have left partial output behind: chunks it wrote are deleted so the
// retry starts clean, except for prechunked types whose single chunk comes
// from the parse stage and must survive; there only the embedding link is
// dropped. Vector records are removed best-effort, link rows always.
func (s *Service) reclaimAbandonedClaims(ctx context.Context, report *Report) error {
	cutoff := time.Now().Add(-s.config.ClaimThreshold)
	abandoned, err := s.objects.FindStalledObjects(ctx, core.StatusEmbedding, cutoff)
	if err != nil {
		return err
	}

	var errs []error
	for _, object := range abandoned {
		if object.Type.Prechunked() {
			if err := s.unlinkChunks(ctx, object.Id); err != nil {
				errs = append(errs, fmt.Errorf("unlink object %d: %w", object.Id, err))
				continue
			}
		} else {
			vectorIDs, err := s.chunks.DeleteChunksByObject(ctx, object.Id)
			if err != nil {
				errs = append(errs, fmt.Errorf("clear chunks of object %d: %w", object.Id, err))
				continue
			}
			s.deleteVectors(ctx, vectorIDs)
		}

		if err := s.objects.TransitionStatus(ctx, object.Id, core.StatusParsed, nil); err != nil {
			errs = append(errs, fmt.Errorf("reclaim object %d: %w", object.Id, err))
			continue
		}
		report.ObjectsReclaimed++
		s.logger.Warn("reclaimed object from abandoned claim",
			"object_id", object.Id, "claim_threshold", s.config.ClaimThreshold)
	}
	return errors.Join(errs...)
}

// unlinkChunks removes the embedding links of an object's chunks while
// leaving the chunks themselves in place.
func (s *Service) unlinkChunks(ctx context.Context, objectID core.ID) error {
	chunks, err := s.chunks.GetChunksByObject(ctx, objectID)
	if err != nil {
		return err
	}
	chunkIDs := make([]core.ID, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.Id
	}
	links, err := s.links.GetLinksByChunks(ctx, chunkIDs...)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}

	vectorIDs := make([]string, len(links))
	for i, link := range links {
		vectorIDs[i] = link.VectorId
	}
	s.deleteVectors(ctx, vectorIDs)

	var errs []error
	for _, link := range links {
		if err := s.links.DeleteLinkByChunk(ctx, link.ChunkId); err != nil {
			errs = append(errs, fmt.Errorf("delete link for chunk %d: %w", link.ChunkId, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) deleteVectors(ctx context.Context, vectorIDs []string) {
	if len(vectorIDs) == 0 {
		return
	}
	if err := s.store.DeleteByIDs(ctx, vectorIDs); err != nil {
		s.logger.Warn("failed to delete vector records, durable rows already removed",
			"count", len(vectorIDs), "error", err)
	}
}

// repairStalledObjects inspects objects sitting in parsed past the threshold.
// Zero chunks means the earlier stages left nothing usable, so the object is
// reset to initial for a full re-attempt. A full set of linked chunks means
// only the final status write was lost, so the object is promoted straight to
// embedded. A partial set is left for the pipeline to finish naturally.
func (s *Service) repairStalledObjects(ctx context.Context, report *Report) error {
	cutoff := time.Now().Add(-s.config.StalledThreshold)
	stalled, err := s.objects.FindStalledObjects(ctx, core.StatusParsed, cutoff)
	if err != nil {
		return err
	}

	var errs []error
	for _, object := range stalled {
		chunks, err := s.chunks.GetChunksByObject(ctx, object.Id)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if len(chunks) == 0 {
			if err := s.objects.TransitionStatus(ctx, object.Id, core.StatusInitial, nil); err != nil {
				errs = append(errs, fmt.Errorf("reset object %d: %w", object.Id, err))
				continue
			}
			report.ObjectsReset++
			s.logger.Info("reset stalled object with no chunks", "object_id", object.Id)
			continue
		}

		chunkIDs := make([]core.ID, len(chunks))
		for i, chunk := range chunks {
			chunkIDs[i] = chunk.Id
		}
		links, err := s.links.GetLinksByChunks(ctx, chunkIDs...)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if len(links) == len(chunks) {
			if err := s.objects.TransitionStatus(ctx, object.Id, core.StatusEmbedded, nil); err != nil {
				errs = append(errs, fmt.Errorf("promote object %d: %w", object.Id, err))
				continue
			}
			report.ObjectsPromoted++
			s.logger.Info("promoted stalled object with fully linked chunks", "object_id", object.Id)
		}
	}
	return errors.Join(errs...)
}

// requeueStuckJobs marks jobs stuck in an in-progress status as retryable.
// The previous-status guard in MarkRetryable makes this safe against a job
// that moved on between the scan and the write.
func (s *Service) requeueStuckJobs(ctx context.Context, report *Report) error {
	cutoff := time.Now().Add(-s.config.StuckThreshold)
	stuck, err := s.jobs.FindStuckJobs(ctx, cutoff)
	if err != nil {
		return err
	}

	var errs []error
	for _, job := range stuck {
		reason := fmt.Sprintf("job stuck in %s for over %s", job.Status, s.config.StuckThreshold)
		if err := s.jobs.MarkRetryable(ctx, job.Id, reason, job.Status, s.config.RetryDelay); err != nil {
			errs = append(errs, fmt.Errorf("requeue job %d: %w", job.Id, err))
			continue
		}
		report.JobsRequeued++
		s.logger.Info("marked stuck job retryable", "job_id", job.Id, "previous_status", job.Status.String())
	}
	return errors.Join(errs...)
}
