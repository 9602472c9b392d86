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
	"time"

	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
)

// Report counts the repairs applied by a recovery run.
type Report struct {
	// OrphanedChunksDeleted is the number of chunks removed because their
	// owning object was gone or terminally failed.
	OrphanedChunksDeleted int

	// ObjectsDemoted is the number of embedded objects demoted back to
	// parsed because they carried unembedded chunks.
	ObjectsDemoted int

	// OrphanedLinksDeleted is the number of embedding links removed because
	// their chunk no longer existed.
	OrphanedLinksDeleted int

	// ObjectsReclaimed is the number of objects returned from an abandoned
	// embedding claim to parsed.
	ObjectsReclaimed int

	// ObjectsReset is the number of stalled objects with zero chunks reset
	// to initial for a full re-attempt.
	ObjectsReset int

	// ObjectsPromoted is the number of stalled objects with fully linked
	// chunks promoted directly to embedded.
	ObjectsPromoted int

	// JobsRequeued is the number of stuck jobs marked retryable.
	JobsRequeued int
}

// Changed reports whether the run applied any repair at all.
func (r *Report) Changed() bool {
	return r.OrphanedChunksDeleted > 0 ||
		r.ObjectsDemoted > 0 ||
		r.OrphanedLinksDeleted > 0 ||
		r.ObjectsReclaimed > 0 ||
		r.ObjectsReset > 0 ||
		r.ObjectsPromoted > 0 ||
		r.JobsRequeued > 0
}

// IntegrityReport counts the anomalies present in the stores without
// repairing any of them.
type IntegrityReport struct {
	// OrphanedChunks is the number of chunks with no embedding link.
	OrphanedChunks int

	// OrphanedLinks is the number of links whose chunk no longer exists.
	OrphanedLinks int

	// StalledObjects is the number of objects sitting in parsed past the
	// stalled threshold or in embedding past the claim threshold.
	StalledObjects int

	// StuckJobs is the number of jobs sitting in an in-progress status past
	// the stuck threshold.
	StuckJobs int

	// CountMismatches is the number of embedded objects whose chunk count
	// and embedding-link count disagree.
	CountMismatches int
}

// Clean reports whether the stores are free of anomalies.
func (r *IntegrityReport) Clean() bool {
	return r.OrphanedChunks == 0 &&
		r.OrphanedLinks == 0 &&
		r.StalledObjects == 0 &&
		r.StuckJobs == 0 &&
		r.CountMismatches == 0
}

// String renders the report for operational logging.
func (r *IntegrityReport) String() string {
	return fmt.Sprintf("orphaned_chunks=%d orphaned_links=%d stalled_objects=%d stuck_jobs=%d count_mismatches=%d",
		r.OrphanedChunks, r.OrphanedLinks, r.StalledObjects, r.StuckJobs, r.CountMismatches)
}

// CheckIntegrity scans for the same anomalies PerformRecovery repairs, plus
// embedded objects with mismatched chunk and link counts, and returns their
// counts without mutating anything. Used for periodic health reporting.
func (s *Service) CheckIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}
	var errs []error

	orphans, err := s.findOrphanedChunks(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("orphaned chunk scan: %w", err))
	}
	for _, chunks := range orphans {
		report.OrphanedChunks += len(chunks)
	}

	err = s.links.ForEachLink(ctx, func(link *core.EmbeddingLink) error {
		_, err := s.chunks.GetChunk(ctx, link.ChunkId)
		if errors.Is(err, storage.ErrNotFound) {
			report.OrphanedLinks++
			return nil
		}
		return err
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("orphaned link scan: %w", err))
	}

	stalledCutoff := time.Now().Add(-s.config.StalledThreshold)
	stalled, err := s.objects.FindStalledObjects(ctx, core.StatusParsed, stalledCutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("stalled object scan: %w", err))
	}
	report.StalledObjects = len(stalled)

	claimCutoff := time.Now().Add(-s.config.ClaimThreshold)
	abandoned, err := s.objects.FindStalledObjects(ctx, core.StatusEmbedding, claimCutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("abandoned claim scan: %w", err))
	}
	report.StalledObjects += len(abandoned)

	stuckCutoff := time.Now().Add(-s.config.StuckThreshold)
	stuck, err := s.jobs.FindStuckJobs(ctx, stuckCutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("stuck job scan: %w", err))
	}
	report.StuckJobs = len(stuck)

	if err := s.countMismatches(ctx, report); err != nil {
		errs = append(errs, fmt.Errorf("count mismatch scan: %w", err))
	}

	return report, errors.Join(errs...)
}

func (s *Service) countMismatches(ctx context.Context, report *IntegrityReport) error {
	embedded, err := s.objects.FindObjectsByStatus(ctx, core.StatusEmbedded, 0)
	if err != nil {
		return err
	}

	var errs []error
	for _, object := range embedded {
		chunks, err := s.chunks.GetChunksByObject(ctx, object.Id)
		if err != nil {
			errs = append(errs, err)
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
		if len(links) != len(chunks) {
			report.CountMismatches++
		}
	}
	return errors.Join(errs...)
}
