package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
)

func TestJobBasics(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	job := &core.IngestionJob{
		ObjectId:       41,
		Status:         core.JobStatusPending,
		ChunkingStatus: core.ChunkingStatusPending,
	}
	created, err := repos.Jobs.CreateJob(ctx, job)
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	if created.Id == 0 {
		t.Fatal("Expected non-zero job ID")
	}

	retrieved, err := repos.Jobs.GetJob(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if retrieved.ObjectId != 41 || retrieved.Status != core.JobStatusPending {
		t.Fatalf("Unexpected job %+v", retrieved)
	}

	_, err = repos.Jobs.GetJob(ctx, 99999)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestFindJobAwaitingChunking(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	// No jobs at all: the object is orphaned.
	_, err = repos.Jobs.FindJobAwaitingChunking(ctx, 7)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	// An older completed job and a newer pending one.
	older, err := repos.Jobs.CreateJob(ctx, &core.IngestionJob{
		ObjectId:       7,
		Status:         core.JobStatusCompleted,
		ChunkingStatus: core.ChunkingStatusCompleted,
	})
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	newer, err := repos.Jobs.CreateJob(ctx, &core.IngestionJob{
		ObjectId:       7,
		Status:         core.JobStatusProcessing,
		ChunkingStatus: core.ChunkingStatusPending,
	})
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	found, err := repos.Jobs.FindJobAwaitingChunking(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to find awaiting job: %v", err)
	}
	if found.Id != newer.Id {
		t.Fatalf("Expected job %d, got %d", newer.Id, found.Id)
	}

	// A different object's jobs never leak into the lookup.
	_, err = repos.Jobs.FindJobAwaitingChunking(ctx, 8)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for other object, got %v", err)
	}

	// Once chunking completes, the object has no awaiting job.
	completed := core.ChunkingStatusCompleted
	if _, err := repos.Jobs.UpdateJob(ctx, newer.Id, &storage.JobUpdate{ChunkingStatus: &completed}); err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}
	_, err = repos.Jobs.FindJobAwaitingChunking(ctx, 7)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after completion, got %v", err)
	}
	_ = older
}

func TestUpdateJobPartialPatch(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	created, err := repos.Jobs.CreateJob(ctx, &core.IngestionJob{
		ObjectId:       3,
		Status:         core.JobStatusPending,
		ChunkingStatus: core.ChunkingStatusPending,
	})
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	// Patch only the status; chunking status stays untouched.
	status := core.JobStatusVectorizing
	updated, err := repos.Jobs.UpdateJob(ctx, created.Id, &storage.JobUpdate{Status: &status})
	if err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}
	if updated.Status != core.JobStatusVectorizing {
		t.Fatalf("Expected vectorizing, got %v", updated.Status)
	}
	if updated.ChunkingStatus != core.ChunkingStatusPending {
		t.Fatalf("Expected chunking status untouched, got %v", updated.ChunkingStatus)
	}

	// Completing a job stores error text truncated and the completion time.
	status = core.JobStatusCompleted
	errText := "done"
	completedAt := time.Now().UTC()
	updated, err = repos.Jobs.UpdateJob(ctx, created.Id, &storage.JobUpdate{
		Status:      &status,
		ErrorText:   &errText,
		CompletedAt: &completedAt,
	})
	if err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}
	if updated.CompletedAt.IsZero() {
		t.Fatal("Expected completion time to be set")
	}

	_, err = repos.Jobs.UpdateJob(ctx, 99999, &storage.JobUpdate{Status: &status})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestMarkRetryable(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	created, err := repos.Jobs.CreateJob(ctx, &core.IngestionJob{
		ObjectId:       5,
		Status:         core.JobStatusVectorizing,
		ChunkingStatus: core.ChunkingStatusInProgress,
	})
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	err = repos.Jobs.MarkRetryable(ctx, created.Id, "no progress after deadline", core.JobStatusVectorizing, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to mark retryable: %v", err)
	}

	retrieved, err := repos.Jobs.GetJob(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if retrieved.Status != core.JobStatusRetryable {
		t.Fatalf("Expected retryable, got %v", retrieved.Status)
	}
	if retrieved.RetryDelay != 5*time.Second {
		t.Fatalf("Expected 5s delay, got %v", retrieved.RetryDelay)
	}
	if retrieved.RetryReason == "" {
		t.Fatal("Expected retry reason to be recorded")
	}

	// Stale guard: the job is no longer vectorizing, so a second sweep is a
	// no-op and does not clobber the reason.
	err = repos.Jobs.MarkRetryable(ctx, created.Id, "second sweep", core.JobStatusVectorizing, time.Minute)
	if err != nil {
		t.Fatalf("Expected no-op, got %v", err)
	}
	after, err := repos.Jobs.GetJob(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if after.RetryDelay != 5*time.Second {
		t.Fatalf("Expected untouched delay, got %v", after.RetryDelay)
	}
}

func TestFindStuckJobs(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	inProgress, err := repos.Jobs.CreateJob(ctx, &core.IngestionJob{
		ObjectId:       1,
		Status:         core.JobStatusChunkingInProgress,
		ChunkingStatus: core.ChunkingStatusInProgress,
	})
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	_, err = repos.Jobs.CreateJob(ctx, &core.IngestionJob{
		ObjectId:       2,
		Status:         core.JobStatusCompleted,
		ChunkingStatus: core.ChunkingStatusCompleted,
	})
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	// Cutoff in the future: only the in-progress job qualifies.
	stuck, err := repos.Jobs.FindStuckJobs(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("Failed to find stuck jobs: %v", err)
	}
	if len(stuck) != 1 || stuck[0].Id != inProgress.Id {
		t.Fatalf("Expected only the in-progress job, got %d results", len(stuck))
	}

	// Cutoff in the past: nothing is stuck yet.
	stuck, err = repos.Jobs.FindStuckJobs(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Failed to find stuck jobs: %v", err)
	}
	if len(stuck) != 0 {
		t.Fatalf("Expected no stuck jobs, got %d", len(stuck))
	}
}
