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

package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	idSeq, err := backend.GetSequence(jobIDSeq)
	if err != nil {
		return nil, err
	}

	return &JobRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *JobRepository) Close() error {
	return r.idSeq.Release()
}

// CreateJob adds an ingestion job to the ledger.
func (r *JobRepository) CreateJob(ctx context.Context, job *core.IngestionJob) (*core.IngestionJob, error) {
	if err := core.ValidateJob(job); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		job.Id = core.ID(nextID)

		job.CreatedAt = time.Now().UTC()
		job.UpdatedAt = job.CreatedAt

		key := makeJobKey(job.Id)
		if err := tx.Set(key, storage.MarshalJob(job)); err != nil {
			return err
		}

		objectKey := makeJobObjectKey(job.ObjectId, job.Id)
		if err := tx.Set(objectKey, storage.MarshalID(job.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob retrieves a single ingestion job by ID.
func (r *JobRepository) GetJob(ctx context.Context, id core.ID) (*core.IngestionJob, error) {
	var result *core.IngestionJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindJobAwaitingChunking returns the most recent job for the object whose
// chunking stage is still pending or in progress. Jobs are scanned newest
// first via reverse iteration over the object-job index.
func (r *JobRepository) FindJobAwaitingChunking(ctx context.Context, objectID core.ID) (*core.IngestionJob, error) {
	var result *core.IngestionJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeJobObjectPrefix(objectID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the last possible key for this object.
		seekKey := makeJobObjectKey(objectID, core.ID(^uint64(0)))

		for iter.Seek(seekKey); iter.ValidForPrefix(prefix); iter.Next() {
			var jobID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				jobID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			job, err := r.readJob(tx, makeJobKey(jobID))
			if err != nil {
				return err
			}
			if job != nil && job.ChunkingStatus.AwaitingChunking() {
				result = job
				return nil
			}
		}
		return storage.ErrNotFound
	}, false)
	return result, err
}

// UpdateJob applies a partial patch to a job and bumps its update timestamp.
func (r *JobRepository) UpdateJob(ctx context.Context, id core.ID, update *storage.JobUpdate) (*core.IngestionJob, error) {
	var result *core.IngestionJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(id)
		job, err := r.readJob(tx, key)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}

		if update != nil {
			if update.Status != nil {
				job.Status = *update.Status
			}
			if update.ChunkingStatus != nil {
				job.ChunkingStatus = *update.ChunkingStatus
			}
			if update.ErrorText != nil {
				job.ErrorText = core.TruncateErrorText(*update.ErrorText)
			}
			if update.CompletedAt != nil {
				job.CompletedAt = *update.CompletedAt
			}
		}
		job.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalJob(job)); err != nil {
			return err
		}
		result = job
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkRetryable requeues a stuck job. The previousStatus guard makes the call
// a no-op when the job has already moved on, so concurrent recovery sweeps
// cannot double-requeue it.
func (r *JobRepository) MarkRetryable(ctx context.Context, id core.ID, reason string, previousStatus core.JobStatus, delay time.Duration) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(id)
		job, err := r.readJob(tx, key)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}

		if job.Status != previousStatus {
			return nil
		}

		job.Status = core.JobStatusRetryable
		job.RetryReason = fmt.Sprintf("%s (was %s)", reason, previousStatus)
		job.RetryDelay = delay
		job.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindStuckJobs retrieves jobs in an in-progress status whose last update is
// older than the cutoff.
func (r *JobRepository) FindStuckJobs(ctx context.Context, cutoff time.Time) ([]*core.IngestionJob, error) {
	var results []*core.IngestionJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(jobRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var job *core.IngestionJob
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalJob(val)
				return err
			}); err != nil {
				return err
			}
			if job.Status.InProgress() && job.UpdatedAt.Before(cutoff) {
				results = append(results, job)
			}
		}
		return nil
	}, false)
	return results, err
}

func (r *JobRepository) readJob(tx *badger.Txn, key []byte) (*core.IngestionJob, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var job *core.IngestionJob
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}
