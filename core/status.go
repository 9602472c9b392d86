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


package core

// ObjectStatus is the lifecycle state of a content object. The status column
// is the state machine: every transition is a single atomic update, and legal
// transitions are enforced by the table below rather than by convention.
type ObjectStatus int

const (
	// StatusInitial is the manual reset target used by recovery for a full
	// re-attempt from the fetch stage.
	StatusInitial ObjectStatus = iota + 1
	// StatusNew marks a freshly created object awaiting fetch.
	StatusNew
	// StatusFetched marks an object whose raw content has been retrieved.
	StatusFetched
	// StatusParsed marks an object ready for chunking. This is the entry
	// point for the chunking pipeline.
	StatusParsed
	// StatusEmbedding marks an object claimed by a pipeline worker.
	StatusEmbedding
	// StatusEmbedded marks a fully chunked and embedded object.
	StatusEmbedded
	// StatusEmbeddingFailed marks a failed chunking/embedding attempt,
	// eligible for operator-triggered retry.
	StatusEmbeddingFailed
	// StatusError marks an unrecoverable data-integrity escalation.
	StatusError
)

// String returns the snake_case name of the status.
func (s ObjectStatus) String() string {
	switch s {
	case StatusInitial:
		return "initial"
	case StatusNew:
		return "new"
	case StatusFetched:
		return "fetched"
	case StatusParsed:
		return "parsed"
	case StatusEmbedding:
		return "embedding"
	case StatusEmbedded:
		return "embedded"
	case StatusEmbeddingFailed:
		return "embedding_failed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Valid reports whether the status is one of the defined values.
func (s ObjectStatus) Valid() bool {
	return s >= StatusInitial && s <= StatusError
}

// legalTransitions enumerates the allowed status transitions. StatusError is
// reachable from every state; the table omits self-transitions, so a second
// claim attempt on an already-claimed object is rejected as illegal.
var legalTransitions = map[ObjectStatus][]ObjectStatus{
	StatusInitial:         {StatusNew, StatusError},
	StatusNew:             {StatusFetched, StatusError},
	StatusFetched:         {StatusParsed, StatusError},
	StatusParsed:          {StatusEmbedding, StatusEmbedded, StatusInitial, StatusError},
	StatusEmbedding:       {StatusEmbedded, StatusEmbeddingFailed, StatusParsed, StatusError},
	StatusEmbedded:        {StatusParsed, StatusInitial, StatusError},
	StatusEmbeddingFailed: {StatusParsed, StatusInitial, StatusError},
	StatusError:           {StatusInitial},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to ObjectStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// JobStatus is the overall status of an ingestion job.
type JobStatus int

const (
	// JobStatusPending marks a job created but not yet picked up.
	JobStatusPending JobStatus = iota + 1
	// JobStatusProcessing marks a job in the fetch stage.
	JobStatusProcessing
	// JobStatusParsing marks a job in the parse stage.
	JobStatusParsing
	// JobStatusChunkingInProgress marks a job being chunked and embedded.
	JobStatusChunkingInProgress
	// JobStatusVectorizing marks a job whose chunks are being upserted.
	JobStatusVectorizing
	// JobStatusCompleted marks a successfully finished job.
	JobStatusCompleted
	// JobStatusFailed marks a terminally failed job.
	JobStatusFailed
	// JobStatusRetryable marks a failed job requeued by recovery.
	JobStatusRetryable
)

// String returns the snake_case name of the job status.
func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "pending"
	case JobStatusProcessing:
		return "processing"
	case JobStatusParsing:
		return "parsing"
	case JobStatusChunkingInProgress:
		return "chunking_in_progress"
	case JobStatusVectorizing:
		return "vectorizing"
	case JobStatusCompleted:
		return "completed"
	case JobStatusFailed:
		return "failed"
	case JobStatusRetryable:
		return "retryable"
	default:
		return "unknown"
	}
}

// InProgress reports whether the status is a non-terminal working stage.
// Jobs stuck in one of these stages past the recovery threshold are marked
// retryable.
func (s JobStatus) InProgress() bool {
	switch s {
	case JobStatusProcessing, JobStatusParsing, JobStatusChunkingInProgress, JobStatusVectorizing:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is completed or failed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ChunkingStatus is the per-stage chunking status of an ingestion job.
type ChunkingStatus int

const (
	// ChunkingStatusPending marks a job whose chunking stage has not started.
	ChunkingStatusPending ChunkingStatus = iota + 1
	// ChunkingStatusInProgress marks a job whose chunking stage is running.
	ChunkingStatusInProgress
	// ChunkingStatusCompleted marks a finished chunking stage.
	ChunkingStatusCompleted
	// ChunkingStatusFailed marks a failed chunking stage.
	ChunkingStatusFailed
)

// String returns the snake_case name of the chunking status.
func (s ChunkingStatus) String() string {
	switch s {
	case ChunkingStatusPending:
		return "pending"
	case ChunkingStatusInProgress:
		return "in_progress"
	case ChunkingStatusCompleted:
		return "completed"
	case ChunkingStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AwaitingChunking reports whether a job with this chunking status is the one
// the pipeline should update for its object. Jobs whose chunking stage is
// pending or still in progress qualify.
func (s ChunkingStatus) AwaitingChunking() bool {
	return s == ChunkingStatusPending || s == ChunkingStatusInProgress
}
