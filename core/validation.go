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

import (
	"fmt"
	"unicode/utf8"
)

const (
	// MinChunkLength is the minimum rune count for chunk content. Shorter
	// chunks are rejected at the extraction boundary before persistence.
	MinChunkLength = 20

	// MaxErrorTextLength is the maximum rune count stored in object and job
	// error-text fields. Longer messages are truncated.
	MaxErrorTextLength = 1000
)

// ValidateObject validates a ContentObject according to domain rules.
//
// Validation rules:
//   - Type must be a defined ObjectType
//   - Status must be a defined ObjectStatus
//
// NOT validated (populated by later stages):
//   - CleanedText (empty for binary types until parsed)
//   - Summary, Tags, Propositions (populated by summarization)
//   - ID (0 is valid from database sequences)
func ValidateObject(object *ContentObject) error {
	if object == nil {
		return fmt.Errorf("%w: object is nil", ErrInvalidObject)
	}

	if object.Type.String() == "unknown" {
		return fmt.Errorf("%w: %w: value %d", ErrInvalidObject, ErrInvalidObjectType, object.Type)
	}

	if !object.Status.Valid() {
		return fmt.Errorf("%w: %w: value %d", ErrInvalidObject, ErrInvalidStatus, object.Status)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ObjectId must be set
//   - Content must not be empty
//   - Content must be at least MinChunkLength runes
//
// NOT validated:
//   - ID (0 is valid from database sequences)
//   - NotebookId (0 means unassigned)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ObjectId == 0 {
		return fmt.Errorf("%w: owning object id required", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if utf8.RuneCountInString(chunk.Content) < MinChunkLength {
		return fmt.Errorf("%w: %w (%d < %d)", ErrInvalidChunk, ErrChunkTooShort,
			utf8.RuneCountInString(chunk.Content), MinChunkLength)
	}

	return nil
}

// ValidateJob validates an IngestionJob according to domain rules.
func ValidateJob(job *IngestionJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.ObjectId == 0 {
		return fmt.Errorf("%w: owning object id required", ErrInvalidJob)
	}

	return nil
}

// TruncateErrorText bounds an error message to MaxErrorTextLength runes so it
// fits the error-text fields on objects and jobs.
func TruncateErrorText(msg string) string {
	if utf8.RuneCountInString(msg) <= MaxErrorTextLength {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:MaxErrorTextLength])
}
