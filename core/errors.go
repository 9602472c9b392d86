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

import "errors"

// Domain validation errors
var (
	// ErrInvalidObject indicates a ContentObject failed validation.
	ErrInvalidObject = errors.New("invalid content object")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidJob indicates an IngestionJob failed validation.
	ErrInvalidJob = errors.New("invalid ingestion job")

	// ErrEmptyContent indicates a content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrChunkTooShort indicates chunk content is below the minimum length.
	ErrChunkTooShort = errors.New("chunk content below minimum length")

	// ErrInvalidObjectType indicates an invalid ObjectType value.
	ErrInvalidObjectType = errors.New("invalid object type")

	// ErrInvalidStatus indicates an invalid ObjectStatus value.
	ErrInvalidStatus = errors.New("invalid object status")

	// ErrIllegalTransition indicates a status transition not permitted by the
	// lifecycle state machine. The pipeline treats this as a lost claim race,
	// not as a fault.
	ErrIllegalTransition = errors.New("illegal status transition")
)
