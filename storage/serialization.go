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


package storage

import (
	"github.com/verdantlabs/canopy/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalObject serializes a ContentObject to bytes.
func MarshalObject(object *core.ContentObject) []byte {
	buf := make([]byte, core.ContentObjectMUS.Size(*object))
	core.ContentObjectMUS.Marshal(*object, buf)
	return buf
}

// UnmarshalObject deserializes a ContentObject from bytes.
func UnmarshalObject(data []byte) (*core.ContentObject, error) {
	object, _, err := core.ContentObjectMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &object, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalLink serializes an EmbeddingLink to bytes.
func MarshalLink(link *core.EmbeddingLink) []byte {
	buf := make([]byte, core.EmbeddingLinkMUS.Size(*link))
	core.EmbeddingLinkMUS.Marshal(*link, buf)
	return buf
}

// UnmarshalLink deserializes an EmbeddingLink from bytes.
func UnmarshalLink(data []byte) (*core.EmbeddingLink, error) {
	link, _, err := core.EmbeddingLinkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// MarshalJob serializes an IngestionJob to bytes.
func MarshalJob(job *core.IngestionJob) []byte {
	buf := make([]byte, core.IngestionJobMUS.Size(*job))
	core.IngestionJobMUS.Marshal(*job, buf)
	return buf
}

// UnmarshalJob deserializes an IngestionJob from bytes.
func UnmarshalJob(data []byte) (*core.IngestionJob, error) {
	job, _, err := core.IngestionJobMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
