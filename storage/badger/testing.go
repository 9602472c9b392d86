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

import "github.com/verdantlabs/canopy/storage"

// Repositories bundles the four repositories that share one backend.
type Repositories struct {
	Objects storage.ObjectRepository
	Chunks  storage.ChunkRepository
	Links   storage.EmbeddingLinkRepository
	Jobs    storage.JobRepository
}

// Close closes all repositories. The backend must be closed separately.
func (r *Repositories) Close() error {
	var firstErr error
	for _, c := range []interface{ Close() error }{r.Objects, r.Chunks, r.Links, r.Jobs} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the repositories and backend when done.
func NewMemoryRepositories() (*Repositories, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return repos, backend, nil
}

// NewRepositories wires the four repositories over a shared backend.
func NewRepositories(backend *Backend) (*Repositories, error) {
	chunkRepo, err := NewChunkRepository(backend)
	if err != nil {
		return nil, err
	}

	objectRepo, err := NewObjectRepository(backend, chunkRepo)
	if err != nil {
		chunkRepo.Close()
		return nil, err
	}

	jobRepo, err := NewJobRepository(backend)
	if err != nil {
		objectRepo.Close()
		chunkRepo.Close()
		return nil, err
	}

	return &Repositories{
		Objects: objectRepo,
		Chunks:  chunkRepo,
		Links:   NewEmbeddingLinkRepository(backend),
		Jobs:    jobRepo,
	}, nil
}
