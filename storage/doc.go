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


// Package storage provides the storage abstraction layer for canopy.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic. It allows for different storage backends
// (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backend
// implementations:
//
//	repo, err := badger.NewObjectRepository(backend)  // returns storage.ObjectRepository
//
// # Architecture
//
// The storage layer follows the Repository pattern, with one repository per
// durable table of the ingestion pipeline:
//
//   - ObjectRepository: content objects and their lifecycle status
//   - ChunkRepository: content fragments belonging to an object
//   - EmbeddingLinkRepository: chunk-to-vector-store mappings
//   - JobRepository: the ingestion job ledger
//
// The object and job stores are the sources of truth; the vector store is a
// rebuildable derived index maintained outside this package. Deletions
// therefore proceed here first, and repositories surface the vector-store
// record ids they removed so callers can reconcile the derived store.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines. The status-transition operation is the
// pipeline's claim mechanism and must validate lifecycle legality inside its
// write transaction.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific timeout
// requirements.
package storage
