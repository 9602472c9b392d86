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

// Package vector defines the derived vector-index abstraction used by the
// ingestion pipeline.
//
// The durable store is always authoritative; the vector index is a derived
// artifact that can be rebuilt from stored chunks at any time. Deletions
// therefore remove durable records first and treat vector cleanup as
// best effort, and recovery tolerates vectors that no longer have a
// corresponding embedding link.
//
// Two implementations are provided:
//
//   - vector/qdrant: production implementation backed by a Qdrant server
//     over gRPC, embedding documents through an ai.Embedder before upsert
//   - vector/mock: in-memory test double with injectable behavior
package vector
