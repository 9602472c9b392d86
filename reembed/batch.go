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


package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
	"github.com/verdantlabs/canopy/vector"
)

// BatchProcessor reembeds one batch of chunks at a time: upsert the batch
// into the vector store, then rewrite the embedding links to point at the
// fresh vectors, then best-effort delete the superseded vector records.
type BatchProcessor struct {
	objects        storage.ObjectRepository
	links          storage.EmbeddingLinkRepository
	store          vector.Store
	model          string
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// model: the embedding model name recorded on the rewritten links
// maxRetries: maximum number of retry attempts for vector-store upserts
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(
	objects storage.ObjectRepository,
	links storage.EmbeddingLinkRepository,
	store vector.Store,
	model string,
	maxRetries int,
	retryBaseDelay time.Duration,
) *BatchProcessor {
	return &BatchProcessor{
		objects:        objects,
		links:          links,
		store:          store,
		model:          model,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         slog.Default().With("component", "reembed"),
	}
}

// Process reembeds a batch of chunks. Links are only rewritten after a fully
// successful upsert, so a failed batch leaves the previous vectors and links
// intact.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs, err := bp.buildDocuments(ctx, chunks)
	if err != nil {
		return err
	}

	// Remember the superseded vector ids before the links are rewritten.
	chunkIDs := make([]core.ID, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.Id
	}
	oldLinks, err := bp.links.GetLinksByChunks(ctx, chunkIDs...)
	if err != nil {
		return fmt.Errorf("failed to load existing links: %w", err)
	}
	oldVectorIDs := make([]string, 0, len(oldLinks))
	for _, link := range oldLinks {
		oldVectorIDs = append(oldVectorIDs, link.VectorId)
	}

	var vectorIDs []string
	err = RetryWithBackoff(ctx, func() error {
		var err error
		vectorIDs, err = bp.store.Upsert(ctx, docs)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to upsert batch after %d attempts: %w", bp.maxRetries, err)
	}

	if len(vectorIDs) != len(chunks) {
		return fmt.Errorf("%w: got %d vector ids for %d chunks",
			vector.ErrCountMismatch, len(vectorIDs), len(chunks))
	}

	newLinks := make([]*core.EmbeddingLink, len(chunks))
	for i, chunk := range chunks {
		newLinks[i] = &core.EmbeddingLink{
			ChunkId:  chunk.Id,
			Model:    bp.model,
			VectorId: vectorIDs[i],
		}
	}
	if err := bp.links.AddLinks(ctx, newLinks...); err != nil {
		return fmt.Errorf("failed to rewrite links: %w", err)
	}

	// The old vectors are unreferenced now; a failed delete only leaves
	// stale records for the recovery sweep.
	if len(oldVectorIDs) > 0 {
		if err := bp.store.DeleteByIDs(ctx, oldVectorIDs); err != nil {
			bp.logger.Warn("failed to delete superseded vector records",
				"count", len(oldVectorIDs), "error", err)
		}
	}

	return nil
}

// buildDocuments assembles the vector documents for a batch, pulling titles
// and source locators from the owning objects.
func (bp *BatchProcessor) buildDocuments(ctx context.Context, chunks []*core.Chunk) ([]vector.Document, error) {
	seen := make(map[core.ID]bool)
	objectIDs := make([]core.ID, 0, len(chunks))
	for _, chunk := range chunks {
		if !seen[chunk.ObjectId] {
			seen[chunk.ObjectId] = true
			objectIDs = append(objectIDs, chunk.ObjectId)
		}
	}
	objects, err := bp.objects.GetObjects(ctx, objectIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load owning objects: %w", err)
	}
	byID := make(map[core.ID]*core.ContentObject, len(objects))
	for _, object := range objects {
		byID[object.Id] = object
	}

	docs := make([]vector.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vector.Document{
			Content:      chunk.Content,
			ObjectID:     uint64(chunk.ObjectId),
			ChunkID:      uint64(chunk.Id),
			Seq:          chunk.Seq,
			Summary:      chunk.Summary,
			Tags:         chunk.Tags,
			Propositions: chunk.Propositions,
		}
		if object, ok := byID[chunk.ObjectId]; ok {
			docs[i].Title = object.Title
			docs[i].SourceLocator = object.SourceLocator
		}
	}
	return docs, nil
}
