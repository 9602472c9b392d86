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

package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/verdantlabs/canopy/ai"
	"github.com/verdantlabs/canopy/vector"
)

const (
	// DefaultCollection is the collection chunk vectors are written to.
	DefaultCollection = "canopy_chunks"

	vectorName = "content"
)

// Store implements vector.Store backed by a Qdrant server over gRPC.
// Documents are embedded through the configured ai.Embedder before upsert.
type Store struct {
	client     *qdrant.Client
	embedder   ai.Embedder
	collection string
	dimension  uint64
	logger     *slog.Logger
}

var _ vector.Store = (*Store)(nil)

// Config holds connection settings for the Qdrant store.
type Config struct {
	// Host and Port locate the Qdrant gRPC endpoint.
	Host string
	Port int

	// Collection is the target collection name. Defaults to DefaultCollection.
	Collection string

	// Dimension is the embedding vector size the collection is created with.
	Dimension uint64
}

// NewStore creates a Qdrant-backed vector store, verifies the server is
// reachable and ensures the collection exists. It fails fast when the server
// stays unreachable past the health-check window.
func NewStore(cfg Config, embedder ai.Embedder) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &Store{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		logger:     slog.Default().With("component", "qdrant-store"),
	}

	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}

	if err := store.EnsureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return store, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the chunk collection if it doesn't exist.
// Idempotent - safe to call multiple times.
func (s *Store) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     s.dimension,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert embeds the documents and writes them to the collection. It returns
// one freshly generated vector id per document, in input order.
func (s *Store) Upsert(ctx context.Context, docs []vector.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	contents := make([]string, len(docs))
	for i, doc := range docs {
		contents[i] = doc.Content
	}

	embeddings, err := s.embedder.EmbedTexts(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return nil, fmt.Errorf("%w: %d embeddings for %d documents",
			vector.ErrCountMismatch, len(embeddings), len(docs))
	}

	ids := make([]string, len(docs))
	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		ids[i] = uuid.NewString()

		tags := make([]any, len(doc.Tags))
		for j, tag := range doc.Tags {
			tags[j] = tag
		}
		propositions := make([]any, len(doc.Propositions))
		for j, proposition := range doc.Propositions {
			propositions[j] = proposition
		}

		points[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(ids[i]),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				vectorName: qdrant.NewVector(embeddings[i]...),
			}),
			Payload: qdrant.NewValueMap(map[string]any{
				"object_id":      int64(doc.ObjectID),
				"chunk_id":       int64(doc.ChunkID),
				"seq":            int64(doc.Seq),
				"content":        doc.Content,
				"summary":        doc.Summary,
				"tags":           tags,
				"propositions":   propositions,
				"title":          doc.Title,
				"source_locator": doc.SourceLocator,
			}),
		}
	}

	if err := s.upsertWithRetry(ctx, points); err != nil {
		return nil, err
	}

	s.logger.Debug("upserted documents", "count", len(points))
	return ids, nil
}

// upsertWithRetry performs the upsert with exponential backoff retry.
func (s *Store) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}, exponentialBackoff)
}

// DeleteByIDs removes vectors by their ids. Unknown ids are ignored by the
// server, so repeated deletion of the same ids is safe.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
