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


package canopy

import (
	"io"
	"log/slog"

	"github.com/verdantlabs/canopy/ai"
	"github.com/verdantlabs/canopy/ai/openai"
	"github.com/verdantlabs/canopy/pipeline"
	"github.com/verdantlabs/canopy/recovery"
	"github.com/verdantlabs/canopy/reembed"
	"github.com/verdantlabs/canopy/storage"
	"github.com/verdantlabs/canopy/storage/badger"
	"github.com/verdantlabs/canopy/vector"
	"github.com/verdantlabs/canopy/vector/qdrant"
)

// System wires the whole ingestion subsystem together: the durable store and
// its repositories, the AI provider, the vector store, and factories for the
// pipeline and operational services.
type System struct {
	backend        *badger.Backend
	repos          *badger.Repositories
	provider       ai.AIProvider
	store          vector.Store
	recoveryConfig *recovery.Config
	logger         *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig       *ai.Config
	qdrantConfig   qdrant.Config
	recoveryConfig *recovery.Config
	provider       ai.AIProvider
	store          vector.Store
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		o.aiConfig = config
	}
}

// WithQdrantConfig sets the vector store endpoint and collection.
func WithQdrantConfig(config qdrant.Config) SystemOption {
	return func(o *systemOptions) {
		o.qdrantConfig = config
	}
}

// WithRecoveryConfig sets the recovery sweep thresholds.
func WithRecoveryConfig(config *recovery.Config) SystemOption {
	return func(o *systemOptions) {
		o.recoveryConfig = config
	}
}

// WithAIProvider injects a pre-built AI provider instead of constructing the
// default openai-compatible one.
func WithAIProvider(provider ai.AIProvider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithVectorStore injects a pre-built vector store instead of connecting to
// Qdrant.
func WithVectorStore(store vector.Store) SystemOption {
	return func(o *systemOptions) {
		o.store = store
	}
}

// NewSystem opens the durable store at filePath and constructs every
// component on top of it. The returned System owns all resources; Close
// releases them in reverse construction order.
func NewSystem(filePath string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	repos, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repos.Close()
			backend.Close()
			return nil, err
		}
	}

	store := options.store
	if store == nil {
		store, err = qdrant.NewStore(options.qdrantConfig, provider.Embedder())
		if err != nil {
			provider.Close()
			repos.Close()
			backend.Close()
			return nil, err
		}
	}

	return &System{
		backend:        backend,
		repos:          repos,
		provider:       provider,
		store:          store,
		recoveryConfig: options.recoveryConfig,
		logger:         slog.Default(),
	}, nil
}

func (s *System) Close() error {
	// Close the outward-facing components first, storage last.
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing vector store", "err", err)
	}
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	if err := s.repos.Close(); err != nil {
		s.logger.Error("error closing repositories", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *System) ObjectRepository() storage.ObjectRepository {
	return s.repos.Objects
}

func (s *System) ChunkRepository() storage.ChunkRepository {
	return s.repos.Chunks
}

func (s *System) EmbeddingLinkRepository() storage.EmbeddingLinkRepository {
	return s.repos.Links
}

func (s *System) JobRepository() storage.JobRepository {
	return s.repos.Jobs
}

func (s *System) VectorStore() vector.Store {
	return s.store
}

// NewChunkingPipeline creates the chunking pipeline over this system's
// repositories and collaborators. The embedder's model name is recorded on
// links unless an option overrides it.
func (s *System) NewChunkingPipeline(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	opts = append([]pipeline.Option{
		pipeline.WithEmbeddingModel(s.provider.Embedder().Model()),
	}, opts...)
	return pipeline.NewPipeline(s.repos.Objects, s.repos.Chunks, s.repos.Links, s.repos.Jobs,
		s.provider.ChunkExtractor(), s.store, opts...)
}

// NewRecoveryService creates the recovery service over this system's stores.
// A nil config selects the config given via WithRecoveryConfig, falling back
// to the default thresholds.
func (s *System) NewRecoveryService(config *recovery.Config) *recovery.Service {
	if config == nil {
		config = s.recoveryConfig
	}
	return recovery.NewService(s.repos.Objects, s.repos.Chunks, s.repos.Links, s.repos.Jobs,
		s.store, config, s.logger)
}

// NewReembedder creates a bulk reembedder that rewrites every embedding link
// with the given model name. Progress is written to the given writer.
func (s *System) NewReembedder(model string, config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(s.repos.Objects, s.repos.Chunks, s.repos.Links,
		s.store, model, config, progress)
}
