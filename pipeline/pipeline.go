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

package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/verdantlabs/canopy/ai"
	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
	"github.com/verdantlabs/canopy/vector"
)

const (
	defaultPollInterval   = 30 * time.Second
	defaultMaxConcurrent  = 5
	defaultMaxPerWindow   = 450
	defaultOrphanBudget   = 3
	rateWindow            = 60 * time.Second
	requestsPerObject     = 2
	defaultEmbeddingModel = "embeddinggemma"
)

// Pipeline continuously drains parsed objects through chunk extraction and
// embedding, advancing each to embedded or embedding_failed. A single poller
// goroutine launches per-object tasks on a worker pool; the same object is
// never processed twice concurrently within one process, and collaborator
// calls are held under a rolling-window rate limit.
type Pipeline struct {
	objects   storage.ObjectRepository
	chunks    storage.ChunkRepository
	links     storage.EmbeddingLinkRepository
	jobs      storage.JobRepository
	extractor ai.ChunkExtractor
	store     vector.Store

	pool     *ants.Pool
	window   *requestWindow
	inflight *inflightSet
	orphans  *orphanTracker

	pollInterval   time.Duration
	maxConcurrent  int
	maxPerWindow   int
	orphanBudget   int
	embeddingModel string
	logger         *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPollInterval sets how often the poller looks for parsed objects.
// Default is 30 seconds.
func WithPollInterval(interval time.Duration) Option {
	return func(p *Pipeline) error {
		if interval > 0 {
			p.pollInterval = interval
		}
		return nil
	}
}

// WithMaxConcurrent sets the maximum number of objects processed at once.
// Default is 5.
func WithMaxConcurrent(max int) Option {
	return func(p *Pipeline) error {
		if max < 1 {
			max = 1
		}
		p.maxConcurrent = max

		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(max)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithMaxRequestsPerWindow sets the collaborator-request ceiling per rolling
// 60-second window. Default is 450, conservative against a real 500/minute
// limit.
func WithMaxRequestsPerWindow(max int) Option {
	return func(p *Pipeline) error {
		if max > 0 {
			p.maxPerWindow = max
		}
		return nil
	}
}

// WithOrphanRetryBudget sets how many failed job lookups an object survives
// before it is transitioned to the error status. Default is 3.
func WithOrphanRetryBudget(budget int) Option {
	return func(p *Pipeline) error {
		if budget > 0 {
			p.orphanBudget = budget
		}
		return nil
	}
}

// WithEmbeddingModel sets the model name recorded on embedding links.
func WithEmbeddingModel(model string) Option {
	return func(p *Pipeline) error {
		if model != "" {
			p.embeddingModel = model
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new chunking pipeline.
func NewPipeline(
	objects storage.ObjectRepository,
	chunks storage.ChunkRepository,
	links storage.EmbeddingLinkRepository,
	jobs storage.JobRepository,
	extractor ai.ChunkExtractor,
	store vector.Store,
	opts ...Option,
) (*Pipeline, error) {
	if objects == nil {
		return nil, ErrObjectRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if links == nil {
		return nil, ErrLinkRepositoryRequired
	}
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}

	pool, err := ants.NewPool(defaultMaxConcurrent)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		objects:        objects,
		chunks:         chunks,
		links:          links,
		jobs:           jobs,
		extractor:      extractor,
		store:          store,
		pool:           pool,
		window:         newRequestWindow(rateWindow),
		inflight:       newInflightSet(),
		orphans:        newOrphanTracker(),
		pollInterval:   defaultPollInterval,
		maxConcurrent:  defaultMaxConcurrent,
		maxPerWindow:   defaultMaxPerWindow,
		orphanBudget:   defaultOrphanBudget,
		embeddingModel: defaultEmbeddingModel,
		logger:         slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Start launches the poller goroutine. Calling Start on a running pipeline
// is a no-op.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	go p.poll(ctx, p.stop, p.done)
	p.logger.Info("pipeline started", "poll_interval", p.pollInterval)
}

// Stop halts the poller. In-flight tasks run to completion; only new work is
// stopped. Calling Stop on a stopped pipeline is a no-op.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	<-done
	p.logger.Info("pipeline stopped")
}

// IsRunning reports whether the poller is active.
func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Release stops the pipeline if needed and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.Stop()
	if p.pool != nil {
		p.pool.Release()
	}
}

func (p *Pipeline) poll(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// Run one tick immediately so a fresh start doesn't wait a full interval.
	p.tick(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			// The poller dies with the context; reflect that in IsRunning so
			// a later Stop is a no-op rather than a wait.
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			p.logger.Info("pipeline context canceled, poller exiting")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one scheduling pass: prune the rate window, compute how many
// objects fit under both the concurrency cap and the rate budget, fetch that
// many parsed objects oldest-first, and launch a task per object without
// blocking.
func (p *Pipeline) tick(ctx context.Context) {
	p.window.Prune()

	slots := p.maxConcurrent - p.inflight.Len()
	if slots <= 0 {
		p.logger.Debug("tick skipped: no concurrency slots")
		return
	}

	budget := (p.maxPerWindow - p.window.Count()) / requestsPerObject
	if budget <= 0 {
		p.logger.Debug("tick skipped: rate window exhausted", "window", p.window.Count())
		return
	}

	n := slots
	if budget < n {
		n = budget
	}

	objects, err := p.objects.FindObjectsByStatus(ctx, core.StatusParsed, n)
	if err != nil {
		p.logger.Error("failed to fetch parsed objects", "err", err)
		return
	}
	if len(objects) == 0 {
		return
	}

	p.logger.Debug("tick scheduling objects",
		"count", len(objects), "slots", slots, "budget", budget)

	for _, object := range objects {
		id := object.Id
		if p.inflight.Contains(id) {
			continue
		}
		if err := p.pool.Submit(func() {
			p.processObject(ctx, id)
		}); err != nil {
			p.logger.Error("failed to submit object task", "object", id, "err", err)
		}
	}
}
