package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/canopy/ai"
	aimock "github.com/verdantlabs/canopy/ai/mock"
	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
	"github.com/verdantlabs/canopy/storage/badger"
	"github.com/verdantlabs/canopy/vector"
	vecmock "github.com/verdantlabs/canopy/vector/mock"
)

const testDocument = `The first section of the document talks about badgers at length.

The second section of the document covers burrow construction techniques.

The third section of the document is about the social lives of mustelids.`

type pipelineFixture struct {
	repos     *badger.Repositories
	backend   *badger.Backend
	extractor *aimock.MockChunkExtractor
	store     *vecmock.MockStore
	pipeline  *Pipeline
}

func newPipelineFixture(t *testing.T, opts ...Option) *pipelineFixture {
	t.Helper()

	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close(); backend.Close() })

	extractor := aimock.NewMockChunkExtractor()
	store := vecmock.NewMockStore()

	p, err := NewPipeline(repos.Objects, repos.Chunks, repos.Links, repos.Jobs, extractor, store, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)

	return &pipelineFixture{
		repos:     repos,
		backend:   backend,
		extractor: extractor,
		store:     store,
		pipeline:  p,
	}
}

// addParsedObject creates a parsed object with cleaned text and a matching
// pending job, the normal pipeline entry state.
func (f *pipelineFixture) addParsedObject(t *testing.T, cleanedText string) *core.ContentObject {
	t.Helper()
	ctx := context.Background()

	object, err := f.repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:        core.ObjectTypeBookmark,
		Title:       "Test Document",
		Status:      core.StatusParsed,
		CleanedText: cleanedText,
	})
	require.NoError(t, err)

	_, err = f.repos.Jobs.CreateJob(ctx, &core.IngestionJob{
		ObjectId:       object.Id,
		Status:         core.JobStatusProcessing,
		ChunkingStatus: core.ChunkingStatusPending,
	})
	require.NoError(t, err)

	return object
}

func TestNewPipelineValidation(t *testing.T) {
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { repos.Close(); backend.Close() }()

	extractor := aimock.NewMockChunkExtractor()
	store := vecmock.NewMockStore()

	_, err = NewPipeline(nil, repos.Chunks, repos.Links, repos.Jobs, extractor, store)
	assert.ErrorIs(t, err, ErrObjectRepositoryRequired)

	_, err = NewPipeline(repos.Objects, repos.Chunks, repos.Links, repos.Jobs, nil, store)
	assert.ErrorIs(t, err, ErrExtractorRequired)

	_, err = NewPipeline(repos.Objects, repos.Chunks, repos.Links, repos.Jobs, extractor, nil)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)
}

func TestProcessObjectHappyPath(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	object := f.addParsedObject(t, testDocument)
	f.pipeline.processObject(ctx, object.Id)

	// Object advanced to embedded.
	updated, err := f.repos.Objects.GetObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusEmbedded, updated.Status)
	assert.Empty(t, updated.ErrorText)

	// Three chunks persisted in order, each with a link pointing at a stored
	// vector document.
	chunks, err := f.repos.Chunks.GetChunksByObject(ctx, object.Id)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Seq)

		link, err := f.repos.Links.GetLinkByChunk(ctx, chunk.Id)
		require.NoError(t, err)
		doc, ok := f.store.Get(link.VectorId)
		require.True(t, ok)
		assert.Equal(t, chunk.Content, doc.Content)
		assert.Equal(t, uint64(object.Id), doc.ObjectID)
		assert.Equal(t, "Test Document", doc.Title)
	}

	// Job completed with a completion timestamp.
	job, err := f.repos.Jobs.GetJob(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, job.Status)
	assert.Equal(t, core.ChunkingStatusCompleted, job.ChunkingStatus)
	assert.False(t, job.CompletedAt.IsZero())

	// The in-flight set drained.
	assert.Equal(t, 0, f.pipeline.inflight.Len())
}

func TestVectorCountMismatchWritesNoLinks(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.store.UpsertFunc = func(ctx context.Context, docs []vector.Document) ([]string, error) {
		// One id short: the classic partial-response failure.
		ids := make([]string, 0, len(docs)-1)
		for i := 0; i < len(docs)-1; i++ {
			ids = append(ids, "short-batch")
		}
		return ids, nil
	}

	object := f.addParsedObject(t, testDocument)
	f.pipeline.processObject(ctx, object.Id)

	updated, err := f.repos.Objects.GetObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusEmbeddingFailed, updated.Status)
	assert.Contains(t, updated.ErrorText, "vector id count")

	// Chunks remain (valid data, just unembedded) but zero links exist.
	chunks, err := f.repos.Chunks.GetChunksByObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	for _, chunk := range chunks {
		_, err := f.repos.Links.GetLinkByChunk(ctx, chunk.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}

	job, err := f.repos.Jobs.GetJob(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorText, "vector id count")
}

func TestProcessObjectNoCleanedText(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	object := f.addParsedObject(t, "")
	f.pipeline.processObject(ctx, object.Id)

	updated, err := f.repos.Objects.GetObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusEmbeddingFailed, updated.Status)
	assert.Contains(t, updated.ErrorText, "no cleaned text")
	assert.Equal(t, 0, f.extractor.CallCount())
}

func TestProcessObjectNoChunksExtracted(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.extractor.ExtractChunksFunc = func(ctx context.Context, text string) ([]ai.ExtractedChunk, error) {
		return nil, nil
	}

	object := f.addParsedObject(t, testDocument)
	f.pipeline.processObject(ctx, object.Id)

	updated, err := f.repos.Objects.GetObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusEmbeddingFailed, updated.Status)
	assert.Contains(t, updated.ErrorText, "no chunks")
}

func TestOrphanEscalationOnThirdMiss(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	// A parsed object with no job at all.
	object, err := f.repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:        core.ObjectTypeNote,
		Status:      core.StatusParsed,
		CleanedText: testDocument,
	})
	require.NoError(t, err)

	// First two misses leave the object alone.
	for i := 0; i < 2; i++ {
		f.pipeline.processObject(ctx, object.Id)
		updated, err := f.repos.Objects.GetObject(ctx, object.Id)
		require.NoError(t, err)
		assert.Equal(t, core.StatusParsed, updated.Status, "miss %d must not escalate", i+1)
	}

	// Third miss escalates to error.
	f.pipeline.processObject(ctx, object.Id)
	updated, err := f.repos.Objects.GetObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusError, updated.Status)
	assert.Contains(t, updated.ErrorText, "no ingestion job")
}

func TestClaimLostToAnotherWorker(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	object := f.addParsedObject(t, testDocument)

	// Simulate another worker's claim landing first.
	require.NoError(t, f.repos.Objects.TransitionStatus(ctx, object.Id, core.StatusEmbedding, nil))

	f.pipeline.processObject(ctx, object.Id)

	// This worker backed off: no chunks, and the job records the lost race.
	chunks, err := f.repos.Chunks.GetChunksByObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, f.extractor.CallCount())

	job, err := f.repos.Jobs.GetJob(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, job.Status)
	assert.Equal(t, ErrClaimLost.Error(), job.ErrorText)
}

func TestMonolithicObjectSkipsExtraction(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	object, err := f.repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:         core.ObjectTypePDF,
		Title:        "Quarterly Report",
		Status:       core.StatusParsed,
		Summary:      "A report about the quarter.",
		Tags:         []string{"report", "finance"},
		Propositions: []string{"The quarter went fine."},
	})
	require.NoError(t, err)

	// The single chunk created by the upstream parse stage.
	added, err := f.repos.Chunks.AddChunks(ctx, &core.Chunk{
		ObjectId: object.Id,
		Seq:      0,
		Content:  strings.Repeat("pdf text content ", 10),
	})
	require.NoError(t, err)

	_, err = f.repos.Jobs.CreateJob(ctx, &core.IngestionJob{
		ObjectId:       object.Id,
		Status:         core.JobStatusProcessing,
		ChunkingStatus: core.ChunkingStatusPending,
	})
	require.NoError(t, err)

	f.pipeline.processObject(ctx, object.Id)

	assert.Equal(t, 0, f.extractor.CallCount(), "monolithic objects bypass extraction")

	updated, err := f.repos.Objects.GetObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusEmbedded, updated.Status)

	link, err := f.repos.Links.GetLinkByChunk(ctx, added[0].Id)
	require.NoError(t, err)
	doc, ok := f.store.Get(link.VectorId)
	require.True(t, ok)
	assert.Equal(t, []string{"report", "finance"}, doc.Tags, "object tags folded into payload")
	assert.Equal(t, "A report about the quarter.", doc.Summary)
}

func TestTickRespectsRateWindow(t *testing.T) {
	f := newPipelineFixture(t, WithMaxRequestsPerWindow(4))
	ctx := context.Background()

	f.addParsedObject(t, testDocument)

	// Fill the window to the ceiling; budget = floor((4-4)/2) = 0.
	for i := 0; i < 4; i++ {
		f.pipeline.window.Record()
	}

	f.pipeline.tick(ctx)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, f.extractor.CallCount(), "exhausted window must select zero objects")
	assert.Equal(t, 0, f.store.UpsertCount())
}

func TestTickProcessesParsedObjects(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	object := f.addParsedObject(t, testDocument)

	f.pipeline.tick(ctx)

	// The task runs on the pool; wait for it to finish.
	require.Eventually(t, func() bool {
		updated, err := f.repos.Objects.GetObject(ctx, object.Id)
		return err == nil && updated.Status == core.StatusEmbedded
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartStopIdempotent(t *testing.T) {
	f := newPipelineFixture(t, WithPollInterval(time.Hour))
	ctx := context.Background()

	assert.False(t, f.pipeline.IsRunning())

	f.pipeline.Start(ctx)
	f.pipeline.Start(ctx)
	assert.True(t, f.pipeline.IsRunning())

	f.pipeline.Stop()
	f.pipeline.Stop()
	assert.False(t, f.pipeline.IsRunning())

	// Restart works after a stop.
	f.pipeline.Start(ctx)
	assert.True(t, f.pipeline.IsRunning())
	f.pipeline.Stop()
}

func TestContextCancelStopsPipeline(t *testing.T) {
	f := newPipelineFixture(t, WithPollInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	f.pipeline.Start(ctx)
	require.True(t, f.pipeline.IsRunning())

	cancel()
	require.Eventually(t, func() bool {
		return !f.pipeline.IsRunning()
	}, 5*time.Second, 10*time.Millisecond, "poller exit must be visible through IsRunning")

	// Stop after a context-driven exit is a no-op, and a restart works.
	f.pipeline.Stop()
	f.pipeline.Start(context.Background())
	assert.True(t, f.pipeline.IsRunning())
	f.pipeline.Stop()
}

func TestProcessObjectSkipsDuplicateInflight(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	object := f.addParsedObject(t, testDocument)

	// Simulate the object already being worked on in this process.
	require.True(t, f.pipeline.inflight.Add(object.Id))
	f.pipeline.processObject(ctx, object.Id)

	updated, err := f.repos.Objects.GetObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusParsed, updated.Status, "duplicate task must not touch the object")
	assert.True(t, f.pipeline.inflight.Contains(object.Id), "original owner keeps the slot")
}

func TestExtractionErrorMarksFailure(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.extractor.ExtractChunksFunc = func(ctx context.Context, text string) ([]ai.ExtractedChunk, error) {
		return nil, errors.New("model unavailable")
	}

	object := f.addParsedObject(t, testDocument)
	f.pipeline.processObject(ctx, object.Id)

	updated, err := f.repos.Objects.GetObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusEmbeddingFailed, updated.Status)
	assert.Contains(t, updated.ErrorText, "model unavailable")
}
