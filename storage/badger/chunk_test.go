package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
)

func addTestObject(t *testing.T, repos *Repositories) *core.ContentObject {
	t.Helper()
	object, err := repos.Objects.CreateObject(context.Background(), &core.ContentObject{
		Type:   core.ObjectTypeNote,
		Status: core.StatusParsed,
	})
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}
	return object
}

func TestChunkBasics(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	object := addTestObject(t, repos)

	chunks := []*core.Chunk{
		{ObjectId: object.Id, Seq: 2, Content: "third section of the source document"},
		{ObjectId: object.Id, Seq: 0, Content: "first section of the source document"},
		{ObjectId: object.Id, Seq: 1, Content: "second section of the source document"},
	}
	added, err := repos.Chunks.AddChunks(ctx, chunks...)
	if err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}
	for _, chunk := range added {
		if chunk.Id == 0 {
			t.Fatal("Expected non-zero chunk ID")
		}
	}

	// Retrieval by object is ordered by sequence regardless of insert order.
	ordered, err := repos.Chunks.GetChunksByObject(ctx, object.Id)
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(ordered) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(ordered))
	}
	for i, chunk := range ordered {
		if chunk.Seq != i {
			t.Fatalf("Expected seq %d at position %d, got %d", i, i, chunk.Seq)
		}
	}

	retrieved, err := repos.Chunks.GetChunk(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get chunk: %v", err)
	}
	if retrieved.Content != added[0].Content {
		t.Fatalf("Expected content round-trip, got '%s'", retrieved.Content)
	}
}

func TestChunkDuplicateSeq(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	object := addTestObject(t, repos)

	_, err = repos.Chunks.AddChunks(ctx, &core.Chunk{
		ObjectId: object.Id, Seq: 0, Content: "original chunk at sequence zero",
	})
	if err != nil {
		t.Fatalf("Failed to add chunk: %v", err)
	}

	_, err = repos.Chunks.AddChunks(ctx, &core.Chunk{
		ObjectId: object.Id, Seq: 0, Content: "competing chunk at sequence zero",
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestChunkValidation(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	object := addTestObject(t, repos)

	_, err = repos.Chunks.AddChunks(ctx, &core.Chunk{ObjectId: object.Id, Seq: 0, Content: "too short"})
	if !errors.Is(err, core.ErrChunkTooShort) {
		t.Fatalf("Expected ErrChunkTooShort, got %v", err)
	}

	_, err = repos.Chunks.AddChunks(ctx, &core.Chunk{Seq: 0, Content: "content without an owning object id"})
	if !errors.Is(err, core.ErrInvalidChunk) {
		t.Fatalf("Expected ErrInvalidChunk, got %v", err)
	}
}

func TestReassignNotebook(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	object := addTestObject(t, repos)

	added, err := repos.Chunks.AddChunks(ctx, &core.Chunk{
		ObjectId: object.Id, Seq: 0, Content: "a chunk that will change notebooks",
	})
	if err != nil {
		t.Fatalf("Failed to add chunk: %v", err)
	}

	if err := repos.Chunks.ReassignNotebook(ctx, added[0].Id, 42); err != nil {
		t.Fatalf("Failed to reassign notebook: %v", err)
	}
	retrieved, err := repos.Chunks.GetChunk(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get chunk: %v", err)
	}
	if retrieved.NotebookId != 42 {
		t.Fatalf("Expected notebook 42, got %d", retrieved.NotebookId)
	}

	// Zero clears the assignment.
	if err := repos.Chunks.ReassignNotebook(ctx, added[0].Id, 0); err != nil {
		t.Fatalf("Failed to clear notebook: %v", err)
	}
	retrieved, err = repos.Chunks.GetChunk(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get chunk: %v", err)
	}
	if retrieved.NotebookId != 0 {
		t.Fatalf("Expected cleared notebook, got %d", retrieved.NotebookId)
	}
}

func TestDeleteChunkReturnsVectorID(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	object := addTestObject(t, repos)

	added, err := repos.Chunks.AddChunks(ctx, &core.Chunk{
		ObjectId: object.Id, Seq: 0, Content: "a chunk with an embedding link",
	})
	if err != nil {
		t.Fatalf("Failed to add chunk: %v", err)
	}
	err = repos.Links.AddLinks(ctx, &core.EmbeddingLink{
		ChunkId: added[0].Id, Model: "test-model", VectorId: "vec-123",
	})
	if err != nil {
		t.Fatalf("Failed to add link: %v", err)
	}

	vectorID, err := repos.Chunks.DeleteChunk(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to delete chunk: %v", err)
	}
	if vectorID != "vec-123" {
		t.Fatalf("Expected vec-123, got '%s'", vectorID)
	}

	if _, err := repos.Chunks.GetChunk(ctx, added[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected chunk gone, got %v", err)
	}
	if _, err := repos.Links.GetLinkByChunk(ctx, added[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected link gone, got %v", err)
	}

	// The sequence slot is free again.
	_, err = repos.Chunks.AddChunks(ctx, &core.Chunk{
		ObjectId: object.Id, Seq: 0, Content: "a replacement chunk at sequence zero",
	})
	if err != nil {
		t.Fatalf("Failed to reuse sequence slot: %v", err)
	}
}

func TestLinkLifecycle(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	err = repos.Links.AddLinks(ctx, &core.EmbeddingLink{
		ChunkId: 7, Model: "test-model", VectorId: "vec-7",
	})
	if err != nil {
		t.Fatalf("Failed to add link: %v", err)
	}

	link, err := repos.Links.GetLinkByChunk(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to get link: %v", err)
	}
	if link.VectorId != "vec-7" || link.CreatedAt.IsZero() {
		t.Fatalf("Unexpected link %+v", link)
	}

	// Re-adding replaces; at most one link per chunk.
	err = repos.Links.AddLinks(ctx, &core.EmbeddingLink{
		ChunkId: 7, Model: "test-model", VectorId: "vec-7b",
	})
	if err != nil {
		t.Fatalf("Failed to replace link: %v", err)
	}
	link, err = repos.Links.GetLinkByChunk(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to get link: %v", err)
	}
	if link.VectorId != "vec-7b" {
		t.Fatalf("Expected replacement, got '%s'", link.VectorId)
	}

	if err := repos.Links.DeleteLinkByChunk(ctx, 7); err != nil {
		t.Fatalf("Failed to delete link: %v", err)
	}
	// Deleting again is not an error.
	if err := repos.Links.DeleteLinkByChunk(ctx, 7); err != nil {
		t.Fatalf("Expected idempotent delete, got %v", err)
	}
	if _, err := repos.Links.GetLinkByChunk(ctx, 7); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestForEachChunkAndLink(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	object := addTestObject(t, repos)

	added, err := repos.Chunks.AddChunks(ctx,
		&core.Chunk{ObjectId: object.Id, Seq: 0, Content: "iteration test chunk number one"},
		&core.Chunk{ObjectId: object.Id, Seq: 1, Content: "iteration test chunk number two"},
	)
	if err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}
	err = repos.Links.AddLinks(ctx, &core.EmbeddingLink{
		ChunkId: added[0].Id, Model: "test-model", VectorId: "vec-a",
	})
	if err != nil {
		t.Fatalf("Failed to add link: %v", err)
	}

	chunkCount := 0
	err = repos.Chunks.ForEachChunk(ctx, func(chunk *core.Chunk) error {
		chunkCount++
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachChunk failed: %v", err)
	}
	if chunkCount != 2 {
		t.Fatalf("Expected 2 chunks, got %d", chunkCount)
	}

	linkCount := 0
	err = repos.Links.ForEachLink(ctx, func(link *core.EmbeddingLink) error {
		linkCount++
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachLink failed: %v", err)
	}
	if linkCount != 1 {
		t.Fatalf("Expected 1 link, got %d", linkCount)
	}

	// Errors from fn stop iteration and propagate.
	sentinel := errors.New("stop")
	err = repos.Chunks.ForEachChunk(ctx, func(chunk *core.Chunk) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected sentinel error, got %v", err)
	}
}
