package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
)

func TestObjectBasics(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	object := &core.ContentObject{
		Type:          core.ObjectTypeBookmark,
		SourceLocator: "https://example.com/article",
		Title:         "An Article",
		Status:        core.StatusInitial,
	}

	created, err := repos.Objects.CreateObject(ctx, object)
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}
	if created.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("Expected timestamps to be set")
	}

	retrieved, err := repos.Objects.GetObject(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get object: %v", err)
	}
	if retrieved.Title != "An Article" {
		t.Fatalf("Expected 'An Article', got '%s'", retrieved.Title)
	}
	if retrieved.Status != core.StatusInitial {
		t.Fatalf("Expected status %v, got %v", core.StatusInitial, retrieved.Status)
	}

	_, err = repos.Objects.GetObject(ctx, 99999)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestObjectLocatorDedupe(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	first, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:          core.ObjectTypeBookmark,
		SourceLocator: "https://example.com/same",
		Status:        core.StatusInitial,
	})
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}

	second, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:          core.ObjectTypeBookmark,
		SourceLocator: "https://example.com/same",
		Status:        core.StatusInitial,
	})
	if err != nil {
		t.Fatalf("Expected existing record on duplicate locator, got error: %v", err)
	}
	if second.Id != first.Id {
		t.Fatalf("Expected existing ID %d, got %d", first.Id, second.Id)
	}

	// Distinct locators get distinct records.
	third, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:          core.ObjectTypeBookmark,
		SourceLocator: "https://example.com/other",
		Status:        core.StatusInitial,
	})
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}
	if third.Id == first.Id {
		t.Fatal("Expected a new ID for a new locator")
	}
}

func TestFindObjectsByStatusFIFO(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	var ids []core.ID
	for i := 0; i < 5; i++ {
		created, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
			Type:   core.ObjectTypeNote,
			Status: core.StatusParsed,
		})
		if err != nil {
			t.Fatalf("Failed to create object: %v", err)
		}
		ids = append(ids, created.Id)
		time.Sleep(2 * time.Millisecond)
	}

	results, err := repos.Objects.FindObjectsByStatus(ctx, core.StatusParsed, 3)
	if err != nil {
		t.Fatalf("Failed to find objects: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 objects, got %d", len(results))
	}
	for i, object := range results {
		if object.Id != ids[i] {
			t.Fatalf("Expected oldest-first order, got %d at position %d", object.Id, i)
		}
	}

	empty, err := repos.Objects.FindObjectsByStatus(ctx, core.StatusEmbedded, 10)
	if err != nil {
		t.Fatalf("Failed to find objects: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("Expected no embedded objects, got %d", len(empty))
	}
}

func TestTransitionStatus(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	created, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:   core.ObjectTypeNote,
		Status: core.StatusParsed,
	})
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}

	// Legal transition: parsed -> embedding (the claim).
	if err := repos.Objects.TransitionStatus(ctx, created.Id, core.StatusEmbedding, nil); err != nil {
		t.Fatalf("Failed legal transition: %v", err)
	}

	retrieved, err := repos.Objects.GetObject(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get object: %v", err)
	}
	if retrieved.Status != core.StatusEmbedding {
		t.Fatalf("Expected embedding status, got %v", retrieved.Status)
	}

	// Illegal transition: embedding -> new.
	err = repos.Objects.TransitionStatus(ctx, created.Id, core.StatusNew, nil)
	if !errors.Is(err, core.ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition, got %v", err)
	}

	// Status unchanged after the rejected move.
	retrieved, err = repos.Objects.GetObject(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get object: %v", err)
	}
	if retrieved.Status != core.StatusEmbedding {
		t.Fatalf("Expected embedding status after rejected move, got %v", retrieved.Status)
	}

	// The status index follows the record.
	parsed, err := repos.Objects.FindObjectsByStatus(ctx, core.StatusParsed, 10)
	if err != nil {
		t.Fatalf("Failed to find objects: %v", err)
	}
	if len(parsed) != 0 {
		t.Fatalf("Expected object to leave parsed index, found %d", len(parsed))
	}
	embedding, err := repos.Objects.FindObjectsByStatus(ctx, core.StatusEmbedding, 10)
	if err != nil {
		t.Fatalf("Failed to find objects: %v", err)
	}
	if len(embedding) != 1 {
		t.Fatalf("Expected object in embedding index, found %d", len(embedding))
	}
}

func TestTransitionStatusErrorText(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	created, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:   core.ObjectTypeNote,
		Status: core.StatusEmbedding,
	})
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}

	err = repos.Objects.TransitionStatus(ctx, created.Id, core.StatusEmbeddingFailed,
		&storage.TransitionOptions{ErrorText: "embedding provider unavailable"})
	if err != nil {
		t.Fatalf("Failed transition: %v", err)
	}

	retrieved, err := repos.Objects.GetObject(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get object: %v", err)
	}
	if retrieved.ErrorText != "embedding provider unavailable" {
		t.Fatalf("Expected error text to be stored, got '%s'", retrieved.ErrorText)
	}

	// Transitioning away clears the error text.
	if err := repos.Objects.TransitionStatus(ctx, created.Id, core.StatusParsed, nil); err != nil {
		t.Fatalf("Failed transition: %v", err)
	}
	retrieved, err = repos.Objects.GetObject(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get object: %v", err)
	}
	if retrieved.ErrorText != "" {
		t.Fatalf("Expected cleared error text, got '%s'", retrieved.ErrorText)
	}
}

func TestFindStalledObjects(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	created, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:   core.ObjectTypeNote,
		Status: core.StatusEmbedding,
	})
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}

	// A cutoff in the past finds nothing; a cutoff in the future finds it.
	past, err := repos.Objects.FindStalledObjects(ctx, core.StatusEmbedding, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Failed to find stalled objects: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("Expected no stalled objects, got %d", len(past))
	}

	future, err := repos.Objects.FindStalledObjects(ctx, core.StatusEmbedding, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("Failed to find stalled objects: %v", err)
	}
	if len(future) != 1 || future[0].Id != created.Id {
		t.Fatalf("Expected the object to be stalled, got %d results", len(future))
	}
}

func TestDeleteObjectCascades(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	object, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:          core.ObjectTypeBookmark,
		SourceLocator: "https://example.com/cascade",
		Status:        core.StatusEmbedded,
	})
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}

	chunks := []*core.Chunk{
		{ObjectId: object.Id, Seq: 0, Content: "first chunk with enough content to pass"},
		{ObjectId: object.Id, Seq: 1, Content: "second chunk with enough content to pass"},
	}
	added, err := repos.Chunks.AddChunks(ctx, chunks...)
	if err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	err = repos.Links.AddLinks(ctx,
		&core.EmbeddingLink{ChunkId: added[0].Id, Model: "test-model", VectorId: "vec-1"},
		&core.EmbeddingLink{ChunkId: added[1].Id, Model: "test-model", VectorId: "vec-2"},
	)
	if err != nil {
		t.Fatalf("Failed to add links: %v", err)
	}

	vectorIDs, err := repos.Objects.DeleteObject(ctx, object.Id)
	if err != nil {
		t.Fatalf("Failed to delete object: %v", err)
	}
	if len(vectorIDs) != 2 {
		t.Fatalf("Expected 2 vector ids, got %d", len(vectorIDs))
	}

	if _, err := repos.Objects.GetObject(ctx, object.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected object gone, got %v", err)
	}
	remaining, err := repos.Chunks.GetChunksByObject(ctx, object.Id)
	if err != nil {
		t.Fatalf("Failed to list chunks: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("Expected chunks gone, got %d", len(remaining))
	}
	if _, err := repos.Links.GetLinkByChunk(ctx, added[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected link gone, got %v", err)
	}

	// The locator is free again after deletion.
	recreated, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
		Type:          core.ObjectTypeBookmark,
		SourceLocator: "https://example.com/cascade",
		Status:        core.StatusInitial,
	})
	if err != nil {
		t.Fatalf("Failed to recreate object: %v", err)
	}
	if recreated.Id == object.Id {
		t.Fatal("Expected a fresh record after deletion")
	}
}
