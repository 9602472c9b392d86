package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
)

// EmbeddingLinkRepository implements storage.EmbeddingLinkRepository for
// BadgerDB. Links are keyed by chunk id, so at most one link can exist per
// chunk.
type EmbeddingLinkRepository struct {
	backend *Backend
}

var _ storage.EmbeddingLinkRepository = (*EmbeddingLinkRepository)(nil)

// NewEmbeddingLinkRepository creates a new EmbeddingLinkRepository.
func NewEmbeddingLinkRepository(backend *Backend) *EmbeddingLinkRepository {
	return &EmbeddingLinkRepository{backend: backend}
}

// Close is a no-op; the repository holds no resources of its own.
func (r *EmbeddingLinkRepository) Close() error {
	return nil
}

// AddLinks adds one or more embedding links.
func (r *EmbeddingLinkRepository) AddLinks(ctx context.Context, links ...*core.EmbeddingLink) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, link := range links {
			link.CreatedAt = time.Now().UTC()
			key := makeLinkKey(link.ChunkId)
			if err := tx.Set(key, storage.MarshalLink(link)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetLinkByChunk retrieves the embedding link for a chunk.
func (r *EmbeddingLinkRepository) GetLinkByChunk(ctx context.Context, chunkID core.ID) (*core.EmbeddingLink, error) {
	var result *core.EmbeddingLink
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeLinkKey(chunkID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalLink(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// GetLinksByChunks retrieves the links for the given chunks. Chunks without
// a link are skipped.
func (r *EmbeddingLinkRepository) GetLinksByChunks(ctx context.Context, chunkIDs ...core.ID) ([]*core.EmbeddingLink, error) {
	var results []*core.EmbeddingLink
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunkID := range chunkIDs {
			item, err := tx.Get(makeLinkKey(chunkID))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			var link *core.EmbeddingLink
			if err := item.Value(func(val []byte) error {
				var unmarshalErr error
				link, unmarshalErr = storage.UnmarshalLink(val)
				return unmarshalErr
			}); err != nil {
				return err
			}
			results = append(results, link)
		}
		return nil
	}, false)
	return results, err
}

// DeleteLinkByChunk removes the embedding link for a chunk. Deleting a
// missing link is not an error.
func (r *EmbeddingLinkRepository) DeleteLinkByChunk(ctx context.Context, chunkID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := deleteLink(tx, chunkID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ForEachLink iterates every stored embedding link.
func (r *EmbeddingLinkRepository) ForEachLink(ctx context.Context, fn func(link *core.EmbeddingLink) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(linkRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var link *core.EmbeddingLink
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				link, err = storage.UnmarshalLink(val)
				return err
			}); err != nil {
				return err
			}
			if err := fn(link); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// deleteLink removes a chunk's link inside an already-open write transaction,
// returning the vector-store id it pointed at ("" if no link existed).
func deleteLink(tx *badger.Txn, chunkID core.ID) (string, error) {
	key := makeLinkKey(chunkID)
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return "", nil
		}
		return "", err
	}

	var link *core.EmbeddingLink
	if err := item.Value(func(val []byte) error {
		var unmarshalErr error
		link, unmarshalErr = storage.UnmarshalLink(val)
		return unmarshalErr
	}); err != nil {
		return "", err
	}

	if err := tx.Delete(key); err != nil {
		return "", err
	}
	return link.VectorId, nil
}
