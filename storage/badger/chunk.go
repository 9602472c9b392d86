package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	idSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}

	return &ChunkRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ChunkRepository) Close() error {
	return r.idSeq.Release()
}

// AddChunks adds one or more chunks to storage. Each (object, seq) pair must
// be unique; a collision fails the whole batch with ErrDuplicateKey.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			objectKey := makeChunkObjectKey(chunk.ObjectId, chunk.Seq)
			if _, err := tx.Get(objectKey); err == nil {
				return storage.ErrDuplicateKey
			} else if err != badger.ErrKeyNotFound {
				return err
			}

			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			chunk.Id = core.ID(nextID)
			chunk.CreatedAt = time.Now().UTC()

			key := makeChunkKey(chunk.Id)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}

			if err := tx.Set(objectKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readChunk(tx, makeChunkKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunksByObject retrieves all chunks of an object ordered by sequence.
func (r *ChunkRepository) GetChunksByObject(ctx context.Context, objectID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = r.chunksByObject(tx, objectID)
		return err
	}, false)
	return results, err
}

// ReassignNotebook moves a chunk to a notebook. A zero notebook ID clears the
// assignment.
func (r *ChunkRepository) ReassignNotebook(ctx context.Context, chunkID, notebookID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeChunkKey(chunkID)
		chunk, err := r.readChunk(tx, key)
		if err != nil {
			return err
		}
		if chunk == nil {
			return storage.ErrNotFound
		}

		chunk.NotebookId = notebookID
		if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteChunk removes a single chunk and its embedding link, if one exists.
// The vector-store id of the removed link is returned, or "" when the chunk
// had no link.
func (r *ChunkRepository) DeleteChunk(ctx context.Context, id core.ID) (string, error) {
	var vectorID string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeChunkKey(id)
		chunk, err := r.readChunk(tx, key)
		if err != nil {
			return err
		}
		if chunk == nil {
			return storage.ErrNotFound
		}

		vectorID, err = deleteLink(tx, chunk.Id)
		if err != nil {
			return err
		}

		if err := tx.Delete(makeChunkObjectKey(chunk.ObjectId, chunk.Seq)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return "", err
	}
	return vectorID, nil
}

// DeleteChunksByObject removes every chunk of an object and their embedding
// links, returning the vector-store ids of the removed links.
func (r *ChunkRepository) DeleteChunksByObject(ctx context.Context, objectID core.ID) ([]string, error) {
	var vectorIDs []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		vectorIDs, err = r.deleteChunksByObject(tx, objectID)
		if err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return vectorIDs, nil
}

// ForEachChunk iterates every stored chunk.
func (r *ChunkRepository) ForEachChunk(ctx context.Context, fn func(chunk *core.Chunk) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(chunkRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			if err := fn(chunk); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// deleteChunksByObject removes every chunk of an object along with their
// embedding links, inside an already-open write transaction. It returns the
// vector-store ids of the removed links.
func (r *ChunkRepository) deleteChunksByObject(tx *badger.Txn, objectID core.ID) ([]string, error) {
	chunks, err := r.chunksByObject(tx, objectID)
	if err != nil {
		return nil, err
	}

	var vectorIDs []string
	for _, chunk := range chunks {
		vectorID, err := deleteLink(tx, chunk.Id)
		if err != nil {
			return nil, err
		}
		if vectorID != "" {
			vectorIDs = append(vectorIDs, vectorID)
		}

		if err := tx.Delete(makeChunkObjectKey(chunk.ObjectId, chunk.Seq)); err != nil {
			return nil, err
		}
		if err := tx.Delete(makeChunkKey(chunk.Id)); err != nil {
			return nil, err
		}
	}
	return vectorIDs, nil
}

func (r *ChunkRepository) chunksByObject(tx *badger.Txn, objectID core.ID) ([]*core.Chunk, error) {
	prefix := makeChunkObjectPrefix(objectID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	iter := tx.NewIterator(opts)
	defer iter.Close()

	var results []*core.Chunk
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		var chunkID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			chunkID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}

		chunk, err := r.readChunk(tx, makeChunkKey(chunkID))
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			results = append(results, chunk)
		}
	}
	return results, nil
}

func (r *ChunkRepository) readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}
