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

package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage"
)

// ObjectRepository implements storage.ObjectRepository for BadgerDB.
type ObjectRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	chunks  *ChunkRepository
}

var _ storage.ObjectRepository = (*ObjectRepository)(nil)

// NewObjectRepository creates a new ObjectRepository. The chunk repository is
// required for cascade deletion.
func NewObjectRepository(backend *Backend, chunks *ChunkRepository) (*ObjectRepository, error) {
	idSeq, err := backend.GetSequence(objectIDSeq)
	if err != nil {
		return nil, err
	}

	return &ObjectRepository{
		backend: backend,
		idSeq:   idSeq,
		chunks:  chunks,
	}, nil
}

// Close releases the ID sequence.
func (r *ObjectRepository) Close() error {
	return r.idSeq.Release()
}

// CreateObject adds a content object to storage. When the object carries a
// source locator that is already registered, the existing record is returned
// and nothing is written.
func (r *ObjectRepository) CreateObject(ctx context.Context, object *core.ContentObject) (*core.ContentObject, error) {
	if err := core.ValidateObject(object); err != nil {
		return nil, err
	}

	var existing *core.ContentObject
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if object.SourceLocator != "" {
			locatorKey := makeObjectLocatorKey(object.SourceLocator)
			item, err := tx.Get(locatorKey)
			if err == nil {
				var existingID core.ID
				if err := item.Value(func(val []byte) error {
					var idErr error
					existingID, idErr = storage.UnmarshalID(val)
					return idErr
				}); err != nil {
					return err
				}
				existing, err = r.readObject(tx, makeObjectKey(existingID))
				if err != nil {
					return err
				}
				if existing != nil {
					return nil
				}
				// Dangling locator entry; fall through and recreate.
			} else if err != badger.ErrKeyNotFound {
				return err
			}
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
		object.Id = core.ID(nextID)

		object.CreatedAt = time.Now().UTC()
		object.UpdatedAt = object.CreatedAt

		key := makeObjectKey(object.Id)
		if err := tx.Set(key, storage.MarshalObject(object)); err != nil {
			return err
		}

		statusKey := makeObjectStatusKey(object.Status, object.CreatedAt, object.Id)
		if err := tx.Set(statusKey, storage.MarshalID(object.Id)); err != nil {
			return err
		}

		if object.SourceLocator != "" {
			locatorKey := makeObjectLocatorKey(object.SourceLocator)
			if err := tx.Set(locatorKey, storage.MarshalID(object.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return object, nil
}

// GetObject retrieves a single content object by ID.
func (r *ObjectRepository) GetObject(ctx context.Context, id core.ID) (*core.ContentObject, error) {
	var result *core.ContentObject
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readObject(tx, makeObjectKey(id))
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

// GetObjects retrieves multiple content objects by their IDs.
func (r *ObjectRepository) GetObjects(ctx context.Context, ids ...core.ID) ([]*core.ContentObject, error) {
	var results []*core.ContentObject
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			object, err := r.readObject(tx, makeObjectKey(id))
			if err != nil {
				return err
			}
			if object != nil {
				results = append(results, object)
			}
		}
		return nil
	}, false)
	return results, err
}

// FindObjectsByStatus retrieves up to limit objects in the given status,
// oldest created first.
func (r *ObjectRepository) FindObjectsByStatus(ctx context.Context, status core.ObjectStatus, limit int) ([]*core.ContentObject, error) {
	var results []*core.ContentObject
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeObjectStatusPrefix(status)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}

			var objectID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				objectID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			object, err := r.readObject(tx, makeObjectKey(objectID))
			if err != nil {
				return err
			}
			if object != nil {
				results = append(results, object)
			}
		}
		return nil
	}, false)
	return results, err
}

// FindStalledObjects retrieves objects in the given status whose last update
// is older than the cutoff.
func (r *ObjectRepository) FindStalledObjects(ctx context.Context, status core.ObjectStatus, cutoff time.Time) ([]*core.ContentObject, error) {
	objects, err := r.FindObjectsByStatus(ctx, status, 0)
	if err != nil {
		return nil, err
	}

	var results []*core.ContentObject
	for _, object := range objects {
		if object.UpdatedAt.Before(cutoff) {
			results = append(results, object)
		}
	}
	return results, nil
}

// TransitionStatus atomically moves an object to a new lifecycle status. The
// current status is read inside the write transaction; an illegal move
// returns core.ErrIllegalTransition without writing anything.
func (r *ObjectRepository) TransitionStatus(ctx context.Context, id core.ID, to core.ObjectStatus, opts *storage.TransitionOptions) error {
	if !to.Valid() {
		return core.ErrInvalidStatus
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeObjectKey(id)
		object, err := r.readObject(tx, key)
		if err != nil {
			return err
		}
		if object == nil {
			return storage.ErrNotFound
		}

		if !core.CanTransition(object.Status, to) {
			return core.ErrIllegalTransition
		}

		oldStatusKey := makeObjectStatusKey(object.Status, object.CreatedAt, object.Id)

		object.Status = to
		object.ErrorText = ""
		if opts != nil {
			object.ErrorText = core.TruncateErrorText(opts.ErrorText)
			if opts.ParsedAt != nil {
				object.ParsedAt = *opts.ParsedAt
			}
		}
		object.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalObject(object)); err != nil {
			return err
		}

		if err := tx.Delete(oldStatusKey); err != nil {
			return err
		}
		newStatusKey := makeObjectStatusKey(object.Status, object.CreatedAt, object.Id)
		if err := tx.Set(newStatusKey, storage.MarshalID(object.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteObject removes an object and cascade-deletes its chunks and embedding
// links. The vector-store ids of the removed links are returned so the caller
// can clean up the derived store afterwards.
func (r *ObjectRepository) DeleteObject(ctx context.Context, id core.ID) ([]string, error) {
	var vectorIDs []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeObjectKey(id)
		object, err := r.readObject(tx, key)
		if err != nil {
			return err
		}
		if object == nil {
			return storage.ErrNotFound
		}

		// Cascade: chunks first, collecting link vector ids along the way.
		ids, err := r.chunks.deleteChunksByObject(tx, id)
		if err != nil {
			return err
		}
		vectorIDs = ids

		statusKey := makeObjectStatusKey(object.Status, object.CreatedAt, object.Id)
		if err := tx.Delete(statusKey); err != nil {
			return err
		}

		if object.SourceLocator != "" {
			if err := tx.Delete(makeObjectLocatorKey(object.SourceLocator)); err != nil {
				return err
			}
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return vectorIDs, nil
}

func (r *ObjectRepository) readObject(tx *badger.Txn, key []byte) (*core.ContentObject, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var object *core.ContentObject
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		object, unmarshalErr = storage.UnmarshalObject(val)
		return unmarshalErr
	})
	return object, err
}
