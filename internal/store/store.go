// Package store persists pipeline results. Callers speak the narrow Store
// capability; the Mongo implementation lives behind it so tasks can be
// exercised with in-memory fakes.
package store

import (
	"context"
	"errors"
	"fmt"
)

// KeyField is the document key every collection is addressed by.
const KeyField = "file_id"

// ErrNotFound reports a key with no stored document.
var ErrNotFound = errors.New("document not found")

// Store is the persistence capability: whole-document upsert keyed by
// file id, lookup, and key listing.
type Store interface {
	Upsert(ctx context.Context, collection string, key string, document map[string]any) error
	FindByKey(ctx context.Context, collection string, key string) (map[string]any, error)
	ListKeys(ctx context.Context, collection string) ([]string, error)
	Close(ctx context.Context) error
}

// StorageError wraps backend failures so callers can distinguish persistence
// faults from the model-call error taxonomy.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
