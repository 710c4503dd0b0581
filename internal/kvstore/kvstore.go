// Package kvstore is the byte-string key-value persistence used by the
// command store and the provisioning store.
//
// Keys live in namespaces ("ir", "wifi"). Two backends are provided: SQLite
// (the kv table created by the embedded migrations) and an in-memory map
// for tests and the offline CLI's dry runs.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the get/put/delete/enumerate contract.
//
// Put replaces the whole value. Delete of an absent key succeeds.
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Keys(ctx context.Context, namespace string) ([]string, error)
	Clear(ctx context.Context, namespace string) error
}
