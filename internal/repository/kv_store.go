package repository

import "context"

// KVStore is the durable key/value cache backing a sync run.
// Values are opaque strings; the comic index lives under entity.IndexKey and
// every other key maps a (feed, webhook) pair to its last-notified timestamp.
type KVStore interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// GetMany reads every key in one round trip. Absent keys are omitted from the result.
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	// Put creates or overwrites the value stored under key.
	Put(ctx context.Context, key, value string) error
	// ListKeys returns every stored key in ascending order.
	ListKeys(ctx context.Context) ([]string, error)
}
