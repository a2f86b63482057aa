package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetObject when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// MaxDeleteBatch is the largest number of keys a single batch delete
// request may carry.
const MaxDeleteBatch = 1000

// DeleteFailure reports one key a batch delete could not remove.
type DeleteFailure struct {
	Key     string `json:"key"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	// DeleteObjects is not atomic: keys it reports as failed were left in
	// place while the rest were removed.
	DeleteObjects(ctx context.Context, keys []string) ([]DeleteFailure, error)
	ListKeys(ctx context.Context) ([]string, error)
}
