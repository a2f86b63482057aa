package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// maxLocalKeyBytes keeps encoded file names under the common 255-byte limit.
const maxLocalKeyBytes = 190

// LocalClient keeps each object in its own file under rootDir, with the
// key base64url-encoded into the file name.
type LocalClient struct {
	rootDir string
}

var _ ObjectStore = (*LocalClient)(nil)

func NewLocalClient(rootDir string) *LocalClient {
	return &LocalClient{rootDir: rootDir}
}

func (c *LocalClient) PutObject(_ context.Context, key string, data []byte) error {
	fullPath, err := c.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.rootDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0o600)
}

func (c *LocalClient) GetObject(_ context.Context, key string) ([]byte, error) {
	fullPath, err := c.objectPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("get object %q: %w", key, ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (c *LocalClient) DeleteObject(_ context.Context, key string) error {
	fullPath, pathErr := c.objectPath(key)
	if pathErr != nil {
		return pathErr
	}
	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *LocalClient) DeleteObjects(ctx context.Context, keys []string) ([]DeleteFailure, error) {
	var failures []DeleteFailure
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		if err := c.DeleteObject(ctx, key); err != nil {
			failures = append(failures, DeleteFailure{
				Key:     key,
				Code:    "DeleteFailed",
				Message: err.Error(),
			})
		}
	}
	return failures, nil
}

func (c *LocalClient) ListKeys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, err := decodeFileName(entry.Name())
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys, nil
}

// objectPath maps key to one flat file under rootDir. Keys are opaque, so
// "x/../y" and "y" are distinct objects, as they are in a bucket.
func (c *LocalClient) objectPath(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if len(key) > maxLocalKeyBytes {
		return "", fmt.Errorf("invalid object key: local store keys are limited to %d bytes", maxLocalKeyBytes)
	}
	return filepath.Join(c.rootDir, encodeFileName(key)), nil
}

func encodeFileName(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func decodeFileName(name string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(name)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
