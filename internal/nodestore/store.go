// Package nodestore persists opaque JSON node records in an object store,
// one object per node, keyed by the node id.
package nodestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nodestore/internal/config"
	"nodestore/internal/logging"
	"nodestore/internal/storage"

	"github.com/google/uuid"
)

// ErrNotFound is returned by the read operations when no node exists under
// the requested id.
var ErrNotFound = storage.ErrNotFound

var errEmptyID = errors.New("node id must not be empty")

// Options configures a Store. A MaxRetries below 1 falls back to the default;
// a zero RetryPause means no pause.
type Options struct {
	Bucket     string
	Region     string
	MaxRetries int
	RetryPause time.Duration
	Logger     *slog.Logger
}

// Store is safe for concurrent use when its ObjectStore is. Its settings
// are fixed at construction.
type Store struct {
	client     storage.ObjectStore
	bucket     string
	region     string
	maxRetries int
	retryPause time.Duration
	logger     *slog.Logger
}

// New wraps client in a Store.
func New(client storage.ObjectStore, opts Options) *Store {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = config.DefaultMaxRetries
	}
	if opts.RetryPause < 0 {
		opts.RetryPause = 0
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Store{
		client:     client,
		bucket:     opts.Bucket,
		region:     opts.Region,
		maxRetries: opts.MaxRetries,
		retryPause: opts.RetryPause,
		logger:     opts.Logger,
	}
}

// NewFromConfig stores nodes in cfg's bucket, or under localDir when no
// bucket is configured.
func NewFromConfig(cfg *config.Config, localDir string, logger *slog.Logger) (*Store, error) {
	client, err := storage.NewFromConfig(cfg.S3, localDir)
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}
	return New(client, Options{
		Bucket:     cfg.S3.Bucket,
		Region:     cfg.S3.Region,
		MaxRetries: cfg.MaxRetries,
		RetryPause: cfg.RetryPause(),
		Logger:     logger,
	}), nil
}

func (s *Store) Bucket() string  { return s.bucket }
func (s *Store) Region() string  { return s.region }
func (s *Store) MaxRetries() int { return s.maxRetries }

// Backend names the kind of object store behind s.
func (s *Store) Backend() string {
	switch s.client.(type) {
	case *storage.S3Client:
		return "s3"
	case *storage.LocalClient:
		return "local"
	default:
		return fmt.Sprintf("%T", s.client)
	}
}

// ObjectStore exposes the underlying client for tooling that needs to
// list or inspect raw objects.
func (s *Store) ObjectStore() storage.ObjectStore {
	return s.client
}

// GetBytes returns the raw payload stored for id.
func (s *Store) GetBytes(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, errEmptyID
	}
	var data []byte
	err := retry(ctx, s.logger, s.maxRetries, s.retryPause, "get", id, func() error {
		var err error
		data, err = s.client.GetObject(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SetBytes writes data as the payload for id, replacing any previous one.
func (s *Store) SetBytes(ctx context.Context, id string, data []byte) error {
	if id == "" {
		return errEmptyID
	}
	return retry(ctx, s.logger, s.maxRetries, s.retryPause, "set", id, func() error {
		return s.client.PutObject(ctx, id, data)
	})
}

// Get returns the decoded node. JSON numbers come back as json.Number.
func (s *Store) Get(ctx context.Context, id string) (any, error) {
	var v any
	if err := s.GetInto(ctx, id, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetInto decodes the node stored under id into dst.
func (s *Store) GetInto(ctx context.Context, id string, dst any) error {
	data, err := s.GetBytes(ctx, id)
	if err != nil {
		return err
	}
	return decodeNode(id, data, dst)
}

// GetMulti returns the nodes that exist among ids. Missing ids are left
// out of the result; any other failure aborts the lookup.
func (s *Store) GetMulti(ctx context.Context, ids []string) (map[string]any, error) {
	nodes := make(map[string]any, len(ids))
	for _, id := range ids {
		if _, seen := nodes[id]; seen {
			continue
		}
		v, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		nodes[id] = v
	}
	return nodes, nil
}

func (s *Store) Set(ctx context.Context, id string, value any) error {
	data, err := encodeNode(value)
	if err != nil {
		return fmt.Errorf("encode node %q: %w", id, err)
	}
	return s.SetBytes(ctx, id, data)
}

// Delete removes the node stored under id. Deleting a missing node is not
// an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errEmptyID
	}
	return s.client.DeleteObject(ctx, id)
}

// DeleteMulti removes all ids in one batch request. It is not atomic: the
// returned failures name the ids that were left in place and must be
// checked by the caller even when err is nil.
func (s *Store) DeleteMulti(ctx context.Context, ids []string) ([]storage.DeleteFailure, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	for _, id := range ids {
		if id == "" {
			return nil, errEmptyID
		}
	}

	failures, err := s.client.DeleteObjects(ctx, ids)
	if len(failures) > 0 {
		s.logger.WarnContext(ctx, "batch delete left nodes in place",
			"requested", len(ids), "failed", len(failures))
	}
	return failures, err
}

// GenerateID returns a URL-safe id built from a random 128-bit value.
func (s *Store) GenerateID() string {
	return GenerateID()
}

func GenerateID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// Bootstrap exists for the host's storage contract; a bucket needs no
// preparation.
func (s *Store) Bootstrap(ctx context.Context) error {
	s.logger.DebugContext(ctx, "bootstrap requested", "backend", s.Backend(), "bucket", s.bucket)
	return nil
}

// Cleanup exists for the host's storage contract. Expiring old nodes is
// left to bucket lifecycle rules.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) error {
	s.logger.DebugContext(ctx, "cleanup requested", "cutoff", cutoff.UTC().Format(time.RFC3339))
	return nil
}
