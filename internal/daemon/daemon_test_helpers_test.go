package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"nodestore/internal/config"
	"nodestore/internal/nodestore"
	"nodestore/internal/storage"
)

func newTestDaemon(t *testing.T) (*Daemon, *storage.LocalClient) {
	t.Helper()
	client := storage.NewLocalClient(t.TempDir())
	d := New(config.DefaultConfig(), nil)
	d.storeFactory = func(cfg *config.Config) (*nodestore.Store, error) {
		return nodestore.New(client, nodestore.Options{
			Bucket:     cfg.S3.Bucket,
			Region:     cfg.S3.Region,
			MaxRetries: cfg.MaxRetries,
		}), nil
	}
	return d, client
}

func doRequest(t *testing.T, d *Daemon, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v body=%s", err, rr.Body.String())
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status code: got %d want %d body=%s", rr.Code, want, rr.Body.String())
	}
}

func doRequestWithToken(t *testing.T, d *Daemon, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(ipcTokenHeader, token)
	rr := httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, req)
	return rr
}

type failingObjectStore struct {
	err error
}

func (s failingObjectStore) PutObject(context.Context, string, []byte) error {
	return s.err
}

func (s failingObjectStore) GetObject(context.Context, string) ([]byte, error) {
	return nil, s.err
}

func (s failingObjectStore) DeleteObject(context.Context, string) error {
	return s.err
}

func (s failingObjectStore) DeleteObjects(context.Context, []string) ([]storage.DeleteFailure, error) {
	return nil, s.err
}

func (s failingObjectStore) ListKeys(context.Context) ([]string, error) {
	return nil, s.err
}

type partialDeleteStore struct {
	failingObjectStore
	failures []storage.DeleteFailure
	err      error
}

func (s partialDeleteStore) DeleteObjects(context.Context, []string) ([]storage.DeleteFailure, error) {
	return s.failures, s.err
}
