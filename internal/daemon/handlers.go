package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nodestore/internal/nodestore"
	"nodestore/internal/storage"
)

const (
	maxJSONRequestBodyBytes = 1 << 20
	maxNodeBodyBytes        = 16 << 20
	nodesPathPrefix         = "/v1/nodes/"
)

func (d *Daemon) newHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/status", d.requireIPCAuth(d.handleStatus))
	mux.HandleFunc("/v1/batch/get", d.requireIPCAuth(d.handleBatchGet))
	mux.HandleFunc("/v1/batch/delete", d.requireIPCAuth(d.handleBatchDelete))
	mux.HandleFunc("/v1/ids", d.requireIPCAuth(d.handleGenerateID))
	mux.HandleFunc("/v1/bootstrap", d.requireIPCAuth(d.handleBootstrap))
	mux.HandleFunc("/v1/cleanup", d.requireIPCAuth(d.handleCleanup))
	mux.HandleFunc("/v1/config/reload", d.requireIPCAuth(d.handleReloadConfig))

	nodes := d.requireIPCAuth(d.handleNode)

	// Node ids are opaque and may contain "//", "." or ".." segments, which
	// ServeMux would clean and redirect, so node paths bypass it.
	return d.logRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, nodesPathPrefix) {
			nodes(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	}))
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		d.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	d.writeJSON(w, http.StatusOK, d.snapshot())
}

// handleNode takes the id as everything after /v1/nodes/, percent-decoded.
// Clients escape "?", "#" and "%" in ids.
func (d *Daemon) handleNode(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, nodesPathPrefix)
	if strings.TrimSpace(id) == "" {
		d.writeError(w, http.StatusBadRequest, "invalid_request", "node id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		d.handleGetNode(w, r, id)
	case http.MethodPut:
		d.handleSetNode(w, r, id)
	case http.MethodDelete:
		d.handleDeleteNode(w, r, id)
	default:
		d.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (d *Daemon) handleGetNode(w http.ResponseWriter, r *http.Request, id string) {
	store, err := d.nodeStore()
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, "object_store_failed", err.Error())
		return
	}

	value, err := store.Get(r.Context(), id)
	if err != nil {
		d.writeStoreError(w, err)
		return
	}
	d.recordSuccess(opGet)
	d.writeJSON(w, http.StatusOK, value)
}

func (d *Daemon) handleSetNode(w http.ResponseWriter, r *http.Request, id string) {
	var value json.RawMessage
	r.Body = http.MaxBytesReader(w, r.Body, maxNodeBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		d.writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("decode node: %v", err))
		return
	}

	store, err := d.nodeStore()
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, "object_store_failed", err.Error())
		return
	}
	if err := store.Set(r.Context(), id, value); err != nil {
		d.writeStoreError(w, err)
		return
	}
	d.recordSuccess(opSet)
	d.writeJSON(w, http.StatusOK, nodeWriteResponse{ID: id})
}

func (d *Daemon) handleDeleteNode(w http.ResponseWriter, r *http.Request, id string) {
	store, err := d.nodeStore()
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, "object_store_failed", err.Error())
		return
	}
	if err := store.Delete(r.Context(), id); err != nil {
		d.writeStoreError(w, err)
		return
	}
	d.recordSuccess(opDelete)
	d.writeJSON(w, http.StatusOK, nodeWriteResponse{ID: id})
}

func (d *Daemon) handleBatchGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		d.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ids, ok := d.decodeBatchRequest(w, r)
	if !ok {
		return
	}
	store, err := d.nodeStore()
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, "object_store_failed", err.Error())
		return
	}

	nodes, err := store.GetMulti(r.Context(), ids)
	if err != nil {
		d.writeStoreError(w, err)
		return
	}
	d.recordSuccess(opGet)
	d.writeJSON(w, http.StatusOK, batchGetResponse{Nodes: nodes})
}

func (d *Daemon) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		d.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ids, ok := d.decodeBatchRequest(w, r)
	if !ok {
		return
	}
	store, err := d.nodeStore()
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, "object_store_failed", err.Error())
		return
	}

	failures, err := store.DeleteMulti(r.Context(), ids)
	if err != nil && len(failures) > 0 {
		// Earlier chunks may already have reported keys left in place.
		d.recordFailure(err)
		d.writeJSON(w, http.StatusBadGateway, errorResponse{
			Code:    "storage_failed",
			Message: err.Error(),
			Failed:  failures,
		})
		return
	}
	if err != nil {
		d.writeStoreError(w, err)
		return
	}
	d.recordSuccess(opBatchDelete)
	resp := batchDeleteResponse{Requested: len(ids), Failed: failures}
	if resp.Failed == nil {
		resp.Failed = []storage.DeleteFailure{}
	}
	d.writeJSON(w, http.StatusOK, resp)
}

func (d *Daemon) decodeBatchRequest(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req batchRequest
	if err := decodeJSONRequest(w, r, &req); err != nil {
		d.writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("decode request: %v", err))
		return nil, false
	}
	for i, id := range req.IDs {
		if strings.TrimSpace(id) == "" {
			d.writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("ids[%d] must not be empty", i))
			return nil, false
		}
	}
	return req.IDs, true
}

func (d *Daemon) handleGenerateID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		d.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	d.writeJSON(w, http.StatusOK, generateIDResponse{ID: nodestore.GenerateID()})
}

func (d *Daemon) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		d.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	store, err := d.nodeStore()
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, "object_store_failed", err.Error())
		return
	}
	if err := store.Bootstrap(r.Context()); err != nil {
		d.writeStoreError(w, err)
		return
	}
	d.writeJSON(w, http.StatusOK, statusOKResponse{Status: "ok"})
}

func (d *Daemon) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		d.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req cleanupRequest
	if err := decodeJSONRequest(w, r, &req); err != nil {
		d.writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("decode request: %v", err))
		return
	}
	cutoff, err := time.Parse(time.RFC3339, strings.TrimSpace(req.Cutoff))
	if err != nil {
		d.writeError(w, http.StatusBadRequest, "invalid_request", "cutoff must be an RFC3339 timestamp")
		return
	}

	store, err := d.nodeStore()
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, "object_store_failed", err.Error())
		return
	}
	if err := store.Cleanup(r.Context(), cutoff); err != nil {
		d.writeStoreError(w, err)
		return
	}
	d.writeJSON(w, http.StatusOK, statusOKResponse{Status: "ok"})
}

func (d *Daemon) handleReloadConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		d.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if _, err := d.reloadConfig(); err != nil {
		d.writeError(w, http.StatusBadRequest, "config_reload_failed", err.Error())
		return
	}
	d.writeJSON(w, http.StatusOK, statusOKResponse{Status: "reloaded"})
}

func (d *Daemon) writeStoreError(w http.ResponseWriter, err error) {
	d.recordFailure(err)

	var decodeErr *nodestore.DecodeError
	switch {
	case errors.Is(err, nodestore.ErrNotFound):
		d.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &decodeErr):
		d.writeError(w, http.StatusUnprocessableEntity, "decode_failed", err.Error())
	default:
		d.writeError(w, http.StatusBadGateway, "storage_failed", err.Error())
	}
}

func decodeJSONRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func (d *Daemon) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (d *Daemon) writeError(w http.ResponseWriter, status int, code string, message string) {
	d.writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (d *Daemon) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := d.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		d.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", d.now().Sub(start))
	})
}
