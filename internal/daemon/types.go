package daemon

import (
	"time"

	"nodestore/internal/config"
	"nodestore/internal/storage"
)

const DefaultIPCAddress = config.DefaultIPCAddress

type daemonStatus struct {
	StartedAt    time.Time
	Gets         int
	Sets         int
	Deletes      int
	BatchDeletes int
	NotFound     int
	Failures     int
	LastError    string
	LastErrorAt  time.Time
	LastReloadAt time.Time
}

type statusResponse struct {
	State        string `json:"state"`
	Backend      string `json:"backend,omitempty"`
	Bucket       string `json:"bucket,omitempty"`
	Region       string `json:"region,omitempty"`
	MaxRetries   int    `json:"max_retries,omitempty"`
	StartedAt    string `json:"started_at"`
	Gets         int    `json:"gets"`
	Sets         int    `json:"sets"`
	Deletes      int    `json:"deletes"`
	BatchDeletes int    `json:"batch_deletes"`
	NotFound     int    `json:"not_found"`
	Failures     int    `json:"failures"`
	LastError    string `json:"last_error,omitempty"`
	LastErrorAt  string `json:"last_error_at,omitempty"`
	LastReloadAt string `json:"last_reload_at,omitempty"`
}

type nodeWriteResponse struct {
	ID string `json:"id"`
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

type batchGetResponse struct {
	Nodes map[string]any `json:"nodes"`
}

type batchDeleteResponse struct {
	Requested int                     `json:"requested"`
	Failed    []storage.DeleteFailure `json:"failed"`
}

type generateIDResponse struct {
	ID string `json:"id"`
}

type cleanupRequest struct {
	Cutoff string `json:"cutoff"`
}

type statusOKResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Failed  []storage.DeleteFailure `json:"failed,omitempty"`
}
