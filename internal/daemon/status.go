package daemon

import (
	"errors"
	"time"

	"nodestore/internal/config"
	"nodestore/internal/nodestore"
)

type operation int

const (
	opGet operation = iota
	opSet
	opDelete
	opBatchDelete
)

func (d *Daemon) recordSuccess(op operation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch op {
	case opGet:
		d.status.Gets++
	case opSet:
		d.status.Sets++
	case opDelete:
		d.status.Deletes++
	case opBatchDelete:
		d.status.BatchDeletes++
	}
}

func (d *Daemon) recordFailure(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if errors.Is(err, nodestore.ErrNotFound) {
		d.status.NotFound++
		return
	}
	d.status.Failures++
	d.status.LastError = err.Error()
	d.status.LastErrorAt = d.now().UTC()
}

// reloadConfig re-reads the config file and swaps in a store built from it.
// The previous store stays in place when either step fails.
func (d *Daemon) reloadConfig() (*config.Config, error) {
	d.mu.Lock()
	configPath := d.configPath
	loader := d.configLoader
	factory := d.storeFactory
	d.mu.Unlock()

	if configPath == "" {
		return nil, errors.New("config path is not set")
	}

	cfg, err := loader(configPath)
	if err != nil {
		return nil, err
	}
	store, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cfg = cfg
	d.store = store
	d.status.LastReloadAt = d.now().UTC()
	d.mu.Unlock()

	d.logger.Info("config reloaded",
		"path", configPath, "backend", store.Backend(), "bucket", store.Bucket(), "region", store.Region())
	return cfg, nil
}

func (d *Daemon) snapshot() statusResponse {
	d.mu.Lock()
	defer d.mu.Unlock()

	resp := statusResponse{
		State:        "ok",
		StartedAt:    d.status.StartedAt.Format(time.RFC3339),
		Gets:         d.status.Gets,
		Sets:         d.status.Sets,
		Deletes:      d.status.Deletes,
		BatchDeletes: d.status.BatchDeletes,
		NotFound:     d.status.NotFound,
		Failures:     d.status.Failures,
		LastError:    d.status.LastError,
	}
	if d.store != nil {
		resp.Backend = d.store.Backend()
		resp.Bucket = d.store.Bucket()
		resp.Region = d.store.Region()
		resp.MaxRetries = d.store.MaxRetries()
	} else {
		resp.State = "starting"
	}
	if !d.status.LastErrorAt.IsZero() {
		resp.LastErrorAt = d.status.LastErrorAt.Format(time.RFC3339)
	}
	if !d.status.LastReloadAt.IsZero() {
		resp.LastReloadAt = d.status.LastReloadAt.Format(time.RFC3339)
	}
	return resp
}
