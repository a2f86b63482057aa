package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nodestore/internal/config"
	"nodestore/internal/logging"
	"nodestore/internal/nodestore"
	"nodestore/internal/state"
)

const (
	serverReadHeaderTimeout = 5 * time.Second
	serverReadTimeout       = 10 * time.Second
	serverWriteTimeout      = 30 * time.Second
	serverIdleTimeout       = 60 * time.Second
	serverMaxHeaderBytes    = 1 << 20
)

// Daemon serves the node storage contract over HTTP to a host process.
type Daemon struct {
	cfg          *config.Config
	configPath   string
	ipcAuthToken string
	configLoader func(string) (*config.Config, error)
	storeFactory func(*config.Config) (*nodestore.Store, error)
	clockNow     func() time.Time
	logger       *slog.Logger
	ipcAddr      string
	mu           sync.Mutex
	store        *nodestore.Store
	status       daemonStatus
	handler      http.Handler
}

func New(cfg *config.Config, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = logging.Discard()
	}
	d := &Daemon{
		cfg:          cfg,
		configLoader: config.Load,
		clockNow:     time.Now,
		logger:       logger,
		ipcAddr:      DefaultIPCAddress,
	}
	if cfg != nil && cfg.IPC.Addr != "" {
		d.ipcAddr = cfg.IPC.Addr
	}
	d.storeFactory = d.openStore
	d.status.StartedAt = d.now().UTC()
	d.handler = d.newHandler()
	return d
}

func (d *Daemon) SetIPCAddress(addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr != "" {
		d.ipcAddr = addr
	}
}

func (d *Daemon) SetConfigPath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configPath = path
}

func (d *Daemon) SetIPCAuthToken(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ipcAuthToken = token
}

func (d *Daemon) Handler() http.Handler {
	return d.handler
}

func (d *Daemon) Run(ctx context.Context) error {
	srv := d.newHTTPServer()

	store, err := d.nodeStore()
	if err != nil {
		return err
	}
	d.logger.Info("nodestored listening",
		"addr", srv.Addr, "backend", store.Backend(), "bucket", store.Bucket(), "region", store.Region())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d.logger.Info("nodestored shutting down")
		_ = srv.Shutdown(shutdownCtx)
	}()

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (d *Daemon) newHTTPServer() *http.Server {
	d.mu.Lock()
	addr := d.ipcAddr
	d.mu.Unlock()

	return &http.Server{
		Addr:              addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: serverReadHeaderTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
		MaxHeaderBytes:    serverMaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(d.logger.Handler(), slog.LevelWarn),
	}
}

// nodeStore returns the store for the current config, opening it on first use.
func (d *Daemon) nodeStore() (*nodestore.Store, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.store != nil {
		return d.store, nil
	}
	store, err := d.storeFactory(d.cfg)
	if err != nil {
		return nil, err
	}
	d.store = store
	return store, nil
}

func (d *Daemon) openStore(cfg *config.Config) (*nodestore.Store, error) {
	localDir, err := state.ObjectStoreDir()
	if err != nil {
		return nil, err
	}
	return nodestore.NewFromConfig(cfg, localDir, d.logger)
}

func (d *Daemon) now() time.Time {
	if d.clockNow == nil {
		return time.Now()
	}
	return d.clockNow()
}
