package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"nodestore/internal/config"
	"nodestore/internal/daemon"
	"nodestore/internal/logging"
	"nodestore/internal/state"
)

func main() {
	d, err := newDaemon(os.Args[1:], os.Getenv(daemon.IPCTokenEnv), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
		os.Exit(1)
	}
}

func newDaemon(args []string, token string, logOut io.Writer) (*daemon.Daemon, error) {
	defaultConfigPath, err := state.ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("state path error: %w", err)
	}

	fs := flag.NewFlagSet("nodestored", flag.ContinueOnError)
	fs.SetOutput(logOut)

	var (
		configPath     string
		ipcAddr        string
		allowRemoteIPC bool
	)
	fs.StringVar(&configPath, "config", defaultConfigPath, "path to config file")
	fs.StringVar(&ipcAddr, "ipc-addr", "", "listen address (overrides ipc.addr)")
	fs.BoolVar(&allowRemoteIPC, "allow-remote-ipc", false, "permit non-loopback listeners (requires "+daemon.IPCTokenEnv+")")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if ipcAddr == "" {
		ipcAddr = cfg.IPC.Addr
	}
	addr, err := daemon.ValidateIPCAddress(ipcAddr, allowRemoteIPC, token)
	if err != nil {
		return nil, fmt.Errorf("ipc address error: %w", err)
	}

	d := daemon.New(cfg, logger)
	d.SetConfigPath(configPath)
	d.SetIPCAuthToken(token)
	d.SetIPCAddress(addr)
	return d, nil
}
