package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"nodestore/internal/config"
	"nodestore/internal/logging"
	"nodestore/internal/nodestore"
	"nodestore/internal/state"
)

var stdin io.Reader = os.Stdin

func Run(args []string) error {
	fs := flag.NewFlagSet("nodestore", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath, err := state.ConfigPath()
	if err != nil {
		return err
	}
	fs.StringVar(&configPath, "config", configPath, "path to config file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return usageError()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	switch rest[0] {
	case "get":
		if len(rest) != 2 {
			return errors.New("usage: nodestore get <id>")
		}
		return getNode(ctx, cfg, rest[1])
	case "set":
		id, payload, err := parseSetArgs(rest[1:])
		if err != nil {
			return err
		}
		return setNode(ctx, cfg, id, payload)
	case "delete":
		if len(rest) < 2 {
			return errors.New("usage: nodestore delete <id>...")
		}
		return deleteNodes(ctx, cfg, rest[1:])
	case "id":
		if len(rest) != 1 {
			return errors.New("usage: nodestore id")
		}
		fmt.Println(nodestore.GenerateID())
		return nil
	case "list":
		if len(rest) != 1 {
			return errors.New("usage: nodestore list")
		}
		return listNodes(ctx, cfg)
	case "bootstrap":
		if len(rest) != 1 {
			return errors.New("usage: nodestore bootstrap")
		}
		return bootstrap(ctx, cfg)
	case "cleanup":
		opts, err := parseCleanupArgs(rest[1:], timeNow())
		if err != nil {
			return err
		}
		return cleanup(ctx, cfg, opts)
	default:
		return usageError()
	}
}

func usageError() error {
	return errors.New("usage: nodestore [-config path] get <id> | set <id> [json|-] | delete <id>... | id | list | bootstrap | cleanup [--before RFC3339]")
}

func storeFromConfig(cfg *config.Config) (*nodestore.Store, error) {
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	objectsDir, err := state.ObjectStoreDir()
	if err != nil {
		return nil, err
	}
	return nodestore.NewFromConfig(cfg, objectsDir, logger)
}
