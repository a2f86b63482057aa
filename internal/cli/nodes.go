package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nodestore/internal/config"
)

func getNode(ctx context.Context, cfg *config.Config, id string) error {
	store, err := storeFromConfig(cfg)
	if err != nil {
		return err
	}
	value, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get node %s: %w", id, err)
	}
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("format node %s: %w", id, err)
	}
	fmt.Println(string(out))
	return nil
}

func setNode(ctx context.Context, cfg *config.Config, id string, payload json.RawMessage) error {
	store, err := storeFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, id, payload); err != nil {
		return fmt.Errorf("set node %s: %w", id, err)
	}
	fmt.Printf("set %s\n", id)
	return nil
}

func deleteNodes(ctx context.Context, cfg *config.Config, ids []string) error {
	store, err := storeFromConfig(cfg)
	if err != nil {
		return err
	}

	if len(ids) == 1 {
		if err := store.Delete(ctx, ids[0]); err != nil {
			return fmt.Errorf("delete node %s: %w", ids[0], err)
		}
		fmt.Printf("deleted %s\n", ids[0])
		return nil
	}

	failures, err := store.DeleteMulti(ctx, ids)
	for _, f := range failures {
		fmt.Printf("failed %s code=%s message=%s\n", f.Key, f.Code, f.Message)
	}
	if err != nil {
		return fmt.Errorf("delete nodes: %w", err)
	}
	if len(failures) > 0 {
		return fmt.Errorf("delete nodes: %d of %d nodes were not deleted", len(failures), len(ids))
	}
	fmt.Printf("deleted %d nodes\n", len(ids))
	return nil
}

func listNodes(ctx context.Context, cfg *config.Config) error {
	store, err := storeFromConfig(cfg)
	if err != nil {
		return err
	}
	keys, err := store.ObjectStore().ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("list nodes: %w", err)
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

func bootstrap(ctx context.Context, cfg *config.Config) error {
	store, err := storeFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := store.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	fmt.Printf("bootstrap complete: backend=%s bucket=%s\n", store.Backend(), store.Bucket())
	return nil
}

func cleanup(ctx context.Context, cfg *config.Config, opts cleanupOptions) error {
	store, err := storeFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := store.Cleanup(ctx, opts.Before); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	fmt.Printf("cleanup complete: before=%s\n", opts.Before.Format(time.RFC3339))
	return nil
}
