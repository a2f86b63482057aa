package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nodestore/internal/nodestore"
	"nodestore/internal/state"
	"nodestore/internal/storage"
)

func TestRunRequiresCommand(t *testing.T) {
	setCLIHome(t)

	err := Run(nil)
	if err == nil {
		t.Fatal("expected usage error for missing command")
	}
	if !strings.Contains(err.Error(), "usage: nodestore") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunRejectsUnknownCommandsAndBadArity(t *testing.T) {
	setCLIHome(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown top-level", args: []string{"nope"}, want: "usage: nodestore"},
		{name: "get without id", args: []string{"get"}, want: "usage: nodestore get"},
		{name: "get with extra", args: []string{"get", "a", "b"}, want: "usage: nodestore get"},
		{name: "delete without id", args: []string{"delete"}, want: "usage: nodestore delete"},
		{name: "id with args", args: []string{"id", "x"}, want: "usage: nodestore id"},
		{name: "list with args", args: []string{"list", "x"}, want: "usage: nodestore list"},
		{name: "bootstrap with args", args: []string{"bootstrap", "x"}, want: "usage: nodestore bootstrap"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Run(tc.args)
			if err == nil {
				t.Fatalf("expected error for args=%v", tc.args)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error for args=%v: got %q want substring %q", tc.args, err.Error(), tc.want)
			}
		})
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	setCLIHome(t)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("max_retries = 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	err := Run([]string{"-config", configPath, "id"})
	if err == nil || !strings.Contains(err.Error(), "max_retries must be >= 1") {
		t.Fatalf("expected config validation error, got %v", err)
	}
}

func TestRunSetGetDeleteRoundTrip(t *testing.T) {
	setCLIHome(t)

	out, err := captureStdout(t, func() error {
		return Run([]string{"set", "node-1", `{"foo":"bar","n":1}`})
	})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if out != "set node-1\n" {
		t.Fatalf("unexpected set output: %q", out)
	}

	objectsDir, err := state.ObjectStoreDir()
	if err != nil {
		t.Fatalf("object store dir: %v", err)
	}
	raw, err := storage.NewLocalClient(objectsDir).GetObject(context.Background(), "node-1")
	if err != nil {
		t.Fatalf("raw read: %v", err)
	}
	if string(raw) != `{"foo": "bar", "n": 1}` {
		t.Fatalf("stored body mismatch: got %q", string(raw))
	}

	out, err = captureStdout(t, func() error {
		return Run([]string{"get", "node-1"})
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != "{\n  \"foo\": \"bar\",\n  \"n\": 1\n}\n" {
		t.Fatalf("unexpected get output: %q", out)
	}

	out, err = captureStdout(t, func() error {
		return Run([]string{"delete", "node-1"})
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if out != "deleted node-1\n" {
		t.Fatalf("unexpected delete output: %q", out)
	}

	_, err = captureStdout(t, func() error {
		return Run([]string{"get", "node-1"})
	})
	if !errors.Is(err, nodestore.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestRunSetReadsStdin(t *testing.T) {
	setCLIHome(t)
	setCLIStdin(t, "{\"from\": \"stdin\"}\n")

	if _, err := captureStdout(t, func() error {
		return Run([]string{"set", "node-1", "-"})
	}); err != nil {
		t.Fatalf("set: %v", err)
	}

	out, err := captureStdout(t, func() error {
		return Run([]string{"get", "node-1"})
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(out, `"from": "stdin"`) {
		t.Fatalf("unexpected get output: %q", out)
	}
}

func TestRunDeleteManyAndList(t *testing.T) {
	setCLIHome(t)

	for _, id := range []string{"c", "a", "b"} {
		if _, err := captureStdout(t, func() error {
			return Run([]string{"set", id, `{}`})
		}); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}

	out, err := captureStdout(t, func() error {
		return Run([]string{"list"})
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if out != "a\nb\nc\n" {
		t.Fatalf("unexpected list output: %q", out)
	}

	out, err = captureStdout(t, func() error {
		return Run([]string{"delete", "a", "b", "missing"})
	})
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if out != "deleted 3 nodes\n" {
		t.Fatalf("unexpected delete output: %q", out)
	}

	out, err = captureStdout(t, func() error {
		return Run([]string{"list"})
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if out != "c\n" {
		t.Fatalf("unexpected list output after delete: %q", out)
	}
}

func TestRunIDPrintsURLSafeID(t *testing.T) {
	setCLIHome(t)

	out, err := captureStdout(t, func() error {
		return Run([]string{"id"})
	})
	if err != nil {
		t.Fatalf("id: %v", err)
	}
	id := strings.TrimSpace(out)
	if len(id) != 22 || strings.ContainsAny(id, "+/=") {
		t.Fatalf("unexpected id: %q", id)
	}
}

func TestRunBootstrapAndCleanupAreNoOps(t *testing.T) {
	setCLIHome(t)

	out, err := captureStdout(t, func() error {
		return Run([]string{"bootstrap"})
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if out != "bootstrap complete: backend=local bucket=\n" {
		t.Fatalf("unexpected bootstrap output: %q", out)
	}

	original := timeNow
	timeNow = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) }
	t.Cleanup(func() { timeNow = original })

	out, err = captureStdout(t, func() error {
		return Run([]string{"cleanup"})
	})
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if out != "cleanup complete: before=2026-05-06T07:08:09Z\n" {
		t.Fatalf("unexpected cleanup output: %q", out)
	}
}
