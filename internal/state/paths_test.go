package state

import (
	"path/filepath"
	"testing"
)

func TestPathsLiveUnderAppDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	appDir, err := AppDir()
	if err != nil {
		t.Fatalf("app dir: %v", err)
	}
	if filepath.Base(appDir) != AppName {
		t.Fatalf("app dir should end in %q: got %q", AppName, appDir)
	}

	configPath, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if configPath != filepath.Join(appDir, "config.toml") {
		t.Fatalf("config path mismatch: got %q", configPath)
	}

	objectsDir, err := ObjectStoreDir()
	if err != nil {
		t.Fatalf("object store dir: %v", err)
	}
	if objectsDir != filepath.Join(appDir, "nodes") {
		t.Fatalf("object store dir mismatch: got %q", objectsDir)
	}
}
