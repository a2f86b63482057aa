package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// parseSetArgs returns the node id and its JSON payload. The payload is
// read from stdin when omitted or given as "-".
func parseSetArgs(args []string) (string, json.RawMessage, error) {
	if len(args) < 1 || len(args) > 2 || strings.TrimSpace(args[0]) == "" {
		return "", nil, errors.New("usage: nodestore set <id> [json|-]")
	}

	var raw []byte
	if len(args) == 1 || args[1] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = data
	} else {
		raw = []byte(args[1])
	}

	raw = []byte(strings.TrimSpace(string(raw)))
	if !json.Valid(raw) {
		return "", nil, errors.New("node payload must be valid JSON")
	}
	return args[0], json.RawMessage(raw), nil
}

func parseCleanupArgs(args []string, now time.Time) (cleanupOptions, error) {
	cleanupFS := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	cleanupFS.SetOutput(os.Stderr)

	var before string
	cleanupFS.StringVar(&before, "before", "", "cleanup cutoff as an RFC3339 timestamp (default now)")

	if err := cleanupFS.Parse(args); err != nil {
		return cleanupOptions{}, err
	}
	if len(cleanupFS.Args()) != 0 {
		return cleanupOptions{}, errors.New("usage: nodestore cleanup [--before RFC3339]")
	}

	opts := cleanupOptions{Before: now.UTC()}
	if strings.TrimSpace(before) != "" {
		cutoff, err := time.Parse(time.RFC3339, strings.TrimSpace(before))
		if err != nil {
			return cleanupOptions{}, errors.New("before must be an RFC3339 timestamp")
		}
		opts.Before = cutoff.UTC()
	}
	return opts, nil
}
