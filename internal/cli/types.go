package cli

import "time"

var timeNow = time.Now

type cleanupOptions struct {
	Before time.Time
}
