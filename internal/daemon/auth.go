package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	ipcTokenHeader = "X-Nodestore-Token"
	IPCTokenEnv    = "NODESTORE_IPC_TOKEN"
)

func (d *Daemon) requireIPCAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.authorizeIPCRequest(r) {
			d.writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid IPC token")
			return
		}
		next(w, r)
	}
}

// authorizeIPCRequest accepts any of the comma-separated configured tokens
// so they can be rotated without downtime. No configured token means open.
func (d *Daemon) authorizeIPCRequest(r *http.Request) bool {
	d.mu.Lock()
	tokenConfig := d.ipcAuthToken
	d.mu.Unlock()

	tokens := parseIPCAuthTokens(tokenConfig)
	if len(tokens) == 0 {
		return true
	}

	candidate := strings.TrimSpace(r.Header.Get(ipcTokenHeader))
	if candidate == "" {
		return false
	}

	matched := 0
	for _, token := range tokens {
		matched |= subtle.ConstantTimeCompare([]byte(token), []byte(candidate))
	}
	return matched == 1
}

func parseIPCAuthTokens(raw string) []string {
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// HasIPCAuthToken reports whether raw holds at least one usable token.
func HasIPCAuthToken(raw string) bool {
	return len(parseIPCAuthTokens(raw)) > 0
}
