package daemon

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var errRemoteIPCToken = errors.New("remote ipc listeners require " + IPCTokenEnv + " to be set")

// ValidateIPCAddress resolves the listen address. Loopback is always
// allowed; any other host needs allowRemote and a non-empty token, because
// node payloads are readable by whoever can reach the listener.
func ValidateIPCAddress(addr string, allowRemote bool, token string) (string, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		trimmed = DefaultIPCAddress
	}

	host, _, err := net.SplitHostPort(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid ipc address %q: %w", trimmed, err)
	}

	if isLoopbackHost(host) {
		return trimmed, nil
	}
	if !allowRemote {
		return "", fmt.Errorf("ipc address %q is not loopback; pass --allow-remote-ipc to permit remote listeners", trimmed)
	}
	if !HasIPCAuthToken(token) {
		return "", errRemoteIPCToken
	}
	return trimmed, nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
