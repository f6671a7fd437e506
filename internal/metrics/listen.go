package metrics

import (
	"fmt"
	"net"
	"strings"
)

// RequireLocalhost ensures the metrics listen address is bound to loopback.
//
// Addresses like ":9090" or "0.0.0.0:9090" are rejected so metrics are not
// exposed to the network by accident.
func RequireLocalhost(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen addr %q: %w", addr, err)
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		return fmt.Errorf("invalid listen addr %q: host is empty (refusing to bind metrics on all interfaces)", addr)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("invalid listen addr %q: host must be a loopback address", addr)
}
