package utils

import (
	"fmt"
	"net"
	"net/url"
	"time"
)

const authzDialTimeout = 1500 * time.Millisecond

// PingService opens and closes a TCP connection to the host behind the URL.
// Scheme default ports apply when the URL carries none.
func PingService(serviceURL string, timeout time.Duration) error {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	addr := net.JoinHostPort(u.Hostname(), port)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return conn.Close()
}

// PingAuthorizer reports whether the authorizer service is reachable.
func PingAuthorizer(authzURL string) error {
	return PingService(authzURL, authzDialTimeout)
}
