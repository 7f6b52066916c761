// Package netx holds small helpers for working with peer addresses.
package netx

import (
	"net"
	"strings"
)

// FirstForwarded returns the originating client from an X-Forwarded-For
// value, i.e. its first comma separated element.
func FirstForwarded(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}

// Host strips the port from addr. Addresses without a port are returned
// as is.
func Host(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
