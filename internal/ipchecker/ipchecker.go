// Package ipchecker extracts and validates client IP addresses from
// HTTP requests against a trusted subnet. The internal stats endpoint
// is its only consumer.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker validates whether a request's client IP belongs to the
// configured trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates an IPChecker for a subnet in CIDR notation. An empty
// subnet string produces a disabled checker: IsTrustedSubnetEmpty
// reports true and Check rejects everything.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}
	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("parsing trusted subnet: %w", err)
	}

	return &IPChecker{trustedSubnet: allowedNet}, nil
}

// IsTrustedSubnetEmpty reports whether the checker was configured
// without a subnet.
func (c *IPChecker) IsTrustedSubnetEmpty() bool {
	return c.trustedSubnet == nil
}

// ClientIP extracts the client address, preferring X-Real-IP over the
// connection's remote address.
func ClientIP(request *http.Request) string {
	if realIP := strings.TrimSpace(request.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}

	return host
}

// Check reports whether the given address is inside the trusted
// subnet. A disabled checker trusts no one.
func (c *IPChecker) Check(address string) bool {
	if c.trustedSubnet == nil {
		return false
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return false
	}

	return c.trustedSubnet.Contains(ip)
}
