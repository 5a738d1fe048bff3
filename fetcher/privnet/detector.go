// Package privnet reports whether a host resolves into a private network.
package privnet

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

var defaultPrivateCIDRs = []string{
	// Loopback
	"127.0.0.0/8",
	"::1/128",
	// Private networks (see RFC1918)
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	// Link-local addresses
	"169.254.0.0/16",
	"fe80::/10",
	// Misc
	"0.0.0.0/8",          // All IP addresses on local machine
	"255.255.255.255/32", // Broadcast address for current network
	"fc00::/7",           // IPv6 unique local addr
}

// Resolver looks up the addresses of a host.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Detector classifies hosts against a set of private CIDR blocks.
type Detector struct {
	resolver   Resolver
	privBlocks []netip.Prefix
}

// NewDetector returns a detector for the loopback, RFC1918, link-local and
// unique-local ranges.
func NewDetector() (*Detector, error) {
	return NewDetectorFromCIDRs(defaultPrivateCIDRs...)
}

// NewDetectorFromCIDRs returns a detector that treats the given blocks as
// private.
func NewDetectorFromCIDRs(privateNetworkCIDRs ...string) (*Detector, error) {
	blocks := make([]netip.Prefix, len(privateNetworkCIDRs))
	for i, cidr := range privateNetworkCIDRs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("parse private CIDR: %w", err)
		}
		blocks[i] = prefix
	}
	return &Detector{resolver: net.DefaultResolver, privBlocks: blocks}, nil
}

// IsPrivate resolves host and reports whether any of its addresses falls
// within a private block. Literal IP addresses are not resolved.
func (d *Detector) IsPrivate(ctx context.Context, host string) (bool, error) {
	var addrs []netip.Addr
	if addr, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{addr}
	} else if addrs, err = d.resolver.LookupNetIP(ctx, "ip", host); err != nil {
		return false, fmt.Errorf("resolve %q: %w", host, err)
	}

	for _, addr := range addrs {
		addr = addr.Unmap()
		for _, block := range d.privBlocks {
			if block.Contains(addr) {
				return true, nil
			}
		}
	}
	return false, nil
}
