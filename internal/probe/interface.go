package probe

import (
	"context"
	"time"

	"github.com/AdamRewst/Get-AddressInfo/internal/addr"
)

// Pinger is an interface for ICMP echo operations
type Pinger interface {
	// Ping sends a single ICMP echo request and returns the latency in
	// milliseconds. Returns nil if the echo times out, fails, or the context
	// is cancelled.
	Ping(ctx context.Context, ipAddr string, timeout time.Duration) *float64

	// Close cleans up resources
	Close() error
}

// Tracer is an interface for route trace operations
type Tracer interface {
	// TraceHops performs a route trace towards ipAddr and returns the number
	// of intermediate hops recorded before the destination answered.
	TraceHops(ctx context.Context, ipAddr string, timeout time.Duration) (int, error)

	// Close cleans up resources
	Close() error
}

// Factory creates Pinger and Tracer instances
type Factory interface {
	// CreatePinger creates a new Pinger for the specified IP version
	CreatePinger(ipVersion addr.IPVersion) (Pinger, error)

	// CreateTracer creates a new Tracer for the specified IP version
	CreateTracer(ipVersion addr.IPVersion) (Tracer, error)
}

// defaultFactory is the production implementation
type defaultFactory struct{}

// NewDefaultFactory creates a factory backed by real ICMP sockets
func NewDefaultFactory() Factory {
	return &defaultFactory{}
}

// CreatePinger creates a socket-backed pinger
func (f *defaultFactory) CreatePinger(ipVersion addr.IPVersion) (Pinger, error) {
	return newSocketPinger(ipVersion)
}

// CreateTracer creates a socket-backed tracer
func (f *defaultFactory) CreateTracer(ipVersion addr.IPVersion) (Tracer, error) {
	return newSocketTracer(ipVersion)
}

// Ensure the socket implementations satisfy the interfaces
var (
	_ Pinger = (*socketPinger)(nil)
	_ Tracer = (*socketTracer)(nil)
)
