// Package probe implements the active network measurements of the enrichment
// pipeline: ICMP echo latency and TTL-stepping route traces.
package probe

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/VividCortex/ewma"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"

	"github.com/AdamRewst/Get-AddressInfo/internal/addr"
)

// DefaultEchoCount is the number of echo requests per latency measurement
const DefaultEchoCount = 10

// Measure sends count echo requests to address through p and returns the
// arithmetic mean of the successful round-trip times in milliseconds.
// Individual echo failures are excluded from the mean; ok is false only when
// every echo failed or the context was cancelled before any succeeded.
func Measure(ctx context.Context, p Pinger, address string, count int, timeout time.Duration) (float64, bool) {
	if count <= 0 {
		count = DefaultEchoCount
	}

	var sum float64
	var successes int
	smoothed := ewma.NewMovingAverage()

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		latency := p.Ping(ctx, address, timeout)
		if latency == nil {
			log.Debugf("Echo %d/%d to %s failed", i+1, count, address)
			continue
		}
		sum += *latency
		successes++
		smoothed.Add(*latency)
	}

	if successes == 0 {
		log.Warnf("All %d echoes to %s failed", count, address)
		return 0, false
	}

	avg := sum / float64(successes)
	log.Debugf(
		"Latency for %s: %.2fms mean, %.2fms smoothed (%d/%d echoes succeeded)",
		address, avg, smoothed.Value(), successes, count,
	)
	return avg, true
}

// socketPinger sends echo requests over a single ICMP socket
type socketPinger struct {
	conn      *icmp.PacketConn
	network   string
	raw       bool
	ipVersion addr.IPVersion
	id        int
	seq       atomic.Int32
}

// newSocketPinger creates a pinger with its own ICMP socket
func newSocketPinger(ipVersion addr.IPVersion) (*socketPinger, error) {
	conn, network, err := listenICMP(ipVersion)
	if err != nil {
		return nil, err
	}
	return &socketPinger{
		conn:      conn,
		network:   network,
		raw:       isRawNetwork(network),
		ipVersion: ipVersion,
		id:        nextProbeID(),
	}, nil
}

// Ping implements the Pinger interface
func (p *socketPinger) Ping(ctx context.Context, ipAddr string, timeout time.Duration) *float64 {
	if ctx.Err() != nil {
		return nil
	}

	seq := int(p.seq.Add(1)) & 0xffff
	msg := echoRequest(p.ipVersion, p.id, seq)
	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return nil
	}

	dst, err := resolveDestination(p.network, ipAddr)
	if err != nil {
		return nil
	}

	start := time.Now()
	if _, err := p.conn.WriteTo(msgBytes, dst); err != nil {
		return nil
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = p.conn.SetReadDeadline(deadline)

	// Replies from intermediate routers or other probes may arrive on the same
	// socket; keep reading until a matching echo reply or the deadline.
	reply := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, peer, err := p.conn.ReadFrom(reply)
		if err != nil {
			return nil // timeout or socket error
		}

		parsed, err := icmp.ParseMessage(replyProtocol(p.ipVersion), reply[:n])
		if err != nil {
			continue
		}
		if !isEchoReply(p.ipVersion, parsed) {
			continue
		}
		if !echoReplyMatches(p.raw, p.id, seq, parsed) {
			continue
		}
		if peerIP := peerIPOf(peer); peerIP == nil || peerIP.String() != ipAddr {
			continue
		}

		latencyMs := float64(time.Since(start).Microseconds()) / 1000.0
		return &latencyMs
	}
}

// Close implements the Pinger interface
func (p *socketPinger) Close() error {
	return p.conn.Close()
}
