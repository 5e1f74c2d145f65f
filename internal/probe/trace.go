package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"

	"github.com/AdamRewst/Get-AddressInfo/internal/addr"
)

// maxTTL bounds a route trace; beyond this the trace is considered failed
const maxTTL = 30

// socketTracer performs TTL-stepping route traces over a raw ICMP socket
type socketTracer struct {
	conn      *icmp.PacketConn
	network   string
	raw       bool
	ipVersion addr.IPVersion
	id        int
}

// newSocketTracer creates a tracer with its own ICMP socket
func newSocketTracer(ipVersion addr.IPVersion) (*socketTracer, error) {
	conn, network, err := listenICMP(ipVersion)
	if err != nil {
		return nil, err
	}
	return &socketTracer{
		conn:      conn,
		network:   network,
		raw:       isRawNetwork(network),
		ipVersion: ipVersion,
		id:        nextProbeID(),
	}, nil
}

// setTTL applies the hop limit for the next outgoing probe
func (t *socketTracer) setTTL(ttl int) error {
	if t.ipVersion.IsIPv6() {
		return t.conn.IPv6PacketConn().SetHopLimit(ttl)
	}
	return t.conn.IPv4PacketConn().SetTTL(ttl)
}

// TraceHops implements the Tracer interface. It sends echo requests with
// increasing TTL and counts intermediate hops until the destination replies.
// Silent hops are counted: a router that drops TTL-expired notices still
// occupies a position on the route.
func (t *socketTracer) TraceHops(ctx context.Context, ipAddr string, timeout time.Duration) (int, error) {
	dst, err := resolveDestination(t.network, ipAddr)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %w", ipAddr, err)
	}

	hops := 0
	for ttl := 1; ttl <= maxTTL; ttl++ {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		if err := t.setTTL(ttl); err != nil {
			return 0, fmt.Errorf("failed to set TTL %d: %w", ttl, err)
		}

		msg := echoRequest(t.ipVersion, t.id, ttl)
		msgBytes, err := msg.Marshal(nil)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal echo request: %w", err)
		}
		if _, err := t.conn.WriteTo(msgBytes, dst); err != nil {
			return 0, fmt.Errorf("failed to send probe (ttl %d): %w", ttl, err)
		}

		reached, responder, err := t.awaitResponse(ctx, ipAddr, ttl, timeout)
		if err != nil {
			return 0, err
		}
		if reached {
			log.Debugf("Trace to %s complete: %d intermediate hops", ipAddr, hops)
			return hops, nil
		}

		hops++
		if responder != "" {
			log.Debugf("Trace to %s: hop %d is %s", ipAddr, hops, responder)
		} else {
			log.Debugf("Trace to %s: hop %d did not respond", ipAddr, hops)
		}
	}

	return 0, fmt.Errorf("trace to %s did not complete within %d hops", ipAddr, maxTTL)
}

// awaitResponse waits for the response to the TTL probe identified by the
// tracer's echo ID and the TTL used as sequence number. It returns
// reached=true when the destination itself replied, otherwise the responding
// intermediate router's address ("" when the probe timed out). A raw socket
// delivers every inbound ICMP message, including replies to a concurrent
// latency measurement against the same target, so replies that do not carry
// this probe's ID and sequence number are skipped.
func (t *socketTracer) awaitResponse(ctx context.Context, ipAddr string, ttl int, timeout time.Duration) (bool, string, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = t.conn.SetReadDeadline(deadline)

	reply := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return false, "", ctx.Err()
		}

		n, peer, err := t.conn.ReadFrom(reply)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return false, "", nil // silent hop
			}
			return false, "", fmt.Errorf("trace read failed: %w", err)
		}

		parsed, err := icmp.ParseMessage(replyProtocol(t.ipVersion), reply[:n])
		if err != nil {
			continue
		}

		peerIP := peerIPOf(peer)
		switch {
		case isEchoReply(t.ipVersion, parsed):
			if !echoReplyMatches(t.raw, t.id, ttl, parsed) {
				continue
			}
			if peerIP != nil && peerIP.String() == ipAddr {
				return true, "", nil
			}
		case isTimeExceeded(t.ipVersion, parsed):
			if te, ok := parsed.Body.(*icmp.TimeExceeded); ok && !quotedProbeMatches(t.ipVersion, t.id, ttl, te.Data) {
				continue
			}
			if peerIP != nil {
				return false, peerIP.String(), nil
			}
			return false, "", nil
		}
		// Unrelated traffic on the shared socket; keep reading.
	}
}

// Close implements the Tracer interface
func (t *socketTracer) Close() error {
	return t.conn.Close()
}
