package probe

import (
	"net"
	"os"
	"strings"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/AdamRewst/Get-AddressInfo/internal/addr"
)

// ICMP protocol numbers for parsing replies
const (
	protocolICMP   = 1
	protocolICMPv6 = 58
)

// echoPayload identifies our probes in echo request bodies
var echoPayload = []byte("addressinfo")

// probeIDs hands out distinct echo IDs so concurrent probes cannot claim
// each other's replies on raw sockets, which receive every inbound ICMP
// message on the host.
var probeIDs atomic.Int32

func nextProbeID() int {
	return (os.Getpid() + int(probeIDs.Add(1))) & 0xffff
}

// isRawNetwork reports whether network names a raw socket rather than an
// unprivileged datagram socket.
func isRawNetwork(network string) bool {
	return !strings.HasPrefix(network, "udp")
}

// listenICMP creates an ICMP connection for the given IP version, attempting a
// raw socket first (requires CAP_NET_RAW but sees TimeExceeded messages), then
// falling back to an unprivileged datagram socket.
func listenICMP(ipVersion addr.IPVersion) (*icmp.PacketConn, string, error) {
	var rawNetwork, dgramNetwork, listenAddr string
	if ipVersion.IsIPv6() {
		rawNetwork, dgramNetwork, listenAddr = "ip6:ipv6-icmp", "udp6", "::"
	} else {
		rawNetwork, dgramNetwork, listenAddr = "ip4:icmp", "udp4", "0.0.0.0"
	}

	if c, err := icmp.ListenPacket(rawNetwork, listenAddr); err == nil {
		log.Debugf("Created raw ICMP socket (%s)", rawNetwork)
		return c, rawNetwork, nil
	}

	c, err := icmp.ListenPacket(dgramNetwork, listenAddr)
	if err != nil {
		log.Errorf("Failed to create ICMP socket: %v", err)
		return nil, "", err
	}
	log.Debugf("Created unprivileged ICMP datagram socket (%s)", dgramNetwork)
	return c, dgramNetwork, nil
}

// resolveDestination builds the destination address for the socket type in use
func resolveDestination(network, ipAddr string) (net.Addr, error) {
	ip := net.ParseIP(ipAddr)
	switch network {
	case "udp4", "udp6":
		return &net.UDPAddr{IP: ip}, nil
	default:
		return &net.IPAddr{IP: ip}, nil
	}
}

// echoRequest builds an echo request message for the given IP version
func echoRequest(ipVersion addr.IPVersion, id, seq int) icmp.Message {
	echoType := icmp.Type(ipv4.ICMPTypeEcho)
	if ipVersion.IsIPv6() {
		echoType = ipv6.ICMPTypeEchoRequest
	}
	return icmp.Message{
		Type: echoType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   id, // kernel rewrites this on SOCK_DGRAM sockets
			Seq:  seq,
			Data: echoPayload,
		},
	}
}

// replyProtocol returns the protocol number used to parse incoming messages
func replyProtocol(ipVersion addr.IPVersion) int {
	if ipVersion.IsIPv6() {
		return protocolICMPv6
	}
	return protocolICMP
}

// isEchoReply reports whether msg is an echo reply for the given IP version
func isEchoReply(ipVersion addr.IPVersion, msg *icmp.Message) bool {
	if ipVersion.IsIPv6() {
		return msg.Type == ipv6.ICMPTypeEchoReply
	}
	return msg.Type == ipv4.ICMPTypeEchoReply
}

// isTimeExceeded reports whether msg is a TTL-expired notice for the given IP version
func isTimeExceeded(ipVersion addr.IPVersion, msg *icmp.Message) bool {
	if ipVersion.IsIPv6() {
		return msg.Type == ipv6.ICMPTypeTimeExceeded
	}
	return msg.Type == ipv4.ICMPTypeTimeExceeded
}

// echoReplyMatches reports whether an echo reply belongs to the probe
// identified by id and seq. Datagram sockets get a kernel-assigned ID that
// overwrites ours, so the ID is only checked on raw sockets; the sequence
// number survives both socket types.
func echoReplyMatches(raw bool, id, seq int, msg *icmp.Message) bool {
	echo, ok := msg.Body.(*icmp.Echo)
	if !ok {
		return false
	}
	if raw && echo.ID != id {
		return false
	}
	return echo.Seq == seq
}

// quotedProbeMatches reports whether the probe quoted inside a TimeExceeded
// notice carries the given echo ID and sequence number. Routers are not
// required to quote the full probe, so truncated or unparseable quotes are
// accepted.
func quotedProbeMatches(ipVersion addr.IPVersion, id, seq int, data []byte) bool {
	payload := data
	if ipVersion.IsIPv6() {
		if len(payload) < ipv6.HeaderLen {
			return true
		}
		payload = payload[ipv6.HeaderLen:]
	} else {
		if len(payload) < ipv4.HeaderLen {
			return true
		}
		headerLen := int(payload[0]&0x0f) * 4
		if headerLen < ipv4.HeaderLen || len(payload) < headerLen {
			return true
		}
		payload = payload[headerLen:]
	}

	inner, err := icmp.ParseMessage(replyProtocol(ipVersion), payload)
	if err != nil {
		return true
	}
	echo, ok := inner.Body.(*icmp.Echo)
	if !ok {
		return true
	}
	return echo.ID == id && echo.Seq == seq
}

// peerIPOf extracts the sender IP from a ReadFrom peer address
func peerIPOf(peer net.Addr) net.IP {
	switch a := peer.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	default:
		return nil
	}
}
