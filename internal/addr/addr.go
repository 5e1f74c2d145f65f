// Package addr provides address classification and input parsing for the
// enrichment pipeline.
package addr

import (
	"fmt"
	"net/netip"
	"strings"
)

// IPVersion represents the IP protocol version (IPv4 or IPv6).
type IPVersion int

// IP version constants
const (
	IPv4 IPVersion = iota // IPv4 protocol
	IPv6                  // IPv6 protocol
)

func (v IPVersion) String() string {
	switch v {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return "ipv4"
	}
}

// IsIPv6 returns true if the IP version is IPv6.
func (v IPVersion) IsIPv6() bool {
	return v == IPv6
}

// Reserved ranges an address must not fall into to be probed. The IPv4 set is
// the classic loopback + RFC1918 list; the IPv6 set covers loopback, unique
// local and link-local addresses.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// IsPrivate reports whether address falls into a private or otherwise
// non-routable reserved range. Unparseable input is not private; Parse catches
// it separately.
func IsPrivate(address string) bool {
	ip, err := netip.ParseAddr(address)
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	for _, p := range reservedPrefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// Parse validates a single address literal and returns it in canonical form
// along with its IP version.
func Parse(address string) (string, IPVersion, error) {
	ip, err := netip.ParseAddr(strings.TrimSpace(address))
	if err != nil {
		return "", IPv4, fmt.Errorf("invalid address: %q", address)
	}
	ip = ip.Unmap()
	version := IPv4
	if ip.Is6() {
		version = IPv6
	}
	return ip.String(), version, nil
}

// ParseAddressList expands the CLI address arguments into an ordered list of
// validated address literals. Each argument may itself be a comma-delimited
// list. Order and duplicates are preserved.
func ParseAddressList(args []string) ([]string, error) {
	var addresses []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			parsed, _, err := Parse(part)
			if err != nil {
				return nil, err
			}
			addresses = append(addresses, parsed)
		}
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no addresses given")
	}
	return addresses, nil
}
