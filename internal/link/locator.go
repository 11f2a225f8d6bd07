package link

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Locator is a scheme-tagged network address: "<scheme>/<host>:<port>
// [?<metadata>]", per spec.md section 6. Host may be an IPv4 dotted
// quad or a bracketed/unbracketed IPv6 literal; metadata is an
// ampersand-separated set of key=value pairs, order-insensitive.
type Locator struct {
	Scheme   string
	Host     string
	Port     uint16
	Metadata map[string]string
}

// ParseLocator parses the grammar above. Resolution of Host to a socket
// address is left to callers (it is transport-specific and may involve
// DNS), so ParseLocator never fails on an unresolvable-but-well-formed
// host. Port 0 is accepted, so a listener can bind an OS-assigned port.
func ParseLocator(s string) (Locator, error) {
	sep := strings.IndexByte(s, '/')
	if sep < 0 {
		return Locator{}, fmt.Errorf("locator %q: missing scheme separator '/'", s)
	}
	scheme := s[:sep]
	if scheme == "" {
		return Locator{}, fmt.Errorf("locator %q: empty scheme", s)
	}
	rest := s[sep+1:]

	var metaRaw string
	if qi := strings.IndexByte(rest, '?'); qi >= 0 {
		metaRaw = rest[qi+1:]
		rest = rest[:qi]
	}

	host, portStr, err := net.SplitHostPort(rest)
	if err != nil && !strings.Contains(rest, "[") {
		// Unbracketed IPv6 literal: the port follows the last colon.
		if i := strings.LastIndexByte(rest, ':'); i > 0 && net.ParseIP(rest[:i]) != nil {
			host, portStr, err = rest[:i], rest[i+1:], nil
		}
	}
	if err != nil {
		return Locator{}, fmt.Errorf("locator %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Locator{}, fmt.Errorf("locator %q: invalid port %q", s, portStr)
	}

	md, err := parseMetadata(metaRaw)
	if err != nil {
		return Locator{}, fmt.Errorf("locator %q: %w", s, err)
	}

	return Locator{Scheme: scheme, Host: host, Port: uint16(port), Metadata: md}, nil
}

func parseMetadata(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata %q: %w", raw, err)
	}
	md := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			md[k] = v[0]
		}
	}
	return md, nil
}

// String reconstructs the canonical locator form. Metadata keys are
// emitted sorted so String is stable for equality comparisons in tests.
func (l Locator) String() string {
	var b strings.Builder
	b.WriteString(l.Scheme)
	b.WriteByte('/')
	b.WriteString(net.JoinHostPort(l.Host, strconv.Itoa(int(l.Port))))
	if len(l.Metadata) > 0 {
		keys := make([]string, 0, len(l.Metadata))
		for k := range l.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('?')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(l.Metadata[k]))
		}
	}
	return b.String()
}

// HostPort returns "host:port" suitable for net.ResolveUDPAddr and
// friends.
func (l Locator) HostPort() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(int(l.Port)))
}

// WithAddr returns a copy of l with Host/Port replaced by addr, and the
// same metadata — used by new_listener to surface a wildcard bind's
// concrete resolved address.
func (l Locator) WithAddr(addr *net.UDPAddr) Locator {
	out := l
	out.Host = addr.IP.String()
	out.Port = uint16(addr.Port)
	return out
}
