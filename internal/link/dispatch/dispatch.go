// Package dispatch is the link-layer dispatch façade of spec.md section
// 4.6: it selects the per-protocol Manager for a locator's scheme, and
// answers scheme-level questions (multicast-ness, per-scheme config)
// without knowing any transport's wire details beyond UDP, the one
// fully implemented here.
package dispatch

import (
	"net"

	"unilink/internal/link"
	"unilink/internal/link/udp"
)

// builder constructs a link.Manager for one scheme, or reports it
// unsupported.
type builder func(sink *link.NewLinkSink, cfg udp.Config) (link.Manager, error)

// registry lists every scheme the façade knows about. "udp" is backed
// by a real Manager; the rest are stub registrations that prove the
// registry is open for a sibling link without adopting its transport
// library — see SPEC_FULL.md section 3 for why quic/tls/tcp/
// unixsock-stream stop here.
var registry = map[string]builder{
	"udp": func(sink *link.NewLinkSink, cfg udp.Config) (link.Manager, error) {
		return udp.NewManager(sink, cfg), nil
	},
	// quic: a future LinkManager would wrap *quic.Conn/*quic.Stream the
	// way Dragon-Born-paqet's internal/tnet/quic wraps them with
	// OpenStrm/AcceptStrm; out of scope here, see spec.md section 1.
	"quic":            unsupported("quic"),
	"tls":             unsupported("tls"),
	"tcp":             unsupported("tcp"),
	"unixsock-stream": unsupported("unixsock-stream"),
}

func unsupported(scheme string) builder {
	return func(_ *link.NewLinkSink, _ udp.Config) (link.Manager, error) {
		return nil, link.NewError(link.Unsupported, "dispatch.Make", &schemeError{scheme})
	}
}

type schemeError struct{ scheme string }

func (e *schemeError) Error() string { return "scheme not supported: " + e.scheme }

// LinkManagerBuilderUnicast constructs a link.Manager for scheme, or
// returns an Unsupported *link.Error if the scheme is unregistered or
// its manager is a stub.
func LinkManagerBuilderUnicast(sink *link.NewLinkSink, scheme string, cfg udp.Config) (link.Manager, error) {
	b, ok := registry[scheme]
	if !ok {
		return nil, link.NewError(link.Unsupported, "dispatch.Make", &schemeError{scheme})
	}
	return b(sink, cfg)
}

// LocatorInspectorIsMulticast answers whether locator's address falls
// in its scheme's multicast range. UDP and TCP classify by address;
// unixsock-stream has no network address and is never multicast;
// unknown schemes fail.
func LocatorInspectorIsMulticast(loc link.Locator) (bool, error) {
	switch loc.Scheme {
	case "udp", "tcp", "quic", "tls":
		ip := net.ParseIP(loc.Host)
		if ip == nil {
			return false, link.NewError(link.AddrResolve, "dispatch.IsMulticast", net.InvalidAddrError(loc.Host))
		}
		return ip.IsMulticast(), nil
	case "unixsock-stream":
		return false, nil
	default:
		return false, link.NewError(link.Unsupported, "dispatch.IsMulticast", &schemeError{loc.Scheme})
	}
}

// LinkConfigurations collects the per-scheme configuration blob for
// scheme out of cfg. For UDP it returns cfg unchanged; other registered
// schemes yield nil. This exists to pin the façade contract spec.md
// section 4.6 names (LinkConfigurator.configurations).
func LinkConfigurations(scheme string, cfg udp.Config) (any, error) {
	switch scheme {
	case "udp":
		return cfg, nil
	default:
		if _, ok := registry[scheme]; !ok {
			return nil, link.NewError(link.Unsupported, "dispatch.Configurations", &schemeError{scheme})
		}
		return nil, nil
	}
}
