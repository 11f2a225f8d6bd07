package udp

import (
	"net"

	"unilink/internal/link"
)

// dial implements Manager.NewLink: resolve the endpoint, bind a fresh
// socket to the wildcard address matching the destination's family,
// connect it, and read back the OS-assigned src/dst pair. Grounded on
// Dragon-Born-paqet's internal/tnet/udp/dial.go, minus the smux session
// and cipher it layers on top (out of scope here — see SPEC_FULL.md).
func dial(ep *link.EndPoint, cfg Config) (*Link, error) {
	loc := ep.Locator()

	dstAddr, err := net.ResolveUDPAddr("udp", loc.HostPort())
	if err != nil {
		return nil, link.NewError(link.AddrResolve, "udp.NewLink", err)
	}

	var localAddr *net.UDPAddr
	if dstAddr.IP.To4() != nil {
		localAddr = &net.UDPAddr{IP: net.IPv4zero, Port: 0}
	} else {
		localAddr = &net.UDPAddr{IP: net.IPv6unspecified, Port: 0}
	}

	conn, err := net.DialUDP("udp", localAddr, dstAddr)
	if err != nil {
		return nil, link.NewError(link.Connect, "udp.NewLink", err)
	}

	srcAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		conn.Close()
		return nil, link.NewError(link.Connect, "udp.NewLink", net.InvalidAddrError("unexpected local address type"))
	}
	resolvedDst, ok := conn.RemoteAddr().(*net.UDPAddr)
	if !ok {
		conn.Close()
		return nil, link.NewError(link.Connect, "udp.NewLink", net.InvalidAddrError("unexpected remote address type"))
	}

	return &Link{
		kind:    connectedVariant,
		conn:    conn,
		srcAddr: srcAddr,
		dstAddr: resolvedDst,
		srcLoc:  addrLocator(srcAddr, nil),
		dstLoc:  addrLocator(resolvedDst, loc.Metadata),
		mtu:     clampMTU(cfg.MTU),
	}, nil
}
