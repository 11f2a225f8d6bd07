// Package udp implements the unicast UDP link subsystem of spec.md: a
// Connected variant (initiator side, exclusive socket ownership) and an
// Unconnected variant (acceptor side, shared socket + per-peer
// rendezvous), the accept-demux task that demultiplexes a single bound
// socket across many Unconnected links, and the manager that ties
// listeners and outgoing dials together.
//
// Grounded throughout on Dragon-Born-paqet's internal/tnet/udp package
// (demux.go, listen.go, dial.go, adapter.go), which solves the same
// shared-socket-demux problem for a stream-multiplexed tunnel; this
// package strips the smux/cipher framing that spec.md places out of
// scope and keeps the socket lifetime and demux idioms.
package udp

import (
	"context"
	"net"
	"sync"

	"unilink/internal/link"
	"unilink/internal/pool"
	"unilink/internal/syncx"
)

type variant int

const (
	connectedVariant variant = iota
	unconnectedVariant
)

// socketHandle is the listener-owned UDP socket shared by every
// Unconnected link derived from it. It gives those links a manual,
// deterministic non-owning reference: closed is set exactly once, by
// the listener, and every Write from an Unconnected link checks it
// first. This is preferred here over the runtime's GC-backed weak
// pointers (used for the link table below) because spec.md's
// ListenerGone behavior must be observable immediately after
// del_listener returns, not after some future GC cycle.
type socketHandle struct {
	mu     sync.RWMutex
	conn   net.PacketConn
	closed bool
}

func (h *socketHandle) upgrade() (net.PacketConn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, false
	}
	return h.conn, true
}

func (h *socketHandle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.conn.Close()
}

// Link is the concrete unicast UDP link, in either variant. It
// implements unilink/internal/link.Link.
type Link struct {
	srcAddr *net.UDPAddr
	dstAddr *net.UDPAddr
	srcLoc  link.Locator
	dstLoc  link.Locator
	mtu     int
	kind    variant

	// Connected
	conn *net.UDPConn

	// Unconnected
	socket *socketHandle
	table  *linkTable
	key    tableKey
	rendez *syncx.Rendezvous[*pool.Buffer]

	leftoverMu sync.Mutex
	leftover   *pool.Buffer
	leftoverAt int
}

var _ link.Link = (*Link)(nil)

func addrLocator(addr *net.UDPAddr, metadata map[string]string) link.Locator {
	return link.Locator{Scheme: "udp", Host: addr.IP.String(), Port: uint16(addr.Port), Metadata: metadata}
}

func (l *Link) Src() link.Locator { return l.srcLoc }
func (l *Link) Dst() link.Locator { return l.dstLoc }
func (l *Link) MTU() int          { return l.mtu }
func (l *Link) IsReliable() bool  { return false }
func (l *Link) IsStreamed() bool  { return false }

// Write transmits up to one datagram. The Unconnected path always uses
// WriteTo rather than connecting the shared socket, so that it never
// disturbs the other virtual links sharing it — carried over from
// zenoh-link-udp's unicast.rs (see SPEC_FULL.md section 4).
func (l *Link) Write(b []byte) (int, error) {
	switch l.kind {
	case connectedVariant:
		n, err := l.conn.Write(b)
		if err != nil {
			return n, link.NewError(link.Io, "udp.Link.Write", err)
		}
		return n, nil
	default:
		conn, ok := l.socket.upgrade()
		if !ok {
			return 0, link.NewError(link.ListenerGone, "udp.Link.Write", nil)
		}
		n, err := conn.WriteTo(b, l.dstAddr)
		if err != nil {
			return n, link.NewError(link.Io, "udp.Link.Write", err)
		}
		return n, nil
	}
}

// WriteAll loops Write until b is drained. UDP normally drains in one
// call; the loop exists only for the uniform Link contract.
func (l *Link) WriteAll(b []byte) error {
	for len(b) > 0 {
		n, err := l.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		b = b[n:]
	}
	return nil
}

// Read copies from the current datagram into b. Connected links receive
// directly off the owned socket; Unconnected links drain a leftover
// cursor first, then block on the per-peer rendezvous.
func (l *Link) Read(b []byte) (int, error) {
	switch l.kind {
	case connectedVariant:
		n, err := l.conn.Read(b)
		if err != nil {
			return n, link.NewError(link.Io, "udp.Link.Read", err)
		}
		return n, nil
	default:
		return l.readUnconnected(b)
	}
}

func (l *Link) readUnconnected(b []byte) (int, error) {
	l.leftoverMu.Lock()
	if l.leftover != nil {
		n := copy(b, l.leftover.Data[l.leftoverAt:l.leftover.Len])
		l.leftoverAt += n
		drained := l.leftoverAt >= l.leftover.Len
		var buf *pool.Buffer
		if drained {
			buf = l.leftover
			l.leftover = nil
			l.leftoverAt = 0
		}
		l.leftoverMu.Unlock()
		if drained {
			buf.Recycle()
		}
		return n, nil
	}
	l.leftoverMu.Unlock()

	buf, err := l.rendez.Take(context.Background())
	if err != nil {
		return 0, link.NewError(link.Io, "udp.Link.Read", err)
	}
	n := copy(b, buf.Data[:buf.Len])
	if n < buf.Len {
		l.leftoverMu.Lock()
		l.leftover = buf
		l.leftoverAt = n
		l.leftoverMu.Unlock()
	} else {
		buf.Recycle()
	}
	return n, nil
}

// ReadExact loops Read until b is completely filled.
func (l *Link) ReadExact(b []byte) error {
	total := 0
	for total < len(b) {
		n, err := l.Read(b[total:])
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

// Close, for a Connected link, closes the owned socket — Go has no
// implicit drop, so unlike the Rust original this is the only place the
// socket is released. For an Unconnected link it only removes the
// (src,dst) entry from the listener's table; the shared socket is
// untouched. Any undrained leftover buffer is recycled here so a link
// destroyed mid-read never leaks a pooled buffer (spec.md section 9,
// open question 3).
func (l *Link) Close() error {
	switch l.kind {
	case connectedVariant:
		if err := l.conn.Close(); err != nil {
			return link.NewError(link.Io, "udp.Link.Close", err)
		}
		return nil
	default:
		l.table.remove(l.key)
		l.leftoverMu.Lock()
		buf := l.leftover
		l.leftover = nil
		l.leftoverMu.Unlock()
		if buf != nil {
			buf.Recycle()
		}
		return nil
	}
}
