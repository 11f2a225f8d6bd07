package udp

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"unilink/internal/flog"
	"unilink/internal/link"
	"unilink/internal/pool"
	"unilink/internal/syncx"
)

// Listener owns one bound UDP socket and the accept-demux task that
// serializes recv_from on it, demultiplexing datagrams to per-peer
// Unconnected links by source address. Grounded on
// Dragon-Born-paqet's internal/tnet/udp/demux.go and listen.go, with the
// sync.Map/channel-based demux there replaced by the weak-pointer table
// of table.go so the listener never extends a link's lifetime.
type Listener struct {
	ep          *link.EndPoint
	registryKey string
	boundAddr   *net.UDPAddr

	socket *socketHandle
	table  *linkTable
	pool   *pool.Pool
	sink   *link.NewLinkSink
	cfg    Config

	mgr *Manager

	active atomic.Bool
	stop   *syncx.StopSignal
	done   chan struct{}

	mu      sync.Mutex
	taskErr error
}

func newListener(ep *link.EndPoint, cfg Config, sink *link.NewLinkSink, mgr *Manager) (*Listener, error) {
	cfg = cfg.withDefaults()
	loc := ep.Locator()

	addr, err := net.ResolveUDPAddr("udp", loc.HostPort())
	if err != nil {
		return nil, link.NewError(link.AddrResolve, "udp.NewListener", err)
	}

	pconn, err := listenUDP(context.Background(), addr)
	if err != nil {
		return nil, link.NewError(link.Bind, "udp.NewListener", err)
	}

	localAddr, ok := pconn.LocalAddr().(*net.UDPAddr)
	if !ok {
		pconn.Close()
		return nil, link.NewError(link.Bind, "udp.NewListener", net.InvalidAddrError("unexpected local address type"))
	}
	ep.Rebind(loc.WithAddr(localAddr))

	l := &Listener{
		ep:          ep,
		registryKey: localAddr.String(),
		boundAddr:   localAddr,
		socket:      &socketHandle{conn: pconn},
		table:       newLinkTable(),
		pool:        pool.New(MaxMTU, cfg.PoolCeiling),
		sink:        sink,
		cfg:         cfg,
		mgr:         mgr,
		stop:        syncx.NewStopSignal(),
		done:        make(chan struct{}),
	}
	l.active.Store(true)

	flog.Debugf("udp listener bound to %s", localAddr)
	go l.acceptLoop()
	return l, nil
}

func (l *Listener) localAddr() *net.UDPAddr {
	return l.boundAddr
}

var errStopped = errors.New("udp listener: stop signal tripped")

// acceptLoop is the accept-demux task of spec.md section 4.4. On every
// exit path it closes the listener's socket and removes itself from the
// manager's registry under write-lock, matching the "task termination"
// design point.
func (l *Listener) acceptLoop() {
	defer func() {
		l.socket.close()
		l.mgr.removeListener(l.registryKey)
		close(l.done)
	}()

	// ctx is cancelled by the stop signal, so a Take blocked on an unread
	// buffer does not hold up DelListener.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-l.stop.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	for l.active.Load() {
		buf, err := l.pool.Take(ctx)
		if err != nil {
			return
		}

		n, peer, err := l.recvWithStop(buf.Data)
		if err != nil {
			buf.Recycle()
			if errors.Is(err, errStopped) {
				return
			}
			l.setTaskErr(err)
			flog.Warnf("udp listener %s: recv error: %v", l.registryKey, err)
			time.Sleep(l.cfg.AcceptThrottle)
			continue
		}
		buf.Len = n

		udpPeer, ok := peer.(*net.UDPAddr)
		if !ok {
			buf.Recycle()
			continue
		}

		l.deliver(buf, udpPeer)
	}
}

// recvWithStop races a single recv_from against the listener's stop
// signal by polling with a bounded read deadline — the same graceful
// shutdown idiom as Dragon-Born-paqet's internal/socket.PacketConn.
// ReadFrom (poll-timeout retried, context checked between attempts),
// adapted so the "context" here is the edge-triggered StopSignal rather
// than a cancellable context.
func (l *Listener) recvWithStop(buf []byte) (int, net.Addr, error) {
	conn, ok := l.socket.upgrade()
	if !ok {
		return 0, nil, errStopped
	}
	for {
		select {
		case <-l.stop.Done():
			return 0, nil, errStopped
		default:
		}

		conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return 0, nil, err
		}
		return n, addr, nil
	}
}

// deliver routes one datagram to its link, creating and publishing a
// new Unconnected link on first sighting of its peer. The new link is
// forwarded to new_link_sink before its initial payload is placed in the
// rendezvous, so the very first datagram from a peer is never lost.
func (l *Listener) deliver(buf *pool.Buffer, peer *net.UDPAddr) {
	key := tableKey{src: l.registryKey, dst: peer.String()}

	if existing, ok := l.table.lookup(key); ok {
		existing.rendez.Put(buf)
		return
	}

	metadata := l.ep.Locator().Metadata
	newLink := &Link{
		kind:    unconnectedVariant,
		srcAddr: l.localAddr(),
		dstAddr: peer,
		srcLoc:  addrLocator(l.localAddr(), metadata),
		dstLoc:  addrLocator(peer, metadata),
		mtu:     clampMTU(l.cfg.MTU),
		socket:  l.socket,
		table:   l.table,
		key:     key,
		rendez:  syncx.NewRendezvous[*pool.Buffer](),
	}

	l.table.insert(key, newLink)

	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.SinkTimeout)
	l.sink.Send(ctx, newLink)
	cancel()

	newLink.rendez.Put(buf)
}

func (l *Listener) setTaskErr(err error) {
	l.mu.Lock()
	l.taskErr = err
	l.mu.Unlock()
}

func (l *Listener) exitErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.taskErr
}

// requestStop implements a cooperative teardown of the listener from the
// inside: it is what Manager.DelListener calls after removing the
// listener from the registry.
func (l *Listener) requestStop() {
	l.active.Store(false)
	l.stop.Trigger()
}
