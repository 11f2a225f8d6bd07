package udp

import (
	"bytes"
	"runtime"
	"testing"
	"time"

	"unilink/internal/link"
)

func mustEndPoint(t *testing.T, s string) *link.EndPoint {
	t.Helper()
	ep, err := link.NewEndPoint(s)
	if err != nil {
		t.Fatalf("NewEndPoint(%q): %v", s, err)
	}
	return ep
}

func acceptOne(t *testing.T, sink *link.NewLinkSink, timeout time.Duration) link.Link {
	t.Helper()
	select {
	case l := <-sink.Chan():
		return l
	case <-time.After(timeout):
		t.Fatalf("no link published within %v", timeout)
		return nil
	}
}

// S1 — Connected write/read: a client dials a listener, the server side
// observes an Unconnected link whose dst_addr is the client's ephemeral
// src_addr, and the payload round-trips intact.
func TestConnectedWriteReadRoundTrip(t *testing.T) {
	sink := link.NewNewLinkSink(4)
	mgr := NewManager(sink, Config{})

	serverEP := mustEndPoint(t, "udp/127.0.0.1:0")
	boundLoc, err := mgr.NewListener(serverEP)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer mgr.DelListener(serverEP)

	clientEP := mustEndPoint(t, "udp/"+boundLoc.HostPort())
	clientLink, err := mgr.NewLink(clientEP)
	if err != nil {
		t.Fatalf("NewLink: %v", err)
	}
	defer clientLink.Close()

	payload := []byte{0x01, 0x02, 0x03}
	if err := clientLink.WriteAll(payload); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	serverLink := acceptOne(t, sink, time.Second)
	buf := make([]byte, 16)
	n, err := serverLink.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Fatalf("payload = %v, want %v", buf[:n], payload)
	}
	if serverLink.Dst().Port != clientLink.Src().Port {
		t.Fatalf("server link dst port = %d, want client src port %d", serverLink.Dst().Port, clientLink.Src().Port)
	}
}

// S2 — Truncated read: a single datagram drained across multiple
// smaller Read calls via the leftover cursor.
func TestTruncatedReadDrainsLeftover(t *testing.T) {
	sink := link.NewNewLinkSink(4)
	mgr := NewManager(sink, Config{})

	serverEP := mustEndPoint(t, "udp/127.0.0.1:0")
	boundLoc, err := mgr.NewListener(serverEP)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer mgr.DelListener(serverEP)

	clientEP := mustEndPoint(t, "udp/"+boundLoc.HostPort())
	clientLink, err := mgr.NewLink(clientEP)
	if err != nil {
		t.Fatalf("NewLink: %v", err)
	}
	defer clientLink.Close()

	payload := bytes.Repeat([]byte{0xAA}, 10)
	if err := clientLink.WriteAll(payload); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	serverLink := acceptOne(t, sink, time.Second)

	buf4 := make([]byte, 4)
	n, err := serverLink.Read(buf4)
	if err != nil || n != 4 {
		t.Fatalf("first Read: n=%d err=%v, want n=4", n, err)
	}
	if !bytes.Equal(buf4, bytes.Repeat([]byte{0xAA}, 4)) {
		t.Fatalf("first read content mismatch: %v", buf4)
	}

	buf8 := make([]byte, 8)
	n, err = serverLink.Read(buf8)
	if err != nil || n != 6 {
		t.Fatalf("second Read: n=%d err=%v, want n=6", n, err)
	}

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 8)
		serverLink.Read(buf)
		close(done)
	}()
	select {
	case <-done:
		t.Fatalf("third Read should block, it returned instead")
	case <-time.After(100 * time.Millisecond):
	}
}

// S3 — Two peers: distinct clients demux to distinct links, each seeing
// only its own payload.
func TestTwoPeersDemuxToDistinctLinks(t *testing.T) {
	sink := link.NewNewLinkSink(4)
	// Two buffers, so the second peer's datagram can be received while the
	// first one is still unread.
	mgr := NewManager(sink, Config{PoolCeiling: 2})

	serverEP := mustEndPoint(t, "udp/127.0.0.1:0")
	boundLoc, err := mgr.NewListener(serverEP)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer mgr.DelListener(serverEP)

	dial := func() link.Link {
		ep := mustEndPoint(t, "udp/"+boundLoc.HostPort())
		l, err := mgr.NewLink(ep)
		if err != nil {
			t.Fatalf("NewLink: %v", err)
		}
		return l
	}
	p1, p2 := dial(), dial()
	defer p1.Close()
	defer p2.Close()

	if err := p1.WriteAll([]byte("hello")); err != nil {
		t.Fatalf("p1 WriteAll: %v", err)
	}
	if err := p2.WriteAll([]byte("world")); err != nil {
		t.Fatalf("p2 WriteAll: %v", err)
	}

	l1 := acceptOne(t, sink, time.Second)
	l2 := acceptOne(t, sink, time.Second)
	if l1.Dst().Port == l2.Dst().Port {
		t.Fatalf("expected distinct dst ports, got %d == %d", l1.Dst().Port, l2.Dst().Port)
	}

	byPort := map[uint16]link.Link{l1.Dst().Port: l1, l2.Dst().Port: l2}
	want := map[uint16]string{
		p1.Src().Port: "hello",
		p2.Src().Port: "world",
	}
	for port, expect := range want {
		l, ok := byPort[port]
		if !ok {
			t.Fatalf("no server link demuxed for peer port %d", port)
		}
		buf := make([]byte, 16)
		n, err := l.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(buf[:n]) != expect {
			t.Fatalf("got %q, want %q", buf[:n], expect)
		}
	}
}

// S4 — Shutdown: a wildcard bind's get_locators contains a concrete,
// non-loopback, non-multicast address, and del_listener's accept-demux
// task completes within 200ms without external traffic.
func TestListenerTeardownIsPrompt(t *testing.T) {
	sink := link.NewNewLinkSink(4)
	mgr := NewManager(sink, Config{})

	ep := mustEndPoint(t, "udp/0.0.0.0:0")
	if _, err := mgr.NewListener(ep); err != nil {
		t.Fatalf("NewListener: %v", err)
	}

	for _, loc := range mgr.GetLocators() {
		if loc.Host == "0.0.0.0" {
			t.Fatalf("GetLocators should expand the wildcard, got %s", loc)
		}
	}

	start := time.Now()
	if err := mgr.DelListener(ep); err != nil {
		t.Fatalf("DelListener: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("DelListener took %v, want <= 200ms", elapsed)
	}
}

// S5 — Listener-gone write: after del_listener, an Unconnected link
// obtained before teardown returns ListenerGone on Write.
func TestWriteAfterListenerGone(t *testing.T) {
	sink := link.NewNewLinkSink(4)
	mgr := NewManager(sink, Config{})

	serverEP := mustEndPoint(t, "udp/127.0.0.1:0")
	boundLoc, err := mgr.NewListener(serverEP)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}

	clientEP := mustEndPoint(t, "udp/"+boundLoc.HostPort())
	clientLink, err := mgr.NewLink(clientEP)
	if err != nil {
		t.Fatalf("NewLink: %v", err)
	}
	defer clientLink.Close()

	if err := clientLink.WriteAll([]byte("hi")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	serverLink := acceptOne(t, sink, time.Second)

	if err := mgr.DelListener(serverEP); err != nil {
		t.Fatalf("DelListener: %v", err)
	}

	_, err = serverLink.Write([]byte("too late"))
	if err == nil {
		t.Fatalf("expected ListenerGone after teardown")
	}
	var le *link.Error
	if !asLinkError(err, &le) || le.Kind != link.ListenerGone {
		t.Fatalf("got %v, want a *link.Error with Kind ListenerGone", err)
	}
}

func asLinkError(err error, target **link.Error) bool {
	le, ok := err.(*link.Error)
	if !ok {
		return false
	}
	*target = le
	return true
}

// TestLinkTableDropsCollectedEntries exercises the weak-pointer table:
// once every strong reference to a link is gone and a GC cycle runs, a
// fresh datagram from the same peer allocates a brand new link instead
// of resurrecting the old one.
func TestLinkTableDropsCollectedEntries(t *testing.T) {
	table := newLinkTable()
	key := tableKey{src: "127.0.0.1:1", dst: "127.0.0.1:2"}

	func() {
		l := &Link{kind: unconnectedVariant}
		table.insert(key, l)
	}()

	runtime.GC()
	runtime.GC()

	if _, ok := table.lookup(key); ok {
		t.Fatalf("expected the collected link to be absent after GC")
	}
	if got := table.len(); got != 0 {
		t.Fatalf("table.len() = %d, want 0 after a lookup evicts the stale entry", got)
	}
}

func TestDelListenerUnknownReturnsNotFound(t *testing.T) {
	sink := link.NewNewLinkSink(1)
	mgr := NewManager(sink, Config{})
	ep := mustEndPoint(t, "udp/127.0.0.1:54321")
	err := mgr.DelListener(ep)
	if err == nil {
		t.Fatalf("expected an error for an unbound endpoint")
	}
	var le *link.Error
	if !asLinkError(err, &le) || le.Kind != link.NotFound {
		t.Fatalf("got %v, want Kind NotFound", err)
	}
}

// A pool ceiling of 1 means the accept-demux task cannot recv a second
// datagram until the first's buffer is recycled by the consumer's Read
// (spec.md section 4.1). This proves the second datagram is delayed,
// not dropped: it surfaces only after the first is drained.
func TestPoolBackpressureDelaysNotDrops(t *testing.T) {
	sink := link.NewNewLinkSink(1)
	mgr := NewManager(sink, Config{PoolCeiling: 1})

	serverEP := mustEndPoint(t, "udp/127.0.0.1:0")
	boundLoc, err := mgr.NewListener(serverEP)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer mgr.DelListener(serverEP)

	clientEP := mustEndPoint(t, "udp/"+boundLoc.HostPort())
	clientLink, err := mgr.NewLink(clientEP)
	if err != nil {
		t.Fatalf("NewLink: %v", err)
	}
	defer clientLink.Close()

	if err := clientLink.WriteAll([]byte("first")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	serverLink := acceptOne(t, sink, time.Second)

	if err := clientLink.WriteAll([]byte("second")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	// Give the accept-demux task a chance to try (and fail) to recv
	// "second" while "first" still occupies the only pooled buffer.
	time.Sleep(100 * time.Millisecond)

	buf := make([]byte, 16)
	n, err := serverLink.Read(buf)
	if err != nil {
		t.Fatalf("first Read: %v", err)
	}
	if string(buf[:n]) != "first" {
		t.Fatalf("got %q, want first", buf[:n])
	}

	n, err = serverLink.Read(buf)
	if err != nil {
		t.Fatalf("second Read: %v", err)
	}
	if string(buf[:n]) != "second" {
		t.Fatalf("got %q, want second (delayed, not dropped)", buf[:n])
	}
}
