package udp

import "time"

// Wire/buffer-size constants from spec.md section 6.
const (
	// DefaultMTU is the default advertised MTU, the largest UDP payload
	// a single IPv4 datagram can carry (65535 minus the 20-byte IP header
	// and the 8-byte UDP header).
	DefaultMTU = 65507
	// MaxMTU is the ceiling applied to receive buffers and to any
	// caller-requested MTU override.
	MaxMTU = 65527
)

// AcceptThrottle is the microsecond sleep spec.md recommends (5000-10000
// us) after a receive error on the accept-demux task's socket.
const AcceptThrottle = 8000 * time.Microsecond

// pollInterval bounds how long a single ReadFrom call blocks before the
// accept-demux task re-checks its stop signal. It trades worst-case
// shutdown latency (the listener teardown test, spec.md S4, allows up to
// 200ms) against syscall overhead.
const pollInterval = 50 * time.Millisecond

// Config carries the tunables a Manager is constructed with.
type Config struct {
	// MTU overrides DefaultMTU for links this manager creates; always
	// clamped to MaxMTU.
	MTU int
	// PoolCeiling bounds how many receive buffers a single listener may
	// have in flight at once. spec.md section 4.1 recommends 1: the
	// listener cannot read a new datagram until the previous one has
	// been fully drained by its consumer.
	PoolCeiling int
	// AcceptThrottle overrides the default transient-error backoff.
	AcceptThrottle time.Duration
	// SinkTimeout bounds how long the accept-demux task waits for the
	// session layer to accept a newly published link before giving up
	// and dropping it (spec.md section 6, NewLinkSink).
	SinkTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MTU <= 0 {
		c.MTU = DefaultMTU
	}
	if c.MTU > MaxMTU {
		c.MTU = MaxMTU
	}
	if c.PoolCeiling <= 0 {
		c.PoolCeiling = 1
	}
	if c.AcceptThrottle <= 0 {
		c.AcceptThrottle = AcceptThrottle
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = 5 * time.Second
	}
	return c
}

func clampMTU(mtu int) int {
	if mtu <= 0 {
		return DefaultMTU
	}
	if mtu > MaxMTU {
		return MaxMTU
	}
	return mtu
}
