// Package link defines the polymorphic capability sets of spec.md
// section 4.3/4.5 — a unicast link and a unicast link manager — plus
// the shared data model (Locator, EndPoint) and error type every
// per-protocol implementation (internal/link/udp today) builds against.
package link

import "io"

// Link is the capability set of a unicast, bidirectional byte channel
// between exactly two peers (spec.md section 4.3). Read/Write operate
// on whole messages for datagram transports: a Write emits at most one
// datagram, and a Read consumes at most one (or a slice of one, via an
// implementation's leftover cursor). A zero-length read is not
// end-of-stream — only a non-nil error signals that.
type Link interface {
	io.Closer

	// Write transmits up to one message. It returns the number of bytes
	// actually transmitted; for a datagram transport that is either the
	// whole message or none.
	Write(b []byte) (int, error)
	// WriteAll loops Write until b is fully drained.
	WriteAll(b []byte) error

	// Read reads into b, returning the number of bytes copied.
	Read(b []byte) (int, error)
	// ReadExact loops Read until b is completely filled.
	ReadExact(b []byte) error

	// Src and Dst are the link's cached endpoint locators.
	Src() Locator
	Dst() Locator

	// MTU is the link's advertised maximum transmission unit. It is
	// informational only — the link does not enforce it.
	MTU() int
	// IsReliable reports whether the link guarantees delivery.
	IsReliable() bool
	// IsStreamed reports whether the link preserves a byte stream
	// (true) or message boundaries (false).
	IsStreamed() bool
}

// Manager is the capability set of a unicast link manager: a registry
// of active listeners plus a factory for outgoing links (spec.md
// section 4.5).
type Manager interface {
	// NewLink dials ep and returns a Connected-style link.
	NewLink(ep *EndPoint) (Link, error)
	// NewListener binds ep, spawns its accept-demux task, and returns
	// the listener's resolved locator.
	NewListener(ep *EndPoint) (Locator, error)
	// DelListener tears down the listener bound to ep's address.
	DelListener(ep *EndPoint) error
	// GetListeners snapshots the endpoints of all active listeners.
	GetListeners() []EndPoint
	// GetLocators snapshots listener addresses, expanding wildcard
	// binds into one locator per concrete local interface address.
	GetLocators() []Locator
}
