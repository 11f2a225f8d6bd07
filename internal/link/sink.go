package link

import (
	"context"

	"unilink/internal/flog"
)

// NewLinkSink is the upward channel a link manager is constructed with:
// every link it accepts (or, symmetrically, the session layer's handle
// on it) is published here. Send may suspend if the session layer is
// behind; a failed send is logged and the link is dropped rather than
// retried, matching spec.md section 6's "Upward interface" contract.
type NewLinkSink struct {
	ch chan Link
}

// NewNewLinkSink creates a sink with the given channel capacity.
func NewNewLinkSink(capacity int) *NewLinkSink {
	if capacity < 1 {
		capacity = 1
	}
	return &NewLinkSink{ch: make(chan Link, capacity)}
}

// Send publishes l upward, blocking until the consumer makes room or
// ctx is done. On ctx expiry the send is abandoned, logged, and l is
// left for the caller to close.
func (s *NewLinkSink) Send(ctx context.Context, l Link) {
	select {
	case s.ch <- l:
	case <-ctx.Done():
		flog.Warnf("new-link-sink: dropping link %s -> %s: %v", l.Src(), l.Dst(), ctx.Err())
	}
}

// Chan exposes the receiving end for the session layer to range/select
// over.
func (s *NewLinkSink) Chan() <-chan Link { return s.ch }

// Close closes the sink. Only safe once no further Send calls will run.
func (s *NewLinkSink) Close() { close(s.ch) }
