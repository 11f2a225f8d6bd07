package link

import "fmt"

// Kind discriminates the fixed set of errors the link layer can return,
// per spec.md section 7.
type Kind int

const (
	// AddrResolve: a locator could not be resolved to a socket address.
	AddrResolve Kind = iota
	// Bind: the OS refused a socket bind.
	Bind
	// Connect: the OS refused a socket connect.
	Connect
	// Io: a recv/send failure on an established link.
	Io
	// ListenerGone: the weak reference to a listener's socket could not
	// be upgraded because the listener has already been torn down.
	ListenerGone
	// NotFound: del_listener addressed an unknown bound address.
	NotFound
	// Unsupported: the dispatch façade was given an unknown scheme.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case AddrResolve:
		return "AddrResolve"
	case Bind:
		return "Bind"
	case Connect:
		return "Connect"
	case Io:
		return "Io"
	case ListenerGone:
		return "ListenerGone"
	case NotFound:
		return "NotFound"
	case Unsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Error is the single error type every link-layer operation returns,
// carrying a Kind so callers can branch on failure category with
// errors.As without string-matching messages.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a link Error. err may be nil for purely categorical
// failures (e.g. NotFound).
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
