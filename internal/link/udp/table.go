package udp

import (
	"sync"
	"weak"
)

// tableKey is a listener's per-peer link identity: the resolved
// (src_addr, dst_addr) pair of spec.md section 3. src is constant
// across a single listener's table; it is still carried in the key so
// the type mirrors the spec's identity tuple directly.
type tableKey struct {
	src string
	dst string
}

// linkTable is the per-listener mapping from (src,dst) to a non-owning
// reference to the corresponding Unconnected link. It uses the runtime's
// weak pointers (weak.Pointer, Go 1.24+) rather than a manual refcount:
// the link's strong owner is always the session layer above, and once
// that owner drops its last reference the link becomes collectible
// without the listener having done anything — exactly the "listener
// must never keep a link alive past its last external user" invariant.
// Staleness is resolved lazily, on the next lookup that touches the
// entry, matching spec.md section 4.4's demux pseudocode.
type linkTable struct {
	mu sync.Mutex
	m  map[tableKey]weak.Pointer[Link]
}

func newLinkTable() *linkTable {
	return &linkTable{m: make(map[tableKey]weak.Pointer[Link])}
}

// lookup returns the live link for key, if any. A stale entry (its weak
// pointer's referent already collected) is removed and reported absent.
func (t *linkTable) lookup(key tableKey) (*Link, bool) {
	t.mu.Lock()
	wp, ok := t.m[key]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	l := wp.Value()
	if l == nil {
		t.mu.Lock()
		delete(t.m, key)
		t.mu.Unlock()
		return nil, false
	}
	return l, true
}

func (t *linkTable) insert(key tableKey, l *Link) {
	t.mu.Lock()
	t.m[key] = weak.Make(l)
	t.mu.Unlock()
}

func (t *linkTable) remove(key tableKey) {
	t.mu.Lock()
	delete(t.m, key)
	t.mu.Unlock()
}

// len reports the number of (possibly stale) entries currently tracked.
// Used by tests to assert table-size behavior without reaching into the
// map directly.
func (t *linkTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
