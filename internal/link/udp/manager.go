package udp

import (
	"fmt"
	"net"
	"sync"

	"unilink/internal/flog"
	"unilink/internal/link"
)

// Manager is the UDP unicast link manager of spec.md section 4.5: a
// registry of active listeners keyed by bound address, and a factory
// for outgoing Connected links. Grounded on
// Dragon-Born-paqet's internal/transport/factory.go dispatch shape, but
// owning the listener registry itself rather than delegating to a
// switch over sibling transports — that switch now lives one layer up,
// in internal/link/dispatch.
type Manager struct {
	sink *link.NewLinkSink
	cfg  Config

	mu        sync.RWMutex
	listeners map[string]*Listener
}

var _ link.Manager = (*Manager)(nil)

// NewManager builds a UDP link manager publishing newly accepted links
// to sink.
func NewManager(sink *link.NewLinkSink, cfg Config) *Manager {
	return &Manager{sink: sink, cfg: cfg.withDefaults(), listeners: make(map[string]*Listener)}
}

// NewLink dials ep and returns a Connected link.
func (m *Manager) NewLink(ep *link.EndPoint) (link.Link, error) {
	l, err := dial(ep, m.cfg)
	if err != nil {
		return nil, err
	}
	flog.Debugf("udp: dialed %s -> %s", l.Src(), l.Dst())
	return l, nil
}

// NewListener binds ep, starts its accept-demux task, and returns the
// listener's resolved locator. ep is rebound in place to the resolved
// local address; callers must reuse the same *EndPoint for a later
// DelListener.
func (m *Manager) NewListener(ep *link.EndPoint) (link.Locator, error) {
	loc := ep.Locator()
	addr, err := net.ResolveUDPAddr("udp", loc.HostPort())
	if err != nil {
		return link.Locator{}, link.NewError(link.AddrResolve, "udp.Manager.NewListener", err)
	}

	m.mu.RLock()
	_, exists := m.listeners[addr.String()]
	m.mu.RUnlock()
	if exists {
		return link.Locator{}, link.NewError(link.Bind, "udp.Manager.NewListener", fmt.Errorf("listener already bound to %s", addr))
	}

	lst, err := newListener(ep, m.cfg, m.sink, m)
	if err != nil {
		return link.Locator{}, err
	}

	m.mu.Lock()
	if _, exists := m.listeners[lst.registryKey]; exists {
		m.mu.Unlock()
		lst.requestStop()
		<-lst.done
		return link.Locator{}, link.NewError(link.Bind, "udp.Manager.NewListener", fmt.Errorf("listener already bound to %s", lst.registryKey))
	}
	m.listeners[lst.registryKey] = lst
	m.mu.Unlock()

	flog.Infof("udp listener started on %s", ep.Locator())
	return ep.Locator(), nil
}

// DelListener resolves ep to its bound address, removes the listener
// from the registry, trips its stop signal, and awaits the
// accept-demux task's completion, propagating its final status.
func (m *Manager) DelListener(ep *link.EndPoint) error {
	loc := ep.Locator()
	addr, err := net.ResolveUDPAddr("udp", loc.HostPort())
	if err != nil {
		return link.NewError(link.AddrResolve, "udp.Manager.DelListener", err)
	}

	m.mu.Lock()
	lst, ok := m.listeners[addr.String()]
	if ok {
		delete(m.listeners, addr.String())
	}
	m.mu.Unlock()
	if !ok {
		return link.NewError(link.NotFound, "udp.Manager.DelListener", nil)
	}

	lst.requestStop()
	<-lst.done
	return lst.exitErr()
}

// removeListener is the accept-demux task's self-removal on exit,
// matching spec.md section 4.4's "task termination" design point. It is
// idempotent with DelListener's own removal (delete on an absent key is
// a no-op).
func (m *Manager) removeListener(key string) {
	m.mu.Lock()
	delete(m.listeners, key)
	m.mu.Unlock()
}

// GetListeners snapshots the endpoints of all active listeners.
func (m *Manager) GetListeners() []link.EndPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]link.EndPoint, 0, len(m.listeners))
	for _, lst := range m.listeners {
		out = append(out, *lst.ep)
	}
	return out
}

// GetLocators snapshots listener addresses, expanding a wildcard bind
// into one locator per remaining local interface address of that
// family (spec.md section 4.5).
func (m *Manager) GetLocators() []link.Locator {
	m.mu.RLock()
	locs := make([]link.Locator, 0, len(m.listeners))
	for _, lst := range m.listeners {
		locs = append(locs, lst.ep.Locator())
	}
	m.mu.RUnlock()

	var out []link.Locator
	for _, loc := range locs {
		out = append(out, expandLocator(loc)...)
	}
	return out
}

func expandLocator(loc link.Locator) []link.Locator {
	ip := net.ParseIP(loc.Host)
	if ip == nil || !ip.IsUnspecified() {
		return []link.Locator{loc}
	}
	wantV4 := ip.To4() != nil

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		flog.Warnf("udp: wildcard expansion for %s: %v", loc, err)
		return []link.Locator{loc}
	}

	var out []link.Locator
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		candidate := ipNet.IP
		if (candidate.To4() != nil) != wantV4 {
			continue
		}
		if candidate.IsLoopback() || candidate.IsMulticast() || candidate.IsLinkLocalMulticast() || candidate.IsLinkLocalUnicast() {
			continue
		}
		expanded := loc
		expanded.Host = candidate.String()
		out = append(out, expanded)
	}
	if len(out) == 0 {
		return []link.Locator{loc}
	}
	return out
}
