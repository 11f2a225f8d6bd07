//go:build unix

package udp

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"unilink/internal/flog"
)

// listenConfig returns a net.ListenConfig that sets SO_REUSEPORT on the
// listening socket before bind, the same control-function idiom as
// Dragon-Born-paqet's sibling repo caddyserver-caddy's listen_linux.go.
// SO_REUSEPORT lets a restarted listener rebind the same address while an
// old instance is still draining, and lets multiple listener instances
// load-balance a single port across goroutines if a caller chooses to.
func listenConfig() net.ListenConfig {
	return net.ListenConfig{Control: reusePort}
}

func reusePort(network, address string, conn syscall.RawConn) error {
	var setErr error
	err := conn.Control(func(descriptor uintptr) {
		setErr = unix.SetsockoptInt(int(descriptor), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	if setErr != nil {
		flog.Warnf("udp: SO_REUSEPORT unavailable on %s %s: %v", network, address, setErr)
	}
	return nil
}

func listenUDP(ctx context.Context, addr *net.UDPAddr) (net.PacketConn, error) {
	lc := listenConfig()
	return lc.ListenPacket(ctx, "udp", addr.String())
}
