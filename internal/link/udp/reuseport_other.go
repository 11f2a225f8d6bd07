//go:build !unix

package udp

import (
	"context"
	"net"
)

// listenUDP on non-unix targets falls back to a plain bind: SO_REUSEPORT
// has no portable equivalent, and spec.md does not require it.
func listenUDP(ctx context.Context, addr *net.UDPAddr) (net.PacketConn, error) {
	var lc net.ListenConfig
	return lc.ListenPacket(ctx, "udp", addr.String())
}
