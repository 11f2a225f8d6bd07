package dispatch

import (
	"testing"

	"unilink/internal/link"
	"unilink/internal/link/udp"
)

func TestLinkManagerBuilderUnicastUDP(t *testing.T) {
	sink := link.NewNewLinkSink(1)
	mgr, err := LinkManagerBuilderUnicast(sink, "udp", udp.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mgr == nil {
		t.Fatalf("expected a non-nil Manager")
	}
}

func TestLinkManagerBuilderUnicastUnsupported(t *testing.T) {
	sink := link.NewNewLinkSink(1)
	for _, scheme := range []string{"quic", "tls", "tcp", "unixsock-stream", "bogus"} {
		_, err := LinkManagerBuilderUnicast(sink, scheme, udp.Config{})
		if err == nil {
			t.Fatalf("scheme %q: expected Unsupported error", scheme)
		}
		var le *link.Error
		if e, ok := err.(*link.Error); ok {
			le = e
		}
		if le == nil || le.Kind != link.Unsupported {
			t.Fatalf("scheme %q: got %v, want Kind Unsupported", scheme, err)
		}
	}
}

func TestLocatorInspectorIsMulticast(t *testing.T) {
	cases := []struct {
		locator string
		want    bool
	}{
		{"udp/239.1.2.3:7447", true},
		{"udp/127.0.0.1:7447", false},
		{"tcp/224.0.0.1:80", true},
	}
	for _, c := range cases {
		loc, err := link.ParseLocator(c.locator)
		if err != nil {
			t.Fatalf("ParseLocator(%q): %v", c.locator, err)
		}
		got, err := LocatorInspectorIsMulticast(loc)
		if err != nil {
			t.Fatalf("IsMulticast(%q): %v", c.locator, err)
		}
		if got != c.want {
			t.Fatalf("IsMulticast(%q) = %v, want %v", c.locator, got, c.want)
		}
	}
}

func TestLocatorInspectorIsMulticastUnixSocket(t *testing.T) {
	loc := link.Locator{Scheme: "unixsock-stream", Host: "/tmp/x.sock"}
	got, err := LocatorInspectorIsMulticast(loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatalf("unix sockets are never multicast")
	}
}

func TestLocatorInspectorIsMulticastUnknownScheme(t *testing.T) {
	loc := link.Locator{Scheme: "bogus", Host: "127.0.0.1"}
	if _, err := LocatorInspectorIsMulticast(loc); err == nil {
		t.Fatalf("expected error for unknown scheme")
	}
}

func TestLinkConfigurationsUDPNoop(t *testing.T) {
	cfg := udp.Config{MTU: 1200}
	got, err := LinkConfigurations("udp", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.(udp.Config).MTU != 1200 {
		t.Fatalf("expected the config to round-trip")
	}
}
