package discovery

import (
	"net"
	"testing"
)

func TestServerAddrPrefersIPv4(t *testing.T) {
	s := Server{
		Hostname:  "bench-sdr.local.",
		Port:      28001,
		Addresses: []net.IP{net.ParseIP("fe80::1"), net.ParseIP("192.168.1.20")},
	}
	if got := s.Addr(); got != "192.168.1.20:28001" {
		t.Fatalf("expected IPv4 address, got %q", got)
	}
}

func TestServerAddrFallsBackToHostname(t *testing.T) {
	s := Server{Hostname: "bench-sdr.local.", Port: 28001}
	if got := s.Addr(); got != "bench-sdr.local:28001" {
		t.Fatalf("expected hostname fallback, got %q", got)
	}
}

func TestCleanInstance(t *testing.T) {
	if got := cleanInstance(`analyzer\ on\ bench`); got != "analyzer on bench" {
		t.Fatalf("unescape failed: %q", got)
	}
}
