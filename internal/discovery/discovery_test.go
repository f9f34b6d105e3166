package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"fp=abcd", " version = 1.0 ", "", "flag", "=orphan"})

	want := map[string]string{"fp": "abcd", "version": "1.0", "flag": ""}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %q, want %q", k, got[k], v)
		}
	}
}

func TestBuildServer(t *testing.T) {
	entry := zeroconf.NewServiceEntry("alpha", ServiceType, Domain)
	entry.Port = 7700
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	entry.Text = []string{"fp=0011223344", "version=1"}

	srv, ok := buildServer(entry)
	if !ok {
		t.Fatal("entry rejected")
	}
	if srv.Instance != "alpha" || srv.Address != "192.168.1.20:7700" {
		t.Fatalf("unexpected server %+v", srv)
	}
	if srv.Fingerprint != "0011223344" || srv.Version != "1" {
		t.Fatalf("unexpected TXT fields %+v", srv)
	}
}

func TestBuildServer_IPv6AndMissingAddress(t *testing.T) {
	entry := zeroconf.NewServiceEntry("beta", ServiceType, Domain)
	entry.Port = 9000
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	srv, ok := buildServer(entry)
	if !ok || srv.Address != "[fe80::1]:9000" {
		t.Fatalf("got %+v ok=%v", srv, ok)
	}

	if _, ok := buildServer(zeroconf.NewServiceEntry("gamma", ServiceType, Domain)); ok {
		t.Fatal("entry without address accepted")
	}
	if _, ok := buildServer(nil); ok {
		t.Fatal("nil entry accepted")
	}
}
