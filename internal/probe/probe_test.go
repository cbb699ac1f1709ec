package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

func TestNew_SelectsVariant(t *testing.T) {
	cases := []struct {
		spec Spec
		kind domain.ProbeKind
	}{
		{Spec{Kind: domain.KindPing, Service: "gw", Host: "10.0.0.1"}, domain.KindPing},
		{Spec{Kind: domain.KindHTTPS, Service: "site", Host: "example.com"}, domain.KindHTTPS},
		{Spec{Kind: domain.KindHTTP, Service: "api", URL: "http://example.com/health"}, domain.KindHTTP},
	}
	for _, c := range cases {
		p, err := New(c.spec)
		if err != nil {
			t.Fatalf("New(%+v): %v", c.spec, err)
		}
		if p.Kind() != c.kind || p.Service() != c.spec.Service {
			t.Fatalf("got kind=%s service=%s", p.Kind(), p.Service())
		}
	}
}

func TestNew_HTTPSDefaults(t *testing.T) {
	p, err := New(Spec{Kind: domain.KindHTTPS, Service: "site", Host: "example.com"})
	if err != nil {
		t.Fatal(err)
	}
	c := p.(*Certificate)
	if c.port != 443 || c.timeout != 5*time.Second {
		t.Fatalf("defaults wrong: port=%d timeout=%s", c.port, c.timeout)
	}
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(Spec{Kind: "smtp", Service: "mail", Host: "x"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("want ErrUnknownKind, got %v", err)
	}
	bad := []Spec{
		{Kind: domain.KindPing, Host: "x"},
		{Kind: domain.KindPing, Service: "gw"},
		{Kind: domain.KindHTTPS, Service: "site"},
		{Kind: domain.KindHTTP, Service: "api"},
	}
	for _, s := range bad {
		if _, err := New(s); err == nil {
			t.Fatalf("expected error for %+v", s)
		}
	}
}

func TestSanitizeBody(t *testing.T) {
	in := []byte("PING host (1.2.3.4)\n{|}~\x7f\xff ok")
	got := SanitizeBody(in)
	if got != "PING host (1.2.3.4)\n ok" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestCheckDNS_Shortcuts(t *testing.T) {
	ctx := context.Background()
	if s := CheckDNS(ctx, nil, ""); s.Class != DNSInvalidName {
		t.Fatalf("empty: want %s, got %s", DNSInvalidName, s.Class)
	}
	if s := CheckDNS(ctx, nil, "https://example.com"); s.Class != DNSInvalidName {
		t.Fatalf("url: want %s, got %s", DNSInvalidName, s.Class)
	}
	if s := CheckDNS(ctx, nil, "::1"); s.Class != DNSLiteralIP {
		t.Fatalf("ip: want %s, got %s", DNSLiteralIP, s.Class)
	}
}

// countingResolver never reaches a real DNS server and records whether a
// lookup was attempted.
func countingResolver(calls *int) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			*calls++
			return nil, errors.New("dns disabled in tests")
		},
	}
}

func TestDNSNote_SkippedOnShutdown(t *testing.T) {
	var calls int
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if note := dnsNote(ctx, countingResolver(&calls), "service.example.com"); note != "" {
		t.Fatalf("cancelled context should skip the annotation, got %q", note)
	}
	if calls != 0 {
		t.Fatalf("no lookup expected after cancellation, got %d", calls)
	}
}

func TestDNSNote_ExpiredDeadlineStillLooksUp(t *testing.T) {
	var calls int
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	note := dnsNote(ctx, countingResolver(&calls), "service.example.com")
	if !strings.HasPrefix(note, "dns: ") {
		t.Fatalf("want dns annotation after deadline, got %q", note)
	}
	if calls == 0 {
		t.Fatalf("expected a lookup on the detached context")
	}
}

func TestWithDNSNote(t *testing.T) {
	if got := withDNSNote("dial tcp: refused", ""); got != "dial tcp: refused" {
		t.Fatalf("empty note must not add a line, got %q", got)
	}
	if got := withDNSNote("dial tcp: refused", "dns: NXDOMAIN"); got != "dial tcp: refused\ndns: NXDOMAIN" {
		t.Fatalf("unexpected %q", got)
	}
}
