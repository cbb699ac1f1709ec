package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestRateLimit_AllowsThenBlocksThenRefills(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	h := rateLimit(newLimiter(60, 2, time.Minute, clk.now), nil)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/probes", nil)
	req.RemoteAddr = "10.0.0.7:51000"

	codes := func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	for i := 0; i < 2; i++ {
		if c := codes(); c != http.StatusOK {
			t.Fatalf("request %d: want 200, got %d", i, c)
		}
	}
	if c := codes(); c != http.StatusTooManyRequests {
		t.Fatalf("want 429 once the burst is used, got %d", c)
	}

	clk.t = clk.t.Add(time.Second)
	if c := codes(); c != http.StatusOK {
		t.Fatalf("want 200 after one token refilled, got %d", c)
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	h := rateLimit(newLimiter(60, 1, time.Minute, clk.now), nil)(okHandler)

	for _, addr := range []string{"10.0.0.1:4000", "10.0.0.2:4000"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: want 200, got %d", addr, rec.Code)
		}
	}
}

func TestRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	h := rateLimit(newLimiter(60, 1, time.Minute, clk.now), nil)(okHandler)

	codes := []int{}
	for _, spoof := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		req.Header.Set("X-Forwarded-For", spoof)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("rotating X-Forwarded-For must not reset the bucket, got %v", codes)
	}
}

func TestClientIP_TrustedProxy(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.10"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}
	cases := []struct {
		remote, xff, want string
	}{
		{"10.1.2.3:443", "198.51.100.7", "198.51.100.7"},
		{"10.1.2.3:443", "6.6.6.6, 198.51.100.7, 192.168.1.10", "198.51.100.7"},
		{"10.1.2.3:443", "", "10.1.2.3"},
		{"10.1.2.3:443", "not-an-ip", "10.1.2.3"},
		{"203.0.113.9:443", "198.51.100.7", "203.0.113.9"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = c.remote
		if c.xff != "" {
			req.Header.Set("X-Forwarded-For", c.xff)
		}
		if got := clientIP(req, trusted); got != c.want {
			t.Fatalf("remote=%s xff=%q: want %s, got %s", c.remote, c.xff, c.want, got)
		}
	}
}

func TestParseTrustedProxies_Rejects(t *testing.T) {
	for _, bad := range []string{"10.0.0.0/33", "proxy.local"} {
		if _, err := ParseTrustedProxies([]string{bad}); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestLimiter_SweepsIdleBuckets(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := newLimiter(60, 1, time.Minute, clk.now)
	l.allow("a")
	l.allow("b")

	clk.t = clk.t.Add(2 * time.Minute)
	l.allow("c")
	if len(l.buckets) != 1 {
		t.Fatalf("idle buckets not swept: %d left", len(l.buckets))
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(0, 0, nil)(okHandler)
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}
