package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

// HTTP checks that a URL answers with a 2xx or 3xx status.
type HTTP struct {
	service string
	url     string

	Client   *http.Client
	Resolver *net.Resolver
	now      func() time.Time
}

func NewHTTP(service, target string, timeout time.Duration) *HTTP {
	return &HTTP{
		service: service,
		url:     target,
		Client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

func (h *HTTP) Service() string { return h.service }
func (h *HTTP) Kind() domain.ProbeKind { return domain.KindHTTP }

func (h *HTTP) Run(ctx context.Context) domain.Message {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		msg := newMessage(domain.KindHTTP, h.service, h.now())
		msg.Severity = domain.Error
		msg.Header = "Invalid URL"
		msg.Body = SanitizeBody([]byte(err.Error()))
		return msg
	}

	resp, err := h.Client.Do(req)
	latency := time.Since(start)
	msg := newMessage(domain.KindHTTP, h.service, h.now())
	if err != nil {
		msg.Severity = domain.Error
		msg.Header = "critical error while connecting to http service"
		msg.Body = withDNSNote(SanitizeBody([]byte(err.Error())), dnsNote(ctx, h.Resolver, hostOf(h.url)))
		return msg
	}
	defer resp.Body.Close()

	msg.Body = SanitizeBody([]byte(fmt.Sprintf("status: %s\nlatency: %d ms", resp.Status, latency.Milliseconds())))
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		msg.Header = "HTTP check successful"
		return msg
	}
	msg.Severity = domain.Error
	msg.Header = fmt.Sprintf("Unexpected HTTP status %d", resp.StatusCode)
	return msg
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
