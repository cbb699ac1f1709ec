package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

// ErrUnknownKind is returned by New for an unsupported probe kind.
var ErrUnknownKind = errors.New("unknown probe kind")

const (
	defaultTimeout   = 5 * time.Second
	defaultHTTPSPort = 443
)

// Probe performs one health check per Run. Failures are never returned as
// errors: they are encoded as Error-severity messages.
type Probe interface {
	Service() string
	Kind() domain.ProbeKind
	Run(ctx context.Context) domain.Message
}

// Spec is the immutable configuration of a single probe.
type Spec struct {
	Kind    domain.ProbeKind
	Service string
	Host    string        // ping, https
	Port    int           // https; 0 means 443
	URL     string        // http
	Timeout time.Duration // https, http; 0 means 5s
}

// New builds the probe variant selected by spec.Kind.
func New(spec Spec) (Probe, error) {
	if spec.Service == "" {
		return nil, errors.New("probe: service name is required")
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	switch spec.Kind {
	case domain.KindPing:
		if spec.Host == "" {
			return nil, fmt.Errorf("probe %s: ping needs a host", spec.Service)
		}
		return NewPing(spec.Service, spec.Host), nil
	case domain.KindHTTPS:
		if spec.Host == "" {
			return nil, fmt.Errorf("probe %s: https needs a host", spec.Service)
		}
		port := spec.Port
		if port == 0 {
			port = defaultHTTPSPort
		}
		return NewCertificate(spec.Service, spec.Host, port, timeout), nil
	case domain.KindHTTP:
		if spec.URL == "" {
			return nil, fmt.Errorf("probe %s: http needs a url", spec.Service)
		}
		return NewHTTP(spec.Service, spec.URL, timeout), nil
	default:
		return nil, fmt.Errorf("probe %s: %w %q", spec.Service, ErrUnknownKind, spec.Kind)
	}
}

// SanitizeBody drops every byte >= 123 so the text can always be mailed.
func SanitizeBody(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c < 123 {
			out = append(out, c)
		}
	}
	return string(out)
}

func newMessage(kind domain.ProbeKind, service string, now time.Time) domain.Message {
	return domain.Message{
		Timestamp: now.UTC(),
		Service:   service,
		Probe:     kind,
		Severity:  domain.Info,
	}
}
