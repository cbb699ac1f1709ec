package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

// Certificate reports how long the TLS certificate served by host:port
// remains valid.
type Certificate struct {
	service string
	host    string
	port    int
	timeout time.Duration

	// TLSConfig is cloned for every dial; nil uses system roots.
	TLSConfig *tls.Config
	Resolver  *net.Resolver
	now       func() time.Time
}

func NewCertificate(service, host string, port int, timeout time.Duration) *Certificate {
	return &Certificate{
		service: service,
		host:    host,
		port:    port,
		timeout: timeout,
		now:     time.Now,
	}
}

func (c *Certificate) Service() string { return c.service }
func (c *Certificate) Kind() domain.ProbeKind { return domain.KindHTTPS }
func (c *Certificate) Host() string { return c.host }

func (c *Certificate) Run(ctx context.Context) domain.Message {
	cert, err := c.peerCertificate(ctx)
	msg := newMessage(domain.KindHTTPS, c.service, c.now())
	if err != nil {
		msg.Severity = domain.Error
		msg.Header = "critical error while connecting to https service"
		msg.Body = withDNSNote(SanitizeBody([]byte(err.Error())), dnsNote(ctx, c.Resolver, c.host))
		return msg
	}

	days := DaysRemaining(cert.NotAfter, msg.Timestamp)
	msg.Severity, msg.Header = ClassifyExpiry(days)
	msg.Body = fmt.Sprintf("subject: %s\nissuer: %s\nnot after: %s",
		cert.Subject.CommonName, cert.Issuer.CommonName, cert.NotAfter.UTC().Format(time.RFC3339))
	msg.Body = SanitizeBody([]byte(msg.Body))
	return msg
}

func (c *Certificate) peerCertificate(ctx context.Context) (*x509.Certificate, error) {
	cfg := &tls.Config{}
	if c.TLSConfig != nil {
		cfg = c.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = c.host
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	d := &tls.Dialer{Config: cfg}
	conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(c.host, strconv.Itoa(c.port)))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, errors.New("no peer certificate presented")
	}
	return certs[0], nil
}

// DaysRemaining counts whole days until notAfter, truncated toward zero.
func DaysRemaining(notAfter, now time.Time) int {
	return int(notAfter.Sub(now) / (24 * time.Hour))
}

// ClassifyExpiry maps the remaining days to a severity and header. The
// ranges overlap; the first matching rule wins.
func ClassifyExpiry(days int) (domain.Severity, string) {
	switch {
	case days > 0 && days < 2:
		return domain.Error, fmt.Sprintf("Certificate is about to expire, %d days remaining", days)
	case days > 0 && days < 7:
		return domain.Warning, fmt.Sprintf("Certificate expires soon, %d days remaining", days)
	case days < 0:
		return domain.Error, fmt.Sprintf("Certificate expired %d days ago", -days)
	default:
		return domain.Info, fmt.Sprintf("Certificate expires in %d days", days)
	}
}
