package probe

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

// CommandRunner runs an external command and returns its stdout and exit
// code. err is non-nil only when the command could not run at all.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout []byte, exitCode int, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err == nil {
		return out, 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return out, ee.ExitCode(), nil
	}
	return out, -1, err
}

// Ping checks reachability with a single ICMP echo through the system ping.
type Ping struct {
	service string
	host    string
	run     CommandRunner
	now     func() time.Time
}

func NewPing(service, host string) *Ping {
	return &Ping{
		service: service,
		host:    host,
		run:     ExecRunner,
		now:     time.Now,
	}
}

func (p *Ping) Service() string { return p.service }
func (p *Ping) Kind() domain.ProbeKind { return domain.KindPing }
func (p *Ping) Host() string { return p.host }

func (p *Ping) Run(ctx context.Context) domain.Message {
	// one attempt, 1s reply timeout
	out, code, err := p.run(ctx, "ping", "-c", "1", "-W", "1", "-q", p.host)

	msg := newMessage(domain.KindPing, p.service, p.now())
	msg.Body = SanitizeBody(out)

	if err != nil {
		msg.Severity = domain.Error
		msg.Header = "Unknown error"
		if msg.Body != "" {
			msg.Body += "\n"
		}
		msg.Body += SanitizeBody([]byte(err.Error()))
		return msg
	}

	switch code {
	case 0:
		msg.Header = "Ping successful"
	case 1:
		msg.Severity = domain.Error
		msg.Header = "Unreachable host"
	case 2:
		msg.Severity = domain.Error
		msg.Header = "Invalid host"
	default:
		msg.Severity = domain.Error
		msg.Header = "Unknown error"
	}
	return msg
}
