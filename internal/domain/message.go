package domain

import (
	"fmt"
	"time"
)

// Severity classifies a probe result. The zero value is Info.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "Info":
		return Info, nil
	case "Warning":
		return Warning, nil
	case "Error":
		return Error, nil
	}
	return Info, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ProbeKind tags which probe variant produced a message.
type ProbeKind string

const (
	KindPing  ProbeKind = "ping"
	KindHTTPS ProbeKind = "https"
	KindHTTP  ProbeKind = "http"
)

// Message is the result of one probe invocation.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Probe     ProbeKind `json:"probe"`
	Severity  Severity  `json:"severity"`
	Header    string    `json:"header"`
	Body      string    `json:"body"`
}

// SameSituation reports whether two messages describe the same situation.
// Timestamp and Body are ignored: they change on every run.
func (m Message) SameSituation(o Message) bool {
	return m.Service == o.Service &&
		m.Header == o.Header &&
		m.Probe == o.Probe &&
		m.Severity == o.Severity
}

// String renders the message the way notifiers transmit it.
func (m Message) String() string {
	return fmt.Sprintf("[%s] %s %s/%s: %s\n%s",
		m.Timestamp.Format(time.RFC3339),
		m.Severity,
		m.Probe,
		m.Service,
		m.Header,
		m.Body,
	)
}

// Subject is the one-line notification subject.
func (m Message) Subject() string {
	return fmt.Sprintf("[Monitoring/%s/%s] %s %s", m.Severity, m.Probe, m.Service, m.Header)
}

// ProbeStatus is a point-in-time view of one configured probe.
type ProbeStatus struct {
	Index         int       `json:"index"`
	Service       string    `json:"service"`
	Probe         ProbeKind `json:"probe"`
	LastResult    *Message  `json:"last_result,omitempty"`
	LastMessage   *Message  `json:"last_message,omitempty"`
	RepeatCounter int       `json:"repeat_counter"`
}
