package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

// ErrNonASCIIBody is returned when a message body cannot be transmitted.
var ErrNonASCIIBody = errors.New("message body contains non-ascii bytes")

// Notifier delivers one message to a human.
type Notifier interface {
	Send(ctx context.Context, msg domain.Message) error
}

// CheckTransmissible rejects bodies the sinks cannot carry unaltered.
func CheckTransmissible(msg domain.Message) error {
	for i := 0; i < len(msg.Body); i++ {
		if msg.Body[i] > 127 {
			return fmt.Errorf("%s/%s: %w (offset %d)", msg.Probe, msg.Service, ErrNonASCIIBody, i)
		}
	}
	return nil
}

// ErrNoNotifier is returned by FromConfig when neither sink is configured.
var ErrNoNotifier = errors.New("no notifier configured")

// FromConfig builds the single configured sink.
func FromConfig(email *EmailConfig, slack *SlackConfig) (Notifier, error) {
	switch {
	case email != nil && slack != nil:
		return nil, errors.New("configure either email or slack, not both")
	case email != nil:
		e, err := NewEmail(*email)
		if err != nil {
			return nil, err
		}
		return e, nil
	case slack != nil:
		s, err := NewSlack(*slack)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, ErrNoNotifier
}
