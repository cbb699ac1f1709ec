package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

// Outcome of a notification attempt.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Entry is one notification attempt. The journal is an audit trail only and
// is never read back into probe state.
type Entry struct {
	ID         uuid.UUID      `json:"id"`
	ProbeIndex int            `json:"probe_index"`
	Message    domain.Message `json:"message"`
	Decision   string         `json:"decision"`
	Outcome    Outcome        `json:"outcome"`
	Error      string         `json:"error,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// NewEntry fills ID and RecordedAt.
func NewEntry(index int, msg domain.Message, decision string, sendErr error) *Entry {
	e := &Entry{
		ID:         uuid.New(),
		ProbeIndex: index,
		Message:    msg,
		Decision:   decision,
		Outcome:    OutcomeSent,
		RecordedAt: time.Now().UTC(),
	}
	if sendErr != nil {
		e.Outcome = OutcomeFailed
		e.Error = sendErr.Error()
	}
	return e
}

// JournalStore records notification attempts.
type JournalStore interface {
	Record(ctx context.Context, e *Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
