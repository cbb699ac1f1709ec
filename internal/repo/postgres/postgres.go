package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/servicemonitor/internal/domain"
	"github.com/hamed0406/servicemonitor/internal/repo"
)

var _ repo.JournalStore = (*Store)(nil)

// SchemaSQL creates the journal table. It is idempotent.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS notifications (
  id           UUID PRIMARY KEY,
  probe_index  INTEGER NOT NULL,
  service      TEXT NOT NULL,
  probe        TEXT NOT NULL,
  severity     TEXT NOT NULL,
  header       TEXT NOT NULL,
  body         TEXT NOT NULL,
  probed_at    TIMESTAMPTZ NOT NULL,
  decision     TEXT NOT NULL,
  outcome      TEXT NOT NULL,
  error        TEXT NOT NULL DEFAULT '',
  recorded_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recorded_at ON notifications (recorded_at DESC);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, e *repo.Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	m := e.Message
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications
		   (id, probe_index, service, probe, severity, header, body, probed_at, decision, outcome, error, recorded_at)
		 VALUES
		   ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID.String(), e.ProbeIndex, m.Service, string(m.Probe), m.Severity.String(),
		m.Header, m.Body, m.Timestamp, e.Decision, string(e.Outcome), e.Error, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	s.log.Debug("journal_recorded",
		zap.String("id", e.ID.String()),
		zap.String("outcome", string(e.Outcome)),
	)
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]repo.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
SELECT id::text, probe_index, service, probe, severity, header, body,
       probed_at, decision, outcome, error, recorded_at
  FROM notifications
 ORDER BY recorded_at DESC
 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent notifications: %w", err)
	}
	defer rows.Close()

	var out []repo.Entry
	for rows.Next() {
		var (
			e        repo.Entry
			id       string
			probe    string
			severity string
			outcome  string
		)
		if err := rows.Scan(&id, &e.ProbeIndex, &e.Message.Service, &probe, &severity,
			&e.Message.Header, &e.Message.Body, &e.Message.Timestamp,
			&e.Decision, &outcome, &e.Error, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse id %q: %w", id, err)
		}
		if e.Message.Severity, err = domain.ParseSeverity(severity); err != nil {
			return nil, err
		}
		e.Message.Probe = domain.ProbeKind(probe)
		e.Outcome = repo.Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}
