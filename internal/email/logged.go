package email

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinical-encounters/internal/db"
	"github.com/hackgods/clinical-encounters/internal/metrics"
)

type LogStatus string

const (
	StatusSent   LogStatus = "SENT"
	StatusFailed LogStatus = "FAILED"
)

type Log struct {
	ID        int64
	To        string
	Subject   string
	Status    LogStatus
	Error     *string
	CreatedAt time.Time
}

type LogStore interface {
	InsertEmailLog(ctx context.Context, l Log) error
}

// LoggedRelay records every delivery attempt. The send error is still
// returned so callers can log it next to their own context.
type LoggedRelay struct {
	next  Relay
	store LogStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewLoggedRelay(next Relay, store LogStore, log zerolog.Logger) *LoggedRelay {
	return &LoggedRelay{
		next:  next,
		store: store,
		log:   log.With().Str("component", "email").Logger(),
		now:   time.Now,
	}
}

func (r *LoggedRelay) Send(ctx context.Context, msg Message) error {
	sendErr := r.next.Send(ctx, msg)

	entry := Log{
		To:        msg.To,
		Subject:   msg.Subject,
		Status:    StatusSent,
		CreatedAt: r.now().UTC(),
	}
	if sendErr != nil {
		reason := sendErr.Error()
		entry.Status = StatusFailed
		entry.Error = &reason
	}
	metrics.RecordEmail(string(entry.Status))

	if err := r.store.InsertEmailLog(context.WithoutCancel(ctx), entry); err != nil {
		r.log.Error().Err(err).Str("to", msg.To).Msg("failed to write email log")
	}
	return sendErr
}

type PgLogStore struct {
	pool *pgxpool.Pool
}

func NewPgLogStore(pool *pgxpool.Pool) *PgLogStore {
	return &PgLogStore{pool: pool}
}

func (s *PgLogStore) InsertEmailLog(ctx context.Context, l Log) error {
	_, err := db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO email_logs (recipient, subject, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, l.To, l.Subject, l.Status, l.Error, l.CreatedAt)
	return err
}
