// Package email delivers best-effort outbound mail. Nothing in this package is
// called inside a store transaction; callers send after commit and only log
// failures.
package email

import (
	"context"

	"github.com/rs/zerolog"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Relay hands a rendered message to a delivery channel.
type Relay interface {
	Send(ctx context.Context, msg Message) error
}

// LogRelay only logs. Used in development and when no transport is configured.
type LogRelay struct {
	log zerolog.Logger
}

func NewLogRelay(log zerolog.Logger) *LogRelay {
	return &LogRelay{log: log.With().Str("component", "email").Logger()}
}

func (r *LogRelay) Send(_ context.Context, msg Message) error {
	r.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Int("bytes", len(msg.HTML)).Msg("email (log relay)")
	return nil
}
