package memstore

import (
	"context"

	"github.com/hackgods/clinical-encounters/internal/email"
)

// EmailLogs implements email.LogStore.
type EmailLogs struct{ s *Store }

var _ email.LogStore = (*EmailLogs)(nil)

func (r *EmailLogs) InsertEmailLog(ctx context.Context, l email.Log) error {
	return r.s.do(ctx, func(st *state) error {
		r.s.seq++
		l.ID = r.s.seq
		st.emailLogs = append(st.emailLogs, l)
		return nil
	})
}

func (r *EmailLogs) All(ctx context.Context) []email.Log {
	var out []email.Log
	_ = r.s.do(ctx, func(st *state) error {
		out = append(out, st.emailLogs...)
		return nil
	})
	return out
}
