package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/appointment"
)

// Appointments implements appointment.Repository.
type Appointments struct{ s *Store }

var _ appointment.Repository = (*Appointments)(nil)

func (r *Appointments) Insert(ctx context.Context, a appointment.Appointment) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.appointments[a.ID]; ok {
			return fmt.Errorf("insert appointment: duplicate id %s", a.ID)
		}
		st.appointments[a.ID] = a
		return nil
	})
}

func (r *Appointments) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := r.s.do(ctx, func(st *state) error {
		a, ok := st.appointments[id]
		if !ok {
			return fmt.Errorf("%w: appointment", apperr.ErrNotFound)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *Appointments) UpdateStatus(ctx context.Context, u appointment.StatusUpdate) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := r.s.do(ctx, func(st *state) error {
		a, ok := st.appointments[u.ID]
		if !ok || a.Status != u.From {
			return fmt.Errorf("%w: appointment %s is no longer %s", apperr.ErrInvalidTransition, u.ID, u.From)
		}
		a.Status = u.To
		a.LastUpdated = u.At
		if u.RoomID != nil {
			a.RoomID = u.RoomID
		}
		if u.RoomToken != nil {
			a.RoomToken = u.RoomToken
		}
		if u.Reason != nil {
			a.Reason = u.Reason
		}
		st.appointments[u.ID] = a
		out = &a
		return nil
	})
	return out, err
}

func (r *Appointments) List(ctx context.Context, f appointment.ListFilter) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range st.appointments {
			if f.PatientID != "" && a.PatientID != f.PatientID {
				continue
			}
			if f.DoctorID != "" && a.DoctorID != f.DoctorID {
				continue
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *Appointments) FindStaleInProgress(ctx context.Context, before time.Time) ([]appointment.Appointment, error) {
	out, err := r.video(ctx, func(a appointment.Appointment) bool {
		return a.Status == appointment.StatusInProgress && a.LastUpdated.Before(before)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.Before(out[j].LastUpdated) })
	return out, err
}

func (r *Appointments) FindOverdueScheduled(ctx context.Context, before time.Time) ([]appointment.Appointment, error) {
	out, err := r.video(ctx, func(a appointment.Appointment) bool {
		return a.Status == appointment.StatusScheduled && a.ScheduledAt.Before(before)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, err
}

func (r *Appointments) video(ctx context.Context, match func(appointment.Appointment) bool) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range st.appointments {
			if a.Mode == appointment.ModeVideo && match(a) {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}
