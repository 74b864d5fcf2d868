// Package memstore is an in-memory implementation of every repository in the
// service. Transactions are serialized by one mutex and a failed transaction
// restores the state snapshot taken when it began. It backs the package tests
// and STORE_DRIVER=memory.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/admission"
	"github.com/hackgods/clinical-encounters/internal/appointment"
	"github.com/hackgods/clinical-encounters/internal/clinical"
	"github.com/hackgods/clinical-encounters/internal/directory"
	"github.com/hackgods/clinical-encounters/internal/email"
	"github.com/hackgods/clinical-encounters/internal/notification"
)

type state struct {
	patients     map[string]directory.Patient
	staff        map[string]directory.Staff
	appointments map[uuid.UUID]appointment.Appointment
	admissions   map[uuid.UUID]admission.Admission
	units        map[uuid.UUID]admission.Unit
	beds         map[uuid.UUID]admission.Bed

	// append-only tables keep insertion order
	notifications   []notification.Notification
	allocations     []admission.BedAllocation
	vitals          []clinical.VitalSigns
	diagnoses       []clinical.Diagnosis
	prescriptions   []clinical.Prescription
	medications     []clinical.Medication
	administrations []clinical.Administration
	emailLogs       []email.Log
}

func newState() state {
	return state{
		patients:     map[string]directory.Patient{},
		staff:        map[string]directory.Staff{},
		appointments: map[uuid.UUID]appointment.Appointment{},
		admissions:   map[uuid.UUID]admission.Admission{},
		units:        map[uuid.UUID]admission.Unit{},
		beds:         map[uuid.UUID]admission.Bed{},
	}
}

// clone copies the containers. Rows are values whose pointer fields are never
// mutated in place, so a shallow copy is a full snapshot.
func (s state) clone() state {
	return state{
		patients:        maps.Clone(s.patients),
		staff:           maps.Clone(s.staff),
		appointments:    maps.Clone(s.appointments),
		admissions:      maps.Clone(s.admissions),
		units:           maps.Clone(s.units),
		beds:            maps.Clone(s.beds),
		notifications:   slices.Clone(s.notifications),
		allocations:     slices.Clone(s.allocations),
		vitals:          slices.Clone(s.vitals),
		diagnoses:       slices.Clone(s.diagnoses),
		prescriptions:   slices.Clone(s.prescriptions),
		medications:     slices.Clone(s.medications),
		administrations: slices.Clone(s.administrations),
		emailLogs:       slices.Clone(s.emailLogs),
	}
}

type Store struct {
	mu    sync.Mutex
	state state
	seq   int64
}

func New() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// InTx implements db.TxRunner. A nested call joins the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// do runs fn against the state, taking the lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(&s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

func (s *Store) Appointments() *Appointments   { return &Appointments{s} }
func (s *Store) Admissions() *Admissions       { return &Admissions{s} }
func (s *Store) Notifications() *Notifications { return &Notifications{s} }
func (s *Store) Clinical() *Clinical           { return &Clinical{s} }
func (s *Store) Directory() *Directory         { return &Directory{s} }
func (s *Store) EmailLogs() *EmailLogs         { return &EmailLogs{s} }
