package api

import (
	"net/http"

	"github.com/hackgods/clinical-encounters/internal/appointment"
)

func (h *handlers) bookAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req BookAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mode, ok := appointment.ParseMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_mode", "mode must be VIDEO or PHYSICAL")
		return
	}

	appt, err := h.appointments.Book(r.Context(), actor, appointment.BookInput{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Mode:            mode,
		Note:            req.Note,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
}

func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	limit, err := intQuery(r, "limit")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	appts, err := h.appointments.ListForUser(r.Context(), actor, limit, offset)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		resp = append(resp, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.Get(r.Context(), actor, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
}

func (h *handlers) transitionAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	target, ok := appointment.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_status", "unknown appointment status "+req.Status)
		return
	}

	appt, err := h.appointments.Transition(r.Context(), actor, id, target, req.Reason)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
}

func (h *handlers) runSweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.sweeper.Run(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
