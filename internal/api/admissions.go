package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/admission"
)

func (h *handlers) createAdmission(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req CreateAdmissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.admissions.CreateAdmission(r.Context(), actor, admission.CreateInput{
		PatientID:            req.PatientID,
		AdmittingDoctorID:    req.AdmittingDoctorID,
		ChiefComplaint:       req.ChiefComplaint,
		ProvisionalDiagnosis: req.ProvisionalDiagnosis,
		InitialTherapyPlan:   req.InitialTherapyPlan,
		ReferralDoctor:       req.ReferralDoctor,
		BedID:                req.BedID,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAdmissionResponse(created.Admission, created.Allocation))
}

func (h *handlers) listAdmissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	admissions, err := h.admissions.ListActive(r.Context(), actor)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]AdmissionResponse, 0, len(admissions))
	for _, a := range admissions {
		resp = append(resp, toAdmissionResponse(a, nil))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) getAdmission(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.admissions.Get(r.Context(), actor, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdmissionResponse(detail.Admission, detail.CurrentBed))
}

func (h *handlers) assignBed(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req AssignBedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BedID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "invalid_bed_id", "bed_id is required")
		return
	}

	alloc, err := h.admissions.AssignBed(r.Context(), actor, id, req.BedID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAllocationResponse(*alloc))
}

func (h *handlers) discharge(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req DischargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	summary, err := h.admissions.Discharge(r.Context(), actor, id, req.Notes)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	released := summary.ReleasedBeds
	if released == nil {
		released = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, DischargeResponse{
		Admission:     toAdmissionResponse(summary.Admission, nil),
		ReleasedBeds:  released,
		Clinical:      summary.Clinical,
		NotifiedStaff: summary.NotifiedStaff,
	})
}

func (h *handlers) listBeds(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var unitID *uuid.UUID
	if raw := r.URL.Query().Get("unit_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_unit_id", "unit_id must be a valid UUID")
			return
		}
		unitID = &id
	}

	beds, err := h.admissions.ListBeds(r.Context(), actor, unitID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]BedResponse, 0, len(beds))
	for _, b := range beds {
		resp = append(resp, toBedResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}
