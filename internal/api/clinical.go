package api

import (
	"net/http"

	"github.com/hackgods/clinical-encounters/internal/clinical"
)

func (h *handlers) recordVitals(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req VitalsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.clinical.RecordVitalSigns(r.Context(), actor, clinical.VitalsInput{
		AdmissionID:      id,
		BodyTemperature:  req.BodyTemperature,
		Systolic:         req.Systolic,
		Diastolic:        req.Diastolic,
		HeartRate:        req.HeartRate,
		RespiratoryRate:  req.RespiratoryRate,
		OxygenSaturation: req.OxygenSaturation,
		Weight:           req.Weight,
		Height:           req.Height,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *handlers) addDiagnosis(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req DiagnosisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.clinical.AddDiagnosis(r.Context(), actor, clinical.DiagnosisInput{
		AdmissionID:  id,
		Symptoms:     req.Symptoms,
		Diagnosis:    req.Diagnosis,
		Notes:        req.Notes,
		FollowUpPlan: req.FollowUpPlan,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *handlers) createPrescription(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req PrescriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.clinical.CreatePrescription(r.Context(), actor, clinical.PrescriptionInput{
		AdmissionID:  id,
		Diagnosis:    req.Diagnosis,
		Instructions: req.Instructions,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handlers) addMedication(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req MedicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.clinical.AddMedication(r.Context(), actor, id, clinical.MedicationInput{
		Name:         req.Name,
		Dosage:       req.Dosage,
		Frequency:    req.Frequency,
		Duration:     req.Duration,
		Quantity:     req.Quantity,
		Instructions: req.Instructions,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handlers) recordAdministration(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req AdministrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.clinical.RecordAdministration(r.Context(), actor, id, clinical.AdministrationInput{
		DosageGiven: req.DosageGiven,
		Notes:       req.Notes,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
