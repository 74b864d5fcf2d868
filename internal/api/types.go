package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/admission"
	"github.com/hackgods/clinical-encounters/internal/appointment"
	"github.com/hackgods/clinical-encounters/internal/clinical"
	"github.com/hackgods/clinical-encounters/internal/notification"
)

type BookAppointmentRequest struct {
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Mode            string    `json:"mode"`
	Note            *string   `json:"note"`
}

type TransitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Mode            string    `json:"mode"`
	Status          string    `json:"status"`
	RoomID          *string   `json:"room_id,omitempty"`
	RoomToken       *string   `json:"room_token,omitempty"`
	Note            *string   `json:"note,omitempty"`
	Reason          *string   `json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	LastUpdated     time.Time `json:"last_updated"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		ScheduledAt:     a.ScheduledAt,
		DurationMinutes: a.DurationMinutes,
		Mode:            string(a.Mode),
		Status:          string(a.Status),
		RoomID:          a.RoomID,
		RoomToken:       a.RoomToken,
		Note:            a.Note,
		Reason:          a.Reason,
		CreatedAt:       a.CreatedAt,
		LastUpdated:     a.LastUpdated,
	}
}

type CreateAdmissionRequest struct {
	PatientID            string     `json:"patient_id"`
	AdmittingDoctorID    string     `json:"admitting_doctor_id"`
	ChiefComplaint       string     `json:"chief_complaint"`
	ProvisionalDiagnosis string     `json:"provisional_diagnosis"`
	InitialTherapyPlan   *string    `json:"initial_therapy_plan"`
	ReferralDoctor       *string    `json:"referral_doctor"`
	BedID                *uuid.UUID `json:"bed_id"`
}

type AssignBedRequest struct {
	BedID uuid.UUID `json:"bed_id"`
}

type DischargeRequest struct {
	Notes string `json:"notes"`
}

type AdmissionResponse struct {
	ID                   uuid.UUID           `json:"id"`
	PatientID            string              `json:"patient_id"`
	AdmittingDoctorID    string              `json:"admitting_doctor_id"`
	ChiefComplaint       string              `json:"chief_complaint"`
	ProvisionalDiagnosis string              `json:"provisional_diagnosis"`
	InitialTherapyPlan   *string             `json:"initial_therapy_plan,omitempty"`
	ReferralDoctor       *string             `json:"referral_doctor,omitempty"`
	Status               string              `json:"status"`
	AdmittedAt           time.Time           `json:"admitted_at"`
	DischargedAt         *time.Time          `json:"discharged_at,omitempty"`
	DischargedBy         *string             `json:"discharged_by,omitempty"`
	DischargeNotes       *string             `json:"discharge_notes,omitempty"`
	CurrentBed           *AllocationResponse `json:"current_bed,omitempty"`
}

func toAdmissionResponse(a admission.Admission, bed *admission.BedAllocation) AdmissionResponse {
	resp := AdmissionResponse{
		ID:                   a.ID,
		PatientID:            a.PatientID,
		AdmittingDoctorID:    a.AdmittingDoctorID,
		ChiefComplaint:       a.ChiefComplaint,
		ProvisionalDiagnosis: a.ProvisionalDiagnosis,
		InitialTherapyPlan:   a.InitialTherapyPlan,
		ReferralDoctor:       a.ReferralDoctor,
		Status:               string(a.Status),
		AdmittedAt:           a.AdmittedAt,
		DischargedAt:         a.DischargedAt,
		DischargedBy:         a.DischargedBy,
		DischargeNotes:       a.DischargeNotes,
	}
	if bed != nil {
		alloc := toAllocationResponse(*bed)
		resp.CurrentBed = &alloc
	}
	return resp
}

type AllocationResponse struct {
	ID          uuid.UUID  `json:"id"`
	AdmissionID uuid.UUID  `json:"admission_id"`
	BedID       uuid.UUID  `json:"bed_id"`
	AssignedAt  time.Time  `json:"assigned_at"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
}

func toAllocationResponse(a admission.BedAllocation) AllocationResponse {
	return AllocationResponse{
		ID:          a.ID,
		AdmissionID: a.AdmissionID,
		BedID:       a.BedID,
		AssignedAt:  a.AssignedAt,
		ReleasedAt:  a.ReleasedAt,
	}
}

type DischargeResponse struct {
	Admission     AdmissionResponse `json:"admission"`
	ReleasedBeds  []uuid.UUID       `json:"released_beds"`
	Clinical      clinical.Summary  `json:"clinical"`
	NotifiedStaff int               `json:"notified_staff"`
}

type BedResponse struct {
	ID          uuid.UUID  `json:"id"`
	UnitID      uuid.UUID  `json:"unit_id"`
	BedNumber   string     `json:"bed_number"`
	IsActive    bool       `json:"is_active"`
	Occupied    bool       `json:"occupied"`
	AdmissionID *uuid.UUID `json:"admission_id,omitempty"`
}

func toBedResponse(b admission.BedOccupancy) BedResponse {
	return BedResponse{
		ID:          b.ID,
		UnitID:      b.UnitID,
		BedNumber:   b.BedNumber,
		IsActive:    b.IsActive,
		Occupied:    b.Occupied(),
		AdmissionID: b.AdmissionID,
	}
}

type VitalsRequest struct {
	BodyTemperature  float64 `json:"body_temperature"`
	Systolic         int     `json:"systolic"`
	Diastolic        int     `json:"diastolic"`
	HeartRate        int     `json:"heart_rate"`
	RespiratoryRate  *int    `json:"respiratory_rate"`
	OxygenSaturation *int    `json:"oxygen_saturation"`
	Weight           float64 `json:"weight"`
	Height           float64 `json:"height"`
}

type DiagnosisRequest struct {
	Symptoms     string  `json:"symptoms"`
	Diagnosis    string  `json:"diagnosis"`
	Notes        *string `json:"notes"`
	FollowUpPlan *string `json:"follow_up_plan"`
}

type PrescriptionRequest struct {
	Diagnosis    string  `json:"diagnosis"`
	Instructions *string `json:"instructions"`
}

type MedicationRequest struct {
	Name         string  `json:"name"`
	Dosage       string  `json:"dosage"`
	Frequency    string  `json:"frequency"`
	Duration     string  `json:"duration"`
	Quantity     string  `json:"quantity"`
	Instructions *string `json:"instructions"`
}

type AdministrationRequest struct {
	DosageGiven string  `json:"dosage_given"`
	Notes       *string `json:"notes"`
}

type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Priority  string    `json:"priority"`
	RelatedID *string   `json:"related_id,omitempty"`
	ActionURL *string   `json:"action_url,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationResponse(n notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Priority:  string(n.Priority),
		RelatedID: n.RelatedID,
		ActionURL: n.ActionURL,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
