package clinical

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/auth"
)

type VitalSigns struct {
	ID               uuid.UUID `json:"id"`
	AdmissionID      uuid.UUID `json:"admission_id"`
	PatientID        string    `json:"patient_id"`
	BodyTemperature  float64   `json:"body_temperature"`
	Systolic         int       `json:"systolic"`
	Diastolic        int       `json:"diastolic"`
	HeartRate        int       `json:"heart_rate"`
	RespiratoryRate  *int      `json:"respiratory_rate,omitempty"`
	OxygenSaturation *int      `json:"oxygen_saturation,omitempty"`
	Weight           float64   `json:"weight"`
	Height           float64   `json:"height"`
	RecordedBy       string    `json:"recorded_by"`
	CreatedAt        time.Time `json:"created_at"`
}

type Diagnosis struct {
	ID           uuid.UUID `json:"id"`
	AdmissionID  uuid.UUID `json:"admission_id"`
	PatientID    string    `json:"patient_id"`
	DoctorID     string    `json:"doctor_id"`
	Symptoms     string    `json:"symptoms"`
	Diagnosis    string    `json:"diagnosis"`
	Notes        *string   `json:"notes,omitempty"`
	FollowUpPlan *string   `json:"follow_up_plan,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type Prescription struct {
	ID           uuid.UUID    `json:"id"`
	AdmissionID  uuid.UUID    `json:"admission_id"`
	PatientID    string       `json:"patient_id"`
	DoctorID     string       `json:"doctor_id"`
	Diagnosis    string       `json:"diagnosis"`
	Instructions *string      `json:"instructions,omitempty"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	Medications  []Medication `json:"medications,omitempty"`
}

type Medication struct {
	ID              uuid.UUID        `json:"id"`
	PrescriptionID  uuid.UUID        `json:"prescription_id"`
	Name            string           `json:"name"`
	Dosage          string           `json:"dosage"`
	Frequency       string           `json:"frequency"`
	Duration        string           `json:"duration"`
	Quantity        string           `json:"quantity"`
	Instructions    *string          `json:"instructions,omitempty"`
	Status          Status           `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	Administrations []Administration `json:"administrations,omitempty"`
}

type Administration struct {
	ID                 uuid.UUID `json:"id"`
	MedicationID       uuid.UUID `json:"medication_id"`
	PatientID          string    `json:"patient_id"`
	AdministeredBy     string    `json:"administered_by"`
	AdministeredByRole auth.Role `json:"administered_by_role"`
	DosageGiven        string    `json:"dosage_given"`
	Notes              *string   `json:"notes,omitempty"`
	AdministeredAt     time.Time `json:"administered_at"`
}

// Summary is the clinical record of one admission as reported at discharge.
type Summary struct {
	LatestVitals  *VitalSigns    `json:"latest_vitals,omitempty"`
	Vitals        []VitalSigns   `json:"vitals,omitempty"` // newest first
	Diagnoses     []Diagnosis    `json:"diagnoses,omitempty"`
	Prescriptions []Prescription `json:"prescriptions,omitempty"`
}

type VitalsInput struct {
	AdmissionID      uuid.UUID
	BodyTemperature  float64
	Systolic         int
	Diastolic        int
	HeartRate        int
	RespiratoryRate  *int
	OxygenSaturation *int
	Weight           float64
	Height           float64
}

type DiagnosisInput struct {
	AdmissionID  uuid.UUID
	Symptoms     string
	Diagnosis    string
	Notes        *string
	FollowUpPlan *string
}

type PrescriptionInput struct {
	AdmissionID  uuid.UUID
	Diagnosis    string
	Instructions *string
}

type MedicationInput struct {
	Name         string
	Dosage       string
	Frequency    string
	Duration     string
	Quantity     string
	Instructions *string
}

type AdministrationInput struct {
	DosageGiven string
	Notes       *string
}
