package clinical

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanVitals(row pgx.Row) (*VitalSigns, error) {
	var v VitalSigns
	err := row.Scan(
		&v.ID,
		&v.AdmissionID,
		&v.PatientID,
		&v.BodyTemperature,
		&v.Systolic,
		&v.Diastolic,
		&v.HeartRate,
		&v.RespiratoryRate,
		&v.OxygenSaturation,
		&v.Weight,
		&v.Height,
		&v.RecordedBy,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanDiagnosis(row pgx.Row) (*Diagnosis, error) {
	var d Diagnosis
	err := row.Scan(
		&d.ID,
		&d.AdmissionID,
		&d.PatientID,
		&d.DoctorID,
		&d.Symptoms,
		&d.Diagnosis,
		&d.Notes,
		&d.FollowUpPlan,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(
		&p.ID,
		&p.AdmissionID,
		&p.PatientID,
		&p.DoctorID,
		&p.Diagnosis,
		&p.Instructions,
		&p.Status,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: prescription", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(
		&m.ID,
		&m.PrescriptionID,
		&m.Name,
		&m.Dosage,
		&m.Frequency,
		&m.Duration,
		&m.Quantity,
		&m.Instructions,
		&m.Status,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: medication", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

func scanAdministration(row pgx.Row) (*Administration, error) {
	var a Administration
	err := row.Scan(
		&a.ID,
		&a.MedicationID,
		&a.PatientID,
		&a.AdministeredBy,
		&a.AdministeredByRole,
		&a.DosageGiven,
		&a.Notes,
		&a.AdministeredAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) InsertVitals(ctx context.Context, v VitalSigns) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO vital_signs (id, admission_id, patient_id, body_temperature, systolic, diastolic,
			heart_rate, respiratory_rate, oxygen_saturation, weight, height, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, v.ID, v.AdmissionID, v.PatientID, v.BodyTemperature, v.Systolic, v.Diastolic,
		v.HeartRate, v.RespiratoryRate, v.OxygenSaturation, v.Weight, v.Height, v.RecordedBy, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert vital signs: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertDiagnosis(ctx context.Context, d Diagnosis) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO diagnoses (id, admission_id, patient_id, doctor_id, symptoms, diagnosis, notes, follow_up_plan, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.ID, d.AdmissionID, d.PatientID, d.DoctorID, d.Symptoms, d.Diagnosis, d.Notes, d.FollowUpPlan, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert diagnosis: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertPrescription(ctx context.Context, p Prescription) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO prescriptions (id, admission_id, patient_id, doctor_id, diagnosis, instructions, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.AdmissionID, p.PatientID, p.DoctorID, p.Diagnosis, p.Instructions, p.Status, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *PgRepository) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, admission_id, patient_id, doctor_id, diagnosis, instructions, status, created_at
		FROM prescriptions
		WHERE id = $1
	`, id)
	return scanPrescription(row)
}

func (r *PgRepository) InsertMedication(ctx context.Context, m Medication) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medications (id, prescription_id, name, dosage, frequency, duration, quantity, instructions, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.PrescriptionID, m.Name, m.Dosage, m.Frequency, m.Duration, m.Quantity, m.Instructions, m.Status, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert medication: %w", err)
	}
	return nil
}

func (r *PgRepository) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, prescription_id, name, dosage, frequency, duration, quantity, instructions, status, created_at
		FROM medications
		WHERE id = $1
	`, id)
	return scanMedication(row)
}

func (r *PgRepository) InsertAdministration(ctx context.Context, a Administration) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medication_administrations (id, medication_id, patient_id, administered_by,
			administered_by_role, dosage_given, notes, administered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.MedicationID, a.PatientID, a.AdministeredBy, a.AdministeredByRole, a.DosageGiven, a.Notes, a.AdministeredAt)
	if err != nil {
		return fmt.Errorf("insert medication administration: %w", err)
	}
	return nil
}

func (r *PgRepository) ListVitals(ctx context.Context, admissionID uuid.UUID) ([]VitalSigns, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, admission_id, patient_id, body_temperature, systolic, diastolic, heart_rate,
			respiratory_rate, oxygen_saturation, weight, height, recorded_by, created_at
		FROM vital_signs
		WHERE admission_id = $1
		ORDER BY created_at DESC
	`, admissionID)
	if err != nil {
		return nil, fmt.Errorf("list vital signs: %w", err)
	}
	defer rows.Close()

	var result []VitalSigns
	for rows.Next() {
		v, err := scanVitals(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListDiagnoses(ctx context.Context, admissionID uuid.UUID) ([]Diagnosis, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, admission_id, patient_id, doctor_id, symptoms, diagnosis, notes, follow_up_plan, created_at
		FROM diagnoses
		WHERE admission_id = $1
		ORDER BY created_at
	`, admissionID)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	defer rows.Close()

	var result []Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListPrescriptions(ctx context.Context, admissionID uuid.UUID) ([]Prescription, error) {
	q := db.Conn(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT id, admission_id, patient_id, doctor_id, diagnosis, instructions, status, created_at
		FROM prescriptions
		WHERE admission_id = $1
		ORDER BY created_at
	`, admissionID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	var prescriptions []Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		prescriptions = append(prescriptions, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(prescriptions) == 0 {
		return prescriptions, nil
	}

	rows, err = q.Query(ctx, `
		SELECT m.id, m.prescription_id, m.name, m.dosage, m.frequency, m.duration, m.quantity,
			m.instructions, m.status, m.created_at
		FROM medications m
		JOIN prescriptions p ON p.id = m.prescription_id
		WHERE p.admission_id = $1
		ORDER BY m.created_at
	`, admissionID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	var medications []Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		medications = append(medications, *m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `
		SELECT a.id, a.medication_id, a.patient_id, a.administered_by, a.administered_by_role,
			a.dosage_given, a.notes, a.administered_at
		FROM medication_administrations a
		JOIN medications m ON m.id = a.medication_id
		JOIN prescriptions p ON p.id = m.prescription_id
		WHERE p.admission_id = $1
		ORDER BY a.administered_at
	`, admissionID)
	if err != nil {
		return nil, fmt.Errorf("list medication administrations: %w", err)
	}
	defer rows.Close()

	byMedication := make(map[uuid.UUID][]Administration)
	for rows.Next() {
		a, err := scanAdministration(rows)
		if err != nil {
			return nil, err
		}
		byMedication[a.MedicationID] = append(byMedication[a.MedicationID], *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assemble(prescriptions, medications, byMedication), nil
}

func assemble(prescriptions []Prescription, medications []Medication, administrations map[uuid.UUID][]Administration) []Prescription {
	index := make(map[uuid.UUID]int, len(prescriptions))
	for i := range prescriptions {
		index[prescriptions[i].ID] = i
	}
	for _, m := range medications {
		m.Administrations = administrations[m.ID]
		if i, ok := index[m.PrescriptionID]; ok {
			prescriptions[i].Medications = append(prescriptions[i].Medications, m)
		}
	}
	return prescriptions
}
