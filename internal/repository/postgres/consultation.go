package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/model"
)

func (r *consultationRepository) Create(ctx context.Context, consultation *model.Consultation) error {
	query := `
		INSERT INTO consultations (
			id, appointment_id, doctor_id, patient_id, notes,
			attachments, visibility, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	consultation.ID = uuid.New()
	consultation.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		consultation.ID,
		consultation.AppointmentID,
		consultation.DoctorID,
		consultation.PatientID,
		consultation.Notes,
		consultation.Attachments,
		consultation.Visibility,
		consultation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	return nil
}

func (r *consultationRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Consultation, error) {
	query := `
		SELECT id, appointment_id, doctor_id, patient_id, notes,
			   attachments, visibility, created_at
		FROM consultations
		WHERE appointment_id = $1
		ORDER BY created_at DESC
	`
	var consultations []*model.Consultation
	err := r.db.SelectContext(ctx, &consultations, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations by appointment: %w", err)
	}
	return consultations, nil
}

func (r *consultationRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Consultation, error) {
	query := `
		SELECT id, appointment_id, doctor_id, patient_id, notes,
			   attachments, visibility, created_at
		FROM consultations
		WHERE doctor_id = $1
		ORDER BY created_at DESC
	`
	var consultations []*model.Consultation
	err := r.db.SelectContext(ctx, &consultations, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations by doctor: %w", err)
	}
	return consultations, nil
}

// ListByPatient excludes doctor-only notes. This filter is the one access
// control rule in the consultation log and lives in the query itself.
func (r *consultationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Consultation, error) {
	query := `
		SELECT id, appointment_id, doctor_id, patient_id, notes,
			   attachments, visibility, created_at
		FROM consultations
		WHERE patient_id = $1
		AND visibility IN ('patient', 'both')
		ORDER BY created_at DESC
	`
	var consultations []*model.Consultation
	err := r.db.SelectContext(ctx, &consultations, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations by patient: %w", err)
	}
	return consultations, nil
}
