package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/model"
)

func (r *feedbackRepository) Create(ctx context.Context, feedback *model.Feedback) error {
	query := `
		INSERT INTO doctor_feedback (
			id, appointment_id, doctor_id, patient_id, rating, comment, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	feedback.ID = uuid.New()
	feedback.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		feedback.ID,
		feedback.AppointmentID,
		feedback.DoctorID,
		feedback.PatientID,
		feedback.Rating,
		feedback.Comment,
		feedback.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Feedback, error) {
	query := `
		SELECT id, appointment_id, doctor_id, patient_id, rating, comment, created_at
		FROM doctor_feedback
		WHERE appointment_id = $1
	`
	var feedback model.Feedback
	err := r.db.GetContext(ctx, &feedback, query, appointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback by appointment: %w", err)
	}
	return &feedback, nil
}

func (r *feedbackRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Feedback, error) {
	query := `
		SELECT id, appointment_id, doctor_id, patient_id, rating, comment, created_at
		FROM doctor_feedback
		WHERE doctor_id = $1
		ORDER BY created_at DESC
	`
	var feedbacks []*model.Feedback
	err := r.db.SelectContext(ctx, &feedbacks, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback by doctor: %w", err)
	}
	return feedbacks, nil
}
