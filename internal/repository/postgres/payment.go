package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/model"
)

func (r *paymentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Payment, error) {
	query := `
		SELECT id, appointment_id, patient_id, doctor_id, amount,
			   status, payment_method, created_at
		FROM payments
		WHERE doctor_id = $1
		ORDER BY created_at DESC
	`
	var payments []*model.Payment
	err := r.db.SelectContext(ctx, &payments, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by doctor: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Payment, error) {
	query := `
		SELECT id, appointment_id, patient_id, doctor_id, amount,
			   status, payment_method, created_at
		FROM payments
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	var payments []*model.Payment
	err := r.db.SelectContext(ctx, &payments, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by patient: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) ListLatestByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*model.Payment, error) {
	query := `
		SELECT id, appointment_id, patient_id, doctor_id, amount,
			   status, payment_method, created_at
		FROM payments
		WHERE doctor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var payments []*model.Payment
	err := r.db.SelectContext(ctx, &payments, query, doctorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest payments by doctor: %w", err)
	}
	return payments, nil
}
