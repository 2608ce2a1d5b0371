package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicbook/booking-api/internal/model"
)

func (r *appointmentRepository) CreateWithIntent(ctx context.Context, appointment *model.Appointment, intent *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, full_name, email, phone_number,
			date_time, status, payment_status, amount,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, query,
		appointment.ID,
		appointment.DoctorID,
		appointment.PatientID,
		appointment.FullName,
		appointment.Email,
		appointment.PhoneNumber,
		appointment.DateTime,
		appointment.Status,
		appointment.PaymentStatus,
		appointment.Amount,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := insertOutboxEvent(ctx, tx, intent); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, full_name, email, phone_number,
			   date_time, status, payment_status, amount,
			   created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateWithIntent(ctx context.Context, appointment *model.Appointment, intent *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateAppointmentTx(ctx, tx, appointment); err != nil {
		return err
	}

	// Guest appointments have no registered counterpart to notify.
	if intent != nil {
		if err := insertOutboxEvent(ctx, tx, intent); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *appointmentRepository) UpdateWithPayment(ctx context.Context, appointment *model.Appointment, payment *model.Payment, intent *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateAppointmentTx(ctx, tx, appointment); err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			id, appointment_id, patient_id, doctor_id, amount,
			status, payment_method, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	payment.ID = uuid.New()
	payment.CreatedAt = time.Now()

	_, err = tx.ExecContext(ctx, query,
		payment.ID,
		payment.AppointmentID,
		payment.PatientID,
		payment.DoctorID,
		payment.Amount,
		payment.Status,
		payment.PaymentMethod,
		payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	if err := insertOutboxEvent(ctx, tx, intent); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func updateAppointmentTx(ctx context.Context, tx *sqlx.Tx, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET patient_id = $1, date_time = $2, status = $3,
			payment_status = $4, updated_at = $5
		WHERE id = $6
	`
	appointment.UpdatedAt = time.Now()

	result, err := tx.ExecContext(ctx, query,
		appointment.PatientID,
		appointment.DateTime,
		appointment.Status,
		appointment.PaymentStatus,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment not found")
	}
	return nil
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*model.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, full_name, email, phone_number,
			   date_time, status, payment_status, amount,
			   created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments by doctor: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(id) FROM appointments WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments by doctor: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*model.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, full_name, email, phone_number,
			   date_time, status, payment_status, amount,
			   created_at, updated_at
		FROM appointments
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments by patient: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(id) FROM appointments WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments by patient: %w", err)
	}
	return count, nil
}

// ClaimGuestBookings attaches guest rows matching the email to a freshly
// signed-in user. Doctors claim the doctor_id column, patients patient_id;
// rows already claimed are left alone.
func (r *appointmentRepository) ClaimGuestBookings(ctx context.Context, email string, userID uuid.UUID, role string) (int64, error) {
	column := "patient_id"
	if role == model.UserRoleDoctor {
		column = "doctor_id"
	}

	query := fmt.Sprintf(`
		UPDATE appointments
		SET %s = $1, updated_at = $2
		WHERE email = $3 AND %s IS NULL
	`, column, column)

	result, err := r.db.ExecContext(ctx, query, userID, time.Now(), email)
	if err != nil {
		return 0, fmt.Errorf("failed to claim guest bookings: %w", err)
	}
	return result.RowsAffected()
}
