package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository backs the identity module and the directory projection.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		ListByRole(ctx context.Context, role string) ([]*model.User, error)
	}

	// AppointmentRepository is the ledger. The WithIntent variants write the
	// ledger row and its notification intent in one transaction so a crash
	// can never leave a mutation without its outbox entry.
	AppointmentRepository interface {
		CreateWithIntent(ctx context.Context, appointment *model.Appointment, intent *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// UpdateWithIntent accepts a nil intent for guest rows that have no
		// registered counterpart to notify.
		UpdateWithIntent(ctx context.Context, appointment *model.Appointment, intent *model.OutboxEvent) error
		UpdateWithPayment(ctx context.Context, appointment *model.Appointment, payment *model.Payment, intent *model.OutboxEvent) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*model.Appointment, error)
		CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*model.Appointment, error)
		CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
		ClaimGuestBookings(ctx context.Context, email string, userID uuid.UUID, role string) (int64, error)
	}

	ConsultationRepository interface {
		Create(ctx context.Context, consultation *model.Consultation) error
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Consultation, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Consultation, error)
		// ListByPatient filters visibility IN (patient, both) at query time.
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Consultation, error)
	}

	FeedbackRepository interface {
		Create(ctx context.Context, feedback *model.Feedback) error
		// GetByAppointment returns (nil, nil) when no row exists.
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Feedback, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Feedback, error)
	}

	NotificationRepository interface {
		// Create is idempotent on ID so dispatch retries never duplicate rows.
		Create(ctx context.Context, notification *model.Notification) error
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	}

	PaymentRepository interface {
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Payment, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Payment, error)
		ListLatestByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*model.Payment, error)
	}

	OutboxRepository interface {
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
