package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type PaymentState string

const (
	PaymentStateUnpaid PaymentState = "unpaid"
	PaymentStatePaid   PaymentState = "paid"
)

// CanTransitionTo reports whether the status may move to next.
// pending -> {confirmed, cancelled}; confirmed -> {completed, cancelled};
// completed and cancelled are terminal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return next == AppointmentStatusConfirmed || next == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return next == AppointmentStatusCompleted || next == AppointmentStatusCancelled
	default:
		return false
	}
}

// Terminal reports whether no further status transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// Appointment is the authoritative booking record. PatientID stays nil for
// guest bookings until a registered patient claims the row by email match;
// FullName/Email/PhoneNumber are the guest snapshot kept for display fallback.
type Appointment struct {
	Base
	DoctorID      uuid.UUID         `json:"doctor_id" db:"doctor_id"`
	PatientID     *uuid.UUID        `json:"patient_id" db:"patient_id"`
	FullName      string            `json:"full_name" db:"full_name"`
	Email         string            `json:"email" db:"email"`
	PhoneNumber   string            `json:"phone_number" db:"phone_number"`
	DateTime      time.Time         `json:"date_time" db:"date_time"`
	Status        AppointmentStatus `json:"status" db:"status"`
	PaymentStatus PaymentState      `json:"payment_status" db:"payment_status"`
	Amount        float64           `json:"amount" db:"amount"`
}

type CreateAppointmentRequest struct {
	DoctorID    string    `json:"doctor_id" binding:"required,uuid"`
	PatientID   string    `json:"patient_id" binding:"omitempty,uuid"`
	FullName    string    `json:"full_name" binding:"required"`
	Email       string    `json:"email" binding:"required,email"`
	PhoneNumber string    `json:"phone_number" binding:"required"`
	DateTime    time.Time `json:"date_time" binding:"required"`
	Amount      float64   `json:"amount" binding:"gte=0"`
}

// ConfirmAppointmentRequest is the doctor-side transition: set a new status
// and optionally revise the scheduled time.
type ConfirmAppointmentRequest struct {
	Status   AppointmentStatus `json:"status" binding:"required,oneof=confirmed completed cancelled"`
	DateTime *time.Time        `json:"date_time"`
}

// PatientUpdateRequest is the patient-side transition: mark paid (with a
// method) and/or move the status forward.
type PatientUpdateRequest struct {
	Status        *AppointmentStatus `json:"status" binding:"omitempty,oneof=completed cancelled"`
	PaymentStatus *PaymentState      `json:"payment_status" binding:"omitempty,oneof=unpaid paid"`
	PaymentMethod string             `json:"payment_method" binding:"omitempty,oneof=cash credit_card online unknown"`
}

// AppointmentWithProfile joins a ledger row with directory display metadata.
// The directory wins over the guest snapshot when both are present.
type AppointmentWithProfile struct {
	Appointment
	DisplayName  string `json:"display_name"`
	DisplayPhone string `json:"display_phone"`
	ProfileImage string `json:"profile_img"`
	Specialty    string `json:"specialty,omitempty"`
}

type AppointmentPage struct {
	Appointments []*AppointmentWithProfile `json:"appointments"`
	TotalPages   int                       `json:"total_pages"`
}
