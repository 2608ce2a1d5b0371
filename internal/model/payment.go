package model

import (
	"time"

	"github.com/google/uuid"
)

// Payment method constants
const (
	PaymentMethodCash       = "cash"
	PaymentMethodCreditCard = "credit_card"
	PaymentMethodOnline     = "online"
	PaymentMethodUnknown    = "unknown"
)

// Payment is an append-only settled-payment record, created exactly once
// when an appointment's payment_status moves to paid.
type Payment struct {
	ID            uuid.UUID `json:"id" db:"id"`
	AppointmentID uuid.UUID `json:"appointment_id" db:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id" db:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id" db:"doctor_id"`
	Amount        float64   `json:"amount" db:"amount"`
	Status        string    `json:"status" db:"status"`
	PaymentMethod string    `json:"payment_method" db:"payment_method"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PaymentWithName resolves the counterpart party's display name from the
// directory; "Unknown" when no entry matches.
type PaymentWithName struct {
	Payment
	Name string `json:"name"`
}
