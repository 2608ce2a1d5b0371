package model

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is one patient rating for one appointment. At most one row may
// exist per appointment; the service pre-checks before inserting.
type Feedback struct {
	ID            uuid.UUID `json:"id" db:"id"`
	AppointmentID uuid.UUID `json:"appointment_id" db:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id" db:"doctor_id"`
	PatientID     uuid.UUID `json:"patient_id" db:"patient_id"`
	Rating        int       `json:"rating" db:"rating"`
	Comment       *string   `json:"comment" db:"comment"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type SubmitFeedbackRequest struct {
	AppointmentID string  `json:"appointment_id" binding:"required,uuid"`
	Rating        int     `json:"rating" binding:"required,min=1,max=5"`
	Comment       *string `json:"comment"`
}

// FeedbackWithPatient joins feedback with the patient's directory profile;
// Patient is nil when the directory has no matching entry.
type FeedbackWithPatient struct {
	Feedback
	Patient *Profile `json:"patient"`
}
