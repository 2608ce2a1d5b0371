package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ConsultationVisibility string

const (
	VisibilityDoctor  ConsultationVisibility = "doctor"
	VisibilityPatient ConsultationVisibility = "patient"
	VisibilityBoth    ConsultationVisibility = "both"
)

// Attachment references an object already uploaded to object storage.
// The record stores only the name/url pair, never file bytes.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AttachmentList stores the ordered attachment set as a JSONB column.
type AttachmentList []Attachment

func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

func (a *AttachmentList) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported attachment list type %T", src)
	}
	return json.Unmarshal(b, a)
}

// Consultation is an immutable note tied to exactly one appointment.
// There is no update or delete path once a row is created.
type Consultation struct {
	ID            uuid.UUID              `json:"id" db:"id"`
	AppointmentID uuid.UUID              `json:"appointment_id" db:"appointment_id"`
	DoctorID      uuid.UUID              `json:"doctor_id" db:"doctor_id"`
	PatientID     *uuid.UUID             `json:"patient_id" db:"patient_id"`
	Notes         string                 `json:"notes" db:"notes"`
	Attachments   AttachmentList         `json:"attachments" db:"attachments"`
	Visibility    ConsultationVisibility `json:"visibility" db:"visibility"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
}

// FileUpload carries one attachment's bytes from the multipart form to the
// object store.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type CreateConsultationRequest struct {
	AppointmentID uuid.UUID
	Notes         string
	Visibility    ConsultationVisibility
	Files         []FileUpload
}
