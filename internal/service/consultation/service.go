package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/repository"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/logger"
	"github.com/clinicbook/booking-api/pkg/storage"
)

type Service struct {
	repo     repository.ConsultationRepository
	aptRepo  repository.AppointmentRepository
	store    storage.ObjectStore
	logger   *logger.Logger
	nowMilli func() int64
}

func NewService(repo repository.ConsultationRepository, aptRepo repository.AppointmentRepository, store storage.ObjectStore, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		aptRepo:  aptRepo,
		store:    store,
		logger:   log,
		nowMilli: func() int64 { return time.Now().UnixMilli() },
	}
}

// Create records an immutable consultation note for one appointment.
// Attachments are uploaded first; an upload failure skips that file and the
// note is written with whatever made it to storage. Already uploaded objects
// are left in place.
func (s *Service) Create(ctx context.Context, req *model.CreateConsultationRequest, doctorID uuid.UUID) (*model.Consultation, error) {
	apt, err := s.aptRepo.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, apperrors.NotFound("appointment", err)
	}
	if apt.DoctorID != doctorID {
		return nil, apperrors.Forbidden("appointment belongs to another doctor", nil)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = model.VisibilityBoth
	}
	switch visibility {
	case model.VisibilityDoctor, model.VisibilityPatient, model.VisibilityBoth:
	default:
		return nil, apperrors.BadRequest("invalid visibility", nil)
	}

	attachments := make(model.AttachmentList, 0, len(req.Files))
	for _, file := range req.Files {
		key := fmt.Sprintf("%s/%d-%s", req.AppointmentID, s.nowMilli(), file.Name)
		url, err := s.store.Upload(ctx, key, file.ContentType, file.Data)
		if err != nil {
			s.logger.Error(err, "attachment upload failed",
				"appointment_id", req.AppointmentID.String(), "file", file.Name)
			continue
		}
		attachments = append(attachments, model.Attachment{Name: file.Name, URL: url})
	}

	consultation := &model.Consultation{
		AppointmentID: apt.ID,
		DoctorID:      apt.DoctorID,
		PatientID:     apt.PatientID,
		Notes:         req.Notes,
		Attachments:   attachments,
		Visibility:    visibility,
	}

	if err := s.repo.Create(ctx, consultation); err != nil {
		return nil, apperrors.Internal(err)
	}
	return consultation, nil
}

// ListByAppointment returns the notes a party may see for one appointment.
// Doctors see everything they wrote; patients only patient-visible notes.
func (s *Service) ListByAppointment(ctx context.Context, appointmentID uuid.UUID, claims *model.TokenClaims) ([]*model.Consultation, error) {
	apt, err := s.aptRepo.Get(ctx, appointmentID)
	if err != nil {
		return nil, apperrors.NotFound("appointment", err)
	}

	isDoctor := apt.DoctorID == claims.UserID
	isPatient := apt.PatientID != nil && *apt.PatientID == claims.UserID
	if !isDoctor && !isPatient && claims.Role != model.UserRoleAdmin {
		return nil, apperrors.Forbidden("not a party to this appointment", nil)
	}

	consultations, err := s.repo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if isDoctor || claims.Role == model.UserRoleAdmin {
		return consultations, nil
	}

	visible := make([]*model.Consultation, 0, len(consultations))
	for _, c := range consultations {
		if c.Visibility == model.VisibilityPatient || c.Visibility == model.VisibilityBoth {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Consultation, error) {
	consultations, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return consultations, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Consultation, error) {
	consultations, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return consultations, nil
}
