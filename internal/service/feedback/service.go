package feedback

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/repository"
	"github.com/clinicbook/booking-api/internal/service/directory"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/logger"
)

type Service struct {
	repo      repository.FeedbackRepository
	aptRepo   repository.AppointmentRepository
	directory *directory.Service
	logger    *logger.Logger
}

func NewService(repo repository.FeedbackRepository, aptRepo repository.AppointmentRepository, dir *directory.Service, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		aptRepo:   aptRepo,
		directory: dir,
		logger:    log,
	}
}

// Submit records one rating for one completed appointment. The per-appointment
// uniqueness pre-check runs here; the unique index on appointment_id is the
// backstop for concurrent submissions.
func (s *Service) Submit(ctx context.Context, req *model.SubmitFeedbackRequest, claims *model.TokenClaims) (*model.Feedback, error) {
	appointmentID, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid appointment_id", err)
	}

	apt, err := s.aptRepo.Get(ctx, appointmentID)
	if err != nil {
		return nil, apperrors.NotFound("appointment", err)
	}

	if apt.PatientID == nil || *apt.PatientID != claims.UserID {
		return nil, apperrors.Forbidden("appointment belongs to another patient", nil)
	}

	if apt.Status != model.AppointmentStatusCompleted {
		return nil, apperrors.Conflict("feedback requires a completed appointment", nil)
	}

	existing, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("appointment already has feedback", nil)
	}

	feedback := &model.Feedback{
		AppointmentID: appointmentID,
		DoctorID:      apt.DoctorID,
		PatientID:     claims.UserID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	}

	if err := s.repo.Create(ctx, feedback); err != nil {
		return nil, apperrors.Internal(err)
	}
	return feedback, nil
}

// ListForDoctor returns a doctor's feedback, newest first, with each row's
// patient resolved through the directory. Misses leave the profile nil.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.FeedbackWithPatient, error) {
	feedbacks, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	result := make([]*model.FeedbackWithPatient, 0, len(feedbacks))
	for _, fb := range feedbacks {
		entry := &model.FeedbackWithPatient{Feedback: *fb}
		if profile, ok := s.directory.GetProfile(ctx, fb.PatientID); ok {
			entry.Patient = &profile
		}
		result = append(result, entry)
	}
	return result, nil
}
