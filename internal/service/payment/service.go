package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/repository"
	"github.com/clinicbook/booking-api/internal/service/directory"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/logger"
)

// Service reads the append-only payment record. Rows are created by the
// appointment service inside the paid transition; there is no write path here.
type Service struct {
	repo      repository.PaymentRepository
	directory *directory.Service
	logger    *logger.Logger
}

func NewService(repo repository.PaymentRepository, dir *directory.Service, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: dir,
		logger:    log,
	}
}

// ListForDoctor returns a doctor's received payments with each payer's name.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.PaymentWithName, error) {
	payments, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return s.withNames(ctx, payments, func(p *model.Payment) uuid.UUID { return p.PatientID }), nil
}

// ListForPatient returns a patient's payments with each doctor's name.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PaymentWithName, error) {
	payments, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return s.withNames(ctx, payments, func(p *model.Payment) uuid.UUID { return p.DoctorID }), nil
}

// ListLatestForDoctor feeds the dashboard's recent-transactions panel.
func (s *Service) ListLatestForDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*model.PaymentWithName, error) {
	if limit < 1 {
		limit = 5
	}
	payments, err := s.repo.ListLatestByDoctor(ctx, doctorID, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return s.withNames(ctx, payments, func(p *model.Payment) uuid.UUID { return p.PatientID }), nil
}

func (s *Service) withNames(ctx context.Context, payments []*model.Payment, counterpart func(*model.Payment) uuid.UUID) []*model.PaymentWithName {
	result := make([]*model.PaymentWithName, 0, len(payments))
	for _, p := range payments {
		result = append(result, &model.PaymentWithName{
			Payment: *p,
			Name:    s.directory.DisplayName(ctx, counterpart(p)),
		})
	}
	return result
}
