package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/repository"
	"github.com/clinicbook/booking-api/internal/service/directory"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/logger"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Service struct {
	repo      repository.AppointmentRepository
	directory *directory.Service
	logger    *logger.Logger
}

func NewService(repo repository.AppointmentRepository, dir *directory.Service, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: dir,
		logger:    log,
	}
}

// Create books an appointment. actor is nil for guest bookings; a signed-in
// patient becomes the row's patient regardless of the request body.
func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest, actor *model.TokenClaims) (*model.Appointment, error) {
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid doctor_id", err)
	}

	profile, ok := s.directory.GetProfile(ctx, doctorID)
	if !ok || profile.Role != model.UserRoleDoctor {
		return nil, apperrors.NotFound("doctor", nil)
	}

	var patientID *uuid.UUID
	switch {
	case actor != nil && actor.Role == model.UserRolePatient:
		id := actor.UserID
		patientID = &id
	case req.PatientID != "":
		id, err := uuid.Parse(req.PatientID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid patient_id", err)
		}
		patientID = &id
	}

	apt := &model.Appointment{
		DoctorID:      doctorID,
		PatientID:     patientID,
		FullName:      req.FullName,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		DateTime:      req.DateTime,
		Status:        model.AppointmentStatusPending,
		PaymentStatus: model.PaymentStateUnpaid,
		Amount:        req.Amount,
	}
	apt.ID = uuid.New()

	intent, err := model.NewNotificationIntentEvent(model.NotificationIntent{
		RecipientID: doctorID,
		Message:     fmt.Sprintf("New appointment requested by %s", req.FullName),
		Status:      string(model.AppointmentStatusPending),
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.CreateWithIntent(ctx, apt, intent); err != nil {
		return nil, apperrors.Internal(err)
	}

	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, claims *model.TokenClaims) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("appointment", err)
	}
	if !s.isParty(apt, claims) {
		return nil, apperrors.Forbidden("not a party to this appointment", nil)
	}
	return apt, nil
}

// Confirm is the doctor-side transition. Only the booked doctor may move the
// status, and only along the forward-only table.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, req *model.ConfirmAppointmentRequest, doctorID uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("appointment", err)
	}

	if apt.DoctorID != doctorID {
		return nil, apperrors.Forbidden("appointment belongs to another doctor", nil)
	}

	if !apt.Status.CanTransitionTo(req.Status) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("cannot change status from %s to %s", apt.Status, req.Status), nil)
	}

	apt.Status = req.Status
	if req.DateTime != nil {
		apt.DateTime = *req.DateTime
	}

	var intent *model.OutboxEvent
	if apt.PatientID != nil {
		doctorName := s.directory.DisplayName(ctx, doctorID)
		intent, err = model.NewNotificationIntentEvent(model.NotificationIntent{
			RecipientID: *apt.PatientID,
			Message:     fmt.Sprintf("Your appointment status changed to %s by %s", req.Status, doctorName),
			Status:      string(req.Status),
		})
		if err != nil {
			return nil, apperrors.Internal(err)
		}
	}

	if err := s.repo.UpdateWithIntent(ctx, apt, intent); err != nil {
		return nil, apperrors.Internal(err)
	}

	return apt, nil
}

// UpdateAsPatient handles the patient-side transitions: marking the
// appointment paid, or moving its status forward. Each call performs exactly
// one mutation and enqueues exactly one intent to the doctor.
func (s *Service) UpdateAsPatient(ctx context.Context, id uuid.UUID, req *model.PatientUpdateRequest, claims *model.TokenClaims) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("appointment", err)
	}

	if apt.PatientID == nil || *apt.PatientID != claims.UserID {
		return nil, apperrors.Forbidden("appointment belongs to another patient", nil)
	}

	patientName := s.directory.DisplayName(ctx, claims.UserID)

	if req.PaymentStatus != nil && *req.PaymentStatus == model.PaymentStatePaid {
		return s.markPaid(ctx, apt, req, patientName)
	}

	if req.Status == nil {
		return nil, apperrors.BadRequest("nothing to update", nil)
	}

	if !apt.Status.CanTransitionTo(*req.Status) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("cannot change status from %s to %s", apt.Status, *req.Status), nil)
	}
	apt.Status = *req.Status

	intent, err := model.NewNotificationIntentEvent(model.NotificationIntent{
		RecipientID: apt.DoctorID,
		Message:     fmt.Sprintf("%s updated their appointment status to %s", patientName, *req.Status),
		Status:      string(*req.Status),
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.UpdateWithIntent(ctx, apt, intent); err != nil {
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

func (s *Service) markPaid(ctx context.Context, apt *model.Appointment, req *model.PatientUpdateRequest, patientName string) (*model.Appointment, error) {
	if apt.PaymentStatus == model.PaymentStatePaid {
		return nil, apperrors.Conflict("appointment is already paid", nil)
	}

	apt.PaymentStatus = model.PaymentStatePaid

	method := req.PaymentMethod
	if method == "" {
		method = model.PaymentMethodUnknown
	}

	payment := &model.Payment{
		AppointmentID: apt.ID,
		PatientID:     *apt.PatientID,
		DoctorID:      apt.DoctorID,
		Amount:        apt.Amount,
		Status:        string(model.PaymentStatePaid),
		PaymentMethod: method,
	}

	intent, err := model.NewNotificationIntentEvent(model.NotificationIntent{
		RecipientID: apt.DoctorID,
		Message:     fmt.Sprintf("%s has successfully made the payment for their appointment.", patientName),
		Status:      string(model.PaymentStatePaid),
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.UpdateWithPayment(ctx, apt, payment, intent); err != nil {
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

// ListForDoctor pages a doctor's appointments, joining patient display
// metadata. Registered patients resolve through the directory by email;
// guests fall back to the booking snapshot.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, p model.Pagination) (*model.AppointmentPage, error) {
	page, pageSize := normalize(p)

	total, err := s.repo.CountByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	totalPages := pageCount(total, pageSize)
	if total == 0 || page > totalPages {
		return &model.AppointmentPage{Appointments: []*model.AppointmentWithProfile{}, TotalPages: totalPages}, nil
	}

	appointments, err := s.repo.ListByDoctor(ctx, doctorID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	result := make([]*model.AppointmentWithProfile, 0, len(appointments))
	for _, apt := range appointments {
		entry := &model.AppointmentWithProfile{
			Appointment:  *apt,
			DisplayName:  apt.FullName,
			DisplayPhone: apt.PhoneNumber,
		}
		if profile, ok := s.directory.GetProfileByEmail(ctx, apt.Email); ok {
			entry.DisplayName = profile.Name
			entry.DisplayPhone = profile.Phone
			entry.ProfileImage = profile.ProfileImage
		}
		result = append(result, entry)
	}

	return &model.AppointmentPage{Appointments: result, TotalPages: totalPages}, nil
}

// ListForPatient pages a patient's appointments, joining doctor display
// metadata by id. Directory misses degrade to "Unknown".
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, p model.Pagination) (*model.AppointmentPage, error) {
	page, pageSize := normalize(p)

	total, err := s.repo.CountByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	totalPages := pageCount(total, pageSize)
	if total == 0 || page > totalPages {
		return &model.AppointmentPage{Appointments: []*model.AppointmentWithProfile{}, TotalPages: totalPages}, nil
	}

	appointments, err := s.repo.ListByPatient(ctx, patientID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	result := make([]*model.AppointmentWithProfile, 0, len(appointments))
	for _, apt := range appointments {
		entry := &model.AppointmentWithProfile{
			Appointment: *apt,
			DisplayName: "Unknown",
		}
		if profile, ok := s.directory.GetProfile(ctx, apt.DoctorID); ok {
			entry.DisplayName = profile.Name
			entry.DisplayPhone = profile.Phone
			entry.ProfileImage = profile.ProfileImage
			entry.Specialty = profile.Specialty
		}
		result = append(result, entry)
	}

	return &model.AppointmentPage{Appointments: result, TotalPages: totalPages}, nil
}

func (s *Service) isParty(apt *model.Appointment, claims *model.TokenClaims) bool {
	if claims == nil {
		return false
	}
	if claims.Role == model.UserRoleAdmin {
		return true
	}
	if apt.DoctorID == claims.UserID {
		return true
	}
	return apt.PatientID != nil && *apt.PatientID == claims.UserID
}

func normalize(p model.Pagination) (page, pageSize int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	pageSize = p.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func pageCount(total, pageSize int) int {
	return (total + pageSize - 1) / pageSize
}
