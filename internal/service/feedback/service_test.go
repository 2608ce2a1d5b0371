package feedback

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/service/directory"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/logger"
)

type fakeFeedbackRepo struct {
	feedbacks []*model.Feedback
}

func (f *fakeFeedbackRepo) Create(ctx context.Context, fb *model.Feedback) error {
	fb.ID = uuid.New()
	f.feedbacks = append(f.feedbacks, fb)
	return nil
}

func (f *fakeFeedbackRepo) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Feedback, error) {
	for _, fb := range f.feedbacks {
		if fb.AppointmentID == appointmentID {
			return fb, nil
		}
	}
	return nil, nil
}

func (f *fakeFeedbackRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Feedback, error) {
	var out []*model.Feedback
	for _, fb := range f.feedbacks {
		if fb.DoctorID == doctorID {
			out = append(out, fb)
		}
	}
	return out, nil
}

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := f.appointments[id]
	if !ok {
		return nil, fmt.Errorf("failed to get appointment: not found")
	}
	return apt, nil
}

func (f *fakeAppointmentRepo) CreateWithIntent(ctx context.Context, apt *model.Appointment, intent *model.OutboxEvent) error {
	return nil
}
func (f *fakeAppointmentRepo) UpdateWithIntent(ctx context.Context, apt *model.Appointment, intent *model.OutboxEvent) error {
	return nil
}
func (f *fakeAppointmentRepo) UpdateWithPayment(ctx context.Context, apt *model.Appointment, payment *model.Payment, intent *model.OutboxEvent) error {
	return nil
}
func (f *fakeAppointmentRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*model.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointmentRepo) CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*model.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointmentRepo) CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeAppointmentRepo) ClaimGuestBookings(ctx context.Context, email string, userID uuid.UUID, role string) (int64, error) {
	return 0, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("failed to get user: not found")
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, fmt.Errorf("not found")
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error { return nil }

func (f *fakeUserRepo) ListByRole(ctx context.Context, role string) ([]*model.User, error) {
	return nil, nil
}

func setup(t *testing.T, status model.AppointmentStatus) (*Service, *model.Appointment, *model.TokenClaims) {
	t.Helper()

	patientID := uuid.New()
	apt := &model.Appointment{
		DoctorID:  uuid.New(),
		PatientID: &patientID,
		Status:    status,
	}
	apt.ID = uuid.New()

	patient := &model.User{Name: "Jane Doe", Email: "jane@example.com", Role: model.UserRolePatient}
	patient.ID = patientID

	log := logger.NewLogger(nil)
	dir := directory.NewService(&fakeUserRepo{users: map[uuid.UUID]*model.User{patientID: patient}}, time.Minute, log)
	svc := NewService(&fakeFeedbackRepo{},
		&fakeAppointmentRepo{appointments: map[uuid.UUID]*model.Appointment{apt.ID: apt}}, dir, log)

	claims := &model.TokenClaims{UserID: patientID, Role: model.UserRolePatient}
	return svc, apt, claims
}

func TestSubmitFeedback(t *testing.T) {
	svc, apt, claims := setup(t, model.AppointmentStatusCompleted)

	comment := "great visit"
	fb, err := svc.Submit(context.Background(), &model.SubmitFeedbackRequest{
		AppointmentID: apt.ID.String(),
		Rating:        5,
		Comment:       &comment,
	}, claims)
	require.NoError(t, err)

	assert.Equal(t, apt.ID, fb.AppointmentID)
	assert.Equal(t, apt.DoctorID, fb.DoctorID)
	assert.Equal(t, 5, fb.Rating)
}

func TestSubmitTwiceRejected(t *testing.T) {
	svc, apt, claims := setup(t, model.AppointmentStatusCompleted)

	req := &model.SubmitFeedbackRequest{AppointmentID: apt.ID.String(), Rating: 4}
	_, err := svc.Submit(context.Background(), req, claims)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), req, claims)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestSubmitRequiresCompletedAppointment(t *testing.T) {
	for _, status := range []model.AppointmentStatus{
		model.AppointmentStatusPending,
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCancelled,
	} {
		svc, apt, claims := setup(t, status)
		_, err := svc.Submit(context.Background(), &model.SubmitFeedbackRequest{
			AppointmentID: apt.ID.String(),
			Rating:        3,
		}, claims)
		require.Error(t, err, "status %s should reject feedback", status)
	}
}

func TestSubmitWrongPatientForbidden(t *testing.T) {
	svc, apt, _ := setup(t, model.AppointmentStatusCompleted)

	claims := &model.TokenClaims{UserID: uuid.New(), Role: model.UserRolePatient}
	_, err := svc.Submit(context.Background(), &model.SubmitFeedbackRequest{
		AppointmentID: apt.ID.String(),
		Rating:        3,
	}, claims)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
}

func TestListForDoctorResolvesPatient(t *testing.T) {
	svc, apt, claims := setup(t, model.AppointmentStatusCompleted)

	_, err := svc.Submit(context.Background(), &model.SubmitFeedbackRequest{
		AppointmentID: apt.ID.String(),
		Rating:        5,
	}, claims)
	require.NoError(t, err)

	list, err := svc.ListForDoctor(context.Background(), apt.DoctorID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Patient)
	assert.Equal(t, "Jane Doe", list[0].Patient.Name)
}
