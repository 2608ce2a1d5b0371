package appointment

import (
	"context"
	"encoding/json"
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

type fakeUserRepo struct {
	byID    map[uuid.UUID]*model.User
	byEmail map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[uuid.UUID]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) add(user *model.User) {
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("failed to get user: not found")
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("failed to get user by email: not found")
	}
	return u, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error { return nil }

func (f *fakeUserRepo) ListByRole(ctx context.Context, role string) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.byID {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
	intents      []*model.OutboxEvent
	payments     []*model.Payment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (f *fakeAppointmentRepo) CreateWithIntent(ctx context.Context, apt *model.Appointment, intent *model.OutboxEvent) error {
	copied := *apt
	f.appointments[apt.ID] = &copied
	f.intents = append(f.intents, intent)
	return nil
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := f.appointments[id]
	if !ok {
		return nil, fmt.Errorf("failed to get appointment: not found")
	}
	copied := *apt
	return &copied, nil
}

func (f *fakeAppointmentRepo) UpdateWithIntent(ctx context.Context, apt *model.Appointment, intent *model.OutboxEvent) error {
	copied := *apt
	f.appointments[apt.ID] = &copied
	if intent != nil {
		f.intents = append(f.intents, intent)
	}
	return nil
}

func (f *fakeAppointmentRepo) UpdateWithPayment(ctx context.Context, apt *model.Appointment, payment *model.Payment, intent *model.OutboxEvent) error {
	copied := *apt
	f.appointments[apt.ID] = &copied
	f.payments = append(f.payments, payment)
	f.intents = append(f.intents, intent)
	return nil
}

func (f *fakeAppointmentRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*model.Appointment, error) {
	return f.page(func(a *model.Appointment) bool { return a.DoctorID == doctorID }, limit, offset), nil
}

func (f *fakeAppointmentRepo) CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	return len(f.page(func(a *model.Appointment) bool { return a.DoctorID == doctorID }, len(f.appointments), 0)), nil
}

func (f *fakeAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*model.Appointment, error) {
	match := func(a *model.Appointment) bool {
		return a.PatientID != nil && *a.PatientID == patientID
	}
	return f.page(match, limit, offset), nil
}

func (f *fakeAppointmentRepo) CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	match := func(a *model.Appointment) bool {
		return a.PatientID != nil && *a.PatientID == patientID
	}
	return len(f.page(match, len(f.appointments), 0)), nil
}

func (f *fakeAppointmentRepo) ClaimGuestBookings(ctx context.Context, email string, userID uuid.UUID, role string) (int64, error) {
	var claimed int64
	for _, a := range f.appointments {
		if a.Email == email && role == model.UserRolePatient && a.PatientID == nil {
			id := userID
			a.PatientID = &id
			claimed++
		}
	}
	return claimed, nil
}

func (f *fakeAppointmentRepo) page(match func(*model.Appointment) bool, limit, offset int) []*model.Appointment {
	var all []*model.Appointment
	for _, a := range f.appointments {
		if match(a) {
			all = append(all, a)
		}
	}
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func newService(t *testing.T) (*Service, *fakeAppointmentRepo, *fakeUserRepo) {
	t.Helper()
	users := newFakeUserRepo()
	repo := newFakeAppointmentRepo()
	log := logger.NewLogger(nil)
	dir := directory.NewService(users, time.Minute, log)
	return NewService(repo, dir, log), repo, users
}

func addDoctor(users *fakeUserRepo, name string) uuid.UUID {
	doctor := &model.User{Email: name + "@clinic.test", Role: model.UserRoleDoctor, Name: name}
	doctor.ID = uuid.New()
	users.add(doctor)
	return doctor.ID
}

func addPatient(users *fakeUserRepo, name, email string) uuid.UUID {
	patient := &model.User{Email: email, Role: model.UserRolePatient, Name: name}
	patient.ID = uuid.New()
	users.add(patient)
	return patient.ID
}

func decodeIntent(t *testing.T, event *model.OutboxEvent) model.NotificationIntent {
	t.Helper()
	require.NotNil(t, event)
	var intent model.NotificationIntent
	require.NoError(t, json.Unmarshal(event.Payload, &intent))
	return intent
}

func createRequest(doctorID uuid.UUID) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		DoctorID:    doctorID.String(),
		FullName:    "Jane Doe",
		Email:       "jane@example.com",
		PhoneNumber: "555-0101",
		DateTime:    time.Now().Add(48 * time.Hour),
		Amount:      75,
	}
}

func TestCreateGuestBooking(t *testing.T) {
	svc, repo, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")

	apt, err := svc.Create(context.Background(), createRequest(doctorID), nil)
	require.NoError(t, err)

	assert.Nil(t, apt.PatientID)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, model.PaymentStateUnpaid, apt.PaymentStatus)
	assert.Equal(t, "Jane Doe", apt.FullName)

	require.Len(t, repo.intents, 1)
	intent := decodeIntent(t, repo.intents[0])
	assert.Equal(t, doctorID, intent.RecipientID)
	assert.Equal(t, "New appointment requested by Jane Doe", intent.Message)
	assert.Equal(t, "pending", intent.Status)
}

func TestCreateAsSignedInPatient(t *testing.T) {
	svc, _, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")
	patientID := addPatient(users, "Jane Doe", "jane@example.com")

	claims := &model.TokenClaims{UserID: patientID, Email: "jane@example.com", Role: model.UserRolePatient}
	apt, err := svc.Create(context.Background(), createRequest(doctorID), claims)
	require.NoError(t, err)

	require.NotNil(t, apt.PatientID)
	assert.Equal(t, patientID, *apt.PatientID)
}

func TestCreateUnknownDoctor(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Create(context.Background(), createRequest(uuid.New()), nil)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestConfirmNotifiesPatient(t *testing.T) {
	svc, repo, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")
	patientID := addPatient(users, "Jane Doe", "jane@example.com")

	claims := &model.TokenClaims{UserID: patientID, Role: model.UserRolePatient}
	apt, err := svc.Create(context.Background(), createRequest(doctorID), claims)
	require.NoError(t, err)

	updated, err := svc.Confirm(context.Background(), apt.ID,
		&model.ConfirmAppointmentRequest{Status: model.AppointmentStatusConfirmed}, doctorID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, updated.Status)

	require.Len(t, repo.intents, 2)
	intent := decodeIntent(t, repo.intents[1])
	assert.Equal(t, patientID, intent.RecipientID)
	assert.Equal(t, "Your appointment status changed to confirmed by Dr. Adams", intent.Message)
}

func TestConfirmGuestBookingSkipsNotification(t *testing.T) {
	svc, repo, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")

	apt, err := svc.Create(context.Background(), createRequest(doctorID), nil)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), apt.ID,
		&model.ConfirmAppointmentRequest{Status: model.AppointmentStatusConfirmed}, doctorID)
	require.NoError(t, err)

	// Only the creation intent; guests have no account to notify.
	assert.Len(t, repo.intents, 1)
}

func TestConfirmWrongDoctorForbidden(t *testing.T) {
	svc, _, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")
	otherDoctor := addDoctor(users, "Dr. Brown")

	apt, err := svc.Create(context.Background(), createRequest(doctorID), nil)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), apt.ID,
		&model.ConfirmAppointmentRequest{Status: model.AppointmentStatusConfirmed}, otherDoctor)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
}

func TestStatusTransitionsAreForwardOnly(t *testing.T) {
	svc, _, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")

	apt, err := svc.Create(context.Background(), createRequest(doctorID), nil)
	require.NoError(t, err)

	// pending -> completed skips confirmation.
	_, err = svc.Confirm(context.Background(), apt.ID,
		&model.ConfirmAppointmentRequest{Status: model.AppointmentStatusCompleted}, doctorID)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)

	_, err = svc.Confirm(context.Background(), apt.ID,
		&model.ConfirmAppointmentRequest{Status: model.AppointmentStatusCancelled}, doctorID)
	require.NoError(t, err)

	// cancelled is terminal.
	_, err = svc.Confirm(context.Background(), apt.ID,
		&model.ConfirmAppointmentRequest{Status: model.AppointmentStatusConfirmed}, doctorID)
	require.Error(t, err)
}

func TestPatientPaymentCreatesOnePaymentRecord(t *testing.T) {
	svc, repo, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")
	patientID := addPatient(users, "Jane Doe", "jane@example.com")

	claims := &model.TokenClaims{UserID: patientID, Role: model.UserRolePatient}
	apt, err := svc.Create(context.Background(), createRequest(doctorID), claims)
	require.NoError(t, err)

	paid := model.PaymentStatePaid
	updated, err := svc.UpdateAsPatient(context.Background(), apt.ID,
		&model.PatientUpdateRequest{PaymentStatus: &paid, PaymentMethod: model.PaymentMethodOnline}, claims)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatePaid, updated.PaymentStatus)

	require.Len(t, repo.payments, 1)
	payment := repo.payments[0]
	assert.Equal(t, apt.ID, payment.AppointmentID)
	assert.Equal(t, 75.0, payment.Amount)
	assert.Equal(t, model.PaymentMethodOnline, payment.PaymentMethod)

	intent := decodeIntent(t, repo.intents[len(repo.intents)-1])
	assert.Equal(t, doctorID, intent.RecipientID)
	assert.Equal(t, "Jane Doe has successfully made the payment for their appointment.", intent.Message)
	assert.Equal(t, "paid", intent.Status)

	// Second payment attempt is rejected, no second record.
	_, err = svc.UpdateAsPatient(context.Background(), apt.ID,
		&model.PatientUpdateRequest{PaymentStatus: &paid}, claims)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Len(t, repo.payments, 1)
}

func TestPatientPaymentDefaultsMethodToUnknown(t *testing.T) {
	svc, repo, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")
	patientID := addPatient(users, "Jane Doe", "jane@example.com")

	claims := &model.TokenClaims{UserID: patientID, Role: model.UserRolePatient}
	apt, err := svc.Create(context.Background(), createRequest(doctorID), claims)
	require.NoError(t, err)

	paid := model.PaymentStatePaid
	_, err = svc.UpdateAsPatient(context.Background(), apt.ID,
		&model.PatientUpdateRequest{PaymentStatus: &paid}, claims)
	require.NoError(t, err)

	require.Len(t, repo.payments, 1)
	assert.Equal(t, model.PaymentMethodUnknown, repo.payments[0].PaymentMethod)
}

func TestPatientStatusUpdateNotifiesDoctor(t *testing.T) {
	svc, repo, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")
	patientID := addPatient(users, "Jane Doe", "jane@example.com")

	claims := &model.TokenClaims{UserID: patientID, Role: model.UserRolePatient}
	apt, err := svc.Create(context.Background(), createRequest(doctorID), claims)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), apt.ID,
		&model.ConfirmAppointmentRequest{Status: model.AppointmentStatusConfirmed}, doctorID)
	require.NoError(t, err)

	cancelled := model.AppointmentStatusCancelled
	_, err = svc.UpdateAsPatient(context.Background(), apt.ID,
		&model.PatientUpdateRequest{Status: &cancelled}, claims)
	require.NoError(t, err)

	intent := decodeIntent(t, repo.intents[len(repo.intents)-1])
	assert.Equal(t, doctorID, intent.RecipientID)
	assert.Equal(t, "Jane Doe updated their appointment status to cancelled", intent.Message)
}

func TestPatientCannotTouchForeignAppointment(t *testing.T) {
	svc, _, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")
	addPatient(users, "Jane Doe", "jane@example.com")
	stranger := addPatient(users, "Mallory", "mallory@example.com")

	apt, err := svc.Create(context.Background(), createRequest(doctorID), nil)
	require.NoError(t, err)

	paid := model.PaymentStatePaid
	claims := &model.TokenClaims{UserID: stranger, Role: model.UserRolePatient}
	_, err = svc.UpdateAsPatient(context.Background(), apt.ID,
		&model.PatientUpdateRequest{PaymentStatus: &paid}, claims)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
}

func TestListForDoctorPagination(t *testing.T) {
	svc, _, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")

	for i := 0; i < 25; i++ {
		req := createRequest(doctorID)
		req.Email = fmt.Sprintf("guest%d@example.com", i)
		_, err := svc.Create(context.Background(), req, nil)
		require.NoError(t, err)
	}

	page, err := svc.ListForDoctor(context.Background(), doctorID, model.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Appointments, 10)
	assert.Equal(t, 3, page.TotalPages)

	page, err = svc.ListForDoctor(context.Background(), doctorID, model.Pagination{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Appointments, 5)

	// Beyond the last page: empty result, not an error.
	page, err = svc.ListForDoctor(context.Background(), doctorID, model.Pagination{Page: 4, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Appointments)
	assert.Equal(t, 3, page.TotalPages)
}

func TestListForDoctorResolvesRegisteredPatients(t *testing.T) {
	svc, _, users := newService(t)
	doctorID := addDoctor(users, "Dr. Adams")
	addPatient(users, "Jane Registered", "jane@example.com")

	_, err := svc.Create(context.Background(), createRequest(doctorID), nil)
	require.NoError(t, err)

	page, err := svc.ListForDoctor(context.Background(), doctorID, model.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Appointments, 1)

	// Email matches a registered user, so the directory entry wins over
	// the booking snapshot.
	assert.Equal(t, "Jane Registered", page.Appointments[0].DisplayName)
}

func TestListForPatientUnknownDoctorDegrades(t *testing.T) {
	svc, repo, users := newService(t)
	patientID := addPatient(users, "Jane Doe", "jane@example.com")

	// Seed a row pointing at a doctor the directory no longer knows.
	apt := &model.Appointment{
		DoctorID:      uuid.New(),
		PatientID:     &patientID,
		FullName:      "Jane Doe",
		Email:         "jane@example.com",
		Status:        model.AppointmentStatusPending,
		PaymentStatus: model.PaymentStateUnpaid,
	}
	apt.ID = uuid.New()
	repo.appointments[apt.ID] = apt

	page, err := svc.ListForPatient(context.Background(), patientID, model.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Appointments, 1)
	assert.Equal(t, "Unknown", page.Appointments[0].DisplayName)
}
