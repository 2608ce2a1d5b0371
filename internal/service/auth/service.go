package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/repository"
	"github.com/clinicbook/booking-api/pkg/auth"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/logger"
)

const bcryptCost = 12

type Service struct {
	userRepo repository.UserRepository
	aptRepo  repository.AppointmentRepository
	jwtSvc   auth.JWTService
	logger   *logger.Logger
}

func NewService(userRepo repository.UserRepository, aptRepo repository.AppointmentRepository, jwtSvc auth.JWTService, log *logger.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		aptRepo:  aptRepo,
		jwtSvc:   jwtSvc,
		logger:   log,
	}
}

// Signup registers an account and claims any guest bookings made under the
// same email before the account existed.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.TokenResponse, error) {
	if existing, _ := s.userRepo.GetByEmail(ctx, req.Email); existing != nil {
		return nil, apperrors.Conflict("email already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	status := req.Status
	if status == "" {
		status = model.UserStatusActive
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Name:         req.Name,
		Phone:        req.Phone,
		Address:      req.Address,
		DateOfBirth:  req.DateOfBirth,
		Specialty:    req.Specialty,
		Status:       status,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.claimGuestBookings(ctx, user)

	return s.generateTokens(user)
}

// Login verifies credentials and re-runs the guest claim, picking up rows
// booked between sessions.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	if user.Status != model.UserStatusActive {
		return nil, apperrors.Forbidden("account is inactive", nil)
	}

	s.claimGuestBookings(ctx, user)

	return s.generateTokens(user)
}

// Refresh trades a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("user no longer exists"))
	}

	return s.generateTokens(user)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("user", err)
	}
	return user, nil
}

// UpdateProfile patches profile metadata. Email, role and password are
// immutable through this path.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req *model.UpdateProfileRequest) (*model.User, error) {
	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("user", err)
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Address != nil {
		user.Address = req.Address
	}
	if req.ProfileImage != nil {
		user.ProfileImage = req.ProfileImage
	}
	if req.Specialty != nil {
		user.Specialty = req.Specialty
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

// claimGuestBookings is best effort: a failed claim must not block sign-in.
func (s *Service) claimGuestBookings(ctx context.Context, user *model.User) {
	claimed, err := s.aptRepo.ClaimGuestBookings(ctx, user.Email, user.ID, user.Role)
	if err != nil {
		s.logger.Error(err, "failed to claim guest bookings", "user_id", user.ID.String())
		return
	}
	if claimed > 0 {
		s.logger.Info("claimed guest bookings", "user_id", user.ID.String(), "count", claimed)
	}
}

func (s *Service) generateTokens(user *model.User) (*model.TokenResponse, error) {
	access, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate access token: %w", err))
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(user)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate refresh token: %w", err))
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}
