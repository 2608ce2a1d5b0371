package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/repository"
	"github.com/clinicbook/booking-api/pkg/logger"
)

const (
	doctorsCacheKey = "doctors"
	unknownName     = "Unknown"
)

// Service is a read-only projection over registered users. Lookups are
// cached for a short TTL; misses degrade to a typed miss so listing joins
// can render "Unknown" instead of failing the whole page.
type Service struct {
	userRepo repository.UserRepository
	cache    *gocache.Cache
	logger   *logger.Logger
}

func NewService(userRepo repository.UserRepository, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		cache:    gocache.New(ttl, 2*ttl),
		logger:   log,
	}
}

// ListDoctors returns every user registered with the doctor role.
func (s *Service) ListDoctors(ctx context.Context) ([]*model.User, error) {
	if cached, found := s.cache.Get(doctorsCacheKey); found {
		return cached.([]*model.User), nil
	}

	doctors, err := s.userRepo.ListByRole(ctx, model.UserRoleDoctor)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	s.cache.SetDefault(doctorsCacheKey, doctors)
	return doctors, nil
}

// GetProfile resolves display metadata for a user id. ok is false when no
// entry matches; callers must not treat that as an error.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (model.Profile, bool) {
	key := "profile:" + id.String()
	if cached, found := s.cache.Get(key); found {
		return cached.(model.Profile), true
	}

	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		s.logger.Debug("directory miss", "user_id", id.String())
		return model.Profile{}, false
	}

	profile := toProfile(user)
	s.cache.SetDefault(key, profile)
	return profile, true
}

// GetProfileByEmail resolves display metadata by email, used on the doctor
// side of listings where guest rows carry only an email snapshot.
func (s *Service) GetProfileByEmail(ctx context.Context, email string) (model.Profile, bool) {
	key := "profile_email:" + email
	if cached, found := s.cache.Get(key); found {
		return cached.(model.Profile), true
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return model.Profile{}, false
	}

	profile := toProfile(user)
	s.cache.SetDefault(key, profile)
	return profile, true
}

// DisplayName resolves a user id to a name, degrading to "Unknown".
func (s *Service) DisplayName(ctx context.Context, id uuid.UUID) string {
	profile, ok := s.GetProfile(ctx, id)
	if !ok || profile.Name == "" {
		return unknownName
	}
	return profile.Name
}

func toProfile(user *model.User) model.Profile {
	profile := model.Profile{
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
	if user.Phone != nil {
		profile.Phone = *user.Phone
	}
	if user.ProfileImage != nil {
		profile.ProfileImage = *user.ProfileImage
	}
	if user.Specialty != nil {
		profile.Specialty = *user.Specialty
	}
	return profile
}
