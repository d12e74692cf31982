package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/logging"
)

// ProfileService manages the signed-in user's profile.
type ProfileService struct {
	repo     *Repository
	identity actor
	now      func() time.Time
	logger   *slog.Logger
}

// NewProfileService constructs a profile service.
func NewProfileService(repo *Repository, identity IdentityProvider, now func() time.Time) *ProfileService {
	return NewProfileServiceWithLogger(repo, identity, now, nil)
}

// NewProfileServiceWithLogger constructs a profile service with a specified logger.
func NewProfileServiceWithLogger(repo *Repository, identity IdentityProvider, now func() time.Time, logger *slog.Logger) *ProfileService {
	if now == nil {
		now = time.Now
	}
	return &ProfileService{repo: repo, identity: actor{identity: identity}, now: now, logger: logging.OrDefault(logger)}
}

func (s *ProfileService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProfileService", operation, attrs...)
}

// GetProfile returns the caller's profile, or a profile seeded from the
// identity provider when none is stored yet.
func (s *ProfileService) GetProfile(ctx context.Context) (domain.UserProfile, error) {
	if s == nil {
		return domain.UserProfile{}, fmt.Errorf("ProfileService is nil")
	}
	user, err := s.identity.user(ctx)
	if err != nil {
		return domain.UserProfile{}, err
	}
	profile, err := s.repo.GetProfile(ctx, user.ID)
	if errors.Is(err, ErrNotFound) {
		return domain.UserProfile{UserID: user.ID, DisplayName: user.DisplayName, Email: user.Email}, nil
	}
	return profile, err
}

// SaveProfile stores the caller's profile. The display name is required and
// the username, when set, must be unique.
func (s *ProfileService) SaveProfile(ctx context.Context, input SaveProfileInput) (profile domain.UserProfile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}

	var user User
	user, err = s.identity.user(ctx)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SaveProfile", "user_id", user.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile saved")
	}()

	profile = domain.UserProfile{
		UserID:      user.ID,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Username:    domain.NormalizeUsername(input.Username),
		Email:       strings.TrimSpace(input.Email),
		UpdatedAt:   s.now().UTC(),
	}
	if profile.Email == "" {
		profile.Email = user.Email
	}

	vErr := &ValidationError{}
	if profile.DisplayName == "" {
		vErr.Add("displayName", "display name is required")
	}
	if validateErr := domain.Validate(profile); validateErr != nil {
		var fieldErrs *ValidationError
		if !errors.As(validateErr, &fieldErrs) {
			err = validateErr
			return
		}
		vErr.Merge(fieldErrs)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if profile.Username != "" {
		existing, findErr := s.repo.FindProfileByUsername(ctx, profile.Username)
		switch {
		case findErr == nil && existing.UserID != user.ID:
			err = fmt.Errorf("%w: username %q", ErrAlreadyExists, profile.Username)
			return
		case findErr != nil && !errors.Is(findErr, ErrNotFound):
			err = findErr
			return
		}
	}

	err = s.repo.PutProfile(ctx, profile)
	return
}
