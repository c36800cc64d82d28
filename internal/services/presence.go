package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
)

// IsOnline reports whether a user last seen at lastSeen counts as online at now.
func IsOnline(now, lastSeen time.Time, threshold time.Duration) bool {
	if lastSeen.IsZero() {
		return false
	}
	return now.Sub(lastSeen) <= threshold
}

// UserService owns profile documents and presence. Online state is derived
// from last_seen_at on read; nothing sweeps stale users.
type UserService struct {
	users     repositories.UserRepository
	threshold time.Duration
	now       clock
}

func NewUserService(users repositories.UserRepository, threshold time.Duration) *UserService {
	return &UserService{users: users, threshold: threshold, now: systemClock}
}

// Create stores the profile of an authenticated user. The profile id is the
// auth subject so relations and inboxes key on the same id as the token.
func (s *UserService) Create(ctx context.Context, userID, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if userID == "" || username == "" {
		return nil, models.NewValidationError("user id and username are required")
	}
	user := models.NewUser(username)
	user.ID = userID
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, models.NewConflictError("profile or username already exists")
		}
		return nil, err
	}
	return user, nil
}

// Touch records activity for userID.
func (s *UserService) Touch(ctx context.Context, userID string) error {
	return s.users.TouchLastSeen(ctx, userID, s.now())
}

// Get returns the public projection of a user with computed online state.
func (s *UserService) Get(ctx context.Context, userID string) (models.UserCompact, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.UserCompact{}, err
	}
	return user.ToCompact(IsOnline(s.now(), user.LastSeenAt, s.threshold)), nil
}
