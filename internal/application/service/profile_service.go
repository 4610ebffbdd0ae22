package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/application/port"
	"github.com/unitms/army-ums/internal/models"
)

// ProfileService handles direct profile reads and section writes. These are
// the owner's own edits and bypass the request lifecycle entirely.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	UpdateSection(ctx context.Context, userID, section string, value json.RawMessage) (*models.Profile, error)
}

type profileServiceImpl struct {
	profileRepo port.ProfileRepository
	logger      *zap.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(profileRepo port.ProfileRepository, logger *zap.Logger) ProfileService {
	return &profileServiceImpl{
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// Get returns the user's profile, or an empty profile when none exists yet.
// The row itself is only created on first write.
func (s *profileServiceImpl) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return &models.Profile{UserID: userID}, nil
	}
	return profile, nil
}

// UpdateSection overwrites one named section and returns the fresh profile
func (s *profileServiceImpl) UpdateSection(ctx context.Context, userID, section string, value json.RawMessage) (*models.Profile, error) {
	if _, ok := models.SectionColumn(section); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSection, section)
	}
	if len(value) == 0 {
		value = json.RawMessage("null")
	}

	if err := s.profileRepo.ReplaceSection(ctx, userID, section, value); err != nil {
		s.logger.Error("Failed to update profile section",
			zap.String("user_id", userID),
			zap.String("section", section),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Profile section updated",
		zap.String("user_id", userID),
		zap.String("section", section))
	return s.Get(ctx, userID)
}
