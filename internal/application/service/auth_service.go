package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/unitms/army-ums/internal/application/port"
	"github.com/unitms/army-ums/internal/models"
	"github.com/unitms/army-ums/pkg/utils"
)

// AuthService handles signup and credential verification. Token issuance is
// an HTTP concern and lives in the interface layer.
type AuthService interface {
	Signup(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type authServiceImpl struct {
	userRepo port.UserRepository
	logger   *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo port.UserRepository, logger *zap.Logger) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Signup registers a new USER-role principal with a generated army number
func (s *authServiceImpl) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := utils.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		ArmyNumber:   generateArmyNumber(now),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// A generated army number can collide with an existing row; only that
	// conflict warrants another draw. Username and email conflicts are the
	// caller's to resolve.
	for attempt := 0; ; attempt++ {
		err := s.userRepo.Create(ctx, user)
		if err == nil {
			break
		}
		if isArmyNumberConflict(err) {
			if attempt < maxArmyNumberDraws {
				s.logger.Warn("Army number collision, redrawing",
					zap.String("army_number", user.ArmyNumber))
				user.ArmyNumber = generateArmyNumber(now)
				continue
			}
			return nil, fmt.Errorf("allocate army number: %w", err)
		}
		if isUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		s.logger.Error("Failed to create user", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID),
		zap.String("army_number", user.ArmyNumber))
	return user, nil
}

// Login verifies credentials against either the username or email
func (s *authServiceImpl) Login(ctx context.Context, usernameOrEmail, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsernameOrEmail(ctx, strings.TrimSpace(usernameOrEmail))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by id
func (s *authServiceImpl) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns the full roster, username order
func (s *authServiceImpl) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.userRepo.List(ctx)
}

// maxArmyNumberDraws bounds the signup retries on army number collisions
const maxArmyNumberDraws = 5

// generateArmyNumber produces an ARMY-YYYY-NNNN service number
func generateArmyNumber(now time.Time) string {
	return fmt.Sprintf("ARMY-%d-%04d", now.Year(), rand.Intn(10000))
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "unique constraint")
}

func isArmyNumberConflict(err error) bool {
	return isUniqueConstraintError(err) && strings.Contains(err.Error(), "army_number")
}
