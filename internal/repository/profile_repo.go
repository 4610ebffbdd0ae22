package repository

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/models"
	"github.com/unitms/army-ums/pkg/database"
)

// lockStripes bounds the lock table; user IDs hash onto a fixed stripe.
const lockStripes = 64

// ProfileRepository is the SQLite-backed profile store. The profile is the
// one resource written by multiple principals (the owner's direct edits and
// the merge applier), so every write for a given user goes through a striped
// mutex keyed by user ID: the read-modify-write inside MutateSection can
// never interleave with another section write for the same user. Two users
// sharing a stripe serialize against each other, which is harmless.
type ProfileRepository struct {
	db     *database.DB
	logger *zap.Logger

	locks [lockStripes]sync.Mutex
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// userLock returns the stripe serializing writes for one user
func (r *ProfileRepository) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &r.locks[h.Sum32()%lockStripes]
}

// GetByUserID retrieves a profile; returns (nil, nil) when the user has no
// profile row yet
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT user_id, personal_details, family, education, medical, others,
			leave_data, salary_data, documents, created_at, updated_at
		FROM user_profiles
		WHERE user_id = ?
	`

	var profile models.Profile
	sections := make([]sql.NullString, 8)

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&sections[0], &sections[1], &sections[2], &sections[3],
		&sections[4], &sections[5], &sections[6], &sections[7],
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get profile", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	rawSections := []*[]byte{
		(*[]byte)(&profile.PersonalDetails),
		(*[]byte)(&profile.Family),
		(*[]byte)(&profile.Education),
		(*[]byte)(&profile.Medical),
		(*[]byte)(&profile.Others),
		(*[]byte)(&profile.LeaveData),
		(*[]byte)(&profile.SalaryData),
		(*[]byte)(&profile.Documents),
	}
	for i, section := range sections {
		if section.Valid && section.String != "" {
			*rawSections[i] = []byte(section.String)
		}
	}

	return &profile, nil
}

// Ensure lazily creates an empty profile row for the user
func (r *ProfileRepository) Ensure(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	query := `
		INSERT OR IGNORE INTO user_profiles (user_id, created_at, updated_at)
		VALUES (?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, userID, now, now); err != nil {
		r.logger.Error("Failed to ensure profile", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

// ReplaceSection overwrites one section wholesale, creating the profile row
// if needed
func (r *ProfileRepository) ReplaceSection(ctx context.Context, userID, section string, value []byte) error {
	column, ok := models.SectionColumn(section)
	if !ok {
		return fmt.Errorf("unknown profile section: %q", section)
	}

	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := r.Ensure(ctx, userID); err != nil {
		return err
	}

	// column comes from the section whitelist, never from input
	query := fmt.Sprintf("UPDATE user_profiles SET %s = ?, updated_at = ? WHERE user_id = ?", column)

	if _, err := r.db.ExecContext(ctx, query, string(value), time.Now().UTC(), userID); err != nil {
		r.logger.Error("Failed to replace profile section",
			zap.String("user_id", userID),
			zap.String("section", section),
			zap.Error(err))
		return fmt.Errorf("failed to replace section %s: %w", section, err)
	}
	return nil
}

// MutateSection applies a read-modify-write to one section under the user
// lock, with the read and write in one transaction
func (r *ProfileRepository) MutateSection(ctx context.Context, userID, section string, mutate func(current []byte) ([]byte, error)) error {
	column, ok := models.SectionColumn(section)
	if !ok {
		return fmt.Errorf("unknown profile section: %q", section)
	}

	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := r.Ensure(ctx, userID); err != nil {
		return err
	}

	return r.db.WithTransaction(func(tx *sql.Tx) error {
		var current sql.NullString
		selectQuery := fmt.Sprintf("SELECT %s FROM user_profiles WHERE user_id = ?", column)
		if err := tx.QueryRowContext(ctx, selectQuery, userID).Scan(&current); err != nil {
			return fmt.Errorf("failed to read section %s: %w", section, err)
		}

		var raw []byte
		if current.Valid && current.String != "" {
			raw = []byte(current.String)
		}

		next, err := mutate(raw)
		if err != nil {
			return err
		}

		updateQuery := fmt.Sprintf("UPDATE user_profiles SET %s = ?, updated_at = ? WHERE user_id = ?", column)
		if _, err := tx.ExecContext(ctx, updateQuery, string(next), time.Now().UTC(), userID); err != nil {
			return fmt.Errorf("failed to write section %s: %w", section, err)
		}
		return nil
	})
}
