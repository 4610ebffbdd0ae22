package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/models"
	"github.com/unitms/army-ums/pkg/database"
)

// newTestDB opens a migrated SQLite database in a per-test temp directory
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations(filepath.Join("..", "..", "migrations")))

	return db
}

// seedUser inserts a user row so foreign keys on requests and profiles hold
func seedUser(t *testing.T, db *database.DB, id string) *models.User {
	t.Helper()

	now := time.Now().UTC()
	user := &models.User{
		ID:           id,
		ArmyNumber:   fmt.Sprintf("ARMY-2026-%s", id),
		Username:     "user-" + id,
		Email:        id + "@unit.mil",
		PasswordHash: "x",
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	repo := NewUserRepository(db, zap.NewNop())
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}
