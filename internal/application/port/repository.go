// Package port defines the storage interfaces consumed by the application
// services. Implementations live in internal/repository.
package port

import (
	"context"
	"time"

	"github.com/unitms/army-ums/internal/models"
)

// RequestFilter narrows request listings. Empty fields match everything.
type RequestFilter struct {
	Status      string
	Type        string
	RequesterID string
}

// RequestRepository persists change-requests. The status-flipping methods
// (Approve, Reject, Resubmit) are conditional updates guarded on the current
// status; they return false when the guard did not match, which is how a
// losing writer in a concurrent race observes the conflict.
type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error

	// GetByID returns (nil, nil) when no such request exists
	GetByID(ctx context.Context, id string) (*models.Request, error)

	List(ctx context.Context, filter RequestFilter) ([]*models.Request, error)

	// Approve flips PENDING -> APPROVED and marks the merge as pending,
	// in a single conditional update
	Approve(ctx context.Context, id string, now time.Time) (bool, error)

	// Reject flips PENDING -> REJECTED, storing the admin remark and the
	// rewritten payload (which carries rejectionReason for display)
	Reject(ctx context.Context, id, remark string, data []byte, now time.Time) (bool, error)

	// Resubmit flips REJECTED -> PENDING, storing the manager response and
	// the merged payload
	Resubmit(ctx context.Context, id, response string, data []byte, now time.Time) (bool, error)

	// ListPendingMerges returns approved requests whose merge has not been
	// applied yet, oldest first: unclaimed PENDING rows plus RUNNING rows
	// whose claim predates staleBefore
	ListPendingMerges(ctx context.Context, limit int, staleBefore time.Time) ([]*models.Request, error)

	// ClaimMerge flips the merge to RUNNING so that exactly one applier
	// executes it. Claimable rows are PENDING ones and RUNNING ones whose
	// previous claim predates staleBefore; returns false when the row was
	// not claimable.
	ClaimMerge(ctx context.Context, id string, staleBefore, now time.Time) (bool, error)

	MarkMergeApplied(ctx context.Context, id string, now time.Time) error

	// MarkMergeFailed records a failed merge attempt; when dead is true the
	// request is parked as FAILED and no longer retried
	MarkMergeFailed(ctx context.Context, id string, attempts int, mergeErr string, dead bool, now time.Time) error
}

// ProfileRepository persists per-user profile sections. All writes for a
// given user are serialized behind a per-user lock inside the implementation,
// so a section mutation never races a concurrent write for the same user.
// Every write lazily creates the profile row.
type ProfileRepository interface {
	// GetByUserID returns (nil, nil) when the user has no profile row yet
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)

	// Ensure creates an empty profile row if none exists
	Ensure(ctx context.Context, userID string) error

	// ReplaceSection overwrites a section wholesale
	ReplaceSection(ctx context.Context, userID, section string, value []byte) error

	// MutateSection applies a read-modify-write to one section under the
	// user lock. mutate receives the current raw section (nil when unset)
	// and returns the replacement.
	MutateSection(ctx context.Context, userID, section string, mutate func(current []byte) ([]byte, error)) error
}

// UserRepository persists principals
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error

	// GetByID returns (nil, nil) when no such user exists
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByUsernameOrEmail matches either column; returns (nil, nil) on miss
	GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*models.User, error)

	List(ctx context.Context) ([]*models.User, error)

	// GetByIDs returns the users found for the given ids, keyed by id
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}
