package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/application/port"
	"github.com/unitms/army-ums/internal/domain/workflow"
	"github.com/unitms/army-ums/internal/models"
	"github.com/unitms/army-ums/pkg/database"
)

const requestColumns = `id, type, status, data, requester_id, admin_remark,
	manager_response, merge_status, merge_attempts, merge_error,
	merge_attempted_at, created_at, updated_at`

// RequestRepository is the SQLite-backed request store. Status transitions
// are conditional updates on the current status, which is the commit-time
// compare-and-swap the lifecycle engine relies on.
type RequestRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *database.DB, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new request row
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	query := `
		INSERT INTO requests (
			id, type, status, data, requester_id, merge_status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.Type.String(),
		request.Status,
		string(request.Data),
		request.RequesterID,
		request.MergeStatus,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	return nil
}

// GetByID retrieves a request by id; returns (nil, nil) when absent
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf("SELECT %s FROM requests WHERE id = ?", requestColumns)

	request, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return request, nil
}

// List retrieves requests matching the filter, newest first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*models.Request, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, strings.ToUpper(filter.Status))
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, strings.ToUpper(filter.Type))
	}
	if filter.RequesterID != "" {
		conditions = append(conditions, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}

	query := fmt.Sprintf("SELECT %s FROM requests", requestColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// Approve flips PENDING -> APPROVED and schedules the merge. Returns false
// when the request was not PENDING at commit time.
func (r *RequestRepository) Approve(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE requests
		SET status = ?, merge_status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		workflow.StateApproved.String(),
		models.MergeStatusPending,
		now,
		id,
		workflow.StatePending.String(),
	)
	if err != nil {
		r.logger.Error("Failed to approve request", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to approve request: %w", err)
	}

	return affectedRow(result)
}

// Reject flips PENDING -> REJECTED with the admin remark and rewritten
// payload. Returns false when the request was not PENDING at commit time.
func (r *RequestRepository) Reject(ctx context.Context, id, remark string, data []byte, now time.Time) (bool, error) {
	query := `
		UPDATE requests
		SET status = ?, admin_remark = ?, data = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		workflow.StateRejected.String(),
		remark,
		string(data),
		now,
		id,
		workflow.StatePending.String(),
	)
	if err != nil {
		r.logger.Error("Failed to reject request", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to reject request: %w", err)
	}

	return affectedRow(result)
}

// Resubmit flips REJECTED -> PENDING with the manager response and merged
// payload. Returns false when the request was not REJECTED at commit time.
func (r *RequestRepository) Resubmit(ctx context.Context, id, response string, data []byte, now time.Time) (bool, error) {
	query := `
		UPDATE requests
		SET status = ?, manager_response = ?, data = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		workflow.StatePending.String(),
		response,
		string(data),
		now,
		id,
		workflow.StateRejected.String(),
	)
	if err != nil {
		r.logger.Error("Failed to resubmit request", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to resubmit request: %w", err)
	}

	return affectedRow(result)
}

// ListPendingMerges returns approved requests whose merge has not landed,
// oldest first so the retry worker drains in order. RUNNING rows are included
// only once their claim predates staleBefore, so crashed appliers do not
// strand a merge.
func (r *RequestRepository) ListPendingMerges(ctx context.Context, limit int, staleBefore time.Time) ([]*models.Request, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM requests
		WHERE status = ?
			AND (merge_status = ? OR (merge_status = ? AND merge_attempted_at < ?))
		ORDER BY updated_at ASC
		LIMIT ?
	`, requestColumns)

	rows, err := r.db.QueryContext(ctx, query,
		workflow.StateApproved.String(),
		models.MergeStatusPending,
		models.MergeStatusRunning,
		staleBefore,
		limit,
	)
	if err != nil {
		r.logger.Error("Failed to list pending merges", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending merges: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ClaimMerge flips the merge to RUNNING in a single conditional update. The
// guard is the same set ListPendingMerges exposes, so of all appliers holding
// a snapshot of the row, exactly one wins the claim and executes the merge.
func (r *RequestRepository) ClaimMerge(ctx context.Context, id string, staleBefore, now time.Time) (bool, error) {
	query := `
		UPDATE requests
		SET merge_status = ?, merge_attempted_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
			AND (merge_status = ? OR (merge_status = ? AND merge_attempted_at < ?))
	`

	result, err := r.db.ExecContext(ctx, query,
		models.MergeStatusRunning,
		now,
		now,
		id,
		workflow.StateApproved.String(),
		models.MergeStatusPending,
		models.MergeStatusRunning,
		staleBefore,
	)
	if err != nil {
		r.logger.Error("Failed to claim merge", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to claim merge: %w", err)
	}

	return affectedRow(result)
}

// MarkMergeApplied records a completed merge
func (r *RequestRepository) MarkMergeApplied(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE requests
		SET merge_status = ?, merge_error = NULL, merge_attempted_at = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, models.MergeStatusApplied, now, now, id); err != nil {
		r.logger.Error("Failed to mark merge applied", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark merge applied: %w", err)
	}
	return nil
}

// MarkMergeFailed records a failed merge attempt; dead parks the request so
// the worker stops retrying it
func (r *RequestRepository) MarkMergeFailed(ctx context.Context, id string, attempts int, mergeErr string, dead bool, now time.Time) error {
	status := models.MergeStatusPending
	if dead {
		status = models.MergeStatusFailed
	}

	query := `
		UPDATE requests
		SET merge_status = ?, merge_attempts = ?, merge_error = ?, merge_attempted_at = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, status, attempts, mergeErr, now, now, id); err != nil {
		r.logger.Error("Failed to mark merge failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark merge failed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var request models.Request
	var requestType, data string
	var adminRemark, managerResponse, mergeError sql.NullString
	var mergeAttemptedAt sql.NullTime

	err := row.Scan(
		&request.ID,
		&requestType,
		&request.Status,
		&data,
		&request.RequesterID,
		&adminRemark,
		&managerResponse,
		&request.MergeStatus,
		&request.MergeAttempts,
		&mergeError,
		&mergeAttemptedAt,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	request.Type = models.RequestType(requestType)
	request.Data = []byte(data)
	request.AdminRemark = adminRemark.String
	request.ManagerResponse = managerResponse.String
	request.MergeError = mergeError.String
	if mergeAttemptedAt.Valid {
		request.MergeAttemptAt = &mergeAttemptedAt.Time
	}

	return &request, nil
}

func collectRequests(rows *sql.Rows) ([]*models.Request, error) {
	var requests []*models.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func affectedRow(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}
