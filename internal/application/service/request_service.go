package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/application/port"
	"github.com/unitms/army-ums/internal/domain/workflow"
	"github.com/unitms/army-ums/internal/models"
	"github.com/unitms/army-ums/pkg/utils"
)

// RequestService is the request lifecycle engine: it owns creation and the
// PENDING/APPROVED/REJECTED transitions. Transition legality is checked
// against the workflow table, and committed through a conditional update in
// the repository so that concurrent writers cannot both win.
type RequestService interface {
	Create(ctx context.Context, requesterID string, requestType models.RequestType, payload map[string]interface{}) (*models.Request, error)
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter port.RequestFilter) ([]*models.Request, error)
	ListWithTargets(ctx context.Context, filter port.RequestFilter) ([]*models.Request, error)
	Approve(ctx context.Context, id string) (*models.Request, error)
	Reject(ctx context.Context, id, remark string) (*models.Request, error)
	Resubmit(ctx context.Context, id, actorID, response string, updatedData map[string]interface{}) (*models.Request, error)
}

type requestServiceImpl struct {
	requestRepo port.RequestRepository
	userRepo    port.UserRepository
	merger      MergeService
	logger      *zap.Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requestRepo port.RequestRepository,
	userRepo port.UserRepository,
	merger MergeService,
	logger *zap.Logger,
) RequestService {
	return &requestServiceImpl{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		merger:      merger,
		logger:      logger,
	}
}

// Create validates the payload against its type and persists a new PENDING
// request. The target user must exist; the type-specific body must be
// present.
func (s *requestServiceImpl) Create(ctx context.Context, requesterID string, requestType models.RequestType, payload map[string]interface{}) (*models.Request, error) {
	if !requestType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRequestType, requestType)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMissingPayload)
	}

	userID, _ := payload["userId"].(string)
	if userID == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingPayload)
	}

	if err := validatePayloadBody(requestType, payload); err != nil {
		return nil, err
	}

	target, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve target user: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: target %s", ErrUserNotFound, userID)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	now := time.Now().UTC()
	request := &models.Request{
		ID:          uuid.NewString(),
		Type:        requestType,
		Status:      workflow.StatePending.String(),
		Data:        data,
		RequesterID: requesterID,
		MergeStatus: models.MergeStatusNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		s.logger.Error("Failed to create request",
			zap.String("type", requestType.String()),
			zap.String("requester_id", requesterID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Request created",
		zap.String("request_id", request.ID),
		zap.String("type", requestType.String()),
		zap.String("requester_id", requesterID),
		zap.String("target_user_id", userID))
	return request, nil
}

// validatePayloadBody checks the type-specific part of a create payload
func validatePayloadBody(requestType models.RequestType, payload map[string]interface{}) error {
	switch requestType {
	case models.RequestTypeLeave:
		if payload["leave"] == nil {
			return fmt.Errorf("%w: leave", ErrMissingPayload)
		}
	case models.RequestTypeOutpass:
		if payload["outpass"] == nil {
			return fmt.Errorf("%w: outpass", ErrMissingPayload)
		}
	case models.RequestTypeSalary:
		if payload["salary"] == nil {
			return fmt.Errorf("%w: salary", ErrMissingPayload)
		}
	case models.RequestTypeProfileUpdate:
		section, _ := payload["section"].(string)
		if _, ok := models.SectionColumn(section); !ok || section == models.SectionDocuments {
			return fmt.Errorf("%w: %q", ErrInvalidSection, section)
		}
		if _, ok := payload["data"]; !ok {
			return fmt.Errorf("%w: data", ErrMissingPayload)
		}
	}
	return nil
}

// GetByID retrieves a request
func (s *requestServiceImpl) GetByID(ctx context.Context, id string) (*models.Request, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}
	return request, nil
}

// List retrieves requests matching the filter
func (s *requestServiceImpl) List(ctx context.Context, filter port.RequestFilter) ([]*models.Request, error) {
	return s.requestRepo.List(ctx, filter)
}

// ListWithTargets retrieves requests and resolves each target user's summary
// for admin listings
func (s *requestServiceImpl) ListWithTargets(ctx context.Context, filter port.RequestFilter) ([]*models.Request, error) {
	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(requests))
	seen := make(map[string]bool)
	for _, request := range requests {
		if userID := request.TargetUserID(); userID != "" && !seen[userID] {
			seen[userID] = true
			ids = append(ids, userID)
		}
	}

	if len(ids) == 0 {
		return requests, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve target users: %w", err)
	}

	for _, request := range requests {
		if user, ok := users[request.TargetUserID()]; ok {
			summary := user.Summary()
			request.TargetUser = &summary
		}
	}
	return requests, nil
}

// Approve flips a PENDING request to APPROVED and applies its merge. The
// status flip commits first; if the merge then fails, the approval stands and
// the merge stays PENDING for the retry worker. Approving an already-decided
// request fails with ErrRequestNotPending and never re-runs the merge.
func (s *requestServiceImpl) Approve(ctx context.Context, id string) (*models.Request, error) {
	request, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !workflow.CanFire(workflow.State(request.Status), workflow.TriggerApprove) {
		return nil, fmt.Errorf("%w: status %s", ErrRequestNotPending, request.Status)
	}

	now := time.Now().UTC()
	flipped, err := s.requestRepo.Approve(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		// Lost the race: someone else decided this request first.
		return nil, fmt.Errorf("%w: concurrent update", ErrRequestNotPending)
	}

	request.Status = workflow.StateApproved.String()
	request.MergeStatus = models.MergeStatusPending
	request.UpdatedAt = now

	s.logger.Info("Request approved", zap.String("request_id", id))

	if err := s.merger.Process(ctx, request); err != nil {
		// Approval is final; the merge worker picks this up.
		s.logger.Warn("Merge deferred to retry worker",
			zap.String("request_id", id),
			zap.Error(err))
	} else {
		request.MergeStatus = models.MergeStatusApplied
	}

	return request, nil
}

// Reject flips a PENDING request to REJECTED. The remark is mandatory and is
// stored both on the row and inside data.rejectionReason for display
// continuity.
func (s *requestServiceImpl) Reject(ctx context.Context, id, remark string) (*models.Request, error) {
	if utils.IsBlank(remark) {
		return nil, ErrEmptyRemark
	}

	request, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !workflow.CanFire(workflow.State(request.Status), workflow.TriggerReject) {
		return nil, fmt.Errorf("%w: status %s", ErrRequestNotPending, request.Status)
	}

	data, err := request.DataMap()
	if err != nil {
		return nil, fmt.Errorf("decode request data: %w", err)
	}
	data["rejectionReason"] = remark

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode request data: %w", err)
	}

	now := time.Now().UTC()
	flipped, err := s.requestRepo.Reject(ctx, id, remark, encoded, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fmt.Errorf("%w: concurrent update", ErrRequestNotPending)
	}

	request.Status = workflow.StateRejected.String()
	request.AdminRemark = remark
	request.Data = encoded
	request.UpdatedAt = now

	s.logger.Info("Request rejected", zap.String("request_id", id))
	return request, nil
}

// Resubmit flips a REJECTED request back to PENDING. Only the original
// requester may resubmit, a response to the admin remark is mandatory, and
// updatedData is shallow-merged into the existing payload.
func (s *requestServiceImpl) Resubmit(ctx context.Context, id, actorID, response string, updatedData map[string]interface{}) (*models.Request, error) {
	request, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if request.RequesterID != actorID {
		return nil, fmt.Errorf("%w: request belongs to %s", ErrNotRequestOwner, request.RequesterID)
	}

	if !workflow.CanFire(workflow.State(request.Status), workflow.TriggerResubmit) {
		return nil, fmt.Errorf("%w: status %s", ErrRequestNotRejected, request.Status)
	}

	if utils.IsBlank(response) {
		return nil, ErrEmptyResponse
	}

	data, err := request.DataMap()
	if err != nil {
		return nil, fmt.Errorf("decode request data: %w", err)
	}
	for key, value := range updatedData {
		data[key] = value
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode request data: %w", err)
	}

	now := time.Now().UTC()
	flipped, err := s.requestRepo.Resubmit(ctx, id, response, encoded, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fmt.Errorf("%w: concurrent update", ErrRequestNotRejected)
	}

	request.Status = workflow.StatePending.String()
	request.ManagerResponse = response
	request.Data = encoded
	request.UpdatedAt = now

	s.logger.Info("Request resubmitted",
		zap.String("request_id", id),
		zap.String("requester_id", actorID))
	return request, nil
}
