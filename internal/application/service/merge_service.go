package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/application/port"
	"github.com/unitms/army-ums/internal/models"
)

// MergeService projects an approved request's payload onto the target user's
// profile. Apply is the projection itself; Process wraps it with merge-state
// bookkeeping so that a failed merge stays visible and retryable instead of
// disappearing into a log line.
type MergeService interface {
	Apply(ctx context.Context, request *models.Request) error
	Process(ctx context.Context, request *models.Request) error
}

type mergeServiceImpl struct {
	profileRepo port.ProfileRepository
	requestRepo port.RequestRepository
	maxAttempts int
	logger      *zap.Logger
}

// NewMergeService creates a new MergeService. maxAttempts bounds how often a
// failing merge is retried before it is parked as FAILED.
func NewMergeService(
	profileRepo port.ProfileRepository,
	requestRepo port.RequestRepository,
	maxAttempts int,
	logger *zap.Logger,
) MergeService {
	return &mergeServiceImpl{
		profileRepo: profileRepo,
		requestRepo: requestRepo,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// MergeStaleAfter bounds how long a claimed merge may sit RUNNING before
// another applier may reclaim it, so a crash mid-merge does not strand the
// request.
const MergeStaleAfter = 5 * time.Minute

// Process claims the merge, applies it and records the outcome on the request
// row. The claim is a conditional flip to RUNNING: the inline approval path
// and the retry worker both go through it, and whichever loses skips the
// merge, so one approval is projected onto the profile exactly once. The
// approval decision itself is final: a merge failure never reverts the
// status, it only returns merge_status to PENDING (or FAILED once retries
// run out).
func (s *mergeServiceImpl) Process(ctx context.Context, request *models.Request) error {
	now := time.Now().UTC()

	claimed, err := s.requestRepo.ClaimMerge(ctx, request.ID, now.Add(-MergeStaleAfter), now)
	if err != nil {
		return fmt.Errorf("claim merge: %w", err)
	}
	if !claimed {
		// Another applier holds or already finished this merge.
		s.logger.Debug("Merge claim lost", zap.String("request_id", request.ID))
		return nil
	}

	if err := s.Apply(ctx, request); err != nil {
		attempts := request.MergeAttempts + 1
		dead := attempts >= s.maxAttempts

		s.logger.Error("Merge application failed",
			zap.String("request_id", request.ID),
			zap.String("type", request.Type.String()),
			zap.Int("attempts", attempts),
			zap.Bool("dead", dead),
			zap.Error(err))

		if markErr := s.requestRepo.MarkMergeFailed(ctx, request.ID, attempts, err.Error(), dead, now); markErr != nil {
			s.logger.Error("Failed to record merge failure",
				zap.String("request_id", request.ID),
				zap.Error(markErr))
		}
		return err
	}

	if err := s.requestRepo.MarkMergeApplied(ctx, request.ID, now); err != nil {
		return fmt.Errorf("mark merge applied: %w", err)
	}

	s.logger.Info("Merge applied",
		zap.String("request_id", request.ID),
		zap.String("type", request.Type.String()))
	return nil
}

// Apply projects the request payload onto the target profile. A missing
// target userId is an error (the approval cannot take effect and someone has
// to know); an unknown request type is a logged no-op.
func (s *mergeServiceImpl) Apply(ctx context.Context, request *models.Request) error {
	data, err := request.DataMap()
	if err != nil {
		return fmt.Errorf("decode request data: %w", err)
	}

	userID, _ := data["userId"].(string)
	if userID == "" {
		return fmt.Errorf("request %s has no target userId", request.ID)
	}

	if err := s.profileRepo.Ensure(ctx, userID); err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}

	switch request.Type {
	case models.RequestTypeLeave:
		return s.appendLeaveEntry(ctx, userID, "requests", data["leave"])
	case models.RequestTypeOutpass:
		return s.appendLeaveEntry(ctx, userID, "outpasses", data["outpass"])
	case models.RequestTypeSalary:
		return s.mergeSalary(ctx, userID, data["salary"])
	case models.RequestTypeProfileUpdate:
		return s.replaceSection(ctx, userID, data)
	default:
		s.logger.Warn("Unknown request type, merge skipped",
			zap.String("request_id", request.ID),
			zap.String("type", request.Type.String()))
		return nil
	}
}

// appendLeaveEntry appends the payload entry, stamped with approvedAt, to the
// named array inside the leave section. Unrelated keys in the section
// survive.
func (s *mergeServiceImpl) appendLeaveEntry(ctx context.Context, userID, arrayKey string, payload interface{}) error {
	return s.profileRepo.MutateSection(ctx, userID, models.SectionLeave, func(current []byte) ([]byte, error) {
		section := decodeObject(current)

		entries, _ := section[arrayKey].([]interface{})
		entry := asObject(payload)
		entry["approvedAt"] = time.Now().UTC().Format(time.RFC3339)
		section[arrayKey] = append(entries, entry)

		return json.Marshal(section)
	})
}

// mergeSalary shallow-merges the payload keys into the salary section:
// given keys overwrite, unrelated existing keys survive.
func (s *mergeServiceImpl) mergeSalary(ctx context.Context, userID string, payload interface{}) error {
	return s.profileRepo.MutateSection(ctx, userID, models.SectionSalary, func(current []byte) ([]byte, error) {
		section := decodeObject(current)
		for key, value := range asObject(payload) {
			section[key] = value
		}
		return json.Marshal(section)
	})
}

// replaceSection fully overwrites the named section with the payload.
// Deliberately not a merge: a PROFILE_UPDATE is the new section content.
func (s *mergeServiceImpl) replaceSection(ctx context.Context, userID string, data map[string]interface{}) error {
	section, _ := data["section"].(string)
	if _, ok := models.SectionColumn(section); !ok || section == models.SectionDocuments {
		return fmt.Errorf("%w: %q", ErrInvalidSection, section)
	}

	value, err := json.Marshal(data["data"])
	if err != nil {
		return fmt.Errorf("encode section payload: %w", err)
	}

	return s.profileRepo.ReplaceSection(ctx, userID, section, value)
}

// decodeObject decodes a stored section into a JSON object, treating absent
// or malformed content as empty
func decodeObject(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return map[string]interface{}{}
	}
	return obj
}

// asObject coerces a decoded payload value to a JSON object, copying it so
// the caller can tag entries without aliasing the request data
func asObject(v interface{}) map[string]interface{} {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(obj)+1)
	for key, value := range obj {
		out[key] = value
	}
	return out
}
