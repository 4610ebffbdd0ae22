package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/domain/workflow"
	"github.com/unitms/army-ums/internal/models"
)

func approvedRequest(id string, requestType models.RequestType, payload map[string]interface{}) *models.Request {
	data, _ := json.Marshal(payload)
	now := time.Now().UTC()
	return &models.Request{
		ID:          id,
		Type:        requestType,
		Status:      workflow.StateApproved.String(),
		Data:        data,
		RequesterID: "mgr-1",
		MergeStatus: models.MergeStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMergeService_Apply_Leave(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfileRepo()
	svc := NewMergeService(profiles, &mockRequestRepo{}, 10, zap.NewNop())

	// Existing section content that the append must not disturb.
	require.NoError(t, profiles.ReplaceSection(ctx, "user-1", models.SectionLeave,
		[]byte(`{"balance": 30, "requests": [{"from": "2026-01-10", "to": "2026-01-12"}]}`)))

	err := svc.Apply(ctx, approvedRequest("req-1", models.RequestTypeLeave, map[string]interface{}{
		"userId": "user-1",
		"leave":  map[string]interface{}{"from": "2026-09-01", "to": "2026-09-05"},
	}))
	require.NoError(t, err)

	section := profiles.sectionObject("user-1", models.SectionLeave)
	assert.Equal(t, float64(30), section["balance"], "unrelated keys survive the append")

	entries := section["requests"].([]interface{})
	require.Len(t, entries, 2)
	appended := entries[1].(map[string]interface{})
	assert.Equal(t, "2026-09-01", appended["from"])
	assert.NotEmpty(t, appended["approvedAt"], "appended entry is stamped with approval time")

	existing := entries[0].(map[string]interface{})
	_, stamped := existing["approvedAt"]
	assert.False(t, stamped, "pre-existing entries are untouched")
}

func TestMergeService_Apply_Outpass(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfileRepo()
	svc := NewMergeService(profiles, &mockRequestRepo{}, 10, zap.NewNop())

	for i := 0; i < 2; i++ {
		err := svc.Apply(ctx, approvedRequest("req-1", models.RequestTypeOutpass, map[string]interface{}{
			"userId":  "user-1",
			"outpass": map[string]interface{}{"date": "2026-09-01", "hours": float64(6 + i)},
		}))
		require.NoError(t, err)
	}

	section := profiles.sectionObject("user-1", models.SectionLeave)
	entries := section["outpasses"].([]interface{})
	require.Len(t, entries, 2, "each approval appends its own entry")
	assert.Equal(t, float64(7), entries[1].(map[string]interface{})["hours"])
}

func TestMergeService_Apply_Salary(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfileRepo()
	svc := NewMergeService(profiles, &mockRequestRepo{}, 10, zap.NewNop())

	require.NoError(t, profiles.ReplaceSection(ctx, "user-1", models.SectionSalary,
		[]byte(`{"basic": 5000, "bonus": 200}`)))

	err := svc.Apply(ctx, approvedRequest("req-1", models.RequestTypeSalary, map[string]interface{}{
		"userId": "user-1",
		"salary": map[string]interface{}{"basic": float64(6000), "allowance": float64(150)},
	}))
	require.NoError(t, err)

	section := profiles.sectionObject("user-1", models.SectionSalary)
	assert.Equal(t, float64(6000), section["basic"], "given keys overwrite")
	assert.Equal(t, float64(200), section["bonus"], "keys absent from the payload survive")
	assert.Equal(t, float64(150), section["allowance"])
}

func TestMergeService_Apply_ProfileUpdateReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfileRepo()
	svc := NewMergeService(profiles, &mockRequestRepo{}, 10, zap.NewNop())

	require.NoError(t, profiles.ReplaceSection(ctx, "user-1", models.SectionPersonal,
		[]byte(`{"name": "A. Kumar", "rank": "Sepoy", "bloodGroup": "O+"}`)))

	// Unlike SALARY, a PROFILE_UPDATE is the new section content: keys not in
	// the payload are gone afterwards.
	err := svc.Apply(ctx, approvedRequest("req-1", models.RequestTypeProfileUpdate, map[string]interface{}{
		"userId":  "user-1",
		"section": models.SectionPersonal,
		"data":    map[string]interface{}{"name": "A. Kumar", "rank": "Naik"},
	}))
	require.NoError(t, err)

	section := profiles.sectionObject("user-1", models.SectionPersonal)
	assert.Equal(t, "Naik", section["rank"])
	_, survived := section["bloodGroup"]
	assert.False(t, survived, "replacement drops keys absent from the payload")
}

func TestMergeService_Apply_ProfileUpdateGuards(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfileRepo()
	svc := NewMergeService(profiles, &mockRequestRepo{}, 10, zap.NewNop())

	err := svc.Apply(ctx, approvedRequest("req-1", models.RequestTypeProfileUpdate, map[string]interface{}{
		"userId":  "user-1",
		"section": models.SectionDocuments,
		"data":    map[string]interface{}{},
	}))
	assert.ErrorIs(t, err, ErrInvalidSection)

	err = svc.Apply(ctx, approvedRequest("req-2", models.RequestTypeProfileUpdate, map[string]interface{}{
		"userId":  "user-1",
		"section": "unknown",
		"data":    map[string]interface{}{},
	}))
	assert.ErrorIs(t, err, ErrInvalidSection)
}

func TestMergeService_Apply_MissingUserID(t *testing.T) {
	ctx := context.Background()
	svc := NewMergeService(newMemProfileRepo(), &mockRequestRepo{}, 10, zap.NewNop())

	err := svc.Apply(ctx, approvedRequest("req-1", models.RequestTypeLeave, map[string]interface{}{
		"leave": map[string]interface{}{"from": "2026-09-01"},
	}))
	assert.Error(t, err)
}

func TestMergeService_Apply_MalformedSectionRecovers(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfileRepo()
	svc := NewMergeService(profiles, &mockRequestRepo{}, 10, zap.NewNop())

	require.NoError(t, profiles.ReplaceSection(ctx, "user-1", models.SectionLeave, []byte(`not json`)))

	err := svc.Apply(ctx, approvedRequest("req-1", models.RequestTypeLeave, map[string]interface{}{
		"userId": "user-1",
		"leave":  map[string]interface{}{"from": "2026-09-01"},
	}))
	require.NoError(t, err)

	section := profiles.sectionObject("user-1", models.SectionLeave)
	entries := section["requests"].([]interface{})
	assert.Len(t, entries, 1, "malformed stored content is treated as empty")
}

func TestMergeService_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("success marks applied", func(t *testing.T) {
		var markedID string
		requestRepo := &mockRequestRepo{
			markMergeAppliedFunc: func(ctx context.Context, id string, now time.Time) error {
				markedID = id
				return nil
			},
		}
		svc := NewMergeService(newMemProfileRepo(), requestRepo, 10, zap.NewNop())

		err := svc.Process(ctx, approvedRequest("req-1", models.RequestTypeLeave, map[string]interface{}{
			"userId": "user-1",
			"leave":  map[string]interface{}{"from": "2026-09-01"},
		}))

		require.NoError(t, err)
		assert.Equal(t, "req-1", markedID)
	})

	t.Run("failure records attempt", func(t *testing.T) {
		var gotAttempts int
		var gotDead bool
		requestRepo := &mockRequestRepo{
			markMergeFailedFunc: func(ctx context.Context, id string, attempts int, mergeErr string, dead bool, now time.Time) error {
				gotAttempts = attempts
				gotDead = dead
				return nil
			},
		}
		svc := NewMergeService(newMemProfileRepo(), requestRepo, 10, zap.NewNop())

		request := approvedRequest("req-1", models.RequestTypeLeave, map[string]interface{}{
			"leave": map[string]interface{}{"from": "2026-09-01"}, // no userId
		})
		request.MergeAttempts = 2

		err := svc.Process(ctx, request)

		require.Error(t, err)
		assert.Equal(t, 3, gotAttempts)
		assert.False(t, gotDead)
	})

	t.Run("final failure parks the merge", func(t *testing.T) {
		var gotDead bool
		requestRepo := &mockRequestRepo{
			markMergeFailedFunc: func(ctx context.Context, id string, attempts int, mergeErr string, dead bool, now time.Time) error {
				gotDead = dead
				return nil
			},
		}
		svc := NewMergeService(newMemProfileRepo(), requestRepo, 3, zap.NewNop())

		request := approvedRequest("req-1", models.RequestTypeLeave, map[string]interface{}{
			"leave": map[string]interface{}{"from": "2026-09-01"},
		})
		request.MergeAttempts = 2

		err := svc.Process(ctx, request)

		require.Error(t, err)
		assert.True(t, gotDead)
	})

	t.Run("lost claim is a no-op", func(t *testing.T) {
		profiles := newMemProfileRepo()
		requestRepo := &mockRequestRepo{
			claimMergeFunc: func(ctx context.Context, id string, staleBefore, now time.Time) (bool, error) {
				return false, nil
			},
			markMergeAppliedFunc: func(ctx context.Context, id string, now time.Time) error {
				t.Fatal("merge must not be recorded when the claim was lost")
				return nil
			},
		}
		svc := NewMergeService(profiles, requestRepo, 10, zap.NewNop())

		err := svc.Process(ctx, approvedRequest("req-1", models.RequestTypeLeave, map[string]interface{}{
			"userId": "user-1",
			"leave":  map[string]interface{}{"from": "2026-09-01"},
		}))

		require.NoError(t, err)
		assert.Nil(t, profiles.sectionObject("user-1", models.SectionLeave), "nothing lands on the profile")
	})
}

// TestMergeService_Process_StaleSnapshotAppliesOnce covers the interleaving
// where the background drain lists an approved request and the approval path
// merges it before the drain's Process call runs. The second caller loses the
// claim, so the payload lands on the profile exactly once.
func TestMergeService_Process_StaleSnapshotAppliesOnce(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfileRepo()

	mergeStatus := models.MergeStatusPending
	requestRepo := &mockRequestRepo{
		claimMergeFunc: func(ctx context.Context, id string, staleBefore, now time.Time) (bool, error) {
			if mergeStatus != models.MergeStatusPending {
				return false, nil
			}
			mergeStatus = models.MergeStatusRunning
			return true, nil
		},
		markMergeAppliedFunc: func(ctx context.Context, id string, now time.Time) error {
			mergeStatus = models.MergeStatusApplied
			return nil
		},
	}
	svc := NewMergeService(profiles, requestRepo, 10, zap.NewNop())

	request := approvedRequest("req-1", models.RequestTypeLeave, map[string]interface{}{
		"userId": "user-1",
		"leave":  map[string]interface{}{"from": "2026-09-01", "to": "2026-09-05"},
	})
	snapshot := *request // what the drain loop saw before the approval merged

	require.NoError(t, svc.Process(ctx, request))
	require.NoError(t, svc.Process(ctx, &snapshot))

	section := profiles.sectionObject("user-1", models.SectionLeave)
	entries := section["requests"].([]interface{})
	assert.Len(t, entries, 1, "one approval yields one leave entry")
	assert.Equal(t, models.MergeStatusApplied, mergeStatus)
}

// TestRequestLifecycle_RejectResubmitApprove drives a leave request through
// the full reject / resubmit / approve cycle and checks the corrected payload
// is what lands on the profile.
func TestRequestLifecycle_RejectResubmitApprove(t *testing.T) {
	ctx := context.Background()

	// Single-request repo with real guard semantics over the stored status.
	var stored *models.Request
	requestRepo := &mockRequestRepo{
		createFunc: func(ctx context.Context, request *models.Request) error {
			stored = request
			return nil
		},
		getByIDFunc: func(ctx context.Context, id string) (*models.Request, error) {
			return stored, nil
		},
		approveFunc: func(ctx context.Context, id string, now time.Time) (bool, error) {
			if stored.Status != workflow.StatePending.String() {
				return false, nil
			}
			stored.Status = workflow.StateApproved.String()
			stored.MergeStatus = models.MergeStatusPending
			return true, nil
		},
		rejectFunc: func(ctx context.Context, id, remark string, data []byte, now time.Time) (bool, error) {
			if stored.Status != workflow.StatePending.String() {
				return false, nil
			}
			stored.Status = workflow.StateRejected.String()
			stored.AdminRemark = remark
			stored.Data = data
			return true, nil
		},
		resubmitFunc: func(ctx context.Context, id, response string, data []byte, now time.Time) (bool, error) {
			if stored.Status != workflow.StateRejected.String() {
				return false, nil
			}
			stored.Status = workflow.StatePending.String()
			stored.ManagerResponse = response
			stored.Data = data
			return true, nil
		},
	}
	userRepo := &mockUserRepo{
		getByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Username: "soldier1"}, nil
		},
	}
	profiles := newMemProfileRepo()
	merger := NewMergeService(profiles, requestRepo, 10, zap.NewNop())
	svc := newTestRequestService(requestRepo, userRepo, merger)

	created, err := svc.Create(ctx, "mgr-1", models.RequestTypeLeave, map[string]interface{}{
		"userId": "user-1",
		"leave":  map[string]interface{}{"from": "2026-09-01", "to": "2026-09-10"},
	})
	require.NoError(t, err)

	_, err = svc.Reject(ctx, created.ID, "too long")
	require.NoError(t, err)

	_, err = svc.Resubmit(ctx, created.ID, "mgr-1", "shortened", map[string]interface{}{
		"leave": map[string]interface{}{"from": "2026-09-01", "to": "2026-09-05"},
	})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MergeStatusApplied, approved.MergeStatus)

	section := profiles.sectionObject("user-1", models.SectionLeave)
	entries := section["requests"].([]interface{})
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "2026-09-05", entry["to"], "the corrected dates are what merged")
	assert.NotEmpty(t, entry["approvedAt"])

	// A second approval attempt must fail and must not append again.
	_, err = svc.Approve(ctx, created.ID)
	assert.ErrorIs(t, err, ErrRequestNotPending)
	section = profiles.sectionObject("user-1", models.SectionLeave)
	assert.Len(t, section["requests"].([]interface{}), 1)
}
