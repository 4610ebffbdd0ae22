package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/unitms/army-ums/internal/application/port"
	"github.com/unitms/army-ums/internal/models"
)

// mockRequestRepo implements port.RequestRepository with overridable
// functions, so each test wires only the calls it cares about.
type mockRequestRepo struct {
	createFunc            func(ctx context.Context, request *models.Request) error
	getByIDFunc           func(ctx context.Context, id string) (*models.Request, error)
	listFunc              func(ctx context.Context, filter port.RequestFilter) ([]*models.Request, error)
	approveFunc           func(ctx context.Context, id string, now time.Time) (bool, error)
	rejectFunc            func(ctx context.Context, id, remark string, data []byte, now time.Time) (bool, error)
	resubmitFunc          func(ctx context.Context, id, response string, data []byte, now time.Time) (bool, error)
	listPendingMergesFunc func(ctx context.Context, limit int, staleBefore time.Time) ([]*models.Request, error)
	claimMergeFunc        func(ctx context.Context, id string, staleBefore, now time.Time) (bool, error)
	markMergeAppliedFunc  func(ctx context.Context, id string, now time.Time) error
	markMergeFailedFunc   func(ctx context.Context, id string, attempts int, mergeErr string, dead bool, now time.Time) error
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.Request) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, request)
	}
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*models.Request, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*models.Request, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockRequestRepo) Approve(ctx context.Context, id string, now time.Time) (bool, error) {
	if m.approveFunc != nil {
		return m.approveFunc(ctx, id, now)
	}
	return true, nil
}

func (m *mockRequestRepo) Reject(ctx context.Context, id, remark string, data []byte, now time.Time) (bool, error) {
	if m.rejectFunc != nil {
		return m.rejectFunc(ctx, id, remark, data, now)
	}
	return true, nil
}

func (m *mockRequestRepo) Resubmit(ctx context.Context, id, response string, data []byte, now time.Time) (bool, error) {
	if m.resubmitFunc != nil {
		return m.resubmitFunc(ctx, id, response, data, now)
	}
	return true, nil
}

func (m *mockRequestRepo) ListPendingMerges(ctx context.Context, limit int, staleBefore time.Time) ([]*models.Request, error) {
	if m.listPendingMergesFunc != nil {
		return m.listPendingMergesFunc(ctx, limit, staleBefore)
	}
	return nil, nil
}

func (m *mockRequestRepo) ClaimMerge(ctx context.Context, id string, staleBefore, now time.Time) (bool, error) {
	if m.claimMergeFunc != nil {
		return m.claimMergeFunc(ctx, id, staleBefore, now)
	}
	return true, nil
}

func (m *mockRequestRepo) MarkMergeApplied(ctx context.Context, id string, now time.Time) error {
	if m.markMergeAppliedFunc != nil {
		return m.markMergeAppliedFunc(ctx, id, now)
	}
	return nil
}

func (m *mockRequestRepo) MarkMergeFailed(ctx context.Context, id string, attempts int, mergeErr string, dead bool, now time.Time) error {
	if m.markMergeFailedFunc != nil {
		return m.markMergeFailedFunc(ctx, id, attempts, mergeErr, dead, now)
	}
	return nil
}

// mockUserRepo implements port.UserRepository
type mockUserRepo struct {
	createFunc               func(ctx context.Context, user *models.User) error
	getByIDFunc              func(ctx context.Context, id string) (*models.User, error)
	getByUsernameOrEmailFunc func(ctx context.Context, usernameOrEmail string) (*models.User, error)
	listFunc                 func(ctx context.Context) ([]*models.User, error)
	getByIDsFunc             func(ctx context.Context, ids []string) (map[string]*models.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &models.User{ID: id}, nil
}

func (m *mockUserRepo) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	if m.getByUsernameOrEmailFunc != nil {
		return m.getByUsernameOrEmailFunc(ctx, usernameOrEmail)
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*models.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	if m.getByIDsFunc != nil {
		return m.getByIDsFunc(ctx, ids)
	}
	return map[string]*models.User{}, nil
}

// mockMerger implements MergeService
type mockMerger struct {
	applyFunc   func(ctx context.Context, request *models.Request) error
	processFunc func(ctx context.Context, request *models.Request) error
}

func (m *mockMerger) Apply(ctx context.Context, request *models.Request) error {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, request)
	}
	return nil
}

func (m *mockMerger) Process(ctx context.Context, request *models.Request) error {
	if m.processFunc != nil {
		return m.processFunc(ctx, request)
	}
	return nil
}

// memProfileRepo is an in-memory port.ProfileRepository with real
// read-modify-write semantics, for exercising merge projections end to end.
type memProfileRepo struct {
	mu       sync.Mutex
	sections map[string]map[string][]byte // userID -> section -> raw JSON
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{sections: make(map[string]map[string][]byte)}
}

func (m *memProfileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sections, ok := m.sections[userID]
	if !ok {
		return nil, nil
	}
	profile := &models.Profile{UserID: userID}
	profile.PersonalDetails = sections[models.SectionPersonal]
	profile.Family = sections[models.SectionFamily]
	profile.Education = sections[models.SectionEducation]
	profile.Medical = sections[models.SectionMedical]
	profile.Others = sections[models.SectionOthers]
	profile.LeaveData = sections[models.SectionLeave]
	profile.SalaryData = sections[models.SectionSalary]
	profile.Documents = sections[models.SectionDocuments]
	return profile, nil
}

func (m *memProfileRepo) Ensure(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sections[userID]; !ok {
		m.sections[userID] = make(map[string][]byte)
	}
	return nil
}

func (m *memProfileRepo) ReplaceSection(ctx context.Context, userID, section string, value []byte) error {
	if _, ok := models.SectionColumn(section); !ok {
		return fmt.Errorf("unknown section %q", section)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sections[userID]; !ok {
		m.sections[userID] = make(map[string][]byte)
	}
	m.sections[userID][section] = value
	return nil
}

func (m *memProfileRepo) MutateSection(ctx context.Context, userID, section string, mutate func(current []byte) ([]byte, error)) error {
	if _, ok := models.SectionColumn(section); !ok {
		return fmt.Errorf("unknown section %q", section)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sections[userID]; !ok {
		m.sections[userID] = make(map[string][]byte)
	}
	next, err := mutate(m.sections[userID][section])
	if err != nil {
		return err
	}
	m.sections[userID][section] = next
	return nil
}

// sectionObject decodes one stored section for assertions
func (m *memProfileRepo) sectionObject(userID, section string) map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw := m.sections[userID][section]
	if len(raw) == 0 {
		return nil
	}
	obj := map[string]interface{}{}
	_ = json.Unmarshal(raw, &obj)
	return obj
}
