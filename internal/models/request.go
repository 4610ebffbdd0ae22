package models

import (
	"encoding/json"
	"time"
)

// RequestType enumerates the change-request kinds managers can file.
// The set is fixed; a request's type never changes after creation.
type RequestType string

const (
	RequestTypeLeave         RequestType = "LEAVE"
	RequestTypeOutpass       RequestType = "OUTPASS"
	RequestTypeSalary        RequestType = "SALARY"
	RequestTypeProfileUpdate RequestType = "PROFILE_UPDATE"
)

// IsValid returns true for a known request type
func (t RequestType) IsValid() bool {
	switch t {
	case RequestTypeLeave, RequestTypeOutpass, RequestTypeSalary, RequestTypeProfileUpdate:
		return true
	}
	return false
}

// String returns the string representation of the request type
func (t RequestType) String() string {
	return string(t)
}

// Merge application status of an approved request. PENDING means the approval
// is recorded but its effect has not reached the profile yet; RUNNING means an
// applier has claimed the merge and is executing it. The merge worker retries
// PENDING rows and reclaims RUNNING ones whose claim went stale. FAILED means
// retries were exhausted and an operator has to look at merge_error.
const (
	MergeStatusNone    = "NONE"
	MergeStatusPending = "PENDING"
	MergeStatusRunning = "RUNNING"
	MergeStatusApplied = "APPLIED"
	MergeStatusFailed  = "FAILED"
)

// Request is a manager-initiated change proposal subject to admin approval.
// Data is the type-specific payload and always carries the target userId.
// Type and RequesterID are immutable after creation; Status only moves along
// the lifecycle edges.
type Request struct {
	ID              string          `json:"id"`
	Type            RequestType     `json:"type"`
	Status          string          `json:"status"`
	Data            json.RawMessage `json:"data"`
	RequesterID     string          `json:"requesterId"`
	AdminRemark     string          `json:"adminRemark,omitempty"`
	ManagerResponse string          `json:"managerResponse,omitempty"`
	MergeStatus     string          `json:"mergeStatus,omitempty"`
	MergeAttempts   int             `json:"-"`
	MergeError      string          `json:"-"`
	MergeAttemptAt  *time.Time      `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	// TargetUser is populated on admin listings only; it is not persisted
	// on the request row.
	TargetUser *UserSummary `json:"targetUser,omitempty"`
}

// DataMap decodes the payload into a generic JSON object. A request with no
// payload decodes to an empty map.
func (r *Request) DataMap() (map[string]interface{}, error) {
	if len(r.Data) == 0 {
		return map[string]interface{}{}, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	return data, nil
}

// TargetUserID extracts data.userId without decoding the rest of the payload.
// Returns an empty string when the payload has no resolvable userId.
func (r *Request) TargetUserID() string {
	var target struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(r.Data, &target); err != nil {
		return ""
	}
	return target.UserID
}
