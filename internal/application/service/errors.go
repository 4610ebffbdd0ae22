package service

import "errors"

// Lifecycle and validation errors surfaced to the API layer. Each guard
// failure has its own sentinel so handlers can return a distinct,
// actionable message.
var (
	// ErrRequestNotFound is returned for an unknown request id
	ErrRequestNotFound = errors.New("request not found")

	// ErrUserNotFound is returned for an unknown user id
	ErrUserNotFound = errors.New("user not found")

	// ErrRequestNotPending is returned when approve/reject hits a request
	// that is no longer PENDING, including the loser of a concurrent race
	ErrRequestNotPending = errors.New("request not pending")

	// ErrRequestNotRejected is returned when resubmit hits a request that
	// is not REJECTED
	ErrRequestNotRejected = errors.New("request not rejected")

	// ErrNotRequestOwner is returned when a manager resubmits a request
	// created by someone else
	ErrNotRequestOwner = errors.New("not the request owner")

	// ErrEmptyRemark is returned when rejecting without a remark
	ErrEmptyRemark = errors.New("remark is required for rejection")

	// ErrEmptyResponse is returned when resubmitting without a response
	ErrEmptyResponse = errors.New("response is required for resubmission")

	// ErrInvalidRequestType is returned for a type outside the enumeration
	ErrInvalidRequestType = errors.New("invalid request type")

	// ErrInvalidSection is returned for an unknown profile section name
	ErrInvalidSection = errors.New("invalid profile section")

	// ErrMissingPayload is returned when a create payload lacks its
	// type-specific body or target userId
	ErrMissingPayload = errors.New("missing required payload")

	// ErrInvalidCredentials is returned on failed login
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists is returned when signup collides on username or email
	ErrUserExists = errors.New("username or email already exists")
)
