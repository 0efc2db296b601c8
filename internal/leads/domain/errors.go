package domain

import "errors"

// Sentinels returned by persistence adapters.
var (
	ErrLeadNotFound  = errors.New("lead not found")
	ErrPhoneNotFound = errors.New("phone not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrPhoneLimit    = errors.New("maximum 4 phone numbers allowed per lead")
	// ErrPatchSkipped means a conditional patch found the lead already in the
	// target state and wrote nothing.
	ErrPatchSkipped = errors.New("lead patch condition not met")
)
