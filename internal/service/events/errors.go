package events

import "errors"

// Sentinel errors for the events service layer.
var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrMissingFields    = errors.New("missing required fields")
	ErrInvalidID        = errors.New("invalid id format")
	ErrEmployeeMismatch = errors.New("employee id does not match email")
)

// IsNotFound reports whether err means a referenced campaign or employee
// does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound) || errors.Is(err, ErrEmployeeNotFound)
}

// IsBadRequest reports whether err was caused by malformed caller input.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrMissingFields) || errors.Is(err, ErrInvalidID) || errors.Is(err, ErrEmployeeMismatch)
}
