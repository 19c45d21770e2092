package loadtest

import "errors"

// Sentinel kinds for load test errors.
var (
	ErrInvalidCohort = errors.New("invalid cohort")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrMismatch      = errors.New("result mismatch")
)
