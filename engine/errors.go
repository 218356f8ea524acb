package engine

import "errors"

// Engine error taxonomy. UnsupportedFrequency is a configuration-level
// failure and is never retried. DuplicateDispensation is an expected outcome
// that callers surface as "already dispensed for this period", not as an
// error. InconsistentWindow marks an enrollment the sweep skips. Timeouts
// are transient and requeued with backoff by the scheduler.
var (
	ErrUnsupportedFrequency  = errors.New("unsupported frequency")
	ErrDuplicateDispensation = errors.New("dispensation already recorded for bucket")
	ErrInconsistentWindow    = errors.New("inconsistent enrollment window")
	ErrEnrollmentNotFound    = errors.New("enrollment not found")
)
