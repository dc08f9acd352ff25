package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateID checks that id is a well-formed hire/job identifier, i.e. a
// UUID as produced by the scheduler's ID generator. It rejects path
// parameters that were never generated by this system before they reach
// the store.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	return nil
}

// NewHireStatus validates and creates a HireStatus.
func NewHireStatus(s string) (HireStatus, error) {
	status := HireStatus(strings.ToLower(s))

	switch status {
	case HireStatusActive, HireStatusPaused, HireStatusCanceled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidHireStatus, s)
	}
}

// NewJobStatus validates and creates a JobStatus.
func NewJobStatus(s string) (JobStatus, error) {
	status := JobStatus(strings.ToLower(s))

	switch status {
	case JobStatusPending, JobStatusLeased, JobStatusPaused,
		JobStatusCompleted, JobStatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidJobStatus, s)
	}
}

// EntrypointKey is a validated, non-empty entrypoint identifier (spec §3:
// the key a Job uses to look itself up in the hired agent's manifest).
type EntrypointKey struct {
	value string
}

// NewEntrypointKey validates and creates an EntrypointKey.
func NewEntrypointKey(s string) (EntrypointKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EntrypointKey{}, ErrEmptyEntrypointKey
	}
	return EntrypointKey{value: s}, nil
}

// String returns the entrypoint key value.
func (k EntrypointKey) String() string {
	return k.value
}
