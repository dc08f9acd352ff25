package domain

import "errors"

// Domain errors - these are returned by store implementations and the
// scheduler runtime, and checked by callers with errors.Is.

var (
	// ErrHireNotFound indicates the referenced hire does not exist.
	ErrHireNotFound = errors.New("hire not found")

	// ErrJobNotFound indicates the referenced job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidID indicates the provided ID format is invalid.
	ErrInvalidID = errors.New("invalid ID format")

	// ErrInvalidSchedule indicates a schedule failed validation (§4.3.7).
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrCronUnsupported is the exact validation failure for cron schedules.
	// The message is part of the contract (spec §4.3.7) and must appear verbatim.
	ErrCronUnsupported = errors.New("Cron schedules are not supported yet")

	// ErrEntrypointNotFound indicates the requested entrypoint key is absent
	// from the agent manifest at hire/job creation time.
	ErrEntrypointNotFound = errors.New("entrypoint not found")

	// ErrHireCanceled indicates an operation was rejected because the hire
	// is in its terminal canceled state.
	ErrHireCanceled = errors.New("hire is canceled")

	// ErrInvalidHireStatus indicates an unrecognized HireStatus value.
	ErrInvalidHireStatus = errors.New("invalid hire status")

	// ErrInvalidJobStatus indicates an unrecognized JobStatus value.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrEmptyEntrypointKey indicates a job was created with a blank
	// entrypoint key.
	ErrEmptyEntrypointKey = errors.New("entrypoint key required")
)
