package domain

// HireStatus represents the lifecycle state of a Hire.
// Value object - immutable string enum.
type HireStatus string

const (
	HireStatusActive   HireStatus = "active"
	HireStatusPaused   HireStatus = "paused"
	HireStatusCanceled HireStatus = "canceled"
)

// JobStatus represents the lifecycle state of a Job.
// Value object - immutable string enum.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusLeased    JobStatus = "leased"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ScheduleKind discriminates the Schedule tagged union.
// Value object - immutable string enum. Closed set: cron is a recognized
// kind that is always rejected by validation (spec §4.3.7), never a
// supported execution mode.
type ScheduleKind string

const (
	ScheduleKindOnce     ScheduleKind = "once"
	ScheduleKindInterval ScheduleKind = "interval"
	ScheduleKindCron     ScheduleKind = "cron"
)
