package domain

import "math"

// Schedule is a tagged union over the two supported execution modes
// (spec §3, §4.3.7, §9). Cron is a recognized-but-rejected kind: it exists
// so validation has a single site that can name it in the error message,
// not because the core ever executes one.
type Schedule struct {
	Kind ScheduleKind

	// At is the epoch-ms instant for Kind == ScheduleKindOnce.
	At int64

	// EveryMs is the fixed interval for Kind == ScheduleKindInterval.
	EveryMs int64
}

// OnceSchedule builds a one-shot schedule firing at the given epoch-ms instant.
func OnceSchedule(atEpochMs int64) Schedule {
	return Schedule{Kind: ScheduleKindOnce, At: atEpochMs}
}

// IntervalSchedule builds a repeating schedule with the given period in ms.
func IntervalSchedule(everyMs int64) Schedule {
	return Schedule{Kind: ScheduleKindInterval, EveryMs: everyMs}
}

// Validate enforces spec §4.3.7 exactly: cron is rejected with the exact
// message, once requires a finite non-negative epoch-ms, interval requires
// a finite positive period.
func (s Schedule) Validate() error {
	switch s.Kind {
	case ScheduleKindCron:
		return ErrCronUnsupported
	case ScheduleKindOnce:
		if !isFinite(float64(s.At)) || s.At < 0 {
			return ErrInvalidSchedule
		}
		return nil
	case ScheduleKindInterval:
		if !isFinite(float64(s.EveryMs)) || s.EveryMs <= 0 {
			return ErrInvalidSchedule
		}
		return nil
	default:
		return ErrInvalidSchedule
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// EntrypointDescriptor is the capability descriptor for a single named
// entrypoint within an agent manifest. The core never inspects its
// contents beyond existence checks; fields are carried opaquely for the
// invoker collaborator.
type EntrypointDescriptor struct {
	Description string `json:"description,omitempty"`
	// URL is where the invoker collaborator POSTs an invocation request.
	// It is carried opaquely by the core; only the invoker binding reads it.
	URL   string         `json:"url,omitempty"`
	Extra map[string]any `json:"-"`
}

// AgentManifest is the capability descriptor fetched from an agent's
// well-known manifest URL (spec §4.2). The core only ever checks for key
// presence in Entrypoints; it never interprets descriptor contents.
type AgentManifest struct {
	Name        string                          `json:"name,omitempty"`
	Entrypoints map[string]EntrypointDescriptor `json:"entrypoints"`
}

// HasEntrypoint reports whether key names an entrypoint in this manifest.
func (m AgentManifest) HasEntrypoint(key string) bool {
	if m.Entrypoints == nil {
		return false
	}
	_, ok := m.Entrypoints[key]
	return ok
}
