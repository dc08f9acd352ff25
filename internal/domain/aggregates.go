package domain

// WalletRef is an opaque payment-wallet reference attached to a Hire.
// The core never interprets these fields; they are passed through to the
// invoker verbatim (spec §3).
type WalletRef struct {
	ID        string
	Address   string
	Chain     string
	ChainType string
	Provider  string
}

// AgentRef identifies the remote agent a Hire is bound to, plus its cached
// manifest (spec §3). Card and CachedAt are either both present or both
// absent — enforced by the scheduler runtime, not by this type itself.
type AgentRef struct {
	ManifestURL string
	Card        *AgentManifest
	CachedAt    *int64 // epoch-ms
}

// Hire is an aggregate root: a persistent binding between a client and a
// remote agent's manifest, carrying an optional payment wallet reference
// (spec §3, GLOSSARY). Deleting a Hire is only ever a compensation for a
// failed job-create during createHire — there is no standalone delete API.
type Hire struct {
	ID       string
	Agent    AgentRef
	Wallet   *WalletRef
	Status   HireStatus
	Metadata map[string]any
}

// Lease is an expiring claim taken by one worker over one Job, present
// iff the job's Status is JobStatusLeased (spec §3 invariant).
type Lease struct {
	WorkerID  string
	ExpiresAt int64 // epoch-ms
}

// Job is an entity scoped to a Hire: a scheduled invocation of one
// entrypoint on the hire's agent with a specific input and schedule
// (spec §3, GLOSSARY).
type Job struct {
	ID             string
	HireID         string
	EntrypointKey  string
	Input          any
	Schedule       Schedule
	NextRunAt      int64 // epoch-ms
	Attempts       int
	MaxRetries     int
	Status         JobStatus
	Lease          *Lease
	IdempotencyKey *string
	LastError      *string
}

// IsTerminal reports whether the job has reached a state pause/resume can
// no longer act on (spec §3: "completed and failed are terminal").
func (j Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
