// Package sqlite is an embeddable Store implementation backed by
// modernc.org/sqlite's pure-Go driver — no CGO, no external database
// process, for single-process deployments of the worker and server
// binaries.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/store"
)

var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS hires (
	id TEXT PRIMARY KEY,
	manifest_url TEXT NOT NULL,
	manifest_card TEXT,
	cached_at_ms INTEGER,
	wallet TEXT,
	status TEXT NOT NULL,
	metadata TEXT
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	hire_id TEXT NOT NULL,
	entrypoint_key TEXT NOT NULL,
	input TEXT,
	schedule_kind TEXT NOT NULL,
	schedule_at_ms INTEGER,
	schedule_every_ms INTEGER,
	next_run_at_ms INTEGER NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	lease_worker_id TEXT,
	lease_expires_ms INTEGER,
	idempotency_key TEXT,
	last_error TEXT
);

CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs (next_run_at_ms) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_jobs_leased ON jobs (lease_expires_ms) WHERE status = 'leased';
CREATE INDEX IF NOT EXISTS idx_jobs_hire ON jobs (hire_id);
`

// Store is a database/sql + modernc.org/sqlite backed store.Store.
// sqlite allows only one writer at a time; mu serializes every operation
// so ClaimJob's check-then-write stays atomic.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens (creating if necessary) a sqlite database file at path and
// applies the schema. Use ":memory:" for an ephemeral store.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutHire(ctx context.Context, h domain.Hire) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := json.Marshal(h.Agent.Card)
	if err != nil {
		return fmt.Errorf("marshal manifest card: %w", err)
	}
	wallet, err := json.Marshal(h.Wallet)
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	metadata, err := json.Marshal(h.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hires (id, manifest_url, manifest_card, cached_at_ms, wallet, status, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			manifest_url=excluded.manifest_url, manifest_card=excluded.manifest_card,
			cached_at_ms=excluded.cached_at_ms, wallet=excluded.wallet,
			status=excluded.status, metadata=excluded.metadata
	`, h.ID, h.Agent.ManifestURL, string(card), h.Agent.CachedAt, string(wallet), string(h.Status), string(metadata))
	if err != nil {
		return fmt.Errorf("put hire: %w", err)
	}
	return nil
}

func (s *Store) GetHire(ctx context.Context, id string) (domain.Hire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT manifest_url, manifest_card, cached_at_ms, wallet, status, metadata
		FROM hires WHERE id = ?
	`, id)

	var (
		manifestURL, status    string
		card, wallet, metadata sql.NullString
		cachedAt               sql.NullInt64
	)
	if err := row.Scan(&manifestURL, &card, &cachedAt, &wallet, &status, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Hire{}, domain.ErrHireNotFound
		}
		return domain.Hire{}, fmt.Errorf("get hire: %w", err)
	}

	hireStatus, err := domain.NewHireStatus(status)
	if err != nil {
		return domain.Hire{}, fmt.Errorf("get hire: %w", err)
	}
	h := domain.Hire{ID: id, Status: hireStatus, Agent: domain.AgentRef{ManifestURL: manifestURL}}
	if cachedAt.Valid {
		v := cachedAt.Int64
		h.Agent.CachedAt = &v
	}
	if card.Valid && card.String != "" && card.String != "null" {
		var m domain.AgentManifest
		if err := json.Unmarshal([]byte(card.String), &m); err != nil {
			return domain.Hire{}, fmt.Errorf("unmarshal manifest card: %w", err)
		}
		h.Agent.Card = &m
	}
	if wallet.Valid && wallet.String != "" && wallet.String != "null" {
		var w domain.WalletRef
		if err := json.Unmarshal([]byte(wallet.String), &w); err != nil {
			return domain.Hire{}, fmt.Errorf("unmarshal wallet: %w", err)
		}
		h.Wallet = &w
	}
	if metadata.Valid && metadata.String != "" && metadata.String != "null" {
		if err := json.Unmarshal([]byte(metadata.String), &h.Metadata); err != nil {
			return domain.Hire{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return h, nil
}

func (s *Store) DeleteHire(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM hires WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete hire: %w", err)
	}
	return nil
}

const jobColumns = `id, hire_id, entrypoint_key, input, schedule_kind, schedule_at_ms,
		schedule_every_ms, next_run_at_ms, attempts, max_retries, status,
		lease_worker_id, lease_expires_ms, idempotency_key, last_error`

func scanJob(row interface{ Scan(...any) error }) (domain.Job, error) {
	var (
		j                         domain.Job
		input, lastError          sql.NullString
		scheduleKind, status      string
		scheduleAt, scheduleEvery sql.NullInt64
		leaseWorkerID             sql.NullString
		leaseExpires              sql.NullInt64
		idempotencyKey            sql.NullString
	)
	if err := row.Scan(
		&j.ID, &j.HireID, &j.EntrypointKey, &input, &scheduleKind, &scheduleAt,
		&scheduleEvery, &j.NextRunAt, &j.Attempts, &j.MaxRetries, &status,
		&leaseWorkerID, &leaseExpires, &idempotencyKey, &lastError,
	); err != nil {
		return domain.Job{}, err
	}

	if input.Valid && input.String != "" && input.String != "null" {
		if err := json.Unmarshal([]byte(input.String), &j.Input); err != nil {
			return domain.Job{}, fmt.Errorf("unmarshal job input: %w", err)
		}
	}
	j.Schedule.Kind = domain.ScheduleKind(scheduleKind)
	if scheduleAt.Valid {
		j.Schedule.At = scheduleAt.Int64
	}
	if scheduleEvery.Valid {
		j.Schedule.EveryMs = scheduleEvery.Int64
	}
	jobStatus, err := domain.NewJobStatus(status)
	if err != nil {
		return domain.Job{}, err
	}
	j.Status = jobStatus
	if leaseWorkerID.Valid && leaseExpires.Valid {
		j.Lease = &domain.Lease{WorkerID: leaseWorkerID.String, ExpiresAt: leaseExpires.Int64}
	}
	if idempotencyKey.Valid {
		v := idempotencyKey.String
		j.IdempotencyKey = &v
	}
	if lastError.Valid {
		v := lastError.String
		j.LastError = &v
	}
	return j, nil
}

func (s *Store) PutJob(ctx context.Context, j domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	input, err := json.Marshal(j.Input)
	if err != nil {
		return fmt.Errorf("marshal job input: %w", err)
	}

	var scheduleAt, scheduleEvery *int64
	switch j.Schedule.Kind {
	case domain.ScheduleKindOnce:
		at := j.Schedule.At
		scheduleAt = &at
	case domain.ScheduleKindInterval:
		every := j.Schedule.EveryMs
		scheduleEvery = &every
	}

	var leaseWorkerID *string
	var leaseExpires *int64
	if j.Lease != nil {
		leaseWorkerID = &j.Lease.WorkerID
		leaseExpires = &j.Lease.ExpiresAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			hire_id=excluded.hire_id, entrypoint_key=excluded.entrypoint_key,
			input=excluded.input, schedule_kind=excluded.schedule_kind,
			schedule_at_ms=excluded.schedule_at_ms, schedule_every_ms=excluded.schedule_every_ms,
			next_run_at_ms=excluded.next_run_at_ms, attempts=excluded.attempts,
			max_retries=excluded.max_retries, status=excluded.status,
			lease_worker_id=excluded.lease_worker_id, lease_expires_ms=excluded.lease_expires_ms,
			idempotency_key=excluded.idempotency_key, last_error=excluded.last_error
	`, j.ID, j.HireID, j.EntrypointKey, string(input), string(j.Schedule.Kind), scheduleAt,
		scheduleEvery, j.NextRunAt, j.Attempts, j.MaxRetries, string(j.Status),
		leaseWorkerID, leaseExpires, j.IdempotencyKey, j.LastError)
	if err != nil {
		return fmt.Errorf("put job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, domain.ErrJobNotFound
		}
		return domain.Job{}, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *Store) GetDueJobs(ctx context.Context, nowMs int64, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = 'pending' AND next_run_at_ms <= ?
		ORDER BY next_run_at_ms ASC LIMIT ?
	`, nowMs, limit)
	if err != nil {
		return nil, fmt.Errorf("get due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Store) ClaimJob(ctx context.Context, jobID, workerID string, leaseMs int, nowMs int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires := nowMs + int64(leaseMs)
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'leased', lease_worker_id = ?, lease_expires_ms = ?
		WHERE id = ? AND status = 'pending' AND next_run_at_ms <= ?
	`, workerID, expires, jobID, nowMs)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) GetExpiredLeases(ctx context.Context, nowMs int64) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE status = 'leased' AND lease_expires_ms <= ?
	`, nowMs)
	if err != nil {
		return nil, fmt.Errorf("get expired leases: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired lease: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// normalizeLimit maps a "no limit" request (limit<=0) to a value large
// enough that sqlite's LIMIT clause returns every matching row, since
// LIMIT 0 means zero rows rather than unbounded.
func normalizeLimit(limit int) int64 {
	if limit <= 0 {
		return 1<<63 - 1
	}
	return int64(limit)
}

func (s *Store) ListHires(ctx context.Context, limit, offset int) ([]domain.Hire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, manifest_url, manifest_card, cached_at_ms, wallet, status, metadata
		FROM hires ORDER BY id ASC LIMIT ? OFFSET ?
	`, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list hires: %w", err)
	}
	defer rows.Close()

	var hires []domain.Hire
	for rows.Next() {
		var (
			id, status             string
			manifestURL            string
			card, wallet, metadata sql.NullString
			cachedAt               sql.NullInt64
		)
		if err := rows.Scan(&id, &manifestURL, &card, &cachedAt, &wallet, &status, &metadata); err != nil {
			return nil, fmt.Errorf("scan hire: %w", err)
		}
		hireStatus, err := domain.NewHireStatus(status)
		if err != nil {
			return nil, fmt.Errorf("list hires: %w", err)
		}
		h := domain.Hire{ID: id, Status: hireStatus, Agent: domain.AgentRef{ManifestURL: manifestURL}}
		if cachedAt.Valid {
			v := cachedAt.Int64
			h.Agent.CachedAt = &v
		}
		if card.Valid && card.String != "" && card.String != "null" {
			var m domain.AgentManifest
			if err := json.Unmarshal([]byte(card.String), &m); err != nil {
				return nil, fmt.Errorf("unmarshal manifest card: %w", err)
			}
			h.Agent.Card = &m
		}
		if wallet.Valid && wallet.String != "" && wallet.String != "null" {
			var w domain.WalletRef
			if err := json.Unmarshal([]byte(wallet.String), &w); err != nil {
				return nil, fmt.Errorf("unmarshal wallet: %w", err)
			}
			h.Wallet = &w
		}
		if metadata.Valid && metadata.String != "" && metadata.String != "null" {
			if err := json.Unmarshal([]byte(metadata.String), &h.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		hires = append(hires, h)
	}
	return hires, rows.Err()
}

func (s *Store) ListJobsByHire(ctx context.Context, hireID string, limit, offset int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE hire_id = ? ORDER BY id ASC LIMIT ? OFFSET ?
	`, hireID, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs by hire: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
