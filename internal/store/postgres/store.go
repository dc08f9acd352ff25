package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is a pgx-backed store.Store implementation.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing pool. Callers that want migrations run
// automatically should use New or NewWithConfig instead.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) PutHire(ctx context.Context, h domain.Hire) error {
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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO hires (id, manifest_url, manifest_card, cached_at_ms, wallet, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			manifest_url = EXCLUDED.manifest_url,
			manifest_card = EXCLUDED.manifest_card,
			cached_at_ms = EXCLUDED.cached_at_ms,
			wallet = EXCLUDED.wallet,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata
	`, h.ID, h.Agent.ManifestURL, card, h.Agent.CachedAt, wallet, h.Status, metadata)
	if err != nil {
		return fmt.Errorf("put hire: %w", err)
	}
	return nil
}

func (s *Store) GetHire(ctx context.Context, id string) (domain.Hire, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT manifest_url, manifest_card, cached_at_ms, wallet, status, metadata
		FROM hires WHERE id = $1
	`, id)

	var (
		manifestURL string
		card        []byte
		cachedAt    *int64
		wallet      []byte
		status      string
		metadata    []byte
	)
	if err := row.Scan(&manifestURL, &card, &cachedAt, &wallet, &status, &metadata); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Hire{}, domain.ErrHireNotFound
		}
		return domain.Hire{}, fmt.Errorf("get hire: %w", err)
	}

	hireStatus, err := domain.NewHireStatus(status)
	if err != nil {
		return domain.Hire{}, fmt.Errorf("get hire: %w", err)
	}
	h := domain.Hire{
		ID:     id,
		Status: hireStatus,
		Agent:  domain.AgentRef{ManifestURL: manifestURL, CachedAt: cachedAt},
	}
	if len(card) > 0 && string(card) != "null" {
		var m domain.AgentManifest
		if err := json.Unmarshal(card, &m); err != nil {
			return domain.Hire{}, fmt.Errorf("unmarshal manifest card: %w", err)
		}
		h.Agent.Card = &m
	}
	if len(wallet) > 0 && string(wallet) != "null" {
		var w domain.WalletRef
		if err := json.Unmarshal(wallet, &w); err != nil {
			return domain.Hire{}, fmt.Errorf("unmarshal wallet: %w", err)
		}
		h.Wallet = &w
	}
	if len(metadata) > 0 && string(metadata) != "null" {
		if err := json.Unmarshal(metadata, &h.Metadata); err != nil {
			return domain.Hire{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return h, nil
}

func (s *Store) DeleteHire(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM hires WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete hire: %w", err)
	}
	return nil
}

func (s *Store) PutJob(ctx context.Context, j domain.Job) error {
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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (
			id, hire_id, entrypoint_key, input, schedule_kind, schedule_at_ms,
			schedule_every_ms, next_run_at_ms, attempts, max_retries, status,
			lease_worker_id, lease_expires_ms, idempotency_key, last_error
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			hire_id = EXCLUDED.hire_id,
			entrypoint_key = EXCLUDED.entrypoint_key,
			input = EXCLUDED.input,
			schedule_kind = EXCLUDED.schedule_kind,
			schedule_at_ms = EXCLUDED.schedule_at_ms,
			schedule_every_ms = EXCLUDED.schedule_every_ms,
			next_run_at_ms = EXCLUDED.next_run_at_ms,
			attempts = EXCLUDED.attempts,
			max_retries = EXCLUDED.max_retries,
			status = EXCLUDED.status,
			lease_worker_id = EXCLUDED.lease_worker_id,
			lease_expires_ms = EXCLUDED.lease_expires_ms,
			idempotency_key = EXCLUDED.idempotency_key,
			last_error = EXCLUDED.last_error
	`, j.ID, j.HireID, j.EntrypointKey, input, string(j.Schedule.Kind), scheduleAt,
		scheduleEvery, j.NextRunAt, j.Attempts, j.MaxRetries, string(j.Status),
		leaseWorkerID, leaseExpires, j.IdempotencyKey, j.LastError)
	if err != nil {
		return fmt.Errorf("put job: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (domain.Job, error) {
	var (
		j                         domain.Job
		input                     []byte
		scheduleKind              string
		scheduleAt, scheduleEvery *int64
		status                    string
		leaseWorkerID             *string
		leaseExpires              *int64
	)
	if err := row.Scan(
		&j.ID, &j.HireID, &j.EntrypointKey, &input, &scheduleKind, &scheduleAt,
		&scheduleEvery, &j.NextRunAt, &j.Attempts, &j.MaxRetries, &status,
		&leaseWorkerID, &leaseExpires, &j.IdempotencyKey, &j.LastError,
	); err != nil {
		return domain.Job{}, err
	}

	if len(input) > 0 && string(input) != "null" {
		if err := json.Unmarshal(input, &j.Input); err != nil {
			return domain.Job{}, fmt.Errorf("unmarshal job input: %w", err)
		}
	}

	j.Schedule.Kind = domain.ScheduleKind(scheduleKind)
	if scheduleAt != nil {
		j.Schedule.At = *scheduleAt
	}
	if scheduleEvery != nil {
		j.Schedule.EveryMs = *scheduleEvery
	}
	jobStatus, err := domain.NewJobStatus(status)
	if err != nil {
		return domain.Job{}, err
	}
	j.Status = jobStatus
	if leaseWorkerID != nil && leaseExpires != nil {
		j.Lease = &domain.Lease{WorkerID: *leaseWorkerID, ExpiresAt: *leaseExpires}
	}
	return j, nil
}

const jobColumns = `id, hire_id, entrypoint_key, input, schedule_kind, schedule_at_ms,
		schedule_every_ms, next_run_at_ms, attempts, max_retries, status,
		lease_worker_id, lease_expires_ms, idempotency_key, last_error`

func (s *Store) GetJob(ctx context.Context, id string) (domain.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, domain.ErrJobNotFound
		}
		return domain.Job{}, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *Store) GetDueJobs(ctx context.Context, nowMs int64, limit int) ([]domain.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = 'pending' AND next_run_at_ms <= $1
		ORDER BY next_run_at_ms ASC
		LIMIT $2
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

// ClaimJob runs as a single conditional UPDATE: the WHERE clause re-checks
// status and due-ness, so the database serializes concurrent claimants and
// only one UPDATE can ever affect a row.
func (s *Store) ClaimJob(ctx context.Context, jobID, workerID string, leaseMs int, nowMs int64) (bool, error) {
	expires := nowMs + int64(leaseMs)
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = 'leased', lease_worker_id = $1, lease_expires_ms = $2
		WHERE id = $3 AND status = 'pending' AND next_run_at_ms <= $4
	`, workerID, expires, jobID, nowMs)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) GetExpiredLeases(ctx context.Context, nowMs int64) ([]domain.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = 'leased' AND lease_expires_ms <= $1
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

// normalizeLimit maps a "no limit" request (limit<=0) to the largest
// value Postgres' LIMIT clause accepts as "all rows", since LIMIT 0 means
// zero rows rather than unbounded.
func normalizeLimit(limit int) int64 {
	if limit <= 0 {
		return 1<<63 - 1
	}
	return int64(limit)
}

func (s *Store) ListHires(ctx context.Context, limit, offset int) ([]domain.Hire, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, manifest_url, manifest_card, cached_at_ms, wallet, status, metadata
		FROM hires ORDER BY id ASC LIMIT $1 OFFSET $2
	`, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list hires: %w", err)
	}
	defer rows.Close()

	var hires []domain.Hire
	for rows.Next() {
		var (
			id, manifestURL, status string
			card, wallet, metadata  []byte
			cachedAt                *int64
		)
		if err := rows.Scan(&id, &manifestURL, &card, &cachedAt, &wallet, &status, &metadata); err != nil {
			return nil, fmt.Errorf("scan hire: %w", err)
		}
		hireStatus, err := domain.NewHireStatus(status)
		if err != nil {
			return nil, fmt.Errorf("list hires: %w", err)
		}
		h := domain.Hire{ID: id, Status: hireStatus, Agent: domain.AgentRef{ManifestURL: manifestURL, CachedAt: cachedAt}}
		if len(card) > 0 && string(card) != "null" {
			var m domain.AgentManifest
			if err := json.Unmarshal(card, &m); err != nil {
				return nil, fmt.Errorf("unmarshal manifest card: %w", err)
			}
			h.Agent.Card = &m
		}
		if len(wallet) > 0 && string(wallet) != "null" {
			var w domain.WalletRef
			if err := json.Unmarshal(wallet, &w); err != nil {
				return nil, fmt.Errorf("unmarshal wallet: %w", err)
			}
			h.Wallet = &w
		}
		if len(metadata) > 0 && string(metadata) != "null" {
			if err := json.Unmarshal(metadata, &h.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		hires = append(hires, h)
	}
	return hires, rows.Err()
}

func (s *Store) ListJobsByHire(ctx context.Context, hireID string, limit, offset int) ([]domain.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE hire_id = $1 ORDER BY id ASC LIMIT $2 OFFSET $3
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
