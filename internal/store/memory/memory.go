// Package memory is an in-process Store implementation, serialized by a
// single mutex per spec §4.1's requirement for non-transactional backends.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rezkam/mono/internal/domain"
)

// Store is a map-backed implementation of store.Store. All operations
// serialize on mu; ClaimJob's check-then-write happens while mu is held,
// which is what makes it atomic for this backend.
type Store struct {
	mu   sync.Mutex
	hire map[string]domain.Hire
	job  map[string]domain.Job
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		hire: make(map[string]domain.Hire),
		job:  make(map[string]domain.Job),
	}
}

func (s *Store) PutHire(_ context.Context, h domain.Hire) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hire[h.ID] = h
	return nil
}

func (s *Store) GetHire(_ context.Context, id string) (domain.Hire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hire[id]
	if !ok {
		return domain.Hire{}, domain.ErrHireNotFound
	}
	return h, nil
}

func (s *Store) DeleteHire(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hire, id)
	return nil
}

func (s *Store) PutJob(_ context.Context, j domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job[j.ID] = j
	return nil
}

func (s *Store) GetJob(_ context.Context, id string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.job[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return j, nil
}

func (s *Store) GetDueJobs(_ context.Context, nowMs int64, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.Job
	for _, j := range s.job {
		if j.Status == domain.JobStatusPending && j.NextRunAt <= nowMs {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].NextRunAt < due[k].NextRunAt })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *Store) ClaimJob(_ context.Context, jobID, workerID string, leaseMs int, nowMs int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.job[jobID]
	if !ok || j.Status != domain.JobStatusPending || j.NextRunAt > nowMs {
		return false, nil
	}

	j.Status = domain.JobStatusLeased
	j.Lease = &domain.Lease{WorkerID: workerID, ExpiresAt: nowMs + int64(leaseMs)}
	s.job[jobID] = j
	return true, nil
}

func (s *Store) GetExpiredLeases(_ context.Context, nowMs int64) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []domain.Job
	for _, j := range s.job {
		if j.Status == domain.JobStatusLeased && j.Lease != nil && j.Lease.ExpiresAt <= nowMs {
			expired = append(expired, j)
		}
	}
	return expired, nil
}

func (s *Store) ListHires(_ context.Context, limit, offset int) ([]domain.Hire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.hire))
	for id := range s.hire {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset > len(ids) {
		return nil, nil
	}
	ids = ids[offset:]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]domain.Hire, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.hire[id])
	}
	return out, nil
}

func (s *Store) ListJobsByHire(_ context.Context, hireID string, limit, offset int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Job
	for _, j := range s.job {
		if j.HireID == hireID {
			matched = append(matched, j)
		}
	}
	sort.Slice(matched, func(i, k int) bool { return matched[i].ID < matched[k].ID })

	if offset > len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) Close() error {
	return nil
}
