package scheduler

import (
	"context"
	"fmt"

	"github.com/rezkam/mono/internal/domain"
)

// ListFailedJobs is a read-only convenience over a hire's terminal failed
// jobs (SPEC_FULL §12, grounded in the teacher's dead-letter listing).
// It is not a new store primitive: it filters the same jobs a caller
// could already read via ListJobsByHire.
func (r *Runtime) ListFailedJobs(ctx context.Context, hireID string, limit int) ([]domain.Job, error) {
	jobs, err := r.store.ListJobsByHire(ctx, hireID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list jobs by hire: %w", err)
	}

	var failed []domain.Job
	for _, j := range jobs {
		if j.Status == domain.JobStatusFailed {
			failed = append(failed, j)
			if limit > 0 && len(failed) >= limit {
				break
			}
		}
	}
	return failed, nil
}
