// Package conformance holds a shared test suite run against every
// store.Store implementation, so the in-memory, sqlite, and postgres
// backends are all held to the same contract (spec §4.1, §8).
package conformance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/store"
)

// Run exercises store.Store's contract against s. newStore must return a
// store with no pre-existing data; Run calls it once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("PutHire and GetHire round-trip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		cachedAt := int64(1000)
		h := domain.Hire{
			ID:     "hire-1",
			Status: domain.HireStatusActive,
			Agent: domain.AgentRef{
				ManifestURL: "https://agent.example/manifest.json",
				Card:        &domain.AgentManifest{Entrypoints: map[string]domain.EntrypointDescriptor{"run": {}}},
				CachedAt:    &cachedAt,
			},
			Wallet:   &domain.WalletRef{ID: "w1", Chain: "base"},
			Metadata: map[string]any{"owner": "alice"},
		}
		require.NoError(t, s.PutHire(ctx, h))

		got, err := s.GetHire(ctx, "hire-1")
		require.NoError(t, err)
		assert.Equal(t, h.ID, got.ID)
		assert.Equal(t, h.Status, got.Status)
		assert.Equal(t, h.Agent.ManifestURL, got.Agent.ManifestURL)
		require.NotNil(t, got.Agent.Card)
		assert.True(t, got.Agent.Card.HasEntrypoint("run"))
		require.NotNil(t, got.Wallet)
		assert.Equal(t, "w1", got.Wallet.ID)
	})

	t.Run("GetHire not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetHire(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrHireNotFound)
	})

	t.Run("DeleteHire removes the record", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutHire(ctx, domain.Hire{ID: "h1", Status: domain.HireStatusActive}))
		require.NoError(t, s.DeleteHire(ctx, "h1"))
		_, err := s.GetHire(ctx, "h1")
		assert.ErrorIs(t, err, domain.ErrHireNotFound)
	})

	t.Run("GetDueJobs respects status, due time, limit, and ordering", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutHire(ctx, domain.Hire{ID: "h1", Status: domain.HireStatusActive}))

		mk := func(id string, nextRunAt int64, status domain.JobStatus) domain.Job {
			return domain.Job{ID: id, HireID: "h1", EntrypointKey: "run", NextRunAt: nextRunAt, Status: status}
		}
		require.NoError(t, s.PutJob(ctx, mk("due-late", 200, domain.JobStatusPending)))
		require.NoError(t, s.PutJob(ctx, mk("due-early", 100, domain.JobStatusPending)))
		require.NoError(t, s.PutJob(ctx, mk("not-due", 9999, domain.JobStatusPending)))
		require.NoError(t, s.PutJob(ctx, mk("wrong-status", 50, domain.JobStatusLeased)))

		due, err := s.GetDueJobs(ctx, 500, 1)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "due-early", due[0].ID)

		due, err = s.GetDueJobs(ctx, 500, 10)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, "due-early", due[0].ID)
		assert.Equal(t, "due-late", due[1].ID)
	})

	t.Run("ClaimJob succeeds exactly once and is conditional", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutHire(ctx, domain.Hire{ID: "h1", Status: domain.HireStatusActive}))
		require.NoError(t, s.PutJob(ctx, domain.Job{ID: "j1", HireID: "h1", NextRunAt: 100, Status: domain.JobStatusPending}))

		ok, err := s.ClaimJob(ctx, "j1", "worker-a", 30_000, 100)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.ClaimJob(ctx, "j1", "worker-b", 30_000, 100)
		require.NoError(t, err)
		assert.False(t, ok, "a second claim must fail once the job is leased")

		got, err := s.GetJob(ctx, "j1")
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusLeased, got.Status)
		require.NotNil(t, got.Lease)
		assert.Equal(t, "worker-a", got.Lease.WorkerID)
		assert.Equal(t, int64(30_100), got.Lease.ExpiresAt)
	})

	t.Run("ClaimJob fails when not yet due", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutHire(ctx, domain.Hire{ID: "h1", Status: domain.HireStatusActive}))
		require.NoError(t, s.PutJob(ctx, domain.Job{ID: "j1", HireID: "h1", NextRunAt: 1000, Status: domain.JobStatusPending}))

		ok, err := s.ClaimJob(ctx, "j1", "worker-a", 30_000, 100)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("GetExpiredLeases returns only stale leases", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutHire(ctx, domain.Hire{ID: "h1", Status: domain.HireStatusActive}))
		require.NoError(t, s.PutJob(ctx, domain.Job{
			ID: "stale", HireID: "h1", Status: domain.JobStatusLeased,
			Lease: &domain.Lease{WorkerID: "w1", ExpiresAt: 500},
		}))
		require.NoError(t, s.PutJob(ctx, domain.Job{
			ID: "fresh", HireID: "h1", Status: domain.JobStatusLeased,
			Lease: &domain.Lease{WorkerID: "w1", ExpiresAt: 5000},
		}))

		expired, err := s.GetExpiredLeases(ctx, 1000)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, "stale", expired[0].ID)
	})

	t.Run("GetJob not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetJob(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("ListJobsByHire paginates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutHire(ctx, domain.Hire{ID: "h1", Status: domain.HireStatusActive}))
		for _, id := range []string{"j1", "j2", "j3"} {
			require.NoError(t, s.PutJob(ctx, domain.Job{ID: id, HireID: "h1", Status: domain.JobStatusPending}))
		}
		page, err := s.ListJobsByHire(ctx, "h1", 2, 0)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		rest, err := s.ListJobsByHire(ctx, "h1", 2, 2)
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})
}
