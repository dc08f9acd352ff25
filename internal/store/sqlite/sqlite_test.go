package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rezkam/mono/internal/store"
	"github.com/rezkam/mono/internal/store/conformance"
)

func TestSQLiteStoreConformance(t *testing.T) {
	conformance.Run(t, func(t *testing.T) store.Store {
		s, err := New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
