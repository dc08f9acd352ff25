package memory

import (
	"testing"

	"github.com/rezkam/mono/internal/store"
	"github.com/rezkam/mono/internal/store/conformance"
)

func TestMemoryStoreConformance(t *testing.T) {
	conformance.Run(t, func(t *testing.T) store.Store {
		return New()
	})
}
