package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/mono/internal/domain"
)

func TestResolveKnownWallet(t *testing.T) {
	ref := domain.WalletRef{ID: "w1", Address: "0xabc"}
	r := NewStaticResolver(map[string]Handle{
		"w1": {WalletRef: ref, Data: map[string]string{"network": "base"}},
	})

	got, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	h, ok := got.(Handle)
	require.True(t, ok)
	assert.Equal(t, "base", h.Data["network"])
}

func TestResolveUnknownWallet(t *testing.T) {
	r := NewStaticResolver(nil)
	_, err := r.Resolve(context.Background(), domain.WalletRef{ID: "missing"})
	assert.Error(t, err)
}

func TestSetOverridesHandle(t *testing.T) {
	r := NewStaticResolver(nil)
	r.Set("w2", Handle{Data: map[string]string{"k": "v1"}})
	r.Set("w2", Handle{Data: map[string]string{"k": "v2"}})

	got, err := r.Resolve(context.Background(), domain.WalletRef{ID: "w2"})
	require.NoError(t, err)
	assert.Equal(t, "v2", got.(Handle).Data["k"])
}
