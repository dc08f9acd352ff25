package scheduler

import (
	"crypto/rand"
	"math"
	"math/big"
)

const (
	backoffBaseMs = 1000
	backoffCapMs  = 60_000
	jitterFrac    = 0.2
)

// backoffMs computes the retry delay for a job with attempts failed
// attempts so far (spec §4.3.5): base = 1000ms * 2^max(0, attempts-1),
// jitter uniform in [-0.2*base, +0.2*base], result capped at 60s.
func backoffMs(attempts int) int64 {
	exp := attempts - 1
	if exp < 0 {
		exp = 0
	}
	base := float64(backoffBaseMs) * math.Pow(2, float64(exp))

	spread := 2 * jitterFrac * base
	n, err := rand.Int(rand.Reader, big.NewInt(int64(spread)+1))
	var jitter float64
	if err == nil {
		jitter = float64(n.Int64()) - jitterFrac*base
	}

	result := base + jitter
	if result > backoffCapMs {
		result = backoffCapMs
	}
	if result < 0 {
		result = 0
	}
	return int64(result)
}
