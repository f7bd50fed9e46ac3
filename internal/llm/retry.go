package llm

import (
	"math/rand"
	"time"
)

const (
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 30 * time.Second
)

// Backoff returns the delay before retry attempt n (0-based): exponential
// growth from baseRetryDelay, capped at maxRetryDelay, with up to 25%
// jitter so concurrent tasks don't stampede a recovering provider.
func Backoff(attempt int) time.Duration {
	d := baseRetryDelay
	for i := 0; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 4))
	return d + jitter
}
