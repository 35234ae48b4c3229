package heartbeat

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackoff returns the delay schedule used between failed attempts within
// one cycle: initial, initial*2, initial*4, ... capped at max. Randomization
// is disabled so the schedule is deterministic.
func newBackoff(initial, max time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
