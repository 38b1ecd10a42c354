package lifecycle

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// linearBackOff waits retries*step between attempts, capped at max. It
// never gives up.
type linearBackOff struct {
	step    time.Duration
	max     time.Duration
	retries int64
}

var _ backoff.BackOff = (*linearBackOff)(nil)

func newLinearBackOff(step, max time.Duration) *linearBackOff {
	return &linearBackOff{step: step, max: max}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	d := time.Duration(b.retries) * b.step
	if d > b.max || d <= 0 {
		return b.max
	}
	return d
}

func (b *linearBackOff) Reset() {
	b.retries = 0
}
