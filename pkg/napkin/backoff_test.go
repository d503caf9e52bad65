package napkin

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestBackoffBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("backoff stays within base+jitter and the cap", prop.ForAll(
		func(n int) bool {
			d := Backoff(n)
			lower := backoffCap
			upper := backoffCap
			if n < 5 {
				base := backoffBase << uint(n)
				if base < lower {
					lower = base
				}
				if base+backoffJitter < upper {
					upper = base + backoffJitter
				}
			}
			return d >= lower && d <= upper
		},
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

func TestBackoffKnownValues(t *testing.T) {
	first := Backoff(0)
	assert.GreaterOrEqual(t, first, 300*time.Millisecond)
	assert.Less(t, first, 500*time.Millisecond)

	assert.Equal(t, 5*time.Second, Backoff(5))
	assert.Equal(t, 5*time.Second, Backoff(63))
	assert.Equal(t, Backoff(-1) >= 300*time.Millisecond, true)
}

func TestSecureRandFloat64Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		f := secureRandFloat64()
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}
