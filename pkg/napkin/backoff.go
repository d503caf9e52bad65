package napkin

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

const (
	backoffBase   = 300 * time.Millisecond
	backoffJitter = 200 * time.Millisecond
	backoffCap    = 5 * time.Second
)

// Backoff returns the wait after the failed attempt with zero-based index n:
// min(5s, 300ms*2^n + U[0,200ms)).
func Backoff(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	// 300ms*2^5 already exceeds the cap.
	if n >= 5 {
		return backoffCap
	}
	d := backoffBase<<uint(n) + time.Duration(secureRandFloat64()*float64(backoffJitter))
	if d > backoffCap {
		d = backoffCap
	}
	return d
}

// secureRandFloat64 returns a float in [0,1) read from crypto/rand.
func secureRandFloat64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0.5
	}
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}
