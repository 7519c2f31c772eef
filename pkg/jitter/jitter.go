// Package jitter provides a deterministic, per-process pseudo-random stream
// used to desynchronize timing decisions (backoff sleeps, AIMD rate steps)
// across many peer processes sharing a single server-side quota.
package jitter

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"os"
	"time"
)

// Source is a per-instance deterministic pseudo-random stream seeded from a
// stable fingerprint of (hostname, pid). The same process always produces
// the same sequence; different processes diverge.
//
// Not safe for concurrent use by multiple goroutines unless Factor-only
// reads are involved; callers that share a Source across goroutines must
// guard it externally (pkg/ratelimit does this, since jitter calls happen
// inside a limiter's own exclusive region).
type Source struct {
	factor float64
	rng    *rand.Rand
}

// New creates a Source seeded from the current host and process identity.
func New(factor float64) *Source {
	return NewWithFingerprint(factor, fingerprint(os.Getpid()))
}

// NewWithFingerprint creates a Source seeded from an explicit fingerprint,
// primarily for simulating multiple processes in tests.
func NewWithFingerprint(factor float64, fingerprint int64) *Source {
	if factor < 0 || factor >= 1 {
		panic("jitter: factor must be in [0, 1)")
	}
	return &Source{
		factor: factor,
		rng:    rand.New(rand.NewSource(fingerprint)),
	}
}

func fingerprint(pid int) int64 {
	hostname, _ := os.Hostname()
	sum := sha256.Sum256([]byte(hostname + ":" + itoa(pid)))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Factor returns the jitter factor this source was constructed with.
func (s *Source) Factor() float64 {
	return s.factor
}

// Next returns a multiplicative perturbation in [1-factor, 1+factor].
func (s *Source) Next() float64 {
	return 1 - s.factor + s.rng.Float64()*2*s.factor
}

// Random returns a value in [0, 1), for probabilistic decisions.
func (s *Source) Random() float64 {
	return s.rng.Float64()
}

// Apply multiplies v by a freshly drawn jitter multiplier.
func (s *Source) Apply(v float64) float64 {
	return v * s.Next()
}

// SleepDuration jitters d by +/- factor and clamps to non-negative.
// This is the only place jitter enters a sleep/backoff decision.
func SleepDuration(d time.Duration, factor float64) time.Duration {
	u := factor * (2*rand.Float64() - 1)
	jittered := float64(d) * (1 + u)
	if jittered < 0 {
		return 0
	}
	return time.Duration(jittered)
}
