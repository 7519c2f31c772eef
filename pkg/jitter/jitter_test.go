package jitter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_NextBounds(t *testing.T) {
	s := NewWithFingerprint(0.2, 42)
	for i := 0; i < 1000; i++ {
		v := s.Next()
		assert.GreaterOrEqual(t, v, 0.8)
		assert.LessOrEqual(t, v, 1.2)
	}
}

func TestSource_SameFingerprintReproducible(t *testing.T) {
	a := NewWithFingerprint(0.2, 7)
	b := NewWithFingerprint(0.2, 7)
	for i := 0; i < 50; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}

// TestSource_DesynchronizesAcrossProcesses verifies testable property 8:
// two independently-seeded streams correlate weakly over a large window.
func TestSource_DesynchronizesAcrossProcesses(t *testing.T) {
	a := NewWithFingerprint(0.2, 11)
	b := NewWithFingerprint(0.2, 99)

	const n = 1000
	as := make([]float64, n)
	bs := make([]float64, n)
	for i := 0; i < n; i++ {
		as[i] = a.Next()
		bs[i] = b.Next()
	}

	corr := pearson(as, bs)
	assert.Less(t, math.Abs(corr), 0.1)
}

func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var sumA, sumB, sumAB, sumA2, sumB2 float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
		sumAB += a[i] * b[i]
		sumA2 += a[i] * a[i]
		sumB2 += b[i] * b[i]
	}
	num := n*sumAB - sumA*sumB
	den := math.Sqrt((n*sumA2 - sumA*sumA) * (n*sumB2 - sumB*sumB))
	if den == 0 {
		return 0
	}
	return num / den
}

func TestSleepDuration_NeverNegative(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := SleepDuration(0, 0.5)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
}
