package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBackoffGrowsExponentially(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}

	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 8*time.Second, cfg.CalculateBackoff(3))
}

func TestCalculateBackoffCapsAtMax(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    time.Second,
		Max:        10 * time.Second,
		Multiplier: 2,
	}

	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(10))
}

func TestDefaultBackoffConfig(t *testing.T) {
	cfg := DefaultBackoffConfig()
	assert.Equal(t, time.Second, cfg.Initial)
	assert.Equal(t, time.Minute, cfg.Max)
	assert.Equal(t, float64(2), cfg.Multiplier)
}
