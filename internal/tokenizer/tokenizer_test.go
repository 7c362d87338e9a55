package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicEstimator(t *testing.T) {
	est := NewHeuristic()

	assert.Equal(t, 0, est.Count(""))
	assert.Equal(t, 1, est.Count("ab"))
	assert.Equal(t, 25, est.Count(strings.Repeat("a", 100)))
	assert.Equal(t, "heuristic", est.Name())
}

func TestTiktokenEstimator(t *testing.T) {
	est, err := New()
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	assert.Equal(t, 0, est.Count(""))
	assert.Greater(t, est.Count("hello world, this is a test"), 0)

	// Longer text costs more tokens
	short := est.Count("hello")
	long := est.Count(strings.Repeat("hello world ", 50))
	assert.Greater(t, long, short)
}

func TestNewWithFallback(t *testing.T) {
	est := NewWithFallback()
	assert.NotNil(t, est)
	assert.Greater(t, est.Count("some text to count"), 0)
}
