package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("RECALL_MODE", "")
	t.Setenv("RECALL_INDEXING_MODE", "")
	t.Setenv("RECALL_DB_PATH", "")
	t.Setenv("RECALL_BLACKLIST", "")
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ModeOnDevice, cfg.Mode)
	assert.Equal(t, IndexingAutomatic, cfg.IndexingMode)
	assert.Equal(t, DefaultThresholdOnDevice, cfg.SimilarityThreshold())
	assert.Equal(t, DefaultBudgetOnDevice, cfg.TokenBudget())
}

func TestNewFromEnv_OnlineWithKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ModeOnline, cfg.Mode)
	assert.Equal(t, DefaultThresholdOnline, cfg.SimilarityThreshold())
	assert.Equal(t, DefaultBudgetOnline, cfg.TokenBudget())
}

func TestNewFromEnv_ExplicitModeOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RECALL_MODE", "ondevice")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeOnDevice, cfg.Mode)
}

func TestNewFromEnv_OnlineRequiresKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("RECALL_MODE", "online")

	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("RECALL_MODE", "quantum")
	_, err := NewFromEnv()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("RECALL_INDEXING_MODE", "sometimes")
	_, err = NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_Blacklist(t *testing.T) {
	clearEnv(t)
	t.Setenv("RECALL_BLACKLIST", "Example.com, tracker.net ,")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Blocked("example.com"))
	assert.True(t, cfg.Blocked("sub.example.com"))
	assert.True(t, cfg.Blocked("tracker.net"))
	assert.False(t, cfg.Blocked("example.org"))
	assert.False(t, cfg.Blocked("notexample.com"))
}
