package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/patterns.json", cfg.Store.PatternPath)
	assert.Equal(t, 500*time.Millisecond, cfg.Store.Debounce)
	assert.Equal(t, 0.1, cfg.Registry.ConfidenceFloor)
	assert.Equal(t, 3, cfg.Failure.AntiPatternThreshold)
	assert.Equal(t, time.Hour, cfg.Discovery.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Discovery.SourceTimeout)
	assert.Equal(t, 0.3, cfg.Transfer.MinSimilarity)
	assert.Equal(t, 0.5, cfg.Transfer.ConfidenceDecay)
	assert.Equal(t, 3, cfg.Transfer.MaxCandidates)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PAGELENS_TRANSFER_MIN_SIMILARITY", "0.6")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Transfer.MinSimilarity)
}
