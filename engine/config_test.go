package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-chat/warden/detector"
)

func TestDefaultConfigValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidation(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.CategoryWeights[detector.CategoryContent] = 1.5
	assert.ErrorIs(cfg.Validate(), ErrConfiguration)

	cfg = DefaultConfig()
	cfg.CategoryWeights = nil
	assert.ErrorIs(cfg.Validate(), ErrConfiguration)

	cfg = DefaultConfig()
	cfg.WarnThreshold = 0.9
	cfg.DeleteThreshold = 0.5
	assert.ErrorIs(cfg.Validate(), ErrConfiguration)

	cfg = DefaultConfig()
	cfg.EvalBudget = 0
	assert.ErrorIs(cfg.Validate(), ErrConfiguration)

	cfg = DefaultConfig()
	cfg.SeverityActions["bogus"] = ActionWarn
	assert.ErrorIs(cfg.Validate(), ErrConfiguration)
}

func TestLoadConfigYAML(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	raw := `
category_weights:
  content: 0.5
  behavior: 0.2
  threat: 0.15
  spam: 0.15
warn_threshold: 0.4
eval_budget: 150ms
cache_ttl: 1m
cache_size: 128
`
	p := filepath.Join(t.TempDir(), "warden.yaml")
	require.NoError(os.WriteFile(p, []byte(raw), 0o644))

	cfg, err := LoadConfigYAML(p)
	require.NoError(err)
	assert.Equal(0.5, cfg.CategoryWeights[detector.CategoryContent])
	assert.Equal(0.4, cfg.WarnThreshold)
	assert.Equal(150*time.Millisecond, cfg.EvalBudget.Std())
	assert.Equal(time.Minute, cfg.CacheTTL.Std())
	assert.Equal(128, cfg.CacheSize)
	// untouched fields keep their defaults
	assert.Equal(0.7, cfg.DeleteThreshold)
}

func TestLoadConfigYAMLRejectsInvalid(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	raw := `
warn_threshold: 3.0
`
	p := filepath.Join(t.TempDir(), "warden.yaml")
	require.NoError(os.WriteFile(p, []byte(raw), 0o644))

	_, err := LoadConfigYAML(p)
	assert.ErrorIs(err, ErrConfiguration)
}
