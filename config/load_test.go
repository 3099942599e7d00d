package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hybridrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(PathEnvVar, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Engine.MinConfidence)
	assert.Equal(t, 10, cfg.Engine.DefaultLimit)
	assert.Equal(t, 20, cfg.Engine.MaxLimit)
	assert.Equal(t, 3*time.Second, cfg.Engine.StrategyTimeout)
	assert.Empty(t, cfg.Engine.MergeWeights)
	assert.True(t, cfg.Strategies.Behavioral.Enabled)
	assert.Equal(t, 30, cfg.Strategies.Trending.MaxWindowDays)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "hybridrec:blacklist", cfg.Blacklist.Key)
}

// TestLoadFileAndEnv 测试 文件 → 环境变量 的覆盖顺序
func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
engine:
  default_limit: 5
  strategy_timeout: 500ms
  merge_weights:
    content: 2
strategies:
  trending:
    enabled: false
log:
  level: debug
`)
	t.Setenv("HYBRIDREC_ENGINE__MIN_CONFIDENCE", "0.4")
	t.Setenv("HYBRIDREC_ENGINE__DEFAULT_LIMIT", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.DefaultLimit)
	assert.Equal(t, 0.4, cfg.Engine.MinConfidence)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.StrategyTimeout)
	assert.Equal(t, 2.0, cfg.Engine.MergeWeights["content"])
	assert.Len(t, cfg.Engine.MergeWeights, 1)
	assert.False(t, cfg.Strategies.Trending.Enabled)
	assert.True(t, cfg.Strategies.Content.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadPathFromEnv(t *testing.T) {
	path := writeConfig(t, "engine:\n  max_limit: 15\n")
	t.Setenv(PathEnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Engine.MaxLimit)
}

// TestLoadValidation 测试非法配置被拒绝
func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"limit above max", "engine:\n  default_limit: 30\n"},
		{"confidence out of range", "engine:\n  min_confidence: 1.5\n"},
		{"unknown strategy weight", "engine:\n  merge_weights:\n    magic: 1\n"},
		{"redis without addr", "store:\n  backend: redis\n"},
		{"window order", "strategies:\n  trending:\n    window_days: 40\n"},
		{"log level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(PathEnvVar, "")
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err))
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, core.IsInvalidInput(err))
}

func TestDump(t *testing.T) {
	out, err := Default().Dump()
	require.NoError(t, err)
	assert.Contains(t, string(out), "min_confidence: 0.3")
	assert.Contains(t, string(out), "backend: memory")
}

// TestEngineSettings 测试配置到引擎参数的映射
func TestEngineSettings(t *testing.T) {
	cfg := Default()
	cfg.Strategies.Trending.Enabled = false
	cfg.Strategies.Complementary.Enabled = false
	cfg.Engine.MergeWeights = map[string]float64{"content": 2}
	cfg.Engine.KeepPurchased = true

	s := cfg.EngineSettings()
	assert.Equal(t, []core.Reason{core.ReasonComplementary, core.ReasonTrending}, s.Disabled)
	assert.Equal(t, map[core.Reason]float64{core.ReasonContent: 2}, s.Weights)
	assert.True(t, s.KeepPurchased)
	assert.Equal(t, "hybridrec:blacklist", s.BlacklistKey)
	assert.Equal(t, "hybridrec:blocks", s.UserBlockKeyPrefix)
	assert.Equal(t, 3*time.Second, s.StrategyTimeout)
	assert.Equal(t, 2.0, s.SimilarityNeutral)

	b := cfg.BreakerSettings()
	assert.Equal(t, uint32(5), b.FailureThreshold)
	assert.Equal(t, 30*time.Second, b.Timeout)
	assert.Equal(t, time.Minute, b.Interval)
}
