package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTempConfig 写一个临时配置文件并返回路径
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "写入临时配置文件失败")
	return path
}

// TestLoad_Valid 验证合法配置能够完整加载
func TestLoad_Valid(t *testing.T) {
	path := writeTempConfig(t, `
app:
  name: test-engine
  log_level: debug
feed:
  pair: btcusd
instrument:
  tick_size: 0.5
  point_value: 50
scoring:
  threshold: 90
  weights:
    cvd_align: 20
risk:
  max_positions: 2
  daily_loss_limit: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err, "加载合法配置失败")

	assert.Equal(t, "test-engine", cfg.App.Name)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "btcusd", cfg.Feed.Pair)
	assert.Equal(t, 0.5, cfg.Instrument.TickSize)
	assert.Equal(t, 50.0, cfg.Instrument.PointValue)
	assert.Equal(t, 90.0, cfg.Scoring.Threshold)
	assert.Equal(t, 20.0, cfg.Scoring.Weights["cvd_align"])
	assert.Equal(t, 2, cfg.Risk.MaxPositions)
	assert.Equal(t, 500.0, cfg.Risk.DailyLossLimit)
}

// TestLoad_Defaults 验证未填项获得默认值
func TestLoad_Defaults(t *testing.T) {
	path := writeTempConfig(t, `
feed:
  pair: btcusd
`)

	cfg, err := Load(path)
	require.NoError(t, err, "加载最小配置失败")

	assert.Equal(t, "orderflow-signal-engine", cfg.App.Name)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "wss://ws.bitstamp.net", cfg.Feed.URL)
	assert.Equal(t, 30000, cfg.Feed.ReadTimeoutMs)
	assert.Equal(t, 9, cfg.Indicator.EMAFast)
	assert.Equal(t, 21, cfg.Indicator.EMAMid)
	assert.Equal(t, 50, cfg.Indicator.EMASlow)
	assert.Equal(t, cfg.Instrument.TickSize, cfg.Indicator.ProfileTick,
		"默认价格桶宽应等于最小价格变动")
	assert.Equal(t, 70.0, cfg.Scoring.Threshold)
	assert.Equal(t, 500, cfg.Decision.TimeoutMs)
	assert.Equal(t, 5, cfg.Decision.MaxConsecutiveFaults)
	assert.Equal(t, 8, cfg.Decision.MaxIterations)
	assert.Equal(t, 1, cfg.Risk.MaxPositions)
	assert.Equal(t, 3, cfg.Risk.MaxContracts)
	assert.Equal(t, 10000.0, cfg.Risk.AccountBalance)
	assert.Equal(t, cfg.Instrument.TickSize, cfg.Risk.BreakEvenOffset,
		"默认保本偏移应等于最小价格变动")
	assert.Equal(t, 1000, cfg.Telemetry.BufferSize)
}

// TestLoad_ValidationErrors 验证非法配置收集所有错误
func TestLoad_ValidationErrors(t *testing.T) {
	path := writeTempConfig(t, `
app:
  log_level: verbose
feed:
  pair: ""
instrument:
  tick_size: -1
scoring:
  threshold: -5
risk:
  account_risk: -100
`)

	_, err := Load(path)
	require.Error(t, err, "非法配置应该返回错误")

	// 一次 Load 收集全部验证错误，而不是在第一个错误处停下
	for _, want := range []string{
		"feed.pair",
		"instrument.tick_size",
		"scoring.threshold",
		"risk.account_risk",
		"app.log_level",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

// TestLoad_FileNotFound 验证文件不存在时的错误
func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "读取配置文件失败")
}

// TestLoad_BadYAML 验证格式错误的 YAML
func TestLoad_BadYAML(t *testing.T) {
	path := writeTempConfig(t, "app: [not: valid: yaml")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "解析配置文件失败")
}

// TestValidate_EMAOrdering 验证 EMA 周期顺序检查
func TestValidate_EMAOrdering(t *testing.T) {
	path := writeTempConfig(t, `
feed:
  pair: btcusd
indicator:
  ema_fast: 50
  ema_mid: 21
  ema_slow: 9
`)

	_, err := Load(path)
	require.Error(t, err, "乱序的 EMA 周期应该验证失败")
	assert.Contains(t, err.Error(), "fast < mid < slow")
}
