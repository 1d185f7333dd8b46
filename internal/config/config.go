// Package config 负责加载和验证 YAML 配置文件。
// 提供引擎所需的所有配置项，包括行情源、检测器、指标、风控与权重覆盖。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 应用配置根结构
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Instrument 合约配置
	Instrument InstrumentConfig `yaml:"instrument"`
	// Feed 行情源配置
	Feed FeedConfig `yaml:"feed"`
	// Detection 检测器配置
	Detection DetectionConfig `yaml:"detection"`
	// Indicator 指标配置
	Indicator IndicatorConfig `yaml:"indicator"`
	// Scoring 合流评分配置
	Scoring ScoringConfig `yaml:"scoring"`
	// Decision 决策边界配置
	Decision DecisionConfig `yaml:"decision"`
	// Risk 风控与仓位配置
	Risk RiskConfig `yaml:"risk"`
	// Telemetry 遥测留痕配置
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// StatsIntervalMs 周期性会话统计日志间隔（毫秒）
	StatsIntervalMs int `yaml:"stats_interval_ms"`
}

// InstrumentConfig 合约配置
type InstrumentConfig struct {
	// TickSize 最小价格变动
	TickSize float64 `yaml:"tick_size"`
	// PointValue 每点价值
	PointValue float64 `yaml:"point_value"`
	// RoundStep 整数关口步长（扫损价位归类用）
	RoundStep float64 `yaml:"round_step"`
}

// FeedConfig 行情源配置
type FeedConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// Pair 交易对（小写，如 btcusd）
	Pair string `yaml:"pair"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
}

// DetectionConfig 检测器配置
type DetectionConfig struct {
	// Iceberg 冰山单检测配置
	Iceberg IcebergConfig `yaml:"iceberg"`
	// Spoof 欺骗单检测配置
	Spoof SpoofConfig `yaml:"spoof"`
	// Absorption 吸收检测配置
	Absorption AbsorptionConfig `yaml:"absorption"`
	// StopHunt 扫损检测配置
	StopHunt StopHuntConfig `yaml:"stop_hunt"`
	// BigFish 大单追踪配置
	BigFish BigFishConfig `yaml:"big_fish"`
	// TapeSpeed 成交带速度配置
	TapeSpeed TapeSpeedConfig `yaml:"tape_speed"`
}

// IcebergConfig 冰山单检测配置
type IcebergConfig struct {
	// MinOrders 同价位最小挂单笔数基线
	MinOrders int `yaml:"min_orders"`
	// MinSize 同价位最小累计数量基线
	MinSize float64 `yaml:"min_size"`
	// CooldownMs 同价位信号冷却（毫秒）
	CooldownMs int `yaml:"cooldown_ms"`
}

// SpoofConfig 欺骗单检测配置
type SpoofConfig struct {
	// MinSize 大单判定数量
	MinSize float64 `yaml:"min_size"`
	// MaxAgeMs 挂撤时限（毫秒），在此时限内未成交即撤判定为欺骗
	MaxAgeMs int `yaml:"max_age_ms"`
}

// AbsorptionConfig 吸收检测配置
type AbsorptionConfig struct {
	// MinSize 单笔大成交判定数量
	MinSize float64 `yaml:"min_size"`
	// Multiple 相对滚动均值的倍数
	Multiple float64 `yaml:"multiple"`
	// ConfirmMs 吸收确认窗口（毫秒）
	ConfirmMs int `yaml:"confirm_ms"`
	// CooldownMs 同价位信号冷却（毫秒）
	CooldownMs int `yaml:"cooldown_ms"`
}

// StopHuntConfig 扫损检测配置
type StopHuntConfig struct {
	// SweepTicks 扫损最小幅度（tick 数）
	SweepTicks int `yaml:"sweep_ticks"`
	// VolumeMultiple 成交量放大倍数
	VolumeMultiple float64 `yaml:"volume_multiple"`
	// ReversalPct 反转确认的最小回撤比例（0-1）
	ReversalPct float64 `yaml:"reversal_pct"`
	// CooldownMs 同价位信号冷却（毫秒）
	CooldownMs int `yaml:"cooldown_ms"`
}

// BigFishConfig 大单追踪配置
type BigFishConfig struct {
	// DeltaThreshold 价位净差激活阈值
	DeltaThreshold float64 `yaml:"delta_threshold"`
	// WindowMs 净差累计窗口（毫秒）
	WindowMs int `yaml:"window_ms"`
}

// TapeSpeedConfig 成交带速度配置
type TapeSpeedConfig struct {
	// WindowMs 速度计算窗口（毫秒）
	WindowMs int `yaml:"window_ms"`
	// FastTradesPerSec 快速判定（笔/秒）
	FastTradesPerSec float64 `yaml:"fast_trades_per_sec"`
	// SlowTradesPerSec 慢速判定（笔/秒）
	SlowTradesPerSec float64 `yaml:"slow_trades_per_sec"`
}

// IndicatorConfig 指标配置
type IndicatorConfig struct {
	// EMAFast/EMAMid/EMASlow 三条 EMA 周期（bar 数）
	EMAFast int `yaml:"ema_fast"`
	EMAMid  int `yaml:"ema_mid"`
	EMASlow int `yaml:"ema_slow"`
	// ATRPeriod ATR 周期（bar 数）
	ATRPeriod int `yaml:"atr_period"`
	// BarSeconds bar 聚合周期（秒）
	BarSeconds int `yaml:"bar_seconds"`
	// ProfileTick 成交量分布的价格桶宽
	ProfileTick float64 `yaml:"profile_tick"`
	// CVDExtremePct CVD 极端判定比例（0-1）
	CVDExtremePct float64 `yaml:"cvd_extreme_pct"`
}

// ScoringConfig 合流评分配置
type ScoringConfig struct {
	// Threshold 合流阈值
	Threshold float64 `yaml:"threshold"`
	// Weights 权重覆盖（名称 -> 值，越界静默钳制）
	Weights map[string]float64 `yaml:"weights"`
}

// DecisionConfig 决策边界配置
type DecisionConfig struct {
	// TimeoutMs 单次决策超时（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
	// MaxConsecutiveFaults 连续故障熔断阈值
	MaxConsecutiveFaults int `yaml:"max_consecutive_faults"`
	// MaxIterations 单次决策的提供方迭代上限
	MaxIterations int `yaml:"max_iterations"`
	// RewardRatio 盈亏比
	RewardRatio float64 `yaml:"reward_ratio"`
	// ATRMultiple 止损距离 ATR 倍数
	ATRMultiple float64 `yaml:"atr_multiple"`
}

// RiskConfig 风控与仓位配置
type RiskConfig struct {
	// MaxPositions 同时持仓上限
	MaxPositions int `yaml:"max_positions"`
	// MaxContracts 单笔合约数上限
	MaxContracts int `yaml:"max_contracts"`
	// AccountRisk 单笔允许的账户风险（货币单位）
	AccountRisk float64 `yaml:"account_risk"`
	// AccountBalance 影子账户初始权益（货币单位）
	AccountBalance float64 `yaml:"account_balance"`
	// RiskPercent 单笔风险占账户权益的百分比（0 禁用，退回 AccountRisk）
	RiskPercent float64 `yaml:"risk_percent"`
	// DailyLossLimit 日亏损上限（货币单位，0 禁用）
	DailyLossLimit float64 `yaml:"daily_loss_limit"`
	// SignalMaxAgeMs 信号最大时效（毫秒）
	SignalMaxAgeMs int `yaml:"signal_max_age_ms"`
	// MaxSlippage 信号价与当前价的最大允许偏移（价格单位）
	MaxSlippage float64 `yaml:"max_slippage"`
	// BreakEvenTrigger 触发保本的有利移动量（价格单位，0 禁用）
	BreakEvenTrigger float64 `yaml:"break_even_trigger"`
	// BreakEvenOffset 保本止损相对入场价的偏移（价格单位）
	BreakEvenOffset float64 `yaml:"break_even_offset"`
	// TrailingDistance 移动止损距离（价格单位，0 禁用）
	TrailingDistance float64 `yaml:"trailing_distance"`
}

// TelemetryConfig 遥测留痕配置
type TelemetryConfig struct {
	// JournalPath 留痕文件路径（空则禁用留痕）
	JournalPath string `yaml:"journal_path"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	// 应用默认值
	if c.App.Name == "" {
		c.App.Name = "orderflow-signal-engine"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.StatsIntervalMs == 0 {
		c.App.StatsIntervalMs = 60000 // 60 秒
	}

	// 合约默认值
	if c.Instrument.TickSize == 0 {
		c.Instrument.TickSize = 0.25
	}
	if c.Instrument.PointValue == 0 {
		c.Instrument.PointValue = 20
	}
	if c.Instrument.RoundStep == 0 {
		c.Instrument.RoundStep = 100
	}

	// 行情源默认值
	if c.Feed.URL == "" {
		c.Feed.URL = "wss://ws.bitstamp.net"
	}
	if c.Feed.ReadTimeoutMs == 0 {
		c.Feed.ReadTimeoutMs = 30000 // 30 秒
	}

	// 检测器默认值
	if c.Detection.Iceberg.MinOrders == 0 {
		c.Detection.Iceberg.MinOrders = 4
	}
	if c.Detection.Iceberg.CooldownMs == 0 {
		c.Detection.Iceberg.CooldownMs = 10000 // 10 秒
	}
	if c.Detection.Spoof.MaxAgeMs == 0 {
		c.Detection.Spoof.MaxAgeMs = 5000 // 5 秒
	}
	if c.Detection.Absorption.Multiple == 0 {
		c.Detection.Absorption.Multiple = 5
	}
	if c.Detection.Absorption.ConfirmMs == 0 {
		c.Detection.Absorption.ConfirmMs = 3000 // 3 秒
	}
	if c.Detection.Absorption.CooldownMs == 0 {
		c.Detection.Absorption.CooldownMs = 10000 // 10 秒
	}
	if c.Detection.StopHunt.SweepTicks == 0 {
		c.Detection.StopHunt.SweepTicks = 8
	}
	if c.Detection.StopHunt.VolumeMultiple == 0 {
		c.Detection.StopHunt.VolumeMultiple = 3
	}
	if c.Detection.StopHunt.ReversalPct == 0 {
		c.Detection.StopHunt.ReversalPct = 0.5
	}
	if c.Detection.StopHunt.CooldownMs == 0 {
		c.Detection.StopHunt.CooldownMs = 120000 // 2 分钟
	}
	if c.Detection.BigFish.WindowMs == 0 {
		c.Detection.BigFish.WindowMs = 60000 // 60 秒
	}
	if c.Detection.TapeSpeed.WindowMs == 0 {
		c.Detection.TapeSpeed.WindowMs = 10000 // 10 秒
	}
	if c.Detection.TapeSpeed.FastTradesPerSec == 0 {
		c.Detection.TapeSpeed.FastTradesPerSec = 10
	}
	if c.Detection.TapeSpeed.SlowTradesPerSec == 0 {
		c.Detection.TapeSpeed.SlowTradesPerSec = 2
	}

	// 指标默认值
	if c.Indicator.EMAFast == 0 {
		c.Indicator.EMAFast = 9
	}
	if c.Indicator.EMAMid == 0 {
		c.Indicator.EMAMid = 21
	}
	if c.Indicator.EMASlow == 0 {
		c.Indicator.EMASlow = 50
	}
	if c.Indicator.ATRPeriod == 0 {
		c.Indicator.ATRPeriod = 14
	}
	if c.Indicator.BarSeconds == 0 {
		c.Indicator.BarSeconds = 60
	}
	if c.Indicator.ProfileTick == 0 {
		c.Indicator.ProfileTick = c.Instrument.TickSize
	}
	if c.Indicator.CVDExtremePct == 0 {
		c.Indicator.CVDExtremePct = 0.3
	}

	// 评分默认值
	if c.Scoring.Threshold == 0 {
		c.Scoring.Threshold = 70
	}

	// 决策默认值
	if c.Decision.TimeoutMs == 0 {
		c.Decision.TimeoutMs = 500
	}
	if c.Decision.MaxConsecutiveFaults == 0 {
		c.Decision.MaxConsecutiveFaults = 5
	}
	if c.Decision.MaxIterations == 0 {
		c.Decision.MaxIterations = 8
	}
	if c.Decision.RewardRatio == 0 {
		c.Decision.RewardRatio = 2
	}
	if c.Decision.ATRMultiple == 0 {
		c.Decision.ATRMultiple = 1.5
	}

	// 风控默认值
	if c.Risk.MaxPositions == 0 {
		c.Risk.MaxPositions = 1
	}
	if c.Risk.MaxContracts == 0 {
		c.Risk.MaxContracts = 3
	}
	if c.Risk.AccountRisk == 0 {
		c.Risk.AccountRisk = 200
	}
	if c.Risk.AccountBalance == 0 {
		c.Risk.AccountBalance = 10000
	}
	if c.Risk.SignalMaxAgeMs == 0 {
		c.Risk.SignalMaxAgeMs = 2000 // 2 秒
	}
	if c.Risk.MaxSlippage == 0 {
		c.Risk.MaxSlippage = 2
	}
	if c.Risk.BreakEvenOffset == 0 {
		c.Risk.BreakEvenOffset = c.Instrument.TickSize
	}

	// 遥测默认值
	if c.Telemetry.BufferSize == 0 {
		c.Telemetry.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	// 验证合约配置
	if c.Instrument.TickSize <= 0 {
		errs = append(errs, "instrument.tick_size: 最小价格变动必须为正数")
	}
	if c.Instrument.PointValue <= 0 {
		errs = append(errs, "instrument.point_value: 每点价值必须为正数")
	}

	// 验证行情源配置
	if c.Feed.URL == "" {
		errs = append(errs, "feed.url: WebSocket 地址不能为空")
	}
	if c.Feed.Pair == "" {
		errs = append(errs, "feed.pair: 交易对不能为空")
	}

	// 验证检测器参数
	if c.Detection.Iceberg.MinOrders < 2 {
		errs = append(errs, "detection.iceberg.min_orders: 最小挂单笔数不能小于 2")
	}
	if c.Detection.StopHunt.ReversalPct <= 0 || c.Detection.StopHunt.ReversalPct > 1 {
		errs = append(errs, "detection.stop_hunt.reversal_pct: 回撤比例必须在 0-1 之间")
	}
	if c.Detection.TapeSpeed.SlowTradesPerSec >= c.Detection.TapeSpeed.FastTradesPerSec {
		errs = append(errs, "detection.tape_speed: 慢速判定必须小于快速判定")
	}

	// 验证指标参数
	if c.Indicator.EMAFast >= c.Indicator.EMAMid || c.Indicator.EMAMid >= c.Indicator.EMASlow {
		errs = append(errs, "indicator: EMA 周期必须满足 fast < mid < slow")
	}
	if c.Indicator.CVDExtremePct <= 0 || c.Indicator.CVDExtremePct > 1 {
		errs = append(errs, "indicator.cvd_extreme_pct: 极端判定比例必须在 0-1 之间")
	}

	// 验证评分参数
	if c.Scoring.Threshold <= 0 {
		errs = append(errs, "scoring.threshold: 合流阈值必须为正数")
	}

	// 验证风控参数
	if c.Risk.AccountRisk <= 0 {
		errs = append(errs, "risk.account_risk: 账户风险必须为正数")
	}
	if c.Risk.RiskPercent < 0 || c.Risk.RiskPercent > 100 {
		errs = append(errs, "risk.risk_percent: 风险百分比必须在 [0, 100] 范围内")
	}
	if c.Risk.DailyLossLimit < 0 {
		errs = append(errs, "risk.daily_loss_limit: 日亏损上限不能为负数")
	}
	if c.Risk.BreakEvenTrigger < 0 {
		errs = append(errs, "risk.break_even_trigger: 保本触发量不能为负数")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
