// Package detector 实现订单流形态检测器。
package detector

import (
	"fmt"
	"math"

	"orderflow-signal-engine/internal/core/model"
)

// SweptLevelType 被扫价位的类型
type SweptLevelType string

const (
	// LevelRoundNumber 整数关口
	LevelRoundNumber SweptLevelType = "round_number"
	// LevelPriorHigh 前高
	LevelPriorHigh SweptLevelType = "prior_high"
	// LevelPriorLow 前低
	LevelPriorLow SweptLevelType = "prior_low"
	// LevelVWAP VWAP 价位
	LevelVWAP SweptLevelType = "vwap"
	// LevelSessionOpen 开盘价
	LevelSessionOpen SweptLevelType = "session_open"
	// LevelUnknown 未知价位
	LevelUnknown SweptLevelType = "unknown"
)

// LevelContext 价位分类所需的外部参照
// 由流水线在每次成交时提供（VWAP/开盘价等归各自计算器所有）。
type LevelContext struct {
	// VWAP 当前 VWAP（0 表示未初始化）
	VWAP float64
	// SessionOpen 开盘价（0 表示未知）
	SessionOpen float64
	// PriorHigh 前高（0 表示未知）
	PriorHigh float64
	// PriorLow 前低（0 表示未知）
	PriorLow float64
}

// StopHuntDetection 扫损检测结果
type StopHuntDetection struct {
	// Direction 信号方向：下扫反转 → long，上扫反转 → short
	Direction model.Direction
	// SweptLevel 被扫的极值价位
	SweptLevel float64
	// LevelType 被扫价位类型
	LevelType SweptLevelType
	// SweepTicks 扫动幅度（tick 数）
	SweepTicks float64
	// ReversalPct 反转回撤比例（0-1）
	ReversalPct float64
	// SweepVolume 扫动窗口内成交量
	SweepVolume float64
	// Quality 质量评分（1-10）
	Quality int
	// DetectedAtNs 检测时间（纳秒）
	DetectedAtNs int64
}

// Detail 生成检测细节描述
func (d *StopHuntDetection) Detail() string {
	return fmt.Sprintf("扫损 @%.2f (%s): 扫动 %.0f tick，回撤 %.0f%%，质量 %d/10",
		d.SweptLevel, d.LevelType, d.SweepTicks, d.ReversalPct*100, d.Quality)
}

// StopHuntConfig 扫损检测配置
type StopHuntConfig struct {
	// TickSize 最小价位变动单位
	TickSize float64
	// SweepTicks 扫动判定的最小 tick 数
	SweepTicks float64
	// VolumeMultiple 扫动窗口成交量相对平均单笔成交量的倍数下限
	VolumeMultiple float64
	// ReversalPct 反转判定的最小回撤比例（0-1）
	ReversalPct float64
	// WindowNs 扫动检测窗口（纳秒）
	WindowNs int64
	// ReversalWindowNs 反转确认窗口（纳秒）
	ReversalWindowNs int64
	// CooldownNs 同一价位去重冷却（纳秒）
	CooldownNs int64
	// RoundStep 整数关口步长（价格单位，如 10 表示每 10 点一个关口）
	RoundStep float64
	// LevelTolerance 价位类型匹配容差（价格单位）
	LevelTolerance float64
	// AvgWindow 平均单笔成交量滚动窗口大小
	AvgWindow int
}

// huntSample 窗口内成交样本
type huntSample struct {
	tsNs  int64
	price float64
	size  float64
}

// sweepState 进行中的扫动
type sweepState struct {
	// down 是否为下扫
	down bool
	// extreme 扫动极值价位
	extreme float64
	// origin 扫动起点价位
	origin float64
	// volume 扫动窗口成交量
	volume float64
	// flaggedNs 扫动确立时间
	flaggedNs int64
}

// StopHunt 扫损检测器
// 在检测窗口内跟踪价格极值；幅度与成交量同时达标视为扫动，
// 反转窗口内回撤达标则确认，按被扫价位分类并评分。
type StopHunt struct {
	cfg StopHuntConfig

	// samples 窗口内成交样本
	samples []huntSample
	// avgSize 平均单笔成交量
	avgSize *rollingHistory
	// sweep 进行中的扫动（nil 表示无）
	sweep *sweepState
	// lastFired 价位桶 -> 上次触发时间（纳秒）
	lastFired map[float64]int64
}

// NewStopHunt 创建扫损检测器
func NewStopHunt(cfg StopHuntConfig) *StopHunt {
	if cfg.TickSize <= 0 {
		cfg.TickSize = 0.25
	}
	if cfg.WindowNs <= 0 {
		cfg.WindowNs = 30_000_000_000 // 30 秒
	}
	if cfg.ReversalWindowNs <= 0 {
		cfg.ReversalWindowNs = 60_000_000_000 // 60 秒
	}
	if cfg.CooldownNs <= 0 {
		cfg.CooldownNs = 120_000_000_000 // 2 分钟
	}
	if cfg.ReversalPct <= 0 {
		cfg.ReversalPct = 0.5
	}
	return &StopHunt{
		cfg:       cfg,
		avgSize:   newRollingHistory(cfg.AvgWindow),
		lastFired: make(map[float64]int64),
	}
}

// OnTrade 处理成交事件
// 参数 ctx: 价位分类参照
// 返回: 确认扫损时返回检测结果，否则返回 nil。
func (d *StopHunt) OnTrade(price, size float64, nowNs int64, ctx LevelContext) *StopHuntDetection {
	d.avgSize.add(size)
	d.samples = append(d.samples, huntSample{tsNs: nowNs, price: price, size: size})
	d.pruneSamples(nowNs)

	if d.sweep == nil {
		d.tryFlagSweep(nowNs)
		return nil
	}

	// 反转窗口超时，放弃本次扫动
	if nowNs-d.sweep.flaggedNs > d.cfg.ReversalWindowNs {
		d.sweep = nil
		d.tryFlagSweep(nowNs)
		return nil
	}

	// 扫动仍在延伸则更新极值
	if d.sweep.down && price < d.sweep.extreme {
		d.sweep.extreme = price
		return nil
	}
	if !d.sweep.down && price > d.sweep.extreme {
		d.sweep.extreme = price
		return nil
	}

	sweepRange := math.Abs(d.sweep.origin - d.sweep.extreme)
	if sweepRange <= 0 {
		return nil
	}
	retrace := math.Abs(price-d.sweep.extreme) / sweepRange
	if retrace < d.cfg.ReversalPct {
		return nil
	}

	det := d.confirm(price, retrace, nowNs, ctx)
	d.sweep = nil
	return det
}

// pruneSamples 剪除窗口外样本
func (d *StopHunt) pruneSamples(nowNs int64) {
	cut := 0
	for cut < len(d.samples) && nowNs-d.samples[cut].tsNs > d.cfg.WindowNs {
		cut++
	}
	if cut > 0 {
		d.samples = d.samples[cut:]
	}
}

// tryFlagSweep 判断窗口内是否构成扫动
func (d *StopHunt) tryFlagSweep(nowNs int64) {
	if len(d.samples) < 2 {
		return
	}

	first := d.samples[0].price
	high, low := first, first
	var volume float64
	for _, s := range d.samples {
		if s.price > high {
			high = s.price
		}
		if s.price < low {
			low = s.price
		}
		volume += s.size
	}

	rangeTicks := (high - low) / d.cfg.TickSize
	if rangeTicks < d.cfg.SweepTicks {
		return
	}
	avg := d.avgSize.average()
	if avg > 0 && volume < d.cfg.VolumeMultiple*avg {
		return
	}

	last := d.samples[len(d.samples)-1].price
	// 最新价贴近窗口低点 → 下扫；贴近高点 → 上扫；居中不判定
	mid := (high + low) / 2
	down := last < mid
	extreme := low
	origin := high
	if !down {
		extreme = high
		origin = low
	}

	d.sweep = &sweepState{
		down:      down,
		extreme:   extreme,
		origin:    origin,
		volume:    volume,
		flaggedNs: nowNs,
	}
}

// confirm 确认扫损并构造检测结果
func (d *StopHunt) confirm(price, retrace float64, nowNs int64, ctx LevelContext) *StopHuntDetection {
	level := d.sweep.extreme
	bucket := math.Round(level/d.cfg.TickSize) * d.cfg.TickSize
	if last, ok := d.lastFired[bucket]; ok && nowNs-last < d.cfg.CooldownNs {
		return nil
	}
	d.lastFired[bucket] = nowNs

	dir := model.DirLong
	if !d.sweep.down {
		dir = model.DirShort
	}

	sweepTicks := math.Abs(d.sweep.origin-d.sweep.extreme) / d.cfg.TickSize
	levelType := d.classifyLevel(level, ctx)
	quality := d.score(sweepTicks, retrace, levelType)

	return &StopHuntDetection{
		Direction:    dir,
		SweptLevel:   level,
		LevelType:    levelType,
		SweepTicks:   sweepTicks,
		ReversalPct:  retrace,
		SweepVolume:  d.sweep.volume,
		Quality:      quality,
		DetectedAtNs: nowNs,
	}
}

// classifyLevel 分类被扫价位
// 优先级：前高/前低 > VWAP > 开盘价 > 整数关口 > 未知。
func (d *StopHunt) classifyLevel(level float64, ctx LevelContext) SweptLevelType {
	tol := d.cfg.LevelTolerance
	if tol <= 0 {
		tol = 2 * d.cfg.TickSize
	}
	switch {
	case ctx.PriorHigh > 0 && math.Abs(level-ctx.PriorHigh) <= tol:
		return LevelPriorHigh
	case ctx.PriorLow > 0 && math.Abs(level-ctx.PriorLow) <= tol:
		return LevelPriorLow
	case ctx.VWAP > 0 && math.Abs(level-ctx.VWAP) <= tol:
		return LevelVWAP
	case ctx.SessionOpen > 0 && math.Abs(level-ctx.SessionOpen) <= tol:
		return LevelSessionOpen
	case d.cfg.RoundStep > 0 && math.Abs(math.Mod(level, d.cfg.RoundStep)) <= tol:
		return LevelRoundNumber
	default:
		return LevelUnknown
	}
}

// score 计算 1-10 质量评分
// 基础 5 分；大幅扫动、深度反转、已知价位类型、高成交量各加分。
func (d *StopHunt) score(sweepTicks, retrace float64, levelType SweptLevelType) int {
	q := 5
	if sweepTicks >= 2*d.cfg.SweepTicks {
		q++
	}
	if sweepTicks >= 3*d.cfg.SweepTicks {
		q++
	}
	if retrace >= 0.7 {
		q++
	}
	if levelType != LevelUnknown {
		q++
	}
	avg := d.avgSize.average()
	if avg > 0 && d.sweep.volume >= 2*d.cfg.VolumeMultiple*avg {
		q++
	}
	if q > 10 {
		q = 10
	}
	if q < 1 {
		q = 1
	}
	return q
}
