// Package detector 实现订单流形态检测器。
package detector

import (
	"orderflow-signal-engine/internal/core/model"
)

// TapeSpeedLevel 成交带速度水平
type TapeSpeedLevel string

const (
	// TapeSlow 低速
	TapeSlow TapeSpeedLevel = "slow"
	// TapeNormal 正常
	TapeNormal TapeSpeedLevel = "normal"
	// TapeFast 高速
	TapeFast TapeSpeedLevel = "fast"
)

// tapeSample 单笔成交样本
type tapeSample struct {
	tsNs int64
	size float64
	side model.Side
}

// TapeSpeedConfig 成交带速度追踪配置
type TapeSpeedConfig struct {
	// WindowNs 滚动时间窗口（纳秒）
	WindowNs int64
	// FastTradesPerSec 高速判定阈值（笔/秒）
	FastTradesPerSec float64
	// SlowTradesPerSec 低速判定阈值（笔/秒）
	SlowTradesPerSec float64
}

// TapeSpeed 成交带速度追踪器
// 维护滚动时间窗口内的成交样本，报告每秒笔数/量与主导方向。
type TapeSpeed struct {
	cfg TapeSpeedConfig
	// samples 窗口内样本（按时间递增，头部惰性剪除）
	samples []tapeSample
}

// NewTapeSpeed 创建成交带速度追踪器
func NewTapeSpeed(cfg TapeSpeedConfig) *TapeSpeed {
	if cfg.WindowNs <= 0 {
		cfg.WindowNs = 10_000_000_000 // 10 秒
	}
	if cfg.FastTradesPerSec <= 0 {
		cfg.FastTradesPerSec = 10
	}
	if cfg.SlowTradesPerSec <= 0 {
		cfg.SlowTradesPerSec = 2
	}
	return &TapeSpeed{cfg: cfg}
}

// OnTrade 记录一笔成交
func (d *TapeSpeed) OnTrade(size float64, side model.Side, nowNs int64) {
	d.prune(nowNs)
	d.samples = append(d.samples, tapeSample{tsNs: nowNs, size: size, side: side})
}

// prune 剪除窗口外的样本
func (d *TapeSpeed) prune(nowNs int64) {
	cut := 0
	for cut < len(d.samples) && nowNs-d.samples[cut].tsNs > d.cfg.WindowNs {
		cut++
	}
	if cut > 0 {
		d.samples = d.samples[cut:]
	}
}

// TradesPerSec 计算窗口内每秒成交笔数
func (d *TapeSpeed) TradesPerSec(nowNs int64) float64 {
	d.prune(nowNs)
	secs := float64(d.cfg.WindowNs) / 1e9
	return float64(len(d.samples)) / secs
}

// VolumePerSec 计算窗口内每秒成交量
func (d *TapeSpeed) VolumePerSec(nowNs int64) float64 {
	d.prune(nowNs)
	var total float64
	for _, s := range d.samples {
		total += s.size
	}
	secs := float64(d.cfg.WindowNs) / 1e9
	return total / secs
}

// DominantSide 获取窗口内成交量更大的一方
// 返回: 主导方向与是否有样本
func (d *TapeSpeed) DominantSide(nowNs int64) (model.Side, bool) {
	d.prune(nowNs)
	if len(d.samples) == 0 {
		return "", false
	}
	var buyVol, sellVol float64
	for _, s := range d.samples {
		if s.side == model.SideBuy {
			buyVol += s.size
		} else {
			sellVol += s.size
		}
	}
	if buyVol >= sellVol {
		return model.SideBuy, true
	}
	return model.SideSell, true
}

// Level 获取当前速度水平
func (d *TapeSpeed) Level(nowNs int64) TapeSpeedLevel {
	tps := d.TradesPerSec(nowNs)
	switch {
	case tps >= d.cfg.FastTradesPerSec:
		return TapeFast
	case tps <= d.cfg.SlowTradesPerSec:
		return TapeSlow
	default:
		return TapeNormal
	}
}

// Alignment 计算候选方向与主导方向的一致度
// 返回: [-1, 1]；同向为正，反向为负，按速度水平缩放
// （fast=±1.0，normal=±0.5，slow=±0.25）；无样本返回 0。
func (d *TapeSpeed) Alignment(dir model.Direction, nowNs int64) float64 {
	dominant, ok := d.DominantSide(nowNs)
	if !ok {
		return 0
	}

	var scale float64
	switch d.Level(nowNs) {
	case TapeFast:
		scale = 1.0
	case TapeNormal:
		scale = 0.5
	default:
		scale = 0.25
	}

	aligned := (dir == model.DirLong && dominant == model.SideBuy) ||
		(dir == model.DirShort && dominant == model.SideSell)
	if aligned {
		return scale
	}
	return -scale
}
