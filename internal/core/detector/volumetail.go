// Package detector 实现订单流形态检测器。
package detector

import (
	"orderflow-signal-engine/internal/core/indicator"
	"orderflow-signal-engine/internal/core/model"
)

// TailBias 成交量尾部偏向
type TailBias string

const (
	// TailNone 无尾部形态
	TailNone TailBias = "none"
	// TailBullish 下尾 → 多头偏向（低价被拒绝）
	TailBullish TailBias = "bullish"
	// TailBearish 上尾 → 空头偏向（高价被拒绝）
	TailBearish TailBias = "bearish"
	// TailConsolidation 双尾 → 盘整（偏向取较强一侧）
	TailConsolidation TailBias = "consolidation"
)

// TailReport 尾部分类结果
type TailReport struct {
	// Bias 偏向
	Bias TailBias
	// LowerTail 是否存在下尾
	LowerTail bool
	// UpperTail 是否存在上尾
	UpperTail bool
	// StrongerSide 双尾时较强一侧的方向（单尾/无尾为空）
	StrongerSide model.Direction
}

// MatchesDirection 判断尾部偏向是否支持候选方向
// 盘整时按较强一侧判断。
func (r TailReport) MatchesDirection(dir model.Direction) bool {
	switch r.Bias {
	case TailBullish:
		return dir == model.DirLong
	case TailBearish:
		return dir == model.DirShort
	case TailConsolidation:
		return r.StrongerSide == dir
	default:
		return false
	}
}

// VolumeTailConfig 尾部分类配置
type VolumeTailConfig struct {
	// PeakFraction 尾部判定比例：边缘成交量 < PeakFraction × 峰值
	PeakFraction float64
	// MinLevels 分布最少价位数（过少不判定）
	MinLevels int
}

// VolumeTail 成交量尾部分类器
// 对当前成交量分布快照的上下边缘做尾部判定（无内部滚动状态）。
type VolumeTail struct {
	cfg VolumeTailConfig
}

// NewVolumeTail 创建尾部分类器
func NewVolumeTail(cfg VolumeTailConfig) *VolumeTail {
	if cfg.PeakFraction <= 0 {
		cfg.PeakFraction = 0.25
	}
	if cfg.MinLevels <= 0 {
		cfg.MinLevels = 5
	}
	return &VolumeTail{cfg: cfg}
}

// Classify 分类分布快照的尾部形态
// 参数 levels: 按价位升序的分布快照（见 indicator.VolumeProfile.Levels）
func (d *VolumeTail) Classify(levels []indicator.ProfileLevel) TailReport {
	if len(levels) < d.cfg.MinLevels {
		return TailReport{Bias: TailNone}
	}

	var peak float64
	for _, lv := range levels {
		if lv.Volume > peak {
			peak = lv.Volume
		}
	}
	if peak <= 0 {
		return TailReport{Bias: TailNone}
	}

	cutoff := d.cfg.PeakFraction * peak
	lowerVol := levels[0].Volume
	upperVol := levels[len(levels)-1].Volume
	lower := lowerVol < cutoff
	upper := upperVol < cutoff

	switch {
	case lower && upper:
		// 双尾：更小的边缘成交量意味着更强的拒绝
		stronger := model.DirLong
		if upperVol < lowerVol {
			stronger = model.DirShort
		}
		return TailReport{
			Bias:         TailConsolidation,
			LowerTail:    true,
			UpperTail:    true,
			StrongerSide: stronger,
		}
	case lower:
		return TailReport{Bias: TailBullish, LowerTail: true}
	case upper:
		return TailReport{Bias: TailBearish, UpperTail: true}
	default:
		return TailReport{Bias: TailNone}
	}
}
