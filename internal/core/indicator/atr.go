// Package indicator 实现滚动技术指标计算器。
package indicator

import (
	"math"
)

// ATRLevel 波动水平分类
type ATRLevel string

const (
	// ATRHigh 高波动：ratio > 1.5
	ATRHigh ATRLevel = "high"
	// ATRModerate 中等波动：0.8 < ratio ≤ 1.5
	ATRModerate ATRLevel = "moderate"
	// ATRLow 低波动：ratio ≤ 0.8
	ATRLow ATRLevel = "low"
)

// ATR 平均真实波幅计算器
// true range = max(high-low, |high-prevClose|, |low-prevClose|)
// ATR = 固定大小环形缓冲内 TR 的平均值，缓冲填满一次后视为已初始化。
type ATR struct {
	// period 周期（环形缓冲大小）
	period int
	// buf TR 环形缓冲
	buf []float64
	// pos 写入位置
	pos int
	// full 是否已填满
	full bool
	// sum 缓冲内 TR 之和（O(1) 更新）
	sum float64
	// prevClose 上一根 bar 的收盘价
	prevClose float64
	// hasPrev 是否已有上一根收盘价
	hasPrev bool
}

// NewATR 创建 ATR 计算器
// 参数 period: 周期（建议 14）
func NewATR(period int) *ATR {
	if period < 1 {
		period = 14
	}
	return &ATR{
		period: period,
		buf:    make([]float64, period),
	}
}

// Update 记录一根完成的 bar
// 参数 high, low, close: bar 的最高/最低/收盘价
func (a *ATR) Update(high, low, close float64) {
	tr := high - low
	if a.hasPrev {
		tr = math.Max(tr, math.Max(math.Abs(high-a.prevClose), math.Abs(low-a.prevClose)))
	}
	a.prevClose = close
	a.hasPrev = true

	if a.full {
		a.sum -= a.buf[a.pos]
	}
	a.buf[a.pos] = tr
	a.sum += tr
	a.pos++
	if a.pos >= a.period {
		a.pos = 0
		a.full = true
	}
}

// Value 获取当前 ATR
// 返回: 值与是否已初始化（缓冲填满一次后）
func (a *ATR) Value() (float64, bool) {
	if !a.full {
		return 0, false
	}
	return a.sum / float64(a.period), true
}

// Classify 按基准值分类当前波动水平
// ratio = ATR / baseline；>1.5 → high，>0.8 → moderate，否则 low。
// 参数 baseline: 调用方提供的基准 ATR
// 返回: 分类与是否已初始化
func (a *ATR) Classify(baseline float64) (ATRLevel, bool) {
	val, ok := a.Value()
	if !ok || baseline <= 0 {
		return ATRLow, false
	}
	return ClassifyATRRatio(val / baseline), true
}

// ClassifyATRRatio 按 ratio 分类波动水平
// ratio > 1.5 → high；0.8 < ratio ≤ 1.5 → moderate；ratio ≤ 0.8 → low。
// 恰好等于基准（ratio=1）归为 moderate。
func ClassifyATRRatio(ratio float64) ATRLevel {
	switch {
	case ratio > 1.5:
		return ATRHigh
	case ratio > 0.8:
		return ATRModerate
	default:
		return ATRLow
	}
}
