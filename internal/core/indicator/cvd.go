// Package indicator 实现滚动技术指标计算器。
// 所有计算器由事件流水线单 goroutine 串行更新，各自持有私有滚动状态。
package indicator

import (
	"math"

	"orderflow-signal-engine/internal/core/model"
)

// DivergenceKind CVD 与价格的背离类型
type DivergenceKind string

const (
	// DivergenceNone 无背离
	DivergenceNone DivergenceKind = "none"
	// DivergenceBullish 多头背离：价格走低而 CVD 走高
	DivergenceBullish DivergenceKind = "bullish"
	// DivergenceBearish 空头背离：价格走高而 CVD 走低
	DivergenceBearish DivergenceKind = "bearish"
)

// cvdSnapshot CVD 历史快照
type cvdSnapshot struct {
	tsNs  int64
	price float64
	cvd   float64
}

// CVD 累计成交量差计算器
// delta = 主动买 +size，主动卖 -size。
type CVD struct {
	// value 当前累计值
	value float64
	// totalVolume 累计成交量
	totalVolume float64
	// perPrice 按价位的累计带符号成交量
	perPrice map[float64]float64

	// snaps 有界历史快照环形缓冲
	snaps []cvdSnapshot
	pos   int
	full  bool
}

// NewCVD 创建 CVD 计算器
// 参数 historySize: 快照历史窗口大小（建议 200）
func NewCVD(historySize int) *CVD {
	if historySize <= 0 {
		historySize = 200
	}
	return &CVD{
		perPrice: make(map[float64]float64),
		snaps:    make([]cvdSnapshot, historySize),
	}
}

// Update 记录一笔成交
func (c *CVD) Update(price, size float64, aggressor model.Side, nowNs int64) {
	if price <= 0 || size <= 0 {
		return
	}
	delta := size
	if aggressor == model.SideSell {
		delta = -size
	}
	c.value += delta
	c.totalVolume += size
	c.perPrice[price] += delta

	c.snaps[c.pos] = cvdSnapshot{tsNs: nowNs, price: price, cvd: c.value}
	c.pos++
	if c.pos >= len(c.snaps) {
		c.pos = 0
		c.full = true
	}
}

// Value 获取当前累计成交量差
func (c *CVD) Value() float64 { return c.value }

// TotalVolume 获取累计成交量
func (c *CVD) TotalVolume() float64 { return c.totalVolume }

// DeltaAt 查询指定价位的累计带符号成交量
func (c *CVD) DeltaAt(price float64) float64 { return c.perPrice[price] }

// IsExtreme 判断 CVD 是否处于极端水平
// 公式: abs(cvd) / totalVolume > thresholdPct
// 参数 thresholdPct: 阈值比例（0-1）
func (c *CVD) IsExtreme(thresholdPct float64) bool {
	if c.totalVolume <= 0 || thresholdPct <= 0 {
		return false
	}
	return math.Abs(c.value)/c.totalVolume > thresholdPct
}

// Divergence 检测价格与 CVD 的背离
// 比较 lookback 个快照之前与当前的价格变化符号和 CVD 变化符号。
// 参数 lookback: 回看快照数
// 返回: 背离类型；快照不足时返回 none。
func (c *CVD) Divergence(lookback int) DivergenceKind {
	if lookback <= 0 {
		return DivergenceNone
	}
	old, ok := c.snapshotAgo(lookback)
	if !ok {
		return DivergenceNone
	}
	cur, ok := c.snapshotAgo(1)
	if !ok {
		return DivergenceNone
	}

	priceChg := cur.price - old.price
	cvdChg := cur.cvd - old.cvd
	if priceChg == 0 || cvdChg == 0 {
		return DivergenceNone
	}
	if priceChg > 0 && cvdChg < 0 {
		return DivergenceBearish
	}
	if priceChg < 0 && cvdChg > 0 {
		return DivergenceBullish
	}
	return DivergenceNone
}

// snapshotAgo 获取 n 个快照之前的记录（n=1 表示最新）
func (c *CVD) snapshotAgo(n int) (cvdSnapshot, bool) {
	size := len(c.snaps)
	count := c.pos
	if c.full {
		count = size
	}
	if n <= 0 || n > count {
		return cvdSnapshot{}, false
	}
	idx := (c.pos - n + size) % size
	return c.snaps[idx], true
}
