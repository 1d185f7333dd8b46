// Package indicator 实现滚动技术指标计算器。
package indicator

import (
	"math"
)

// VWAPRelation 价格与 VWAP 的位置关系
type VWAPRelation string

const (
	// VWAPAbove 价格在 VWAP 上方
	VWAPAbove VWAPRelation = "above"
	// VWAPBelow 价格在 VWAP 下方
	VWAPBelow VWAPRelation = "below"
	// VWAPNear 价格在 VWAP 容差带内
	VWAPNear VWAPRelation = "near"
)

// VWAP 成交量加权均价计算器
// vwap = Σ(price×volume) / Σvolume
type VWAP struct {
	// sumPV 累计 price×volume
	sumPV float64
	// sumV 累计成交量
	sumV float64
	// tolerance 关系判定容差带（价格单位）
	tolerance float64
}

// NewVWAP 创建 VWAP 计算器
// 参数 tolerance: near 判定容差带（价格单位）
func NewVWAP(tolerance float64) *VWAP {
	if tolerance < 0 {
		tolerance = 0
	}
	return &VWAP{tolerance: tolerance}
}

// Update 记录一笔成交
func (v *VWAP) Update(price, volume float64) {
	if price <= 0 || volume <= 0 {
		return
	}
	v.sumPV += price * volume
	v.sumV += volume
}

// Value 获取当前 VWAP
// 返回: 值与是否已初始化（至少一笔成交）
func (v *VWAP) Value() (float64, bool) {
	if v.sumV <= 0 {
		return 0, false
	}
	return v.sumPV / v.sumV, true
}

// Relation 判定 price 与 VWAP 的位置关系
// 容差带内为 near；未初始化时返回 near。
func (v *VWAP) Relation(price float64) VWAPRelation {
	val, ok := v.Value()
	if !ok {
		return VWAPNear
	}
	if math.Abs(price-val) <= v.tolerance {
		return VWAPNear
	}
	if price > val {
		return VWAPAbove
	}
	return VWAPBelow
}
