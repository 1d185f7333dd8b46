// Package indicator 实现滚动技术指标计算器。
package indicator

import (
	"math"
	"sort"
)

// NodeType 成交量分布节点类型
type NodeType string

const (
	// NodePOC 控制点
	NodePOC NodeType = "poc"
	// NodeHighVolume 高成交量节点（≥ 峰值的 70%）
	NodeHighVolume NodeType = "hvn"
	// NodeLowVolume 低成交量节点（≤ 峰值的 20%）
	NodeLowVolume NodeType = "lvn"
	// NodeNormal 普通节点
	NodeNormal NodeType = "normal"
)

// ProfileLevel 分布中的单个价位
type ProfileLevel struct {
	// Price 价位（已按 tick 对齐）
	Price float64
	// Volume 该价位累计成交量
	Volume float64
}

// ValueArea 价值区间
type ValueArea struct {
	// Low 区间下沿
	Low float64
	// High 区间上沿
	High float64
	// VolumePct 区间覆盖的成交量比例（0-1）
	VolumePct float64
}

// VolumeProfile 按价位的成交量直方图
type VolumeProfile struct {
	// tickSize 价位桶宽度
	tickSize float64
	// hist price -> volume 直方图
	hist map[float64]float64
	// total 累计成交量
	total float64
}

// NewVolumeProfile 创建成交量分布计算器
// 参数 tickSize: 最小价位变动单位，价位按其对齐
func NewVolumeProfile(tickSize float64) *VolumeProfile {
	if tickSize <= 0 {
		tickSize = 0.25
	}
	return &VolumeProfile{
		tickSize: tickSize,
		hist:     make(map[float64]float64),
	}
}

// Update 记录一笔成交
func (p *VolumeProfile) Update(price, volume float64) {
	if price <= 0 || volume <= 0 {
		return
	}
	p.hist[p.bucket(price)] += volume
	p.total += volume
}

// bucket 将价格对齐到 tick 桶
func (p *VolumeProfile) bucket(price float64) float64 {
	return math.Round(price/p.tickSize) * p.tickSize
}

// TotalVolume 获取累计成交量
func (p *VolumeProfile) TotalVolume() float64 { return p.total }

// VolumeAt 查询指定价位的成交量
func (p *VolumeProfile) VolumeAt(price float64) float64 {
	return p.hist[p.bucket(price)]
}

// POC 获取控制点（成交量最大的价位）
// 返回: 价位、该价位的成交量、分布是否非空
// 并列时取较低价位，保证结果确定。
func (p *VolumeProfile) POC() (float64, float64, bool) {
	if len(p.hist) == 0 {
		return 0, 0, false
	}
	var pocPrice, pocVol float64
	first := true
	for price, vol := range p.hist {
		if first || vol > pocVol || (vol == pocVol && price < pocPrice) {
			pocPrice, pocVol = price, vol
			first = false
		}
	}
	return pocPrice, pocVol, true
}

// Levels 获取按价位升序排列的分布快照
func (p *VolumeProfile) Levels() []ProfileLevel {
	out := make([]ProfileLevel, 0, len(p.hist))
	for price, vol := range p.hist {
		out = append(out, ProfileLevel{Price: price, Volume: vol})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// ComputeValueArea 计算价值区间
// 从 POC 出发每次向外扩一个价位，选择增量成交量较大的一侧；
// 增量相等时选择离 POC 较近的一侧。
// 参数 targetPct: 目标覆盖比例（建议 0.70）
// 返回: 价值区间与分布是否非空
func (p *VolumeProfile) ComputeValueArea(targetPct float64) (ValueArea, bool) {
	levels := p.Levels()
	if len(levels) == 0 || p.total <= 0 {
		return ValueArea{}, false
	}
	if targetPct <= 0 || targetPct > 1 {
		targetPct = 0.70
	}

	pocPrice, _, _ := p.POC()
	pocIdx := 0
	for i, lv := range levels {
		if lv.Price == pocPrice {
			pocIdx = i
			break
		}
	}

	lo, hi := pocIdx, pocIdx
	covered := levels[pocIdx].Volume

	for covered/p.total < targetPct {
		canDown := lo > 0
		canUp := hi < len(levels)-1
		if !canDown && !canUp {
			break
		}

		var downVol, upVol float64
		if canDown {
			downVol = levels[lo-1].Volume
		}
		if canUp {
			upVol = levels[hi+1].Volume
		}

		switch {
		case canDown && (!canUp || downVol > upVol):
			lo--
			covered += downVol
		case canUp && (!canDown || upVol > downVol):
			hi++
			covered += upVol
		default:
			// 增量相等：选择离 POC 更近的一侧
			downDist := pocPrice - levels[lo-1].Price
			upDist := levels[hi+1].Price - pocPrice
			if downDist <= upDist {
				lo--
				covered += downVol
			} else {
				hi++
				covered += upVol
			}
		}
	}

	return ValueArea{
		Low:       levels[lo].Price,
		High:      levels[hi].Price,
		VolumePct: covered / p.total,
	}, true
}

// NodeAt 分类指定价位的节点类型
// POC → poc；≥ 峰值 70% → hvn；≤ 峰值 20% → lvn；否则 normal。
func (p *VolumeProfile) NodeAt(price float64) NodeType {
	pocPrice, pocVol, ok := p.POC()
	if !ok || pocVol <= 0 {
		return NodeNormal
	}
	bucketed := p.bucket(price)
	if bucketed == pocPrice {
		return NodePOC
	}
	ratio := p.hist[bucketed] / pocVol
	switch {
	case ratio >= 0.7:
		return NodeHighVolume
	case ratio <= 0.2:
		return NodeLowVolume
	default:
		return NodeNormal
	}
}
