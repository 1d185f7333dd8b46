// Package scoring 实现多因子合流评分引擎与有界权重表。
package scoring

import (
	"fmt"
	"sync"
)

// 权重名称常量
// 每个名称对应一个有界可调权重；所有读写都经过钳制。
const (
	// WeightIcebergPerOrder 冰山单每笔得分
	WeightIcebergPerOrder = "iceberg_per_order"
	// WeightIcebergMax 冰山单得分上限
	WeightIcebergMax = "iceberg_max"
	// WeightCVDAlign CVD 同向加分
	WeightCVDAlign = "cvd_align"
	// WeightCVDOppose CVD 反向减分
	WeightCVDOppose = "cvd_oppose"
	// WeightCVDDivergence CVD 背离调整
	WeightCVDDivergence = "cvd_divergence"
	// WeightProfileNode 成交量分布节点得分
	WeightProfileNode = "profile_node"
	// WeightVolumeImbalance 成交量不平衡得分
	WeightVolumeImbalance = "volume_imbalance"
	// WeightEMAFull EMA 全对齐（3/3）得分
	WeightEMAFull = "ema_full"
	// WeightEMAPartial EMA 部分对齐（2/3）得分
	WeightEMAPartial = "ema_partial"
	// WeightEMADivergence EMA 逆向减分
	WeightEMADivergence = "ema_divergence"
	// WeightVWAPAlign VWAP 同侧得分
	WeightVWAPAlign = "vwap_align"
	// WeightTimeOfDay 时段加分
	WeightTimeOfDay = "time_of_day"
	// WeightDOMImbalance 深度不平衡调整
	WeightDOMImbalance = "dom_imbalance"
	// WeightStopHuntQuality 扫损质量得分（按 quality/10 缩放）
	WeightStopHuntQuality = "stophunt_quality"
	// WeightTapeSpeedAlign 成交带速度一致调整
	WeightTapeSpeedAlign = "tapespeed_align"
	// WeightVolumeTail 成交量尾部偏向得分
	WeightVolumeTail = "volume_tail"
	// WeightBigFishDefense 大单防守得分
	WeightBigFishDefense = "bigfish_defense"
)

// weightDef 单个权重定义
type weightDef struct {
	// value 当前值（始终在 [min, max] 内）
	value float64
	// min/max 边界
	min, max float64
	// def 默认值
	def float64
	// positive 是否计入最大可能得分
	// 纯减分项（反向惩罚）与从属上限（per_order 从属于 max）不计入。
	positive bool
}

// defaultDefs 权重表默认定义
func defaultDefs() map[string]*weightDef {
	mk := func(def, min, max float64, positive bool) *weightDef {
		return &weightDef{value: def, min: min, max: max, def: def, positive: positive}
	}
	return map[string]*weightDef{
		WeightIcebergPerOrder: mk(2, 0, 5, false),
		WeightIcebergMax:      mk(20, 0, 40, true),
		WeightCVDAlign:        mk(15, 0, 30, true),
		WeightCVDOppose:       mk(10, 0, 20, false),
		WeightCVDDivergence:   mk(10, 0, 20, true),
		WeightProfileNode:     mk(10, 0, 20, true),
		WeightVolumeImbalance: mk(10, 0, 20, true),
		WeightEMAFull:         mk(15, 0, 30, true),
		WeightEMAPartial:      mk(8, 0, 15, true),
		WeightEMADivergence:   mk(10, 0, 20, false),
		WeightVWAPAlign:       mk(8, 0, 15, true),
		WeightTimeOfDay:       mk(5, 0, 10, true),
		WeightDOMImbalance:    mk(8, 0, 15, true),
		WeightStopHuntQuality: mk(15, 0, 30, true),
		WeightTapeSpeedAlign:  mk(8, 0, 15, true),
		WeightVolumeTail:      mk(6, 0, 12, true),
		WeightBigFishDefense:  mk(8, 0, 15, true),
	}
}

// WeightTable 有界权重表
// name -> (value, [min,max], default)；所有读写经过钳制。
// 长生命周期对象，外部调整请求与事件线程并发访问，内部加锁。
type WeightTable struct {
	mu   sync.RWMutex
	defs map[string]*weightDef
}

// NewWeightTable 创建默认权重表
func NewWeightTable() *WeightTable {
	return &WeightTable{defs: defaultDefs()}
}

// Get 按名称读取权重
// 返回: 当前值；未知名称返回错误（调用方错误）。
func (t *WeightTable) Get(name string) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.defs[name]
	if !ok {
		return 0, fmt.Errorf("未知权重名称: %q", name)
	}
	return d.value, nil
}

// MustGet 按名称读取权重，未知名称返回 0
// 仅供评分引擎内部使用（名称均为本包常量）。
func (t *WeightTable) MustGet(name string) float64 {
	v, _ := t.Get(name)
	return v
}

// Set 按名称写入权重
// 越界值静默钳制到 [min, max]（系统必须在嘈杂的外部调整下保持可用）；
// 未知名称返回错误。
func (t *WeightTable) Set(name string, value float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.defs[name]
	if !ok {
		return fmt.Errorf("未知权重名称: %q", name)
	}
	d.value = clamp(value, d.min, d.max)
	return nil
}

// Apply 批量应用部分调整
// 只修改出现的名称；任一名称未知则整体失败，不做部分写入。
func (t *WeightTable) Apply(patch map[string]float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name := range patch {
		if _, ok := t.defs[name]; !ok {
			return fmt.Errorf("未知权重名称: %q", name)
		}
	}
	for name, v := range patch {
		d := t.defs[name]
		d.value = clamp(v, d.min, d.max)
	}
	return nil
}

// Export 导出全部权重当前值
func (t *WeightTable) Export() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.defs))
	for name, d := range t.defs {
		out[name] = d.value
	}
	return out
}

// Import 批量导入权重
// 等价于 Apply：未知名称整体失败，值经过钳制。
func (t *WeightTable) Import(values map[string]float64) error {
	return t.Apply(values)
}

// Reset 重置全部权重为默认值
func (t *WeightTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.defs {
		d.value = d.def
	}
}

// Bounds 查询权重边界
// 返回: min, max；未知名称返回错误。
func (t *WeightTable) Bounds(name string) (float64, float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.defs[name]
	if !ok {
		return 0, 0, fmt.Errorf("未知权重名称: %q", name)
	}
	return d.min, d.max, nil
}

// Names 获取全部权重名称
func (t *WeightTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.defs))
	for name := range t.defs {
		out = append(out, name)
	}
	return out
}

// MaxPossibleScore 计算最大可能得分
// = 所有正向权重的上界之和，用于约束展示/宣称的分数范围。
func (t *WeightTable) MaxPossibleScore() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var total float64
	for _, d := range t.defs {
		if d.positive {
			total += d.max
		}
	}
	return total
}

// clamp 将 v 钳制到 [min, max]
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
