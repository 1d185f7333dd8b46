// Package scoring 实现多因子合流评分引擎与有界权重表。
package scoring

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"orderflow-signal-engine/internal/core/detector"
	"orderflow-signal-engine/internal/core/indicator"
	"orderflow-signal-engine/internal/core/model"
	"orderflow-signal-engine/internal/util/timeutil"
)

// EMASet 三条 EMA 的当前读数
type EMASet struct {
	// Fast/Mid/Slow EMA 值（未初始化时无意义）
	Fast, Mid, Slow float64
	// FastReady/MidReady/SlowReady 是否已初始化
	FastReady, MidReady, SlowReady bool
}

// readyCount 统计已初始化的 EMA 数
func (e EMASet) readyCount() int {
	n := 0
	if e.FastReady {
		n++
	}
	if e.MidReady {
		n++
	}
	if e.SlowReady {
		n++
	}
	return n
}

// alignedCount 统计与方向一致的已初始化 EMA 数
// 多头要求价格在 EMA 上方，空头相反。
func (e EMASet) alignedCount(dir model.Direction, price float64) int {
	n := 0
	check := func(ready bool, v float64) {
		if !ready {
			return
		}
		if (dir == model.DirLong && price > v) || (dir == model.DirShort && price < v) {
			n++
		}
	}
	check(e.FastReady, e.Fast)
	check(e.MidReady, e.Mid)
	check(e.SlowReady, e.Slow)
	return n
}

// Input 合流评分输入
// 由流水线从各检测器/指标的只读快照组装。
type Input struct {
	// Kind 触发检测类型
	Kind model.SignalKind
	// Direction 候选方向
	Direction model.Direction
	// Price 检测价位
	Price float64
	// Detail 检测细节描述
	Detail string

	// OrderCount 检测价位的挂单笔数（冰山因子）
	OrderCount int

	// CVD 当前累计成交量差
	CVD float64
	// CVDExtreme CVD 是否处于极端水平
	CVDExtreme bool
	// CVDDivergence CVD 背离类型
	CVDDivergence indicator.DivergenceKind

	// Node 检测价位的分布节点类型
	Node indicator.NodeType
	// VolumeImbalance 检测价位的带符号成交量不平衡比（-1 到 1，正值偏多）
	VolumeImbalance float64

	// EMA 三条 EMA 读数
	EMA EMASet
	// VWAPRelation 价格与 VWAP 的位置关系
	VWAPRelation indicator.VWAPRelation
	// Hour 本地时段（0-23）
	Hour int
	// DOMImbalance 深度不平衡度（-1 到 1，正值偏多）
	DOMImbalance float64

	// StopHuntQuality 扫损质量评分（0 表示无扫损检测）
	StopHuntQuality int
	// StopHuntDirectionMatch 扫损方向是否与候选方向一致
	StopHuntDirectionMatch bool
	// TapeAlignment 成交带一致度（-1 到 1）
	TapeAlignment float64
	// Tail 成交量尾部分类结果
	Tail detector.TailReport
	// BigFishDefending 候选价位附近是否有大单防守
	BigFishDefending bool

	// Market 市场快照（原样写入信号）
	Market model.MarketContext
	// Account 账户快照（原样写入信号）
	Account model.AccountContext
	// NowNs 评分时间（纳秒）
	NowNs int64
}

// Engine 合流评分引擎
// 对每个合格检测，将各独立封顶的因子贡献求和，总分钳制为非负；
// 总分达到当前合流阈值即产生合格信号。
type Engine struct {
	// weights 权重表
	weights *WeightTable

	// thresholdMu 保护阈值的并发读写
	thresholdMu sync.RWMutex
	// threshold 当前合流阈值
	threshold float64
	// thresholdMin/Max 阈值边界
	thresholdMin, thresholdMax float64
}

// NewEngine 创建评分引擎
// 参数 weights: 权重表
// 参数 threshold: 初始合流阈值（钳制到边界内）
func NewEngine(weights *WeightTable, threshold float64) *Engine {
	e := &Engine{
		weights:      weights,
		thresholdMin: 20,
		thresholdMax: 200,
	}
	e.threshold = clamp(threshold, e.thresholdMin, e.thresholdMax)
	return e
}

// Threshold 读取当前合流阈值
func (e *Engine) Threshold() float64 {
	e.thresholdMu.RLock()
	defer e.thresholdMu.RUnlock()
	return e.threshold
}

// SetThreshold 写入合流阈值
// 越界值静默钳制。
func (e *Engine) SetThreshold(v float64) {
	e.thresholdMu.Lock()
	defer e.thresholdMu.Unlock()
	e.threshold = clamp(v, e.thresholdMin, e.thresholdMax)
}

// Weights 获取权重表
func (e *Engine) Weights() *WeightTable {
	return e.weights
}

// Score 对检测输入做合流评分
// 返回: 信号（含完整因子明细）；无论是否合格都返回，
// 调用方通过 Signal.Qualified() 判断是否进入决策边界。
func (e *Engine) Score(in Input) *model.Signal {
	var factors []model.ScoreFactor
	add := func(name string, points float64, rationale string) {
		if points == 0 {
			return
		}
		factors = append(factors, model.ScoreFactor{Name: name, Points: points, Rationale: rationale})
	}

	// 冰山因子: min(orderCount × perOrder, icebergMax)
	if in.OrderCount > 0 {
		perOrder := e.weights.MustGet(WeightIcebergPerOrder)
		icebergCap := e.weights.MustGet(WeightIcebergMax)
		pts := float64(in.OrderCount) * perOrder
		if pts > icebergCap {
			pts = icebergCap
		}
		add(WeightIcebergMax, pts,
			fmt.Sprintf("冰山: %d 笔 × %.1f 分（上限 %.0f）", in.OrderCount, perOrder, icebergCap))
	}

	// CVD 同向/反向
	cvdSign := in.CVD > 0
	dirLong := in.Direction == model.DirLong
	if in.CVD != 0 {
		if cvdSign == dirLong {
			note := ""
			if in.CVDExtreme {
				note = "（极端水平）"
			}
			add(WeightCVDAlign, e.weights.MustGet(WeightCVDAlign),
				fmt.Sprintf("CVD %.0f 与方向一致%s", in.CVD, note))
		} else {
			add(WeightCVDOppose, -e.weights.MustGet(WeightCVDOppose),
				fmt.Sprintf("CVD %.0f 与方向相反", in.CVD))
		}
	}

	// CVD 背离：支持方向加分，逆方向减分
	switch in.CVDDivergence {
	case indicator.DivergenceBullish:
		w := e.weights.MustGet(WeightCVDDivergence)
		if dirLong {
			add(WeightCVDDivergence, w, "CVD 多头背离支持方向")
		} else {
			add(WeightCVDDivergence, -w, "CVD 多头背离逆方向")
		}
	case indicator.DivergenceBearish:
		w := e.weights.MustGet(WeightCVDDivergence)
		if dirLong {
			add(WeightCVDDivergence, -w, "CVD 空头背离逆方向")
		} else {
			add(WeightCVDDivergence, w, "CVD 空头背离支持方向")
		}
	}

	// 成交量分布节点
	switch in.Node {
	case indicator.NodePOC:
		add(WeightProfileNode, e.weights.MustGet(WeightProfileNode), "价位为控制点（POC）")
	case indicator.NodeHighVolume:
		add(WeightProfileNode, 0.75*e.weights.MustGet(WeightProfileNode), "价位为高成交量节点")
	case indicator.NodeLowVolume:
		add(WeightProfileNode, 0.25*e.weights.MustGet(WeightProfileNode), "价位为低成交量节点")
	}

	// 成交量不平衡：与方向一致时按比例加分
	if (in.VolumeImbalance > 0) == dirLong && abs(in.VolumeImbalance) >= 0.3 {
		pts := e.weights.MustGet(WeightVolumeImbalance) * abs(in.VolumeImbalance)
		add(WeightVolumeImbalance, pts,
			fmt.Sprintf("成交量不平衡 %.0f%% 同向", in.VolumeImbalance*100))
	}

	// EMA 对齐：3/3 全对齐、2/3 部分对齐、≤1/3 逆向减分
	if ready := in.EMA.readyCount(); ready >= 2 {
		aligned := in.EMA.alignedCount(in.Direction, in.Price)
		switch {
		case ready == 3 && aligned == 3:
			add(WeightEMAFull, e.weights.MustGet(WeightEMAFull), "EMA 3/3 全对齐")
		case aligned == ready-1 && aligned >= 2:
			add(WeightEMAPartial, e.weights.MustGet(WeightEMAPartial),
				fmt.Sprintf("EMA %d/%d 部分对齐", aligned, ready))
		case aligned <= ready-2:
			add(WeightEMADivergence, -e.weights.MustGet(WeightEMADivergence),
				fmt.Sprintf("EMA 仅 %d/%d 对齐，趋势逆向", aligned, ready))
		}
	}

	// VWAP 同侧
	if (dirLong && in.VWAPRelation == indicator.VWAPAbove) ||
		(!dirLong && in.VWAPRelation == indicator.VWAPBelow) {
		add(WeightVWAPAlign, e.weights.MustGet(WeightVWAPAlign),
			fmt.Sprintf("价格在 VWAP %s侧，与方向一致", vwapSideZh(in.VWAPRelation)))
	}

	// 时段加分：开盘与午后活跃时段
	if (in.Hour >= 9 && in.Hour < 11) || (in.Hour >= 13 && in.Hour < 15) {
		add(WeightTimeOfDay, e.weights.MustGet(WeightTimeOfDay),
			fmt.Sprintf("活跃时段 %d 点", in.Hour))
	}

	// 深度不平衡调整：同向为正，反向为负
	if abs(in.DOMImbalance) >= 0.2 {
		pts := e.weights.MustGet(WeightDOMImbalance) * in.DOMImbalance * in.Direction.Sign()
		add(WeightDOMImbalance, pts,
			fmt.Sprintf("深度不平衡 %.0f%%", in.DOMImbalance*100))
	}

	// 扫损质量：方向一致时按 quality/10 缩放
	if in.StopHuntQuality > 0 && in.StopHuntDirectionMatch {
		pts := e.weights.MustGet(WeightStopHuntQuality) * float64(in.StopHuntQuality) / 10
		add(WeightStopHuntQuality, pts,
			fmt.Sprintf("扫损质量 %d/10 方向一致", in.StopHuntQuality))
	}

	// 成交带速度一致度（-1 到 1）
	if in.TapeAlignment != 0 {
		pts := e.weights.MustGet(WeightTapeSpeedAlign) * in.TapeAlignment
		add(WeightTapeSpeedAlign, pts,
			fmt.Sprintf("成交带一致度 %.2f", in.TapeAlignment))
	}

	// 成交量尾部偏向
	if in.Tail.MatchesDirection(in.Direction) {
		add(WeightVolumeTail, e.weights.MustGet(WeightVolumeTail),
			fmt.Sprintf("成交量尾部偏向 %s 同向", in.Tail.Bias))
	}

	// 大单防守
	if in.BigFishDefending {
		add(WeightBigFishDefense, e.weights.MustGet(WeightBigFishDefense), "大单价位防守中")
	}

	var total float64
	for _, f := range factors {
		total += f.Points
	}
	// 总分钳制为非负
	if total < 0 {
		total = 0
	}

	return &model.Signal{
		ID:           uuid.NewString(),
		Kind:         in.Kind,
		Direction:    in.Direction,
		Price:        in.Price,
		Score:        total,
		Threshold:    e.Threshold(),
		Breakdown:    factors,
		Detail:       in.Detail,
		Market:       in.Market,
		Account:      in.Account,
		DetectedAt:   timeutil.NanoToTime(in.NowNs),
		DetectedAtNs: in.NowNs,
	}
}

// vwapSideZh VWAP 关系中文描述
func vwapSideZh(r indicator.VWAPRelation) string {
	if r == indicator.VWAPAbove {
		return "上"
	}
	return "下"
}

// abs 绝对值
func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
