// Package detector 实现订单流形态检测器。
package detector

import (
	"fmt"

	"orderflow-signal-engine/internal/core/model"
)

// IcebergDetection 冰山单检测结果
type IcebergDetection struct {
	// Price 检测价位
	Price float64
	// Side 冰山单所在方向（买侧冰山为支撑）
	Side model.Side
	// Direction 信号方向：买侧冰山 → long，卖侧冰山 → short
	Direction model.Direction
	// OrderCount 该价位挂单笔数
	OrderCount int
	// TotalSize 该价位挂单总量
	TotalSize float64
	// CountThreshold 触发时的自适应笔数阈值
	CountThreshold float64
	// SizeThreshold 触发时的自适应总量阈值
	SizeThreshold float64
	// DetectedAtNs 检测时间（纳秒）
	DetectedAtNs int64
}

// Detail 生成检测细节描述
func (d *IcebergDetection) Detail() string {
	return fmt.Sprintf("冰山单 @%.2f: %d 笔 / 总量 %.0f（阈值 %.1f 笔 / %.0f）",
		d.Price, d.OrderCount, d.TotalSize, d.CountThreshold, d.SizeThreshold)
}

// IcebergConfig 冰山单检测配置
type IcebergConfig struct {
	// MinOrders 笔数基线阈值
	MinOrders int
	// MinSize 总量基线阈值
	MinSize float64
	// QualifyFraction 触发观察的挂单量下限比例（相对总量阈值）
	QualifyFraction float64
	// CooldownNs 单价位冷却时间（纳秒）
	CooldownNs int64
	// HistoryWindow 自适应阈值滚动窗口大小
	HistoryWindow int
}

// Iceberg 冰山单检测器
// 维护笔数/总量的有界滚动历史；当某价位的笔数与总量同时超过
// 自适应阈值且该价位冷却已过时，发出一次检测。
// 副作用：每个冷却窗口每个价位至多一次检测。
type Iceberg struct {
	cfg IcebergConfig

	// countThresh 笔数自适应阈值
	countThresh *adaptiveThreshold
	// sizeThresh 总量自适应阈值
	sizeThresh *adaptiveThreshold
	// lastFired 价位 -> 上次触发时间（纳秒）
	lastFired map[float64]int64
}

// NewIceberg 创建冰山单检测器
func NewIceberg(cfg IcebergConfig) *Iceberg {
	if cfg.QualifyFraction <= 0 {
		cfg.QualifyFraction = 0.3
	}
	if cfg.CooldownNs <= 0 {
		cfg.CooldownNs = 10_000_000_000 // 10 秒
	}
	return &Iceberg{
		cfg:         cfg,
		countThresh: newAdaptiveThreshold(float64(cfg.MinOrders), cfg.HistoryWindow),
		sizeThresh:  newAdaptiveThreshold(cfg.MinSize, cfg.HistoryWindow),
		lastFired:   make(map[float64]int64),
	}
}

// OnOrderAdd 处理新挂单事件
// 参数 orderCount, totalSize: 该价位当前的挂单笔数与总量（事件后重算值）
// 返回: 触发时返回检测结果，否则返回 nil。
func (d *Iceberg) OnOrderAdd(side model.Side, price, size float64, orderCount int, totalSize float64, nowNs int64) *IcebergDetection {
	// 仅对超过基线一定比例的挂单开启一次观察，避免噪声污染滚动历史。
	// 准入比例固定锚在配置基线上：若锚在自适应阈值上，阈值随大单
	// 自我抬升后会把后续同级别的挂单挡在观察之外。
	if size < d.cfg.QualifyFraction*d.cfg.MinSize {
		return nil
	}

	d.countThresh.observe(float64(orderCount))
	d.sizeThresh.observe(totalSize)

	countCur := d.countThresh.current()
	sizeCur := d.sizeThresh.current()
	if float64(orderCount) < countCur || totalSize < sizeCur {
		return nil
	}

	// 冷却内不重复发出
	if last, ok := d.lastFired[price]; ok && nowNs-last < d.cfg.CooldownNs {
		return nil
	}
	d.lastFired[price] = nowNs

	dir := model.DirLong
	if side == model.SideSell {
		dir = model.DirShort
	}
	return &IcebergDetection{
		Price:          price,
		Side:           side,
		Direction:      dir,
		OrderCount:     orderCount,
		TotalSize:      totalSize,
		CountThreshold: countCur,
		SizeThreshold:  sizeCur,
		DetectedAtNs:   nowNs,
	}
}

// CooldownRemaining 查询价位的剩余冷却时间（纳秒，≤0 表示无冷却）
func (d *Iceberg) CooldownRemaining(price float64, nowNs int64) int64 {
	last, ok := d.lastFired[price]
	if !ok {
		return 0
	}
	return d.cfg.CooldownNs - (nowNs - last)
}
