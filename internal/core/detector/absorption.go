// Package detector 实现订单流形态检测器。
package detector

import (
	"fmt"

	"orderflow-signal-engine/internal/core/model"
)

// AbsorptionDetection 吸筹检测结果
type AbsorptionDetection struct {
	// Price 吸收发生的价位
	Price float64
	// Aggressor 被吸收的主动方
	Aggressor model.Side
	// Direction 信号方向：主动卖被吸收 → long，主动买被吸收 → short
	Direction model.Direction
	// Size 触发成交量
	Size float64
	// AvgSize 触发时的平均成交量
	AvgSize float64
	// DetectedAtNs 检测时间（纳秒）
	DetectedAtNs int64
}

// Detail 生成检测细节描述
func (d *AbsorptionDetection) Detail() string {
	return fmt.Sprintf("吸筹 @%.2f: %s 方 %.0f 手（均量 %.1f）被吸收，价格未穿越",
		d.Price, d.Aggressor, d.Size, d.AvgSize)
}

// AbsorptionConfig 吸筹检测配置
type AbsorptionConfig struct {
	// MinSize 触发成交量下限
	MinSize float64
	// Multiple 相对平均成交量的倍数下限
	Multiple float64
	// ConfirmNs 确认窗口（纳秒）：观察价格是否穿越
	ConfirmNs int64
	// BreakTolerance 穿越容差（价格单位）
	BreakTolerance float64
	// CooldownNs 单价位冷却时间（纳秒）
	CooldownNs int64
	// AvgWindow 平均成交量滚动窗口大小
	AvgWindow int
}

// absCandidate 待确认的吸筹候选
type absCandidate struct {
	price     float64
	aggressor model.Side
	size      float64
	avgSize   float64
	startNs   int64
	// broken 确认窗口内价格是否已穿越该价位
	broken bool
}

// Absorption 吸筹检测器
// 标记远超平均规模的成交；若确认窗口内价格未能穿越该价位，
// 视为被动方吸收了主动抛压/买压，发出检测。
type Absorption struct {
	cfg AbsorptionConfig
	// avgSize 平均成交量滚动历史
	avgSize *rollingHistory
	// pending 待确认候选
	pending []*absCandidate
	// lastFired 价位 -> 上次触发时间（纳秒）
	lastFired map[float64]int64
}

// NewAbsorption 创建吸筹检测器
func NewAbsorption(cfg AbsorptionConfig) *Absorption {
	if cfg.Multiple <= 0 {
		cfg.Multiple = 5
	}
	if cfg.ConfirmNs <= 0 {
		cfg.ConfirmNs = 3_000_000_000 // 3 秒
	}
	if cfg.CooldownNs <= 0 {
		cfg.CooldownNs = 10_000_000_000 // 10 秒
	}
	return &Absorption{
		cfg:       cfg,
		avgSize:   newRollingHistory(cfg.AvgWindow),
		lastFired: make(map[float64]int64),
	}
}

// OnTrade 处理成交事件
// 更新平均成交量；远超平均规模的成交进入待确认候选，
// 并推进既有候选的确认流程。
// 返回: 本次事件确认通过的检测结果（可能为空）。
func (d *Absorption) OnTrade(price, size float64, aggressor model.Side, nowNs int64) []*AbsorptionDetection {
	avg := d.avgSize.average()
	d.avgSize.add(size)

	// 先用本笔成交的价格推进既有候选
	out := d.advance(price, nowNs)

	if avg > 0 && size >= d.cfg.Multiple*avg && size >= d.cfg.MinSize {
		if last, ok := d.lastFired[price]; !ok || nowNs-last >= d.cfg.CooldownNs {
			d.pending = append(d.pending, &absCandidate{
				price:     price,
				aggressor: aggressor,
				size:      size,
				avgSize:   avg,
				startNs:   nowNs,
			})
		}
	}
	return out
}

// advance 用最新价格推进候选确认
// 价格在确认窗口内沿主动方方向穿越价位（超出容差）则候选作废；
// 窗口到期且未穿越则确认为吸筹。
func (d *Absorption) advance(price float64, nowNs int64) []*AbsorptionDetection {
	var out []*AbsorptionDetection
	kept := d.pending[:0]
	for _, c := range d.pending {
		if !c.broken {
			if c.aggressor == model.SideSell && price < c.price-d.cfg.BreakTolerance {
				c.broken = true
			}
			if c.aggressor == model.SideBuy && price > c.price+d.cfg.BreakTolerance {
				c.broken = true
			}
		}

		if nowNs-c.startNs < d.cfg.ConfirmNs {
			kept = append(kept, c)
			continue
		}
		if c.broken {
			continue
		}

		d.lastFired[c.price] = nowNs
		dir := model.DirLong
		if c.aggressor == model.SideBuy {
			dir = model.DirShort
		}
		out = append(out, &AbsorptionDetection{
			Price:        c.price,
			Aggressor:    c.aggressor,
			Direction:    dir,
			Size:         c.size,
			AvgSize:      c.avgSize,
			DetectedAtNs: nowNs,
		})
	}
	d.pending = kept
	return out
}

// PendingCount 查询待确认候选数
func (d *Absorption) PendingCount() int {
	return len(d.pending)
}
