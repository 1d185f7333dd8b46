// Package detector 实现订单流形态检测器。
package detector

import (
	"fmt"

	"orderflow-signal-engine/internal/core/model"
)

// SpoofDetection 幌骗单检测结果
type SpoofDetection struct {
	// Price 幌骗单价位
	Price float64
	// Side 幌骗单方向
	Side model.Side
	// Direction 信号方向：买侧幌骗（假支撑）→ short，卖侧幌骗 → long
	Direction model.Direction
	// Size 撤单时的挂单数量
	Size float64
	// AgeNs 挂单存活时长（纳秒）
	AgeNs int64
	// DetectedAtNs 检测时间（纳秒）
	DetectedAtNs int64
}

// Detail 生成检测细节描述
func (d *SpoofDetection) Detail() string {
	return fmt.Sprintf("幌骗单 @%.2f: %s 侧 %.0f 手，存活 %dms 无成交即撤",
		d.Price, d.Side, d.Size, d.AgeNs/1_000_000)
}

// SpoofConfig 幌骗单检测配置
type SpoofConfig struct {
	// MinSize 跟踪的最小挂单量
	MinSize float64
	// MaxAgeNs 撤单年龄窗口（纳秒），超过则视为正常撤单
	MaxAgeNs int64
}

// trackedOrder 被跟踪的大额挂单
type trackedOrder struct {
	side         model.Side
	price        float64
	size         float64
	insertedAtNs int64
	// touched 挂单存活期间其价位是否有过成交
	// 事件流不关联成交与订单号，价位成交即视为可能触及。
	touched bool
}

// Spoof 幌骗单检测器
// 跟踪大额挂单；若在短年龄窗口内无任何成交即被撤销，发出检测。
type Spoof struct {
	cfg SpoofConfig
	// tracked orderID -> 跟踪状态
	tracked map[int64]*trackedOrder
}

// NewSpoof 创建幌骗单检测器
func NewSpoof(cfg SpoofConfig) *Spoof {
	if cfg.MaxAgeNs <= 0 {
		cfg.MaxAgeNs = 5_000_000_000 // 5 秒
	}
	return &Spoof{
		cfg:     cfg,
		tracked: make(map[int64]*trackedOrder),
	}
}

// OnOrderAdd 处理新挂单事件
// 达到跟踪门槛的大额挂单进入跟踪集合。
func (d *Spoof) OnOrderAdd(id int64, side model.Side, price, size float64, nowNs int64) {
	if size < d.cfg.MinSize {
		return
	}
	d.tracked[id] = &trackedOrder{
		side:         side,
		price:        price,
		size:         size,
		insertedAtNs: nowNs,
	}
}

// OnOrderModify 处理修改挂单事件
// 数量缩减到门槛之下时停止跟踪。
func (d *Spoof) OnOrderModify(id int64, price, size float64) {
	o, ok := d.tracked[id]
	if !ok {
		return
	}
	if size < d.cfg.MinSize {
		delete(d.tracked, id)
		return
	}
	if price > 0 {
		o.price = price
	}
	o.size = size
}

// OnTrade 处理成交事件
// 价位上有成交的跟踪单标记为已触及，其撤单不再视为幌骗。
func (d *Spoof) OnTrade(price float64) {
	for _, o := range d.tracked {
		if o.price == price {
			o.touched = true
		}
	}
}

// OnOrderCancel 处理撤单事件
// 返回: 满足幌骗条件时返回检测结果，否则返回 nil。
func (d *Spoof) OnOrderCancel(id int64, nowNs int64) *SpoofDetection {
	o, ok := d.tracked[id]
	if !ok {
		return nil
	}
	delete(d.tracked, id)

	age := nowNs - o.insertedAtNs
	if o.touched || age >= d.cfg.MaxAgeNs {
		return nil
	}

	// 假买盘撤销暴露真实卖方意图，反之亦然
	dir := model.DirShort
	if o.side == model.SideSell {
		dir = model.DirLong
	}
	return &SpoofDetection{
		Price:        o.price,
		Side:         o.side,
		Direction:    dir,
		Size:         o.size,
		AgeNs:        age,
		DetectedAtNs: nowNs,
	}
}

// TrackedCount 查询当前跟踪的大额挂单数
func (d *Spoof) TrackedCount() int {
	return len(d.tracked)
}
