// Package model 定义订单流引擎中使用的核心数据结构。
package model

import (
	"sync/atomic"
	"time"
)

// ExitReason 平仓原因
type ExitReason string

const (
	// ExitStopLoss 止损触发平仓
	ExitStopLoss ExitReason = "stop_loss"
	// ExitTakeProfit 止盈触发平仓
	ExitTakeProfit ExitReason = "take_profit"
	// ExitManual 外部请求平仓
	ExitManual ExitReason = "manual"
)

// Position 活跃仓位
// 入场提交成功后创建；由价格 tick 与保本/移动止损操作修改；
// 平仓为终态，终态后从活跃集合移除，永不复活。
type Position struct {
	// ID 仓位唯一标识
	ID string
	// Direction 方向: long 或 short
	Direction Direction
	// EntryPrice 入场价格
	EntryPrice float64
	// Quantity 合约数量（≥1）
	Quantity int
	// StopLoss 当前止损价（可变）
	StopLoss float64
	// TakeProfit 当前止盈价（可变）
	TakeProfit float64

	// BracketManaged 止损/止盈是否由执行边界的 bracket 机制持有
	// 为 true 时本地的保本/移动止损仅做可视化记账，不再下发修改指令。
	BracketManaged bool
	// BreakEvenApplied 保本是否已应用（幂等标志）
	BreakEvenApplied bool
	// TrailingStop 当前移动止损价（0 表示未激活）
	TrailingStop float64

	// PendingEntry 入场单是否尚未成交（stop/limit 执行方式）
	// 为 true 时止损/止盈尚未挂出，等待成交通知后显式挂出。
	PendingEntry bool
	// EntryOrderID 入场订单号（执行边界返回的不透明标识）
	EntryOrderID string
	// StopOrderID 止损订单号（bracket 或显式挂出后有效）
	StopOrderID string
	// TargetOrderID 止盈订单号（bracket 或显式挂出后有效）
	TargetOrderID string

	// MaxFavorable 持仓期间最有利价格
	MaxFavorable float64
	// MaxAdverse 持仓期间最不利价格
	MaxAdverse float64
	// RealizedPnL 已实现盈亏（平仓后有效）
	RealizedPnL float64
	// ExitPrice 出场价格（平仓后有效）
	ExitPrice float64
	// ExitReason 平仓原因（平仓后有效）
	ExitReason ExitReason

	// Signal 触发本仓位的信号（不可变快照）
	Signal *Signal
	// Decision 触发本仓位的决策
	Decision *Decision

	// OpenedAt 开仓时间
	OpenedAt time.Time
	// OpenedAtNs 开仓时间（纳秒时间戳）
	OpenedAtNs int64
	// ClosedAtNs 平仓时间（纳秒时间戳，平仓后有效）
	ClosedAtNs int64

	// closing 幂等平仓标志
	// 平仓路径通过 CAS 抢占，重复平仓为空操作（见并发模型）。
	closing atomic.Bool
}

// BeginClose 抢占平仓权
// 返回 true 表示调用方获得唯一的平仓权；返回 false 表示平仓已在进行中。
func (p *Position) BeginClose() bool {
	return p.closing.CompareAndSwap(false, true)
}

// Closing 查询是否已进入平仓流程
func (p *Position) Closing() bool {
	return p.closing.Load()
}

// UnrealizedPnL 计算按 price 估值的浮动盈亏
// 参数 price: 当前价格
// 参数 pointValue: 每点价值
func (p *Position) UnrealizedPnL(price, pointValue float64) float64 {
	return (price - p.EntryPrice) * p.Direction.Sign() * float64(p.Quantity) * pointValue
}

// FavorableMove 计算 price 相对入场价的有利移动量（价格单位，≥0 表示有利）
func (p *Position) FavorableMove(price float64) float64 {
	return (price - p.EntryPrice) * p.Direction.Sign()
}

// StopHit 判断 price 是否触发止损
func (p *Position) StopHit(price float64) bool {
	if p.StopLoss <= 0 {
		return false
	}
	if p.Direction == DirLong {
		return price <= p.StopLoss
	}
	return price >= p.StopLoss
}

// TargetHit 判断 price 是否触发止盈
func (p *Position) TargetHit(price float64) bool {
	if p.TakeProfit <= 0 {
		return false
	}
	if p.Direction == DirLong {
		return price >= p.TakeProfit
	}
	return price <= p.TakeProfit
}

// UpdateExtremes 更新持仓期间的价格极值
func (p *Position) UpdateExtremes(price float64) {
	if p.MaxFavorable == 0 || p.FavorableMove(price) > p.FavorableMove(p.MaxFavorable) {
		p.MaxFavorable = price
	}
	if p.MaxAdverse == 0 || p.FavorableMove(price) < p.FavorableMove(p.MaxAdverse) {
		p.MaxAdverse = price
	}
}

// HoldDuration 获取持仓时长
func (p *Position) HoldDuration() time.Duration {
	if p.ClosedAtNs > 0 {
		return time.Duration(p.ClosedAtNs - p.OpenedAtNs)
	}
	return time.Since(p.OpenedAt)
}

// IsWin 判断是否盈利（平仓后有效）
func (p *Position) IsWin() bool {
	return p.RealizedPnL > 0
}
