// Package lifecycle 实现仓位生命周期管理。
// 重要：执行端口可接真实或模拟通道，本包不直接下单。
package lifecycle

import (
	"orderflow-signal-engine/internal/core/model"
)

// ExecutionClient 订单执行端口
// 所有下单方法返回券商订单号；返回错误表示该笔指令未被接受。
// 实现必须保证同一指令重复提交是安全的（管理器在失败回滚时可能重试撤单）。
type ExecutionClient interface {
	// PlaceBracketOrder 市价进场并同时挂出止损/止盈（券商托管保护单）
	// 返回: 进场订单号
	PlaceBracketOrder(dir model.Direction, qty int, stopLoss, takeProfit float64) (string, error)
	// PlaceStopEntry 挂停损突破进场单
	PlaceStopEntry(dir model.Direction, qty int, trigger float64) (string, error)
	// PlaceLimitEntry 挂限价回踩进场单
	PlaceLimitEntry(dir model.Direction, qty int, limit float64) (string, error)
	// PlaceStopLoss 为已成交仓位挂止损单
	PlaceStopLoss(dir model.Direction, qty int, price float64) (string, error)
	// PlaceTakeProfit 为已成交仓位挂止盈单
	PlaceTakeProfit(dir model.Direction, qty int, price float64) (string, error)
	// ModifyStop 移动已挂止损单
	ModifyStop(orderID string, price float64) error
	// CancelOrder 撤销挂单
	CancelOrder(orderID string) error
	// ExitMarket 市价平仓
	ExitMarket(dir model.Direction, qty int) (string, error)
	// FlattenAll 清空全部仓位与挂单（紧急出口）
	FlattenAll() error
	// AccountBalance 查询账户权益（货币单位）
	AccountBalance() (float64, error)
	// CurrentPosition 查询执行边界侧的净持仓（带符号合约数，多头为正）
	CurrentPosition() (int, error)
}

// Ledger 账户状态端口
// 由会话统计器实现；管理器在进场前检查日亏损约束，平仓后记录结果。
type Ledger interface {
	// DailyPnL 当日已实现盈亏
	DailyPnL() float64
	// LossLimitHit 是否已触及日亏损上限
	LossLimitHit() bool
	// RecordTrade 记录一笔已平仓交易
	RecordTrade(pnl float64)
	// Snapshot 账户快照（写入信号上下文）
	Snapshot() model.AccountContext
}

// MarkerSink 生命周期事件回调
// 管理器在关键节点通知（进场/拒绝/平仓/移动止损），供遥测记录。
// 实现必须快速返回，不得阻塞事件线程。
type MarkerSink interface {
	// EntryPlaced 进场指令已全部提交
	EntryPlaced(pos *model.Position)
	// EntryRejected 进场被拒绝
	EntryRejected(sig *model.Signal, reason string)
	// PositionClosed 仓位已平
	PositionClosed(pos *model.Position)
	// StopMoved 止损已移动
	StopMoved(pos *model.Position, newStop float64, why string)
}

// NopSink 空事件回调
type NopSink struct{}

func (NopSink) EntryPlaced(*model.Position)                {}
func (NopSink) EntryRejected(*model.Signal, string)        {}
func (NopSink) PositionClosed(*model.Position)             {}
func (NopSink) StopMoved(*model.Position, float64, string) {}
