// Package paper 实现影子下单的执行客户端。
// 重要：仅用于研究/验证，严禁真实下单。
package paper

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"orderflow-signal-engine/internal/core/model"
)

// OrderKind 影子订单类型
type OrderKind string

const (
	// KindBracket 市价进场 + 托管保护单
	KindBracket OrderKind = "bracket"
	// KindStopEntry 停损突破进场单
	KindStopEntry OrderKind = "stop_entry"
	// KindLimitEntry 限价回踩进场单
	KindLimitEntry OrderKind = "limit_entry"
	// KindStopLoss 止损单
	KindStopLoss OrderKind = "stop_loss"
	// KindTakeProfit 止盈单
	KindTakeProfit OrderKind = "take_profit"
	// KindExit 市价平仓单
	KindExit OrderKind = "exit"
)

// Order 影子订单
type Order struct {
	// ID 订单号
	ID string
	// Kind 订单类型
	Kind OrderKind
	// Direction 方向
	Direction model.Direction
	// Qty 合约数
	Qty int
	// Price 订单价格（市价单为 0）
	Price float64
	// StopLoss/TakeProfit bracket 单的保护价位
	StopLoss, TakeProfit float64
	// Canceled 是否已撤销
	Canceled bool
}

// Executor 影子执行客户端
// 接收生命周期管理器的全部下单指令，只做记录与日志，不触达任何交易所。
type Executor struct {
	logger *zap.Logger

	mu      sync.Mutex
	seq     int64
	orders  map[string]*Order
	balance float64
	// netPos 带符号净持仓（多头为正）；市价进场/平仓即时生效
	netPos int
}

// NewExecutor 创建影子执行客户端
// 参数 balance: 影子账户权益（≤0 时取 10000）
func NewExecutor(balance float64, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if balance <= 0 {
		balance = 10_000
	}
	return &Executor{
		logger:  logger.Named("paper"),
		orders:  make(map[string]*Order),
		balance: balance,
	}
}

// record 登记一笔影子订单并返回订单号
func (e *Executor) record(o Order) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	o.ID = fmt.Sprintf("paper-%d", e.seq)
	e.orders[o.ID] = &o
	return o.ID
}

// PlaceBracketOrder 市价进场并同时登记止损/止盈
func (e *Executor) PlaceBracketOrder(dir model.Direction, qty int, stopLoss, takeProfit float64) (string, error) {
	id := e.record(Order{Kind: KindBracket, Direction: dir, Qty: qty, StopLoss: stopLoss, TakeProfit: takeProfit})
	e.applyFill(dir, qty)
	e.logger.Info("影子下单: bracket",
		zap.String("order_id", id),
		zap.String("direction", string(dir)),
		zap.Int("qty", qty),
		zap.Float64("stop_loss", stopLoss),
		zap.Float64("take_profit", takeProfit))
	return id, nil
}

// PlaceStopEntry 挂停损突破进场单
func (e *Executor) PlaceStopEntry(dir model.Direction, qty int, trigger float64) (string, error) {
	id := e.record(Order{Kind: KindStopEntry, Direction: dir, Qty: qty, Price: trigger})
	e.logger.Info("影子下单: 停损进场",
		zap.String("order_id", id),
		zap.String("direction", string(dir)),
		zap.Int("qty", qty),
		zap.Float64("trigger", trigger))
	return id, nil
}

// PlaceLimitEntry 挂限价回踩进场单
func (e *Executor) PlaceLimitEntry(dir model.Direction, qty int, limit float64) (string, error) {
	id := e.record(Order{Kind: KindLimitEntry, Direction: dir, Qty: qty, Price: limit})
	e.logger.Info("影子下单: 限价进场",
		zap.String("order_id", id),
		zap.String("direction", string(dir)),
		zap.Int("qty", qty),
		zap.Float64("limit", limit))
	return id, nil
}

// PlaceStopLoss 为已成交仓位挂止损单
func (e *Executor) PlaceStopLoss(dir model.Direction, qty int, price float64) (string, error) {
	id := e.record(Order{Kind: KindStopLoss, Direction: dir, Qty: qty, Price: price})
	e.logger.Info("影子下单: 止损",
		zap.String("order_id", id),
		zap.Float64("price", price))
	return id, nil
}

// PlaceTakeProfit 为已成交仓位挂止盈单
func (e *Executor) PlaceTakeProfit(dir model.Direction, qty int, price float64) (string, error) {
	id := e.record(Order{Kind: KindTakeProfit, Direction: dir, Qty: qty, Price: price})
	e.logger.Info("影子下单: 止盈",
		zap.String("order_id", id),
		zap.Float64("price", price))
	return id, nil
}

// ModifyStop 移动已挂止损单
func (e *Executor) ModifyStop(orderID string, price float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[orderID]
	if !ok {
		return fmt.Errorf("未知订单: %s", orderID)
	}
	if o.Canceled {
		return fmt.Errorf("订单已撤销: %s", orderID)
	}
	o.Price = price
	e.logger.Info("影子移动止损",
		zap.String("order_id", orderID),
		zap.Float64("price", price))
	return nil
}

// CancelOrder 撤销挂单
// 重复撤销同一订单是安全的（幂等）。
func (e *Executor) CancelOrder(orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[orderID]
	if !ok {
		return fmt.Errorf("未知订单: %s", orderID)
	}
	o.Canceled = true
	e.logger.Info("影子撤单", zap.String("order_id", orderID))
	return nil
}

// applyFill 按方向更新净持仓（市价指令即时成交）
func (e *Executor) applyFill(dir model.Direction, qty int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.netPos += int(dir.Sign()) * qty
}

// ExitMarket 市价平仓
func (e *Executor) ExitMarket(dir model.Direction, qty int) (string, error) {
	id := e.record(Order{Kind: KindExit, Direction: dir, Qty: qty})
	e.applyFill(dir.Opposite(), qty)
	e.logger.Info("影子市价平仓",
		zap.String("order_id", id),
		zap.String("direction", string(dir)),
		zap.Int("qty", qty))
	return id, nil
}

// FlattenAll 撤销全部未撤订单
func (e *Executor) FlattenAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, o := range e.orders {
		if !o.Canceled {
			o.Canceled = true
			n++
		}
	}
	e.netPos = 0
	e.logger.Warn("影子清仓: 撤销全部挂单", zap.Int("count", n))
	return nil
}

// AccountBalance 查询影子账户权益
func (e *Executor) AccountBalance() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance, nil
}

// CurrentPosition 查询影子账户净持仓
func (e *Executor) CurrentPosition() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.netPos, nil
}

// Lookup 查询影子订单（测试与审计用）
func (e *Executor) Lookup(orderID string) (Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// OpenOrders 统计未撤订单数
func (e *Executor) OpenOrders() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, o := range e.orders {
		if !o.Canceled {
			n++
		}
	}
	return n
}
