// Package model 定义订单流引擎中使用的核心数据结构。
// 包含订单簿事件、信号、决策、仓位等核心类型。
package model

import (
	"time"
)

// Side 挂单/成交方向
type Side string

const (
	// SideBuy 买方
	SideBuy Side = "buy"
	// SideSell 卖方
	SideSell Side = "sell"
)

// Opposite 获取相反方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Direction 信号/仓位方向
type Direction string

const (
	// DirLong 多头方向
	DirLong Direction = "long"
	// DirShort 空头方向
	DirShort Direction = "short"
)

// Sign 获取方向系数
// 多头返回 1，空头返回 -1
func (d Direction) Sign() float64 {
	if d == DirLong {
		return 1
	}
	return -1
}

// Opposite 获取相反方向
func (d Direction) Opposite() Direction {
	if d == DirLong {
		return DirShort
	}
	return DirLong
}

// OrderAdd 新挂单事件
type OrderAdd struct {
	// OrderID 订单唯一标识（来自交易所）
	OrderID int64
	// Side 挂单方向
	Side Side
	// Price 挂单价格
	Price float64
	// Size 挂单数量
	Size float64
	// ArrivedAtUnixNs 本机收到事件的时间戳（纳秒）
	ArrivedAtUnixNs int64
}

// OrderModify 修改挂单事件
// 价格变化时订单会在价位之间迁移
type OrderModify struct {
	// OrderID 订单唯一标识
	OrderID int64
	// Price 修改后的价格
	Price float64
	// Size 修改后的数量
	Size float64
	// ArrivedAtUnixNs 本机收到事件的时间戳（纳秒）
	ArrivedAtUnixNs int64
}

// OrderCancel 撤单事件
type OrderCancel struct {
	// OrderID 订单唯一标识
	OrderID int64
	// ArrivedAtUnixNs 本机收到事件的时间戳（纳秒）
	ArrivedAtUnixNs int64
}

// Trade 成交事件
type Trade struct {
	// Price 成交价格
	Price float64
	// Size 成交数量
	Size float64
	// Aggressor 主动方：buy 表示主动买入，sell 表示主动卖出
	Aggressor Side
	// ArrivedAtUnixNs 本机收到事件的时间戳（纳秒）
	ArrivedAtUnixNs int64
}

// SignedSize 获取带符号的成交量
// 主动买入为 +Size，主动卖出为 -Size
func (t *Trade) SignedSize() float64 {
	if t.Aggressor == SideBuy {
		return t.Size
	}
	return -t.Size
}

// BestBidOffer 最优买卖价事件
type BestBidOffer struct {
	// BidPrice 最优买价
	BidPrice float64
	// AskPrice 最优卖价
	AskPrice float64
	// BidSize 最优买量
	BidSize float64
	// AskSize 最优卖量
	AskSize float64
	// ArrivedAtUnixNs 本机收到事件的时间戳（纳秒）
	ArrivedAtUnixNs int64
}

// IsValid 检查 BBO 是否有效
// 有效条件: 买卖价格都大于 0，且买价 < 卖价
func (b *BestBidOffer) IsValid() bool {
	return b.BidPrice > 0 && b.AskPrice > 0 && b.BidPrice < b.AskPrice
}

// MidPrice 计算中间价
func (b *BestBidOffer) MidPrice() float64 {
	return (b.BidPrice + b.AskPrice) / 2
}

// EventHandler 行情事件处理接口
// 由流水线中心实现；Feed 适配器按事件到达顺序同步调用。
// 注意：所有回调由单个 goroutine 串行调用，实现方不需要加锁（见并发模型）。
type EventHandler interface {
	// OnOrderAdd 处理新挂单事件
	OnOrderAdd(id int64, side Side, price, size float64)
	// OnOrderModify 处理修改挂单事件
	OnOrderModify(id int64, price, size float64)
	// OnOrderCancel 处理撤单事件
	OnOrderCancel(id int64)
	// OnTrade 处理成交事件
	OnTrade(price, size float64, aggressor Side)
	// OnBestBidOffer 处理最优买卖价事件
	OnBestBidOffer(bidPrice, askPrice, bidSize, askSize float64)
}

// ArrivedAt 获取到达时间的 time.Time 表示
func (t *Trade) ArrivedAt() time.Time {
	return time.Unix(0, t.ArrivedAtUnixNs)
}
