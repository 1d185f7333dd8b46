// Package bitstamp 定义 Bitstamp 交易所消息类型。
package bitstamp

import (
	"encoding/json"

	"orderflow-signal-engine/internal/core/model"
)

// Envelope Bitstamp WebSocket 消息信封
// 形如 {"event":"order_created","channel":"live_orders_btcusd","data":{...}}。
type Envelope struct {
	// Event 事件类型
	Event string `json:"event"`
	// Channel 频道名
	Channel string `json:"channel"`
	// Data 事件负载（按事件类型延迟解析）
	Data json.RawMessage `json:"data"`
}

// SubscribeRequest Bitstamp WebSocket 订阅请求
type SubscribeRequest struct {
	// Event 固定为 bts:subscribe
	Event string `json:"event"`
	// Data 订阅频道
	Data SubscribeChannel `json:"data"`
}

// SubscribeChannel 订阅频道负载
type SubscribeChannel struct {
	// Channel 频道名，如 live_orders_btcusd
	Channel string `json:"channel"`
}

// LiveOrder live_orders 频道的挂单事件负载
// 字段映射：
// - id: 订单号 -> OrderAdd/OrderModify/OrderCancel.OrderID
// - order_type: 0 买 1 卖 -> Side
// - amount_str/price_str: 字符串数值（优先于浮点字段，避免精度损失）
type LiveOrder struct {
	// ID 订单号
	ID int64 `json:"id"`
	// OrderType 挂单方向: 0 买, 1 卖
	OrderType int `json:"order_type"`
	// AmountStr 挂单数量（字符串）
	AmountStr string `json:"amount_str"`
	// PriceStr 挂单价格（字符串）
	PriceStr string `json:"price_str"`
	// Microtimestamp 交易所时间（微秒，字符串）
	Microtimestamp string `json:"microtimestamp"`
}

// LiveTrade live_trades 频道的成交事件负载
// type: 0 表示主动买入，1 表示主动卖出。
type LiveTrade struct {
	// ID 成交号
	ID int64 `json:"id"`
	// Type 主动方: 0 买, 1 卖
	Type int `json:"type"`
	// AmountStr 成交数量（字符串）
	AmountStr string `json:"amount_str"`
	// PriceStr 成交价格（字符串）
	PriceStr string `json:"price_str"`
	// Microtimestamp 交易所时间（微秒，字符串）
	Microtimestamp string `json:"microtimestamp"`
}

// BookSnapshot order_book 频道的快照负载（前 100 档）
type BookSnapshot struct {
	// Microtimestamp 交易所时间（微秒，字符串）
	Microtimestamp string `json:"microtimestamp"`
	// Bids 买盘档位（价格、数量，字符串）
	Bids [][]string `json:"bids"`
	// Asks 卖盘档位（价格、数量，字符串）
	Asks [][]string `json:"asks"`
}

// Event 归一化后的行情事件（互斥变体，恰有一个非空）
// Reconnect 为 true 表示交易所请求客户端重连（bts:request_reconnect）。
type Event struct {
	OrderAdd    *model.OrderAdd
	OrderModify *model.OrderModify
	OrderCancel *model.OrderCancel
	Trade       *model.Trade
	BBO         *model.BestBidOffer
	Reconnect   bool
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// ReconnectCount 重连次数
	ReconnectCount int64
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64
	// UpdatesPerSec 每秒更新次数
	UpdatesPerSec float64
	// LastMessageAgeMs 最后消息距今时间（毫秒）
	LastMessageAgeMs int64
}
