// Package bitstamp 实现 Bitstamp 交易所消息解析。
// 订单事件: order_created / order_changed / order_deleted (live_orders 频道)
// 成交事件: trade (live_trades 频道)
// 快照事件: data (order_book 频道，仅取顶档作为 BBO)
package bitstamp

import (
	"encoding/json"
	"fmt"
	"strings"

	"orderflow-signal-engine/internal/core/model"
	"orderflow-signal-engine/internal/util/fastparse"
	"orderflow-signal-engine/internal/util/timeutil"
)

// Parser Bitstamp 消息解析器
type Parser struct {
	// pair 订阅交易对（如 btcusd），用于过滤其他频道
	pair string
}

// NewParser 创建 Bitstamp 消息解析器
// 参数 pair: 交易对（小写，如 btcusd）
func NewParser(pair string) *Parser {
	return &Parser{pair: strings.ToLower(pair)}
}

// Parse 解析 Bitstamp WebSocket 消息为归一化事件
// 参数 data: 原始消息字节
// 返回: 0 或 1 个事件（心跳/订阅确认等协议消息返回空切片）
func (p *Parser) Parse(data []byte) ([]Event, error) {
	arrivedAt := timeutil.NowNano()

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("解析 Bitstamp 信封失败: %w", err)
	}

	switch env.Event {
	case "order_created", "order_changed", "order_deleted":
		if !p.channelMatches(env.Channel, "live_orders_") {
			return nil, nil
		}
		return p.parseOrder(env.Event, env.Data, arrivedAt)
	case "trade":
		if !p.channelMatches(env.Channel, "live_trades_") {
			return nil, nil
		}
		return p.parseTrade(env.Data, arrivedAt)
	case "data":
		if !p.channelMatches(env.Channel, "order_book_") {
			return nil, nil
		}
		return p.parseSnapshot(env.Data, arrivedAt)
	case "bts:request_reconnect":
		return []Event{{Reconnect: true}}, nil
	case "bts:subscription_succeeded", "bts:heartbeat", "bts:error":
		return nil, nil
	default:
		return nil, nil
	}
}

// channelMatches 检查频道前缀与交易对
func (p *Parser) channelMatches(channel, prefix string) bool {
	return channel == prefix+p.pair
}

func (p *Parser) parseOrder(event string, data []byte, arrivedAt int64) ([]Event, error) {
	var msg LiveOrder
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析挂单事件失败: %w", err)
	}
	if msg.ID == 0 {
		return nil, fmt.Errorf("挂单事件缺少订单号")
	}

	price, err := fastparse.ParseFloat(msg.PriceStr)
	if err != nil {
		return nil, fmt.Errorf("挂单价格非法 %q: %w", msg.PriceStr, err)
	}
	size, err := fastparse.ParseFloat(msg.AmountStr)
	if err != nil {
		return nil, fmt.Errorf("挂单数量非法 %q: %w", msg.AmountStr, err)
	}

	switch event {
	case "order_created":
		side := model.SideBuy
		if msg.OrderType == 1 {
			side = model.SideSell
		}
		return []Event{{OrderAdd: &model.OrderAdd{
			OrderID:         msg.ID,
			Side:            side,
			Price:           price,
			Size:            size,
			ArrivedAtUnixNs: arrivedAt,
		}}}, nil
	case "order_changed":
		return []Event{{OrderModify: &model.OrderModify{
			OrderID:         msg.ID,
			Price:           price,
			Size:            size,
			ArrivedAtUnixNs: arrivedAt,
		}}}, nil
	default: // order_deleted
		return []Event{{OrderCancel: &model.OrderCancel{
			OrderID:         msg.ID,
			ArrivedAtUnixNs: arrivedAt,
		}}}, nil
	}
}

func (p *Parser) parseTrade(data []byte, arrivedAt int64) ([]Event, error) {
	var msg LiveTrade
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析成交事件失败: %w", err)
	}

	price, err := fastparse.ParseFloat(msg.PriceStr)
	if err != nil {
		return nil, fmt.Errorf("成交价格非法 %q: %w", msg.PriceStr, err)
	}
	size, err := fastparse.ParseFloat(msg.AmountStr)
	if err != nil {
		return nil, fmt.Errorf("成交数量非法 %q: %w", msg.AmountStr, err)
	}
	if price <= 0 || size <= 0 {
		return nil, fmt.Errorf("成交价格/数量非正: %v/%v", price, size)
	}

	aggressor := model.SideBuy
	if msg.Type == 1 {
		aggressor = model.SideSell
	}
	return []Event{{Trade: &model.Trade{
		Price:           price,
		Size:            size,
		Aggressor:       aggressor,
		ArrivedAtUnixNs: arrivedAt,
	}}}, nil
}

func (p *Parser) parseSnapshot(data []byte, arrivedAt int64) ([]Event, error) {
	var msg BookSnapshot
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析订单簿快照失败: %w", err)
	}
	if len(msg.Bids) == 0 || len(msg.Asks) == 0 ||
		len(msg.Bids[0]) < 2 || len(msg.Asks[0]) < 2 {
		return nil, nil
	}

	bidPx, _ := fastparse.ParseFloat(msg.Bids[0][0])
	bidQty, _ := fastparse.ParseFloat(msg.Bids[0][1])
	askPx, _ := fastparse.ParseFloat(msg.Asks[0][0])
	askQty, _ := fastparse.ParseFloat(msg.Asks[0][1])

	bbo := &model.BestBidOffer{
		BidPrice:        bidPx,
		AskPrice:        askPx,
		BidSize:         bidQty,
		AskSize:         askQty,
		ArrivedAtUnixNs: arrivedAt,
	}
	if !bbo.IsValid() {
		return nil, fmt.Errorf("快照顶档非法: bid %v ask %v", bidPx, askPx)
	}
	return []Event{{BBO: bbo}}, nil
}
