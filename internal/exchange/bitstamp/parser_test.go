// Package bitstamp Bitstamp 解析器测试
package bitstamp

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"orderflow-signal-engine/internal/core/model"
)

func TestParser_OrderCreated(t *testing.T) {
	p := NewParser("btcusd")

	data := []byte(`{"event":"order_created","channel":"live_orders_btcusd",` +
		`"data":{"id":123456789,"order_type":1,"amount_str":"2.50000000","price_str":"45001.25","microtimestamp":"1700000000000000"}}`)
	events, err := p.Parse(data)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(events) != 1 || events[0].OrderAdd == nil {
		t.Fatalf("应产生 1 个挂单事件, 实际 %+v", events)
	}

	add := events[0].OrderAdd
	if add.OrderID != 123456789 {
		t.Fatalf("订单号期望 123456789, 实际 %d", add.OrderID)
	}
	if add.Side != model.SideSell {
		t.Fatalf("order_type=1 应为卖单, 实际 %s", add.Side)
	}
	if add.Price != 45001.25 || add.Size != 2.5 {
		t.Fatalf("价格/数量期望 45001.25/2.5, 实际 %v/%v", add.Price, add.Size)
	}
	if add.ArrivedAtUnixNs == 0 {
		t.Fatal("应记录本机到达时间")
	}
}

func TestParser_OrderChangedAndDeleted(t *testing.T) {
	p := NewParser("btcusd")

	events, err := p.Parse([]byte(`{"event":"order_changed","channel":"live_orders_btcusd",` +
		`"data":{"id":42,"order_type":0,"amount_str":"1.00000000","price_str":"45000.00"}}`))
	if err != nil || len(events) != 1 || events[0].OrderModify == nil {
		t.Fatalf("应产生 1 个改单事件, 实际 %+v (%v)", events, err)
	}
	if events[0].OrderModify.OrderID != 42 || events[0].OrderModify.Price != 45000 {
		t.Fatalf("改单字段错误: %+v", events[0].OrderModify)
	}

	events, err = p.Parse([]byte(`{"event":"order_deleted","channel":"live_orders_btcusd",` +
		`"data":{"id":42,"order_type":0,"amount_str":"1.00000000","price_str":"45000.00"}}`))
	if err != nil || len(events) != 1 || events[0].OrderCancel == nil {
		t.Fatalf("应产生 1 个撤单事件, 实际 %+v (%v)", events, err)
	}
	if events[0].OrderCancel.OrderID != 42 {
		t.Fatalf("撤单订单号期望 42, 实际 %d", events[0].OrderCancel.OrderID)
	}
}

func TestParser_Trade(t *testing.T) {
	p := NewParser("btcusd")

	data := []byte(`{"event":"trade","channel":"live_trades_btcusd",` +
		`"data":{"id":7,"type":1,"amount_str":"0.75000000","price_str":"45002.00","microtimestamp":"1700000000000000"}}`)
	events, err := p.Parse(data)
	if err != nil || len(events) != 1 || events[0].Trade == nil {
		t.Fatalf("应产生 1 个成交事件, 实际 %+v (%v)", events, err)
	}

	tr := events[0].Trade
	if tr.Aggressor != model.SideSell {
		t.Fatalf("type=1 应为主动卖出, 实际 %s", tr.Aggressor)
	}
	if tr.Price != 45002 || tr.Size != 0.75 {
		t.Fatalf("价格/数量期望 45002/0.75, 实际 %v/%v", tr.Price, tr.Size)
	}
	if tr.SignedSize() != -0.75 {
		t.Fatalf("主动卖出带符号成交量应为 -0.75, 实际 %v", tr.SignedSize())
	}
}

func TestParser_BookSnapshotTopLevel(t *testing.T) {
	p := NewParser("btcusd")

	data := []byte(`{"event":"data","channel":"order_book_btcusd",` +
		`"data":{"microtimestamp":"1700000000000000",` +
		`"bids":[["45000.00","3.2"],["44999.50","1.0"]],` +
		`"asks":[["45000.50","2.1"],["45001.00","4.0"]]}}`)
	events, err := p.Parse(data)
	if err != nil || len(events) != 1 || events[0].BBO == nil {
		t.Fatalf("应产生 1 个 BBO 事件, 实际 %+v (%v)", events, err)
	}

	bbo := events[0].BBO
	if bbo.BidPrice != 45000 || bbo.AskPrice != 45000.5 {
		t.Fatalf("顶档价格期望 45000/45000.5, 实际 %v/%v", bbo.BidPrice, bbo.AskPrice)
	}
	if bbo.BidSize != 3.2 || bbo.AskSize != 2.1 {
		t.Fatalf("顶档数量期望 3.2/2.1, 实际 %v/%v", bbo.BidSize, bbo.AskSize)
	}
	if bbo.MidPrice() != 45000.25 {
		t.Fatalf("中间价期望 45000.25, 实际 %v", bbo.MidPrice())
	}
}

func TestParser_ProtocolMessagesIgnored(t *testing.T) {
	p := NewParser("btcusd")

	for _, raw := range []string{
		`{"event":"bts:subscription_succeeded","channel":"live_orders_btcusd","data":{}}`,
		`{"event":"bts:heartbeat","data":{}}`,
		`{"event":"order_created","channel":"live_orders_ethusd","data":{"id":1,"order_type":0,"amount_str":"1","price_str":"2"}}`,
	} {
		events, err := p.Parse([]byte(raw))
		if err != nil {
			t.Fatalf("协议/其他交易对消息不应报错: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("协议/其他交易对消息不应产生事件: %s", raw)
		}
	}
}

func TestParser_ReconnectRequest(t *testing.T) {
	p := NewParser("btcusd")

	events, err := p.Parse([]byte(`{"event":"bts:request_reconnect"}`))
	if err != nil || len(events) != 1 || !events[0].Reconnect {
		t.Fatalf("重连请求应产生 Reconnect 事件, 实际 %+v (%v)", events, err)
	}
}

func TestParser_MalformedPayload(t *testing.T) {
	p := NewParser("btcusd")

	cases := []string{
		`{"event":"order_created","channel":"live_orders_btcusd","data":{"id":0,"order_type":0,"amount_str":"1","price_str":"2"}}`,
		`{"event":"order_created","channel":"live_orders_btcusd","data":{"id":1,"order_type":0,"amount_str":"abc","price_str":"2"}}`,
		`{"event":"trade","channel":"live_trades_btcusd","data":{"id":1,"type":0,"amount_str":"0","price_str":"45000"}}`,
		`不是 JSON`,
	}
	for _, raw := range cases {
		if _, err := p.Parse([]byte(raw)); err == nil {
			t.Fatalf("非法消息应报错: %s", raw)
		}
	}
}

// **Feature: orderflow-signal-engine, Property 5: Parser Round-Trip Consistency**
// **Validates: Requirements 2.1, 2.3**

func TestParser_OrderRoundTrip_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	p := NewParser("btcusd")

	properties.Property("挂单事件解析保留订单号、方向、价格与数量", prop.ForAll(
		func(id int64, orderType int, price, size float64) bool {
			if id <= 0 {
				id = 1
			}
			env := map[string]any{
				"event":   "order_created",
				"channel": "live_orders_btcusd",
				"data": map[string]any{
					"id":         id,
					"order_type": orderType % 2,
					"amount_str": fmt.Sprintf("%.8f", size),
					"price_str":  fmt.Sprintf("%.2f", price),
				},
			}
			data, err := json.Marshal(env)
			if err != nil {
				return false
			}

			events, err := p.Parse(data)
			if err != nil || len(events) != 1 || events[0].OrderAdd == nil {
				return false
			}
			add := events[0].OrderAdd
			if add.OrderID != id {
				return false
			}
			wantSide := model.SideBuy
			if orderType%2 == 1 {
				wantSide = model.SideSell
			}
			if add.Side != wantSide {
				return false
			}
			priceDiff := add.Price - price
			sizeDiff := add.Size - size
			return priceDiff < 0.01 && priceDiff > -0.01 && sizeDiff < 1e-7 && sizeDiff > -1e-7
		},
		gen.Int64Range(1, 1<<50),
		gen.IntRange(0, 1),
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0.00000001, 10000),
	))

	properties.TestingRun(t)
}
