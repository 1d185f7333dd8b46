// Package book 维护单一合约的订单级订单簿状态。
// 单写者模式：所有变更由事件流水线单 goroutine 串行调用，避免锁和竞态条件。
package book

import (
	"orderflow-signal-engine/internal/core/model"
)

// Entry 订单簿条目
// 挂单时创建，修改时原地变更，撤单/成交移除。
type Entry struct {
	// OrderID 订单唯一标识
	OrderID int64
	// Side 挂单方向
	Side model.Side
	// Price 挂单价格
	Price float64
	// Size 挂单数量
	Size float64
	// InsertedAtNs 挂单时间（纳秒）
	InsertedAtNs int64
}

// LevelStats 单价位统计
// 按事件增量重算，不在检测器保留窗口之外持久化。
type LevelStats struct {
	// Price 价位
	Price float64
	// OrderCount 该价位挂单笔数
	OrderCount int
	// TotalSize 该价位挂单总量
	TotalSize float64
	// Delta 该价位累计带符号成交量（主动买为正）
	Delta float64
}

// Book 订单级订单簿（单写者）
// 注意：本结构体由流水线单 goroutine 写入；跨 goroutine 读取请通过快照传递。
type Book struct {
	// orders 全局订单索引: orderID -> Entry
	orders map[int64]*Entry
	// levels 价位索引: price -> orderID 列表
	levels map[float64][]int64
	// delta 价位累计带符号成交量: price -> delta
	delta map[float64]float64

	// bestBid/bestAsk 最新 BBO
	bestBid, bestAsk   float64
	bidSize, askSize   float64
	lastPrice          float64
	lastTradeSize      float64
	lastTradeAggressor model.Side
}

// New 创建空订单簿
func New() *Book {
	return &Book{
		orders: make(map[int64]*Entry),
		levels: make(map[float64][]int64),
		delta:  make(map[float64]float64),
	}
}

// Add 处理新挂单
// 重复的 orderID 视为先撤后挂。
func (b *Book) Add(id int64, side model.Side, price, size float64, nowNs int64) {
	if price <= 0 || size <= 0 {
		return
	}
	if _, ok := b.orders[id]; ok {
		b.Cancel(id)
	}
	e := &Entry{OrderID: id, Side: side, Price: price, Size: size, InsertedAtNs: nowNs}
	b.orders[id] = e
	b.levels[price] = append(b.levels[price], id)
}

// Modify 处理挂单修改
// 价格变化时订单在价位列表之间迁移；未知订单忽略。
func (b *Book) Modify(id int64, price, size float64) {
	e, ok := b.orders[id]
	if !ok {
		return
	}
	if size <= 0 {
		b.Cancel(id)
		return
	}
	if price > 0 && price != e.Price {
		b.removeFromLevel(e.Price, id)
		e.Price = price
		b.levels[price] = append(b.levels[price], id)
	}
	e.Size = size
}

// Cancel 处理撤单
// 未知订单忽略；价位列表空时回收，保证 Count 永不为负。
func (b *Book) Cancel(id int64) {
	e, ok := b.orders[id]
	if !ok {
		return
	}
	b.removeFromLevel(e.Price, id)
	delete(b.orders, id)
}

// Lookup 查询订单条目
// 返回的指针应视为只读。
func (b *Book) Lookup(id int64) (*Entry, bool) {
	e, ok := b.orders[id]
	return e, ok
}

// ApplyTrade 记录成交并累加该价位的带符号成交量
func (b *Book) ApplyTrade(price, size float64, aggressor model.Side) {
	if price <= 0 || size <= 0 {
		return
	}
	if aggressor == model.SideBuy {
		b.delta[price] += size
	} else {
		b.delta[price] -= size
	}
	b.lastPrice = price
	b.lastTradeSize = size
	b.lastTradeAggressor = aggressor
}

// UpdateBBO 更新最优买卖价
func (b *Book) UpdateBBO(bidPrice, askPrice, bidSize, askSize float64) {
	b.bestBid = bidPrice
	b.bestAsk = askPrice
	b.bidSize = bidSize
	b.askSize = askSize
}

// Count 统计指定价位的挂单笔数
func (b *Book) Count(price float64) int {
	return len(b.levels[price])
}

// AggregateSize 统计指定价位的挂单总量
func (b *Book) AggregateSize(price float64) float64 {
	var total float64
	for _, id := range b.levels[price] {
		if e, ok := b.orders[id]; ok {
			total += e.Size
		}
	}
	return total
}

// Delta 查询指定价位的累计带符号成交量
func (b *Book) Delta(price float64) float64 {
	return b.delta[price]
}

// Stats 获取指定价位的统计快照
func (b *Book) Stats(price float64) LevelStats {
	return LevelStats{
		Price:      price,
		OrderCount: b.Count(price),
		TotalSize:  b.AggregateSize(price),
		Delta:      b.delta[price],
	}
}

// BestBid 获取最优买价
func (b *Book) BestBid() float64 { return b.bestBid }

// BestAsk 获取最优卖价
func (b *Book) BestAsk() float64 { return b.bestAsk }

// LastPrice 获取最新成交价
func (b *Book) LastPrice() float64 { return b.lastPrice }

// MidPrice 计算中间价
// BBO 无效时返回最新成交价。
func (b *Book) MidPrice() float64 {
	if b.bestBid > 0 && b.bestAsk > 0 {
		return (b.bestBid + b.bestAsk) / 2
	}
	return b.lastPrice
}

// Imbalance 计算 BBO 深度不平衡度
// 公式: (bidSize - askSize) / (bidSize + askSize)，范围 [-1, 1]，正值偏多。
func (b *Book) Imbalance() float64 {
	total := b.bidSize + b.askSize
	if total <= 0 {
		return 0
	}
	return (b.bidSize - b.askSize) / total
}

// OrderCount 统计全簿挂单总数
func (b *Book) OrderCount() int {
	return len(b.orders)
}

// removeFromLevel 从价位列表移除订单
func (b *Book) removeFromLevel(price float64, id int64) {
	ids := b.levels[price]
	for i, v := range ids {
		if v == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(b.levels, price)
		return
	}
	b.levels[price] = ids
}
