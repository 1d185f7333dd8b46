// Package flow 实现行情事件流水线中心。
// Hub 在单个 goroutine 上串行消费订单簿事件，驱动订单簿、
// 各检测器与指标，并把合格检测送入合流评分 → 决策 → 仓位管理。
package flow

import (
	"context"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"orderflow-signal-engine/internal/config"
	"orderflow-signal-engine/internal/core/book"
	"orderflow-signal-engine/internal/core/detector"
	"orderflow-signal-engine/internal/core/indicator"
	"orderflow-signal-engine/internal/core/lifecycle"
	"orderflow-signal-engine/internal/core/model"
	"orderflow-signal-engine/internal/core/scoring"
	"orderflow-signal-engine/internal/decision"
	"orderflow-signal-engine/internal/stats/session"
	"orderflow-signal-engine/internal/util/timeutil"
)

// AuditSink 信号/决策留痕接口
// telemetry.Sink 实现此接口；测试可注入假实现。
type AuditSink interface {
	// SignalScored 每次评分后调用（含未达阈值的信号）
	SignalScored(sig *model.Signal)
	// DecisionMade 决策边界返回后调用
	DecisionMade(sig *model.Signal, dec *model.Decision)
}

// nopAudit 空留痕实现
type nopAudit struct{}

func (nopAudit) SignalScored(*model.Signal)                  {}
func (nopAudit) DecisionMade(*model.Signal, *model.Decision) {}

// Hub 流水线中心
// 实现 model.EventHandler。所有回调必须由同一个 goroutine 串行调用；
// 热路径内部状态（订单簿/检测器/指标）不加锁。评分与决策的产物
// 通过各自带锁的边界对象（评分引擎阈值、仓位管理器）跨 goroutine 交互。
type Hub struct {
	cfg    *config.Config
	logger *zap.Logger

	// 热路径状态（单写者，不加锁）
	book       *book.Book
	iceberg    *detector.Iceberg
	spoof      *detector.Spoof
	absorption *detector.Absorption
	stopHunt   *detector.StopHunt
	bigFish    *detector.BigFish
	tapeSpeed  *detector.TapeSpeed
	volumeTail *detector.VolumeTail

	cvd     *indicator.CVD
	emaFast *indicator.EMA
	emaMid  *indicator.EMA
	emaSlow *indicator.EMA
	vwap    *indicator.VWAP
	atr     *indicator.ATR
	profile *indicator.VolumeProfile

	// bar 聚合状态
	barNs      int64
	barStartNs int64
	barHigh    float64
	barLow     float64
	barClose   float64
	barOpen    bool

	// 会话价位参照
	sessionOpen float64
	sessionHigh float64
	sessionLow  float64

	// lastTrade 最新成交价（Float64bits 编码），决策协程在提交
	// 进场时读取，滑移检查以提交时刻的价格为准
	lastTrade atomic.Uint64

	// 边界对象（各自带锁，可跨 goroutine）
	engine   *scoring.Engine
	boundary *decision.Boundary
	manager  *lifecycle.Manager
	tracker  *session.Tracker
	sink     AuditSink

	// now 时间源，测试中可替换
	now func() int64
	// syncDecide 为 true 时决策在热路径内联执行（仅测试使用）
	syncDecide bool
}

// NewHub 创建流水线中心
// 参数 cfg: 完整配置
// 参数 eng: 合流评分引擎
// 参数 bound: 决策边界
// 参数 mgr: 仓位管理器
// 参数 tracker: 会话统计
// 参数 sink: 信号/决策留痕（nil 表示不留痕）
func NewHub(cfg *config.Config, eng *scoring.Engine, bound *decision.Boundary, mgr *lifecycle.Manager, tracker *session.Tracker, sink AuditSink, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = nopAudit{}
	}

	tick := cfg.Instrument.TickSize
	det := cfg.Detection

	return &Hub{
		cfg:    cfg,
		logger: logger.Named("flow"),

		book: book.New(),
		iceberg: detector.NewIceberg(detector.IcebergConfig{
			MinOrders:  det.Iceberg.MinOrders,
			MinSize:    det.Iceberg.MinSize,
			CooldownNs: int64(det.Iceberg.CooldownMs) * 1_000_000,
		}),
		spoof: detector.NewSpoof(detector.SpoofConfig{
			MinSize:  det.Spoof.MinSize,
			MaxAgeNs: int64(det.Spoof.MaxAgeMs) * 1_000_000,
		}),
		absorption: detector.NewAbsorption(detector.AbsorptionConfig{
			MinSize:    det.Absorption.MinSize,
			Multiple:   det.Absorption.Multiple,
			ConfirmNs:  int64(det.Absorption.ConfirmMs) * 1_000_000,
			CooldownNs: int64(det.Absorption.CooldownMs) * 1_000_000,
		}),
		stopHunt: detector.NewStopHunt(detector.StopHuntConfig{
			TickSize:       tick,
			SweepTicks:     float64(det.StopHunt.SweepTicks),
			VolumeMultiple: det.StopHunt.VolumeMultiple,
			ReversalPct:    det.StopHunt.ReversalPct,
			CooldownNs:     int64(det.StopHunt.CooldownMs) * 1_000_000,
			RoundStep:      cfg.Instrument.RoundStep,
		}),
		bigFish: detector.NewBigFish(detector.BigFishConfig{
			DeltaThreshold: det.BigFish.DeltaThreshold,
			WindowNs:       int64(det.BigFish.WindowMs) * 1_000_000,
		}),
		tapeSpeed: detector.NewTapeSpeed(detector.TapeSpeedConfig{
			WindowNs:         int64(det.TapeSpeed.WindowMs) * 1_000_000,
			FastTradesPerSec: det.TapeSpeed.FastTradesPerSec,
			SlowTradesPerSec: det.TapeSpeed.SlowTradesPerSec,
		}),
		volumeTail: detector.NewVolumeTail(detector.VolumeTailConfig{}),

		cvd:     indicator.NewCVD(0),
		emaFast: indicator.NewEMA(cfg.Indicator.EMAFast),
		emaMid:  indicator.NewEMA(cfg.Indicator.EMAMid),
		emaSlow: indicator.NewEMA(cfg.Indicator.EMASlow),
		vwap:    indicator.NewVWAP(tick * 4),
		atr:     indicator.NewATR(cfg.Indicator.ATRPeriod),
		profile: indicator.NewVolumeProfile(cfg.Indicator.ProfileTick),

		barNs: int64(cfg.Indicator.BarSeconds) * 1_000_000_000,

		engine:   eng,
		boundary: bound,
		manager:  mgr,
		tracker:  tracker,
		sink:     sink,

		now: timeutil.NowNano,
	}
}

// OnOrderAdd 处理新挂单事件
func (h *Hub) OnOrderAdd(id int64, side model.Side, price, size float64) {
	nowNs := h.now()
	h.book.Add(id, side, price, size, nowNs)
	h.spoof.OnOrderAdd(id, side, price, size, nowNs)

	h.guard("iceberg", func() {
		stats := h.book.Stats(price)
		if d := h.iceberg.OnOrderAdd(side, price, size, stats.OrderCount, stats.TotalSize, nowNs); d != nil {
			h.emit(model.KindIceberg, d.Direction, d.Price, d.Detail(), d.OrderCount, 0, false, nowNs)
		}
	})
}

// OnOrderModify 处理修改挂单事件
func (h *Hub) OnOrderModify(id int64, price, size float64) {
	h.book.Modify(id, price, size)
	h.spoof.OnOrderModify(id, price, size)
}

// OnOrderCancel 处理撤单事件
func (h *Hub) OnOrderCancel(id int64) {
	nowNs := h.now()

	h.guard("spoof", func() {
		if d := h.spoof.OnOrderCancel(id, nowNs); d != nil {
			h.emit(model.KindSpoof, d.Direction, d.Price, d.Detail(), 0, 0, false, nowNs)
		}
	})
	h.book.Cancel(id)
}

// OnTrade 处理成交事件
// 这是流水线的主干：更新指标、推进 bar、喂给各检测器，
// 最后驱动仓位管理器的触发检查。
func (h *Hub) OnTrade(price, size float64, aggressor model.Side) {
	nowNs := h.now()

	h.lastTrade.Store(math.Float64bits(price))
	h.book.ApplyTrade(price, size, aggressor)
	h.cvd.Update(price, size, aggressor, nowNs)
	h.vwap.Update(price, size)
	h.profile.Update(price, size)
	h.tapeSpeed.OnTrade(size, aggressor, nowNs)
	h.bigFish.OnTrade(price, size, aggressor, nowNs)
	h.spoof.OnTrade(price)
	h.advanceBar(price, nowNs)

	// 价位参照在本笔成交之前的状态（扫损分类需要"前"高/低）
	lvlCtx := h.levelContext()

	h.guard("absorption", func() {
		for _, d := range h.absorption.OnTrade(price, size, aggressor, nowNs) {
			h.emit(model.KindAbsorption, d.Direction, d.Price, d.Detail(), 0, 0, false, nowNs)
		}
	})

	h.guard("stop_hunt", func() {
		if d := h.stopHunt.OnTrade(price, size, nowNs, lvlCtx); d != nil {
			h.emit(model.KindStopHunt, d.Direction, d.SweptLevel, d.Detail(), 0, d.Quality, true, nowNs)
		}
	})

	h.updateSessionLevels(price)

	h.manager.OnTick(price, nowNs)
	h.tracker.SetActivePositions(h.manager.Count())
}

// OnBestBidOffer 处理最优买卖价事件
func (h *Hub) OnBestBidOffer(bidPrice, askPrice, bidSize, askSize float64) {
	h.book.UpdateBBO(bidPrice, askPrice, bidSize, askSize)
}

// advanceBar 推进 bar 聚合
// bar 关闭时依次喂给三条 EMA 和 ATR。
func (h *Hub) advanceBar(price float64, nowNs int64) {
	if !h.barOpen {
		h.barStartNs = nowNs
		h.barHigh, h.barLow, h.barClose = price, price, price
		h.barOpen = true
		return
	}

	if nowNs-h.barStartNs >= h.barNs {
		h.emaFast.Update(h.barClose)
		h.emaMid.Update(h.barClose)
		h.emaSlow.Update(h.barClose)
		h.atr.Update(h.barHigh, h.barLow, h.barClose)

		h.barStartNs = nowNs
		h.barHigh, h.barLow, h.barClose = price, price, price
		return
	}

	if price > h.barHigh {
		h.barHigh = price
	}
	if price < h.barLow {
		h.barLow = price
	}
	h.barClose = price
}

// updateSessionLevels 更新会话极值
func (h *Hub) updateSessionLevels(price float64) {
	if h.sessionOpen == 0 {
		h.sessionOpen = price
		h.sessionHigh = price
		h.sessionLow = price
		return
	}
	if price > h.sessionHigh {
		h.sessionHigh = price
	}
	if price < h.sessionLow {
		h.sessionLow = price
	}
}

// levelContext 组装扫损价位分类参照
func (h *Hub) levelContext() detector.LevelContext {
	vwapVal, _ := h.vwap.Value()
	return detector.LevelContext{
		VWAP:        vwapVal,
		SessionOpen: h.sessionOpen,
		PriorHigh:   h.sessionHigh,
		PriorLow:    h.sessionLow,
	}
}

// emit 对一次检测做合流评分，合格则异步送入决策边界
func (h *Hub) emit(kind model.SignalKind, dir model.Direction, price float64, detail string, orderCount, huntQuality int, huntDirMatch bool, nowNs int64) {
	if dir != model.DirLong && dir != model.DirShort {
		return
	}

	in := h.buildInput(kind, dir, price, detail, orderCount, huntQuality, huntDirMatch, nowNs)
	sig := h.engine.Score(in)
	h.sink.SignalScored(sig)

	if !sig.Qualified() {
		return
	}

	h.logger.Info("合流信号",
		zap.String("signal_id", sig.ID),
		zap.String("kind", string(sig.Kind)),
		zap.String("direction", string(sig.Direction)),
		zap.Float64("price", sig.Price),
		zap.Float64("score", sig.Score),
		zap.Float64("threshold", sig.Threshold))

	// 决策可能耗时（最多到边界超时），移出热路径
	if h.syncDecide {
		h.decide(sig)
		return
	}
	go h.decide(sig)
}

// decide 执行决策边界并把 take 决策提交给仓位管理器
// 滑移检查用提交时刻的最新成交价，而非信号产生时刻的快照：
// 决策期间价格可能已经走远。
func (h *Hub) decide(sig *model.Signal) {
	dec := h.boundary.Decide(context.Background(), sig)
	h.sink.DecisionMade(sig, dec)

	if !dec.IsTake() {
		h.logger.Debug("决策跳过",
			zap.String("signal_id", sig.ID),
			zap.String("reason", dec.Reason))
		return
	}

	lastPrice := math.Float64frombits(h.lastTrade.Load())
	if _, err := h.manager.SubmitEntry(sig, dec, lastPrice, h.now()); err != nil {
		h.logger.Info("进场被拒绝",
			zap.String("signal_id", sig.ID),
			zap.Error(err))
	}
}

// buildInput 从各检测器/指标的当前状态组装评分输入
func (h *Hub) buildInput(kind model.SignalKind, dir model.Direction, price float64, detail string, orderCount, huntQuality int, huntDirMatch bool, nowNs int64) scoring.Input {
	tick := h.cfg.Instrument.TickSize

	in := scoring.Input{
		Kind:      kind,
		Direction: dir,
		Price:     price,
		Detail:    detail,

		OrderCount: orderCount,

		CVD:           h.cvd.Value(),
		CVDExtreme:    h.cvd.IsExtreme(h.cfg.Indicator.CVDExtremePct),
		CVDDivergence: h.cvd.Divergence(20),

		Node: h.profile.NodeAt(price),

		VWAPRelation: h.vwap.Relation(price),
		Hour:         timeutil.NanoToTime(nowNs).Hour(),
		DOMImbalance: h.book.Imbalance(),

		StopHuntQuality:        huntQuality,
		StopHuntDirectionMatch: huntDirMatch,
		TapeAlignment:          h.tapeSpeed.Alignment(dir, nowNs),
		Tail:                   h.volumeTail.Classify(h.profile.Levels()),
		BigFishDefending:       h.bigFish.IsDefending(dir, price, tick*4, nowNs),

		NowNs: nowNs,
	}

	// 检测价位的带符号成交量不平衡比
	if vol := h.profile.VolumeAt(price); vol > 0 {
		in.VolumeImbalance = h.cvd.DeltaAt(price) / vol
	}

	if v, ok := h.emaFast.Value(); ok {
		in.EMA.Fast, in.EMA.FastReady = v, true
	}
	if v, ok := h.emaMid.Value(); ok {
		in.EMA.Mid, in.EMA.MidReady = v, true
	}
	if v, ok := h.emaSlow.Value(); ok {
		in.EMA.Slow, in.EMA.SlowReady = v, true
	}

	in.Market = h.marketContext()
	in.Account = h.tracker.Snapshot()
	return in
}

// marketContext 捕获市场快照
func (h *Hub) marketContext() model.MarketContext {
	ctx := model.MarketContext{
		BestBid:      h.book.BestBid(),
		BestAsk:      h.book.BestAsk(),
		LastPrice:    h.book.LastPrice(),
		CVD:          h.cvd.Value(),
		TotalVolume:  h.cvd.TotalVolume(),
		DOMImbalance: h.book.Imbalance(),
	}
	if v, ok := h.vwap.Value(); ok {
		ctx.VWAP = v
	}
	if v, ok := h.atr.Value(); ok {
		ctx.ATR = v
	}
	if poc, _, ok := h.profile.POC(); ok {
		ctx.POC = poc
	}
	return ctx
}

// guard 捕获检测器 panic，避免单个检测器拖垮整条流水线
func (h *Hub) guard(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("检测器 panic",
				zap.String("detector", name),
				zap.Any("panic", r))
		}
	}()
	fn()
}

// Book 暴露订单簿只读访问（仅限流水线 goroutine 调用）
func (h *Hub) Book() *book.Book {
	return h.book
}

// SessionLevels 返回当前会话参照价位（开盘/最高/最低）
func (h *Hub) SessionLevels() (open, high, low float64) {
	return h.sessionOpen, h.sessionHigh, h.sessionLow
}
