package lifecycle

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"orderflow-signal-engine/internal/core/model"
	"orderflow-signal-engine/internal/util/timeutil"
)

// ManagerConfig 生命周期管理器配置
type ManagerConfig struct {
	// MaxPositions 同时持仓上限
	MaxPositions int
	// MaxContracts 单笔合约数上限
	MaxContracts int
	// AccountRisk 单笔允许的账户风险（货币单位）
	AccountRisk float64
	// RiskPercent 单笔风险占账户权益的百分比（0 禁用，此时
	// 使用固定的 AccountRisk）。启用时进场前向执行端口查询权益。
	RiskPercent float64
	// PointValue 每点价值
	PointValue float64
	// SignalMaxAgeNs 信号最大时效（纳秒），超时拒绝进场
	SignalMaxAgeNs int64
	// MaxSlippage 信号价与当前价的最大允许偏移（价格单位）
	MaxSlippage float64
	// BreakEvenTrigger 触发保本的有利移动量（价格单位，0 禁用）
	BreakEvenTrigger float64
	// BreakEvenOffset 保本止损相对入场价的偏移（价格单位）
	BreakEvenOffset float64
	// TrailingDistance 移动止损距离（价格单位，0 禁用；保本后才启用）
	TrailingDistance float64
}

// setDefaults 填充零值配置项
func (c *ManagerConfig) setDefaults() {
	if c.MaxPositions <= 0 {
		c.MaxPositions = 1
	}
	if c.MaxContracts <= 0 {
		c.MaxContracts = 3
	}
	if c.AccountRisk <= 0 {
		c.AccountRisk = 200
	}
	if c.PointValue <= 0 {
		c.PointValue = 20
	}
	if c.SignalMaxAgeNs <= 0 {
		c.SignalMaxAgeNs = 2_000_000_000
	}
	if c.MaxSlippage <= 0 {
		c.MaxSlippage = 2
	}
}

// Manager 仓位生命周期管理器
// 持有活跃仓位集合，消费决策并提交进场，在价格 tick 上驱动
// 止损/止盈/保本/移动止损。进场提交是全有或全无的：任一下单
// 失败则不产生仓位。平仓移除是确定性的：即使执行端口报错，
// 仓位也会离开活跃集合（资金安全优先于状态精确）。
type Manager struct {
	cfg    ManagerConfig
	client ExecutionClient
	ledger Ledger
	sink   MarkerSink

	// mu 保护 positions；事件线程与决策协程并发访问
	mu        sync.RWMutex
	positions map[string]*model.Position
}

// NewManager 创建生命周期管理器
// 参数 sink: 可为 nil（退化为 NopSink）
func NewManager(cfg ManagerConfig, client ExecutionClient, ledger Ledger, sink MarkerSink) *Manager {
	cfg.setDefaults()
	if sink == nil {
		sink = NopSink{}
	}
	return &Manager{
		cfg:       cfg,
		client:    client,
		ledger:    ledger,
		sink:      sink,
		positions: make(map[string]*model.Position),
	}
}

// Count 当前活跃仓位数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions)
}

// Get 按 ID 获取活跃仓位
func (m *Manager) Get(id string) *model.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions[id]
}

// Active 获取活跃仓位快照
func (m *Manager) Active() []*model.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// SubmitEntry 消费一条 take 决策并提交进场
// 参数 sig: 触发信号
// 参数 dec: 决策（skip 决策直接忽略）
// 参数 price: 当前最新价
// 参数 nowNs: 当前时间（纳秒）
// 返回: 新建仓位；被拒绝时返回错误（错误文本区分拒绝原因）。
func (m *Manager) SubmitEntry(sig *model.Signal, dec *model.Decision, price float64, nowNs int64) (*model.Position, error) {
	if sig == nil || dec == nil || !dec.IsTake() {
		return nil, nil
	}
	if err := dec.Validate(); err != nil {
		return nil, m.reject(sig, fmt.Sprintf("决策不完整: %v", err))
	}

	// 时效门：信号陈旧时市场状态已变
	if nowNs-sig.DetectedAtNs > m.cfg.SignalMaxAgeNs {
		return nil, m.reject(sig, fmt.Sprintf("信号过期: 时延 %dms 超过上限 %dms",
			(nowNs-sig.DetectedAtNs)/1_000_000, m.cfg.SignalMaxAgeNs/1_000_000))
	}
	// 滑移门：当前价偏离信号价过远
	if math.Abs(price-sig.Price) > m.cfg.MaxSlippage {
		return nil, m.reject(sig, fmt.Sprintf("价格滑移超限: 信号价 %.2f 当前价 %.2f", sig.Price, price))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 容量门
	if len(m.positions) >= m.cfg.MaxPositions {
		return nil, m.reject(sig, fmt.Sprintf("持仓已满: %d/%d", len(m.positions), m.cfg.MaxPositions))
	}
	// 日亏损门
	if m.ledger != nil && m.ledger.LossLimitHit() {
		return nil, m.reject(sig, fmt.Sprintf("触及日亏损上限: 当日盈亏 %.2f", m.ledger.DailyPnL()))
	}

	// 仓位规模: floor(账户风险 / 单合约止损风险)，钳制到 [1, MaxContracts]
	entryRef := price
	if dec.Style != model.ExecMarket {
		entryRef = dec.TriggerPrice
	}
	stopDist := math.Abs(entryRef - dec.StopLoss)
	if stopDist <= 0 {
		return nil, m.reject(sig, "止损距离无效")
	}
	qty := int(math.Floor(m.riskBudget() / (stopDist * m.cfg.PointValue)))
	if qty < 1 {
		qty = 1
	}
	if qty > m.cfg.MaxContracts {
		qty = m.cfg.MaxContracts
	}

	pos := &model.Position{
		ID:         uuid.NewString(),
		Direction:  dec.Direction,
		Quantity:   qty,
		StopLoss:   dec.StopLoss,
		TakeProfit: dec.TakeProfit,
		Signal:     sig,
		Decision:   dec,
		OpenedAt:   timeutil.NanoToTime(nowNs),
		OpenedAtNs: nowNs,
	}

	// 下单：任一失败则不提交仓位
	switch dec.Style {
	case model.ExecMarket:
		id, err := m.client.PlaceBracketOrder(dec.Direction, qty, dec.StopLoss, dec.TakeProfit)
		if err != nil {
			return nil, m.reject(sig, fmt.Sprintf("下单失败: %v", err))
		}
		pos.EntryOrderID = id
		pos.EntryPrice = price
		pos.BracketManaged = true
	case model.ExecStop:
		id, err := m.client.PlaceStopEntry(dec.Direction, qty, dec.TriggerPrice)
		if err != nil {
			return nil, m.reject(sig, fmt.Sprintf("下单失败: %v", err))
		}
		pos.EntryOrderID = id
		pos.EntryPrice = dec.TriggerPrice
		pos.PendingEntry = true
	case model.ExecLimit:
		id, err := m.client.PlaceLimitEntry(dec.Direction, qty, dec.TriggerPrice)
		if err != nil {
			return nil, m.reject(sig, fmt.Sprintf("下单失败: %v", err))
		}
		pos.EntryOrderID = id
		pos.EntryPrice = dec.TriggerPrice
		pos.PendingEntry = true
	default:
		return nil, m.reject(sig, fmt.Sprintf("未知执行方式: %q", string(dec.Style)))
	}

	m.positions[pos.ID] = pos
	m.sink.EntryPlaced(pos)
	return pos, nil
}

// riskBudget 单笔风险预算
// 启用 RiskPercent 时按当前账户权益折算；查询失败或权益无效则
// 退回固定的 AccountRisk。
func (m *Manager) riskBudget() float64 {
	if m.cfg.RiskPercent <= 0 {
		return m.cfg.AccountRisk
	}
	bal, err := m.client.AccountBalance()
	if err != nil || bal <= 0 {
		return m.cfg.AccountRisk
	}
	return bal * m.cfg.RiskPercent / 100
}

// reject 记录并构造拒绝错误
func (m *Manager) reject(sig *model.Signal, reason string) error {
	m.sink.EntryRejected(sig, reason)
	return fmt.Errorf("进场被拒绝: %s", reason)
}

// OnFill 入场单成交通知（stop/limit 执行方式）
// 成交后显式挂出止损/止盈；任一保护单挂出失败立即紧急平仓。
func (m *Manager) OnFill(orderID string, fillPrice float64, nowNs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pos *model.Position
	for _, p := range m.positions {
		if p.PendingEntry && p.EntryOrderID == orderID {
			pos = p
			break
		}
	}
	if pos == nil {
		return fmt.Errorf("未知入场订单: %q", orderID)
	}

	pos.EntryPrice = fillPrice
	pos.PendingEntry = false

	stopID, err := m.client.PlaceStopLoss(pos.Direction, pos.Quantity, pos.StopLoss)
	if err != nil {
		m.closeLocked(pos, fillPrice, nowNs, model.ExitManual)
		delete(m.positions, pos.ID)
		return fmt.Errorf("挂止损失败，已紧急平仓: %w", err)
	}
	pos.StopOrderID = stopID

	targetID, err := m.client.PlaceTakeProfit(pos.Direction, pos.Quantity, pos.TakeProfit)
	if err != nil {
		m.closeLocked(pos, fillPrice, nowNs, model.ExitManual)
		delete(m.positions, pos.ID)
		return fmt.Errorf("挂止盈失败，已紧急平仓: %w", err)
	}
	pos.TargetOrderID = targetID
	return nil
}

// CancelPending 撤销未成交的入场单并移除仓位
func (m *Manager) CancelPending(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.positions[id]
	if pos == nil {
		return fmt.Errorf("未知仓位: %q", id)
	}
	if !pos.PendingEntry {
		return fmt.Errorf("仓位 %q 已成交，请使用 Close", id)
	}

	err := m.client.CancelOrder(pos.EntryOrderID)
	// 撤单失败也移除：宁可人工对账，不可重复提交
	delete(m.positions, id)
	if err != nil {
		return fmt.Errorf("撤销入场单失败: %w", err)
	}
	return nil
}

// OnTick 在最新价上驱动全部活跃仓位
// 顺序: 极值更新 → 止损 → 止盈 → 保本 → 移动止损。
// 平仓的仓位在遍历结束后统一移除。
func (m *Manager) OnTick(price float64, nowNs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var closed []string
	for id, pos := range m.positions {
		if pos.PendingEntry || pos.Closing() {
			continue
		}
		pos.UpdateExtremes(price)

		if pos.StopHit(price) {
			if m.closeLocked(pos, pos.StopLoss, nowNs, model.ExitStopLoss) {
				closed = append(closed, id)
			}
			continue
		}
		if pos.TargetHit(price) {
			if m.closeLocked(pos, pos.TakeProfit, nowNs, model.ExitTakeProfit) {
				closed = append(closed, id)
			}
			continue
		}

		m.applyBreakEven(pos, price)
		m.applyTrailing(pos)
	}
	for _, id := range closed {
		delete(m.positions, id)
	}
}

// applyBreakEven 有利移动达到触发量后把止损移到入场价附近
// 幂等：仅应用一次；单调：只向有利方向移动。
func (m *Manager) applyBreakEven(pos *model.Position, price float64) {
	if m.cfg.BreakEvenTrigger <= 0 || pos.BreakEvenApplied {
		return
	}
	if pos.FavorableMove(price) < m.cfg.BreakEvenTrigger {
		return
	}
	newStop := pos.EntryPrice + m.cfg.BreakEvenOffset*pos.Direction.Sign()
	if !m.improvesStop(pos, newStop) {
		pos.BreakEvenApplied = true
		return
	}
	m.moveStop(pos, newStop, "保本")
	pos.BreakEvenApplied = true
}

// applyTrailing 保本后按最有利价回撤固定距离移动止损
func (m *Manager) applyTrailing(pos *model.Position) {
	if m.cfg.TrailingDistance <= 0 || !pos.BreakEvenApplied || pos.MaxFavorable == 0 {
		return
	}
	candidate := pos.MaxFavorable - m.cfg.TrailingDistance*pos.Direction.Sign()
	if !m.improvesStop(pos, candidate) {
		return
	}
	m.moveStop(pos, candidate, "移动止损")
	pos.TrailingStop = candidate
}

// improvesStop 判断 newStop 是否比当前止损更有利（单调性约束）
func (m *Manager) improvesStop(pos *model.Position, newStop float64) bool {
	if pos.Direction == model.DirLong {
		return newStop > pos.StopLoss
	}
	return newStop < pos.StopLoss
}

// moveStop 移动本地止损并同步到执行边界
// bracket 托管的仓位只做本地记账，不下发修改指令。
func (m *Manager) moveStop(pos *model.Position, newStop float64, why string) {
	pos.StopLoss = newStop
	if !pos.BracketManaged && pos.StopOrderID != "" {
		// 修改失败不回滚本地价位：本地止损在 tick 路径上仍然生效
		_ = m.client.ModifyStop(pos.StopOrderID, newStop)
	}
	m.sink.StopMoved(pos, newStop, why)
}

// Close 外部请求平仓
// 重复请求为空操作；无论执行端口是否报错，仓位都会离开活跃集合。
func (m *Manager) Close(id string, price float64, nowNs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.positions[id]
	if pos == nil {
		return fmt.Errorf("未知仓位: %q", id)
	}
	m.closeLocked(pos, price, nowNs, model.ExitManual)
	delete(m.positions, id)
	return nil
}

// CloseAll 平掉全部活跃仓位（关停路径）
func (m *Manager) CloseAll(price float64, nowNs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, pos := range m.positions {
		m.closeLocked(pos, price, nowNs, model.ExitManual)
		delete(m.positions, id)
	}
}

// closeLocked 执行平仓（须持有 m.mu）
// 返回 false 表示平仓已被其他路径抢占。撤单/平仓指令的错误不会
// 阻止记账与移除。
func (m *Manager) closeLocked(pos *model.Position, price float64, nowNs int64, reason model.ExitReason) bool {
	if !pos.BeginClose() {
		return false
	}

	// 撤销尚存的挂单；同价位触发单已成交时撤单报错属预期
	if pos.PendingEntry && pos.EntryOrderID != "" {
		_ = m.client.CancelOrder(pos.EntryOrderID)
	}
	if pos.StopOrderID != "" && reason != model.ExitStopLoss {
		_ = m.client.CancelOrder(pos.StopOrderID)
	}
	if pos.TargetOrderID != "" && reason != model.ExitTakeProfit {
		_ = m.client.CancelOrder(pos.TargetOrderID)
	}
	if reason == model.ExitManual && !pos.PendingEntry {
		_, _ = m.client.ExitMarket(pos.Direction, pos.Quantity)
	}

	pos.ExitPrice = price
	pos.ExitReason = reason
	pos.ClosedAtNs = nowNs

	// 从未成交的入场没有已实现盈亏，不计入账本
	if !pos.PendingEntry {
		pos.RealizedPnL = (price - pos.EntryPrice) * pos.Direction.Sign() * float64(pos.Quantity) * m.cfg.PointValue
		if m.ledger != nil {
			m.ledger.RecordTrade(pos.RealizedPnL)
		}
	}
	m.sink.PositionClosed(pos)
	return true
}
