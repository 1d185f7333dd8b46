// Package session 实现交易日会话统计。
package session

import (
	"sync"
	"time"

	"orderflow-signal-engine/internal/core/model"
)

// Summary 会话统计快照
type Summary struct {
	// Day 会话日期（本地时区）
	Day string
	// Trades 已平仓交易数
	Trades int
	// Wins 盈利笔数（净利>0）
	Wins int
	// Losses 亏损笔数（净利<=0）
	Losses int
	// WinRate 胜率
	WinRate float64
	// PnL 当日已实现盈亏
	PnL float64
	// AvgWin 平均盈利
	AvgWin float64
	// AvgLoss 平均亏损（绝对值）
	AvgLoss float64
	// LargestLoss 最大单笔亏损（绝对值）
	LargestLoss float64
	// ConsecutiveLosses 当前连续亏损笔数
	ConsecutiveLosses int
	// LossLimitHit 是否触及日亏损上限
	LossLimitHit bool
}

// Tracker 交易日会话统计器
// 记录已平仓交易，维护当日盈亏与亏损上限状态；自然日切换时
// 自动清零。决策协程与事件线程并发访问，内部加锁。
type Tracker struct {
	// lossLimit 日亏损上限（正数，0 禁用）
	lossLimit float64
	// now 时间源（测试注入）
	now func() time.Time

	mu sync.RWMutex
	// day 当前会话日期
	day string
	// pnl 当日已实现盈亏
	pnl float64
	// trades/wins/losses 当日笔数
	trades, wins, losses int
	// sumWin/sumLoss 盈利与亏损（绝对值）之和
	sumWin, sumLoss float64
	// largestLoss 最大单笔亏损（绝对值）
	largestLoss float64
	// consecLosses 当前连续亏损笔数
	consecLosses int
	// activePositions 当前活跃仓位数（由外部驱动）
	activePositions int
}

// NewTracker 创建会话统计器
// 参数 lossLimit: 日亏损上限（正数，0 禁用）
func NewTracker(lossLimit float64) *Tracker {
	return &Tracker{
		lossLimit: lossLimit,
		now:       time.Now,
	}
}

// NewTrackerWithClock 创建带注入时间源的会话统计器（测试用）
func NewTrackerWithClock(lossLimit float64, now func() time.Time) *Tracker {
	t := NewTracker(lossLimit)
	t.now = now
	return t
}

// rollLocked 检查自然日切换，切换时清零（须持有 t.mu 写锁）
func (t *Tracker) rollLocked() {
	day := t.now().Format("2006-01-02")
	if day == t.day {
		return
	}
	t.day = day
	t.pnl = 0
	t.trades, t.wins, t.losses = 0, 0, 0
	t.sumWin, t.sumLoss = 0, 0
	t.largestLoss = 0
	t.consecLosses = 0
}

// RecordTrade 记录一笔已平仓交易
func (t *Tracker) RecordTrade(pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()

	t.trades++
	t.pnl += pnl
	if pnl > 0 {
		t.wins++
		t.sumWin += pnl
		t.consecLosses = 0
	} else {
		t.losses++
		t.sumLoss += -pnl
		t.consecLosses++
		if -pnl > t.largestLoss {
			t.largestLoss = -pnl
		}
	}
}

// SetActivePositions 更新当前活跃仓位数
func (t *Tracker) SetActivePositions(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activePositions = n
}

// DailyPnL 当日已实现盈亏
func (t *Tracker) DailyPnL() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	return t.pnl
}

// LossLimitHit 是否触及日亏损上限
func (t *Tracker) LossLimitHit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	return t.lossLimit > 0 && t.pnl <= -t.lossLimit
}

// Snapshot 账户上下文快照（写入信号）
func (t *Tracker) Snapshot() model.AccountContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	return model.AccountContext{
		DailyPnL:        t.pnl,
		ActivePositions: t.activePositions,
		Trades:          t.trades,
		Wins:            t.wins,
	}
}

// Summarize 会话统计快照（周期性日志输出）
func (t *Tracker) Summarize() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()

	s := Summary{
		Day:               t.day,
		Trades:            t.trades,
		Wins:              t.wins,
		Losses:            t.losses,
		PnL:               t.pnl,
		LargestLoss:       t.largestLoss,
		ConsecutiveLosses: t.consecLosses,
		LossLimitHit:      t.lossLimit > 0 && t.pnl <= -t.lossLimit,
	}
	if t.trades > 0 {
		s.WinRate = float64(t.wins) / float64(t.trades)
	}
	if t.wins > 0 {
		s.AvgWin = t.sumWin / float64(t.wins)
	}
	if t.losses > 0 {
		s.AvgLoss = t.sumLoss / float64(t.losses)
	}
	return s
}
