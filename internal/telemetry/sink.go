package telemetry

import (
	"go.uber.org/zap"

	"orderflow-signal-engine/internal/core/model"
)

// Sink 生命周期事件遥测
// 实现 lifecycle.MarkerSink：结构化日志 + 可选 JSONL 留痕。
// 所有方法快速返回，留痕写入是异步的。
type Sink struct {
	logger  *zap.Logger
	journal *Journal
}

// NewSink 创建遥测 sink
// 参数 journal: 可为 nil（仅日志不留痕）
func NewSink(logger *zap.Logger, journal *Journal) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger, journal: journal}
}

// EntryPlaced 进场指令已提交
func (s *Sink) EntryPlaced(pos *model.Position) {
	s.logger.Info("进场已提交",
		zap.String("position_id", pos.ID),
		zap.String("direction", string(pos.Direction)),
		zap.Int("quantity", pos.Quantity),
		zap.Float64("entry_price", pos.EntryPrice),
		zap.Float64("stop_loss", pos.StopLoss),
		zap.Float64("take_profit", pos.TakeProfit),
		zap.Bool("pending", pos.PendingEntry))
	s.append(positionRecord("entry", pos))
}

// EntryRejected 进场被拒绝
func (s *Sink) EntryRejected(sig *model.Signal, reason string) {
	s.logger.Warn("进场被拒绝",
		zap.String("signal_id", sig.ID),
		zap.String("kind", string(sig.Kind)),
		zap.Float64("price", sig.Price),
		zap.String("reason", reason))
	if s.journal != nil {
		_ = s.journal.Append(DecisionRecord{
			Type:     "entry_rejected",
			SignalID: sig.ID,
			Action:   string(model.ActionSkip),
			Reason:   reason,
		})
	}
}

// PositionClosed 仓位已平
func (s *Sink) PositionClosed(pos *model.Position) {
	s.logger.Info("仓位已平",
		zap.String("position_id", pos.ID),
		zap.String("direction", string(pos.Direction)),
		zap.Float64("entry_price", pos.EntryPrice),
		zap.Float64("exit_price", pos.ExitPrice),
		zap.String("exit_reason", string(pos.ExitReason)),
		zap.Float64("realized_pnl", pos.RealizedPnL),
		zap.Duration("hold", pos.HoldDuration()))
	s.append(positionRecord("exit", pos))
}

// StopMoved 止损已移动
func (s *Sink) StopMoved(pos *model.Position, newStop float64, why string) {
	s.logger.Info("止损已移动",
		zap.String("position_id", pos.ID),
		zap.Float64("new_stop", newStop),
		zap.String("why", why))
}

// SignalScored 信号评分完成（流水线调用，不属于 MarkerSink）
func (s *Sink) SignalScored(sig *model.Signal) {
	s.logger.Info("信号评分",
		zap.String("signal_id", sig.ID),
		zap.String("kind", string(sig.Kind)),
		zap.String("direction", string(sig.Direction)),
		zap.Float64("price", sig.Price),
		zap.Float64("score", sig.Score),
		zap.Float64("threshold", sig.Threshold),
		zap.Bool("qualified", sig.Qualified()))
	if s.journal != nil {
		_ = s.journal.Append(SignalRecord{
			Type:         "signal",
			SignalID:     sig.ID,
			Kind:         string(sig.Kind),
			Direction:    string(sig.Direction),
			Price:        sig.Price,
			Score:        sig.Score,
			Threshold:    sig.Threshold,
			Breakdown:    sig.Breakdown,
			Detail:       sig.Detail,
			DetectedAtNs: sig.DetectedAtNs,
		})
	}
}

// DecisionMade 决策完成（流水线调用，不属于 MarkerSink）
func (s *Sink) DecisionMade(sig *model.Signal, dec *model.Decision) {
	s.logger.Info("决策完成",
		zap.String("signal_id", sig.ID),
		zap.String("action", string(dec.Action)),
		zap.Float64("confidence", dec.Confidence),
		zap.String("reason", dec.Reason))
	if s.journal != nil {
		_ = s.journal.Append(DecisionRecord{
			Type:       "decision",
			SignalID:   sig.ID,
			Action:     string(dec.Action),
			Confidence: dec.Confidence,
			Style:      string(dec.Style),
			StopLoss:   dec.StopLoss,
			TakeProfit: dec.TakeProfit,
			Reason:     dec.Reason,
		})
	}
}

func (s *Sink) append(v any) {
	if s.journal != nil {
		_ = s.journal.Append(v)
	}
}

func positionRecord(typ string, pos *model.Position) PositionRecord {
	rec := PositionRecord{
		Type:        typ,
		PositionID:  pos.ID,
		Direction:   string(pos.Direction),
		Quantity:    pos.Quantity,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   pos.ExitPrice,
		ExitReason:  string(pos.ExitReason),
		RealizedPnL: pos.RealizedPnL,
		OpenedAtNs:  pos.OpenedAtNs,
		ClosedAtNs:  pos.ClosedAtNs,
	}
	if pos.Signal != nil {
		rec.SignalID = pos.Signal.ID
	}
	return rec
}
