package decision

import (
	"context"
	"fmt"
	"math"

	"orderflow-signal-engine/internal/core/model"
)

// RulesetConfig 内置规则集配置
type RulesetConfig struct {
	// RewardRatio 盈亏比（止盈距离 = RewardRatio × 止损距离）
	RewardRatio float64
	// ATRMultiple 止损距离 = ATRMultiple × ATR
	ATRMultiple float64
	// MinStopDistance 止损距离下限（价格单位，ATR 未就绪时使用）
	MinStopDistance float64
	// MaxStopDistance 止损距离上限（价格单位）
	MaxStopDistance float64
	// LimitOffset 限价入场相对信号价的让价（价格单位）
	LimitOffset float64
}

// setDefaults 填充零值配置项
func (c *RulesetConfig) setDefaults() {
	if c.RewardRatio <= 0 {
		c.RewardRatio = 2
	}
	if c.ATRMultiple <= 0 {
		c.ATRMultiple = 1.5
	}
	if c.MinStopDistance <= 0 {
		c.MinStopDistance = 4
	}
	if c.MaxStopDistance <= 0 {
		c.MaxStopDistance = 25
	}
	if c.LimitOffset <= 0 {
		c.LimitOffset = 0.5
	}
}

// Ruleset 内置保守规则集
// 不依赖外部进程；按信号类型选择执行方式，按 ATR 推导止损止盈。
type Ruleset struct {
	cfg RulesetConfig
}

// NewRuleset 创建内置规则集
func NewRuleset(cfg RulesetConfig) *Ruleset {
	cfg.setDefaults()
	return &Ruleset{cfg: cfg}
}

// Decide 对合格信号给出决策
// 规则:
//   - 未达阈值 → skip
//   - 止损距离 = clamp(ATRMultiple × ATR, MinStopDistance, MaxStopDistance)
//   - 止盈距离 = RewardRatio × 止损距离
//   - 扫损/欺骗信号市价追入；冰山/吸收信号限价排队
func (r *Ruleset) Decide(_ context.Context, sig *model.Signal) (*model.Decision, error) {
	if sig == nil {
		return nil, fmt.Errorf("信号为空")
	}
	if !sig.Qualified() {
		return model.SkipDecision(fmt.Sprintf("得分 %.1f 未达阈值 %.1f", sig.Score, sig.Threshold)), nil
	}
	if sig.Direction != model.DirLong && sig.Direction != model.DirShort {
		return model.SkipDecision("信号缺少方向"), nil
	}
	if sig.Price <= 0 {
		return nil, fmt.Errorf("信号价格非法: %v", sig.Price)
	}

	stopDist := r.cfg.ATRMultiple * sig.Market.ATR
	if stopDist < r.cfg.MinStopDistance {
		stopDist = r.cfg.MinStopDistance
	}
	if stopDist > r.cfg.MaxStopDistance {
		stopDist = r.cfg.MaxStopDistance
	}

	sign := sig.Direction.Sign()
	dec := &model.Decision{
		Action:     model.ActionTake,
		Confidence: confidence(sig),
		Direction:  sig.Direction,
		StopLoss:   sig.Price - stopDist*sign,
		TakeProfit: sig.Price + r.cfg.RewardRatio*stopDist*sign,
		Reason: fmt.Sprintf("%s 信号得分 %.1f/%.1f, 止损距离 %.2f",
			string(sig.Kind), sig.Score, sig.Threshold, stopDist),
	}

	switch sig.Kind {
	case model.KindStopHunt, model.KindSpoof:
		// 反转/撤单信号时效短，市价追入
		dec.Style = model.ExecMarket
	case model.KindIceberg, model.KindAbsorption:
		// 防守价位仍在，限价排队等回踩
		dec.Style = model.ExecLimit
		dec.TriggerPrice = sig.Price - r.cfg.LimitOffset*sign
	default:
		return nil, fmt.Errorf("未知信号类型: %q", string(sig.Kind))
	}

	return dec, nil
}

// confidence 置信度 = min(1, 得分/阈值 - 0.5)，阈值处为 0.5
func confidence(sig *model.Signal) float64 {
	if sig.Threshold <= 0 {
		return 0.5
	}
	c := sig.Score/sig.Threshold - 0.5
	return math.Min(1, math.Max(0, c))
}
