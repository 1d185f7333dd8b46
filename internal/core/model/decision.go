// Package model 定义订单流引擎中使用的核心数据结构。
package model

import (
	"fmt"
)

// Action 决策动作
type Action string

const (
	// ActionTake 接受信号，执行入场
	ActionTake Action = "take"
	// ActionSkip 跳过信号，不下单
	ActionSkip Action = "skip"
)

// ExecStyle 入场执行方式（封闭变体）
// 所有 switch 必须穷举三个值，default 分支返回错误，禁止静默回退。
type ExecStyle string

const (
	// ExecMarket 市价入场，止损/止盈以 bracket 单委托给执行边界
	ExecMarket ExecStyle = "market"
	// ExecStop 触价入场，成交后再显式挂出止损/止盈
	ExecStop ExecStyle = "stop"
	// ExecLimit 限价入场，成交后再显式挂出止损/止盈
	ExecLimit ExecStyle = "limit"
)

// Validate 校验执行方式是否为已知变体
func (s ExecStyle) Validate() error {
	switch s {
	case ExecMarket, ExecStop, ExecLimit:
		return nil
	default:
		return fmt.Errorf("未知执行方式: %q", string(s))
	}
}

// Decision 外部决策边界的输出
// 由决策边界产生，被仓位生命周期管理器消费恰好一次。
type Decision struct {
	// Action 决策动作: take 或 skip
	Action Action
	// Confidence 置信度（0-1）
	Confidence float64
	// Direction 交易方向: long 或 short
	Direction Direction
	// StopLoss 止损价格
	StopLoss float64
	// TakeProfit 止盈价格
	TakeProfit float64
	// Style 执行方式: market, stop, limit
	Style ExecStyle
	// TriggerPrice 触发价格（stop/limit 执行方式使用，market 为 0）
	TriggerPrice float64
	// Reason 决策依据文本
	Reason string
}

// IsTake 判断是否为接受决策
func (d *Decision) IsTake() bool {
	return d.Action == ActionTake
}

// SkipDecision 构造保守的跳过决策
// 用于决策边界故障/超时时的默认回退（置信度为 0）。
// 参数 reason: 跳过原因
func SkipDecision(reason string) *Decision {
	return &Decision{
		Action:     ActionSkip,
		Confidence: 0,
		Reason:     reason,
	}
}

// Validate 校验 take 决策的完整性
// skip 决策不要求风险参数。
func (d *Decision) Validate() error {
	if d.Action != ActionTake {
		return nil
	}
	if d.Direction != DirLong && d.Direction != DirShort {
		return fmt.Errorf("take 决策缺少方向: %q", string(d.Direction))
	}
	if err := d.Style.Validate(); err != nil {
		return err
	}
	if d.StopLoss <= 0 || d.TakeProfit <= 0 {
		return fmt.Errorf("take 决策缺少止损/止盈价格")
	}
	switch d.Style {
	case ExecStop, ExecLimit:
		if d.TriggerPrice <= 0 {
			return fmt.Errorf("%s 决策缺少触发价格", string(d.Style))
		}
	case ExecMarket:
		// market 不需要触发价
	default:
		return fmt.Errorf("未知执行方式: %q", string(d.Style))
	}
	return nil
}
