// Package model 定义订单流引擎中使用的核心数据结构。
package model

import (
	"time"
)

// SignalKind 触发信号的检测类型
type SignalKind string

const (
	// KindIceberg 冰山单检测
	KindIceberg SignalKind = "iceberg"
	// KindSpoof 幌骗单检测
	KindSpoof SignalKind = "spoof"
	// KindAbsorption 吸筹检测
	KindAbsorption SignalKind = "absorption"
	// KindStopHunt 扫损检测
	KindStopHunt SignalKind = "stop_hunt"
)

// ScoreFactor 单项评分因子
// 记录每个因子的得分与文字依据，供决策边界与审计消费。
// 注意：这不是可选的遥测信息，而是决策边界依赖的契约。
type ScoreFactor struct {
	// Name 因子名称（与权重表名称一致）
	Name string
	// Points 该因子贡献的分数（可为负）
	Points float64
	// Rationale 文字依据
	Rationale string
}

// MarketContext 信号产生时的市场快照
type MarketContext struct {
	// BestBid 最优买价
	BestBid float64
	// BestAsk 最优卖价
	BestAsk float64
	// LastPrice 最新成交价
	LastPrice float64
	// CVD 累计成交量差
	CVD float64
	// TotalVolume 累计成交量
	TotalVolume float64
	// VWAP 成交量加权均价（未初始化时为 0）
	VWAP float64
	// ATR 平均真实波幅（未初始化时为 0）
	ATR float64
	// POC 成交量分布控制点价格
	POC float64
	// DOMImbalance 深度不平衡度（-1 到 1，正值偏多）
	DOMImbalance float64
}

// AccountContext 信号产生时的账户快照
type AccountContext struct {
	// DailyPnL 当日已实现盈亏
	DailyPnL float64
	// ActivePositions 当前活跃仓位数
	ActivePositions int
	// Trades 当日交易笔数
	Trades int
	// Wins 当日盈利笔数
	Wins int
}

// Signal 合流信号
// 当某个检测器触发且合流总分达到阈值时生成。
// 创建后不可变；被决策边界消费一次并记录。
type Signal struct {
	// ID 信号唯一标识
	ID string
	// Kind 触发检测类型
	Kind SignalKind
	// Direction 信号方向: long 或 short
	Direction Direction
	// Price 信号价格（检测发生的价位）
	Price float64
	// Score 合流总分（已钳制为非负）
	Score float64
	// Threshold 检测时生效的合流阈值
	Threshold float64
	// Breakdown 各因子得分明细
	Breakdown []ScoreFactor
	// Detail 检测细节描述
	Detail string
	// Market 市场快照
	Market MarketContext
	// Account 账户快照
	Account AccountContext
	// DetectedAt 信号检测时间
	DetectedAt time.Time
	// DetectedAtNs 信号检测时间（纳秒时间戳）
	DetectedAtNs int64
}

// Qualified 判断信号是否达到合流阈值
func (s *Signal) Qualified() bool {
	return s.Score >= s.Threshold
}

// AgeNs 计算信号距 nowNs 的年龄（纳秒）
func (s *Signal) AgeNs(nowNs int64) int64 {
	return nowNs - s.DetectedAtNs
}

// FactorPoints 查找指定因子的得分
// 返回: 得分与是否存在
func (s *Signal) FactorPoints(name string) (float64, bool) {
	for _, f := range s.Breakdown {
		if f.Name == name {
			return f.Points, true
		}
	}
	return 0, false
}
