// Package detector 实现订单流形态检测器。
package detector

import (
	"math"

	"orderflow-signal-engine/internal/core/model"
)

// FishLevel 大单活跃价位快照
type FishLevel struct {
	// Price 价位
	Price float64
	// Delta 窗口内累计带符号成交量
	Delta float64
	// Defending 价格回访时同向成交量是否仍在累积
	Defending bool
}

// BigFishConfig 大单价位追踪配置
type BigFishConfig struct {
	// DeltaThreshold 价位激活的带符号成交量绝对值阈值
	DeltaThreshold float64
	// WindowNs 滚动时间窗口（纳秒）
	WindowNs int64
	// RevisitTolerance 回访判定容差（价格单位）
	RevisitTolerance float64
}

// fishState 单价位追踪状态
type fishState struct {
	delta float64
	// windowStartNs 当前累计窗口起点
	windowStartNs int64
	// lastTradeNs 最近一笔成交时间
	lastTradeNs int64
	// activatedNs 激活时间（0 表示未激活）
	activatedNs int64
	// leftSince 价格离开该价位的时间（0 表示未离开过）
	leftSince int64
	// defendDelta 最近一次回访以来累计的同向成交量
	defendDelta float64
}

// BigFish 大单价位追踪器（Price-Delta）
// 当某价位在滚动时间窗口内的带符号成交量绝对值超过阈值时激活；
// 价格离开后回访该价位且同向成交量继续累积时视为"防守"。
type BigFish struct {
	cfg BigFishConfig
	// levels price -> 追踪状态
	levels map[float64]*fishState
}

// NewBigFish 创建大单价位追踪器
func NewBigFish(cfg BigFishConfig) *BigFish {
	if cfg.WindowNs <= 0 {
		cfg.WindowNs = 60_000_000_000 // 60 秒
	}
	return &BigFish{
		cfg:    cfg,
		levels: make(map[float64]*fishState),
	}
}

// OnTrade 处理成交事件
func (d *BigFish) OnTrade(price, size float64, aggressor model.Side, nowNs int64) {
	st, ok := d.levels[price]
	if !ok {
		st = &fishState{windowStartNs: nowNs}
		d.levels[price] = st
	}

	// 窗口过期则重开累计
	if nowNs-st.windowStartNs > d.cfg.WindowNs {
		st.delta = 0
		st.windowStartNs = nowNs
		st.activatedNs = 0
		st.defendDelta = 0
	}

	signed := size
	if aggressor == model.SideSell {
		signed = -size
	}
	st.delta += signed
	st.lastTradeNs = nowNs

	if st.activatedNs == 0 && math.Abs(st.delta) >= d.cfg.DeltaThreshold {
		st.activatedNs = nowNs
	}

	// 回访中的同向累积
	if st.activatedNs > 0 && st.leftSince > 0 {
		if sameSign(signed, st.delta) {
			st.defendDelta += math.Abs(signed)
		}
		st.leftSince = 0
	}

	// 价格出现在其他价位，视为离开已激活的价位
	for p, other := range d.levels {
		if p == price || other.activatedNs == 0 {
			continue
		}
		if math.Abs(p-price) > d.cfg.RevisitTolerance && other.leftSince == 0 {
			other.leftSince = nowNs
		}
	}
}

// IsDefending 查询指定方向/价位附近是否有正在防守的活跃价位
// 参数 direction: 候选信号方向
// 参数 price: 候选信号价位
// 参数 tolerance: 价位匹配容差（价格单位）
func (d *BigFish) IsDefending(direction model.Direction, price, tolerance float64, nowNs int64) bool {
	for p, st := range d.levels {
		if st.activatedNs == 0 || math.Abs(p-price) > tolerance {
			continue
		}
		if nowNs-st.lastTradeNs > d.cfg.WindowNs {
			continue
		}
		if direction == model.DirLong && st.delta > 0 && st.defendDelta > 0 {
			return true
		}
		if direction == model.DirShort && st.delta < 0 && st.defendDelta > 0 {
			return true
		}
	}
	return false
}

// ActiveLevels 获取当前激活价位的快照
func (d *BigFish) ActiveLevels(nowNs int64) []FishLevel {
	var out []FishLevel
	for p, st := range d.levels {
		if st.activatedNs == 0 || nowNs-st.lastTradeNs > d.cfg.WindowNs {
			continue
		}
		out = append(out, FishLevel{
			Price:     p,
			Delta:     st.delta,
			Defending: st.defendDelta > 0,
		})
	}
	return out
}

// sameSign 判断两个值符号相同
func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
