// Package detector 辅助订单流追踪器测试
package detector

import (
	"testing"

	"orderflow-signal-engine/internal/core/indicator"
	"orderflow-signal-engine/internal/core/model"
)

func TestBigFish_ActivationAndDefense(t *testing.T) {
	d := NewBigFish(BigFishConfig{
		DeltaThreshold:   100,
		WindowNs:         60_000_000_000,
		RevisitTolerance: 2,
	})

	// 累计买方 delta 达到阈值 → 激活
	d.OnTrade(4500, 60, model.SideBuy, 1_000_000_000)
	d.OnTrade(4500, 50, model.SideBuy, 2_000_000_000)
	levels := d.ActiveLevels(2_000_000_000)
	if len(levels) != 1 || levels[0].Price != 4500 {
		t.Fatalf("delta 达到阈值应激活价位 4500，got %+v", levels)
	}
	if levels[0].Defending {
		t.Fatalf("未回访前不应标记防守")
	}

	// 价格离开后回访且同向累积 → 防守
	d.OnTrade(4510, 10, model.SideBuy, 3_000_000_000)
	d.OnTrade(4500, 10, model.SideBuy, 4_000_000_000)
	if !d.IsDefending(model.DirLong, 4500, 1, 4_000_000_000) {
		t.Fatalf("回访且同向累积应判定为防守")
	}
	if d.IsDefending(model.DirShort, 4500, 1, 4_000_000_000) {
		t.Fatalf("买方 delta 价位不应支持空头方向")
	}
}

func TestVolumeTail_Classification(t *testing.T) {
	d := NewVolumeTail(VolumeTailConfig{PeakFraction: 0.25, MinLevels: 5})

	mk := func(vols ...float64) []indicator.ProfileLevel {
		out := make([]indicator.ProfileLevel, len(vols))
		for i, v := range vols {
			out[i] = indicator.ProfileLevel{Price: 4500 + float64(i), Volume: v}
		}
		return out
	}

	// 下尾：低价边缘成交量低于峰值的 25%
	r := d.Classify(mk(10, 100, 120, 100, 80))
	if r.Bias != TailBullish || !r.LowerTail {
		t.Fatalf("下尾应为 bullish，got %+v", r)
	}
	if !r.MatchesDirection(model.DirLong) {
		t.Fatalf("下尾应支持多头方向")
	}

	// 上尾
	r = d.Classify(mk(80, 100, 120, 100, 15))
	if r.Bias != TailBearish || !r.UpperTail {
		t.Fatalf("上尾应为 bearish，got %+v", r)
	}

	// 双尾 → 盘整，偏向取较强（更小）一侧
	r = d.Classify(mk(10, 100, 120, 100, 15))
	if r.Bias != TailConsolidation {
		t.Fatalf("双尾应为 consolidation，got %s", r.Bias)
	}
	if r.StrongerSide != model.DirLong {
		t.Fatalf("下尾更小（更强拒绝）应偏多，got %s", r.StrongerSide)
	}

	// 价位不足不判定
	r = d.Classify(mk(10, 100, 15))
	if r.Bias != TailNone {
		t.Fatalf("价位不足应为 none，got %s", r.Bias)
	}
}

func TestTapeSpeed_LevelsAndAlignment(t *testing.T) {
	d := NewTapeSpeed(TapeSpeedConfig{
		WindowNs:         1_000_000_000, // 1 秒窗口
		FastTradesPerSec: 10,
		SlowTradesPerSec: 2,
	})

	now := int64(10_000_000_000)
	for i := 0; i < 15; i++ {
		d.OnTrade(5, model.SideBuy, now+int64(i)*10_000_000)
	}
	at := now + 150_000_000

	if lvl := d.Level(at); lvl != TapeFast {
		t.Fatalf("15 笔/秒应为 fast，got %s", lvl)
	}
	side, ok := d.DominantSide(at)
	if !ok || side != model.SideBuy {
		t.Fatalf("主导方向=%s, want buy", side)
	}
	if got := d.Alignment(model.DirLong, at); got != 1.0 {
		t.Fatalf("高速同向一致度=%v, want 1.0", got)
	}
	if got := d.Alignment(model.DirShort, at); got != -1.0 {
		t.Fatalf("高速反向一致度=%v, want -1.0", got)
	}

	// 窗口滑出后样本清空
	later := now + 5_000_000_000
	if _, ok := d.DominantSide(later); ok {
		t.Fatalf("窗口滑出后不应有主导方向")
	}
}

func TestStopHunt_SweepAndReversal(t *testing.T) {
	d := NewStopHunt(StopHuntConfig{
		TickSize:         1,
		SweepTicks:       10,
		VolumeMultiple:   3,
		ReversalPct:      0.5,
		WindowNs:         30_000_000_000,
		ReversalWindowNs: 60_000_000_000,
		CooldownNs:       120_000_000_000,
		RoundStep:        100,
		LevelTolerance:   2,
		AvgWindow:        100,
	})
	ctx := LevelContext{PriorLow: 4540}

	// 快速下扫：4555 → 4540
	prices := []float64{4555, 4553, 4551, 4549, 4547, 4545, 4543, 4541, 4540}
	ts := int64(1_000_000_000)
	for _, p := range prices {
		if det := d.OnTrade(p, 10, ts, ctx); det != nil {
			t.Fatalf("下扫过程中不应确认检测")
		}
		ts += 500_000_000
	}

	// 回撤 8/15 ≥ 50% → 确认
	det := d.OnTrade(4548, 10, ts, ctx)
	if det == nil {
		t.Fatalf("回撤达标应确认扫损")
	}
	if det.Direction != model.DirLong {
		t.Fatalf("下扫反转方向=%s, want long", det.Direction)
	}
	if det.SweptLevel != 4540 {
		t.Fatalf("被扫价位=%v, want 4540", det.SweptLevel)
	}
	if det.LevelType != LevelPriorLow {
		t.Fatalf("价位类型=%s, want prior_low", det.LevelType)
	}
	if det.Quality < 1 || det.Quality > 10 {
		t.Fatalf("质量评分=%d, 必须在 1-10", det.Quality)
	}
	if det.LevelType != LevelUnknown && det.Quality < 6 {
		t.Fatalf("已知价位类型评分=%d, want ≥ 6", det.Quality)
	}
}

func TestStopHunt_InsufficientRangeNoSweep(t *testing.T) {
	d := NewStopHunt(StopHuntConfig{
		TickSize:       1,
		SweepTicks:     10,
		VolumeMultiple: 3,
		ReversalPct:    0.5,
		AvgWindow:      100,
	})

	// 5 tick 的波动不构成扫动
	ts := int64(1_000_000_000)
	for _, p := range []float64{4550, 4548, 4546, 4545, 4548, 4550} {
		if det := d.OnTrade(p, 10, ts, LevelContext{}); det != nil {
			t.Fatalf("幅度不足不应确认扫损")
		}
		ts += 500_000_000
	}
}
