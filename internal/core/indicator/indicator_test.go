// Package indicator 指标计算器测试
package indicator

import (
	"math"
	"testing"

	"orderflow-signal-engine/internal/core/model"
)

func TestEMA_InitializationBoundary(t *testing.T) {
	e := NewEMA(5)

	for i := 0; i < 4; i++ {
		e.Update(100)
		if e.Ready() {
			t.Fatalf("第 %d 个样本不应视为已初始化", i+1)
		}
	}

	e.Update(100)
	if !e.Ready() {
		t.Fatalf("第 5 个样本起应视为已初始化")
	}
	v, ok := e.Value()
	if !ok || v != 100 {
		t.Fatalf("恒定输入 EMA=%v, want 100", v)
	}
}

func TestEMA_Smoothing(t *testing.T) {
	e := NewEMA(3) // multiplier = 0.5

	e.Update(10)
	e.Update(20) // 10 + (20-10)*0.5 = 15
	e.Update(30) // 15 + (30-15)*0.5 = 22.5

	v, ok := e.Value()
	if !ok {
		t.Fatalf("period=3 的第 3 个样本应已初始化")
	}
	if math.Abs(v-22.5) > 1e-9 {
		t.Fatalf("EMA=%v, want 22.5", v)
	}
}

func TestVWAP_Value(t *testing.T) {
	v := NewVWAP(0.5)

	v.Update(4500, 100)
	v.Update(4501, 200)
	v.Update(4502, 50)

	want := (4500.0*100 + 4501.0*200 + 4502.0*50) / 350.0
	got, ok := v.Value()
	if !ok {
		t.Fatalf("三笔成交后 VWAP 应已初始化")
	}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("VWAP=%v, want %v", got, want)
	}

	if rel := v.Relation(want + 0.4); rel != VWAPNear {
		t.Fatalf("容差带内应为 near，got %s", rel)
	}
	if rel := v.Relation(want + 10); rel != VWAPAbove {
		t.Fatalf("上方应为 above，got %s", rel)
	}
	if rel := v.Relation(want - 10); rel != VWAPBelow {
		t.Fatalf("下方应为 below，got %s", rel)
	}
}

func TestATR_Classification(t *testing.T) {
	cases := []struct {
		ratio float64
		want  ATRLevel
	}{
		{2.0, ATRHigh},
		{1.51, ATRHigh},
		{1.5, ATRModerate},
		{1.0, ATRModerate}, // 恰好等于基准归为 moderate
		{0.81, ATRModerate},
		{0.8, ATRLow},
		{0.3, ATRLow},
	}
	for _, c := range cases {
		if got := ClassifyATRRatio(c.ratio); got != c.want {
			t.Fatalf("ratio=%v 分类=%s, want %s", c.ratio, got, c.want)
		}
	}
}

func TestATR_BufferFill(t *testing.T) {
	a := NewATR(3)

	a.Update(110, 100, 105)
	a.Update(112, 104, 110)
	if _, ok := a.Value(); ok {
		t.Fatalf("缓冲未填满不应报告已初始化")
	}

	a.Update(115, 108, 112)
	v, ok := a.Value()
	if !ok {
		t.Fatalf("缓冲填满后应已初始化")
	}
	// TR1 = 110-100 = 10（无 prevClose）
	// TR2 = max(112-104, |112-105|, |104-105|) = 8
	// TR3 = max(115-108, |115-110|, |108-110|) = 7
	want := (10.0 + 8.0 + 7.0) / 3.0
	if math.Abs(v-want) > 1e-9 {
		t.Fatalf("ATR=%v, want %v", v, want)
	}
}

func TestVolumeProfile_POCAndNode(t *testing.T) {
	p := NewVolumeProfile(1)

	p.Update(4500, 100)
	p.Update(4501, 300)
	p.Update(4502, 50)

	poc, vol, ok := p.POC()
	if !ok || poc != 4501 {
		t.Fatalf("POC=%v, want 4501", poc)
	}
	if vol != 300 {
		t.Fatalf("POC 成交量=%v, want 300", vol)
	}

	if nt := p.NodeAt(4501); nt != NodePOC {
		t.Fatalf("NodeAt(4501)=%s, want poc", nt)
	}
	if nt := p.NodeAt(4502); nt != NodeLowVolume {
		t.Fatalf("NodeAt(4502)=%s, want lvn（50/300 ≤ 20%%）", nt)
	}
}

func TestVolumeProfile_ValueArea_FlatDistribution(t *testing.T) {
	p := NewVolumeProfile(1)

	// 平坦分布：100 个价位，每个 100
	for i := 0; i < 100; i++ {
		p.Update(4500+float64(i), 100)
	}

	va, ok := p.ComputeValueArea(0.70)
	if !ok {
		t.Fatalf("非空分布应返回价值区间")
	}
	if va.VolumePct < 0.60 {
		t.Fatalf("平坦分布的价值区间覆盖=%v, want ≥ 0.60", va.VolumePct)
	}
	if va.Low > va.High {
		t.Fatalf("价值区间下沿 %v 不应大于上沿 %v", va.Low, va.High)
	}
}

func TestCVD_ExtremeAndDivergence(t *testing.T) {
	c := NewCVD(10)

	c.Update(4500, 100, model.SideBuy, 1)
	c.Update(4501, 20, model.SideSell, 2)

	if got := c.Value(); got != 80 {
		t.Fatalf("CVD=%v, want 80", got)
	}
	if got := c.TotalVolume(); got != 120 {
		t.Fatalf("TotalVolume=%v, want 120", got)
	}
	if !c.IsExtreme(0.5) {
		t.Fatalf("80/120 > 50%% 应判定为极端")
	}
	if c.IsExtreme(0.9) {
		t.Fatalf("80/120 < 90%% 不应判定为极端")
	}

	// 价格走高而 CVD 走低 → 空头背离
	c2 := NewCVD(10)
	c2.Update(4500, 10, model.SideBuy, 1)
	c2.Update(4501, 30, model.SideSell, 2)
	c2.Update(4502, 30, model.SideSell, 3)
	if got := c2.Divergence(3); got != DivergenceBearish {
		t.Fatalf("Divergence=%s, want bearish", got)
	}

	// 快照不足时返回 none
	c3 := NewCVD(10)
	c3.Update(4500, 10, model.SideBuy, 1)
	if got := c3.Divergence(5); got != DivergenceNone {
		t.Fatalf("快照不足应返回 none，got %s", got)
	}
}
