// Package detector 冰山/幌骗/吸筹检测器测试
package detector

import (
	"testing"

	"orderflow-signal-engine/internal/core/model"
)

func TestIceberg_AdaptiveThresholdAndCooldown(t *testing.T) {
	d := NewIceberg(IcebergConfig{
		MinOrders:       5,
		MinSize:         50,
		QualifyFraction: 0.3,
		CooldownNs:      10_000_000_000,
		HistoryWindow:   100,
	})

	// 先用普通观察喂历史：单笔 1、总量 20 的常态价位
	for i := 0; i < 10; i++ {
		price := 4400.0 + float64(i)
		if det := d.OnOrderAdd(model.SideBuy, price, 20, 1, 20, int64(i)*1_000_000_000); det != nil {
			t.Fatalf("常态观察不应触发检测")
		}
	}

	// 突增价位：6 笔 / 总量 100，远超滚动均值的 3 倍
	now := int64(20_000_000_000)
	det := d.OnOrderAdd(model.SideBuy, 4500, 30, 6, 100, now)
	if det == nil {
		t.Fatalf("笔数与总量同时超过自适应阈值应触发检测")
	}
	if det.Direction != model.DirLong {
		t.Fatalf("买侧冰山方向=%s, want long", det.Direction)
	}
	if det.OrderCount != 6 || det.TotalSize != 100 {
		t.Fatalf("检测结果 count=%d size=%v, want 6/100", det.OrderCount, det.TotalSize)
	}

	// 冷却内同价位不应重复发出
	if det2 := d.OnOrderAdd(model.SideBuy, 4500, 30, 7, 110, now+1_000_000_000); det2 != nil {
		t.Fatalf("冷却窗口内不应重复检测")
	}
	if rem := d.CooldownRemaining(4500, now+1_000_000_000); rem <= 0 {
		t.Fatalf("冷却剩余时间=%d, want > 0", rem)
	}

	// 冷却过后允许再次发出
	if det3 := d.OnOrderAdd(model.SideBuy, 4500, 30, 8, 130, now+11_000_000_000); det3 == nil {
		t.Fatalf("冷却过后应允许再次检测")
	}
}

func TestIceberg_SmallAddsIgnored(t *testing.T) {
	d := NewIceberg(IcebergConfig{
		MinOrders:       5,
		MinSize:         100,
		QualifyFraction: 0.3,
		HistoryWindow:   100,
	})

	// 低于 0.3×阈值的挂单不开启观察
	if det := d.OnOrderAdd(model.SideBuy, 4500, 10, 100, 10000, 1); det != nil {
		t.Fatalf("未达观察门槛的挂单不应触发检测")
	}
}

func TestSpoof_LargeCancelWithoutFill(t *testing.T) {
	d := NewSpoof(SpoofConfig{MinSize: 100, MaxAgeNs: 5_000_000_000})

	d.OnOrderAdd(1, model.SideBuy, 4500, 150, 0)
	det := d.OnOrderCancel(1, 1_000_000_000)
	if det == nil {
		t.Fatalf("年龄窗口内无成交撤单应触发幌骗检测")
	}
	if det.Direction != model.DirShort {
		t.Fatalf("买侧幌骗方向=%s, want short（假支撑撤销）", det.Direction)
	}
	if det.Size != 150 {
		t.Fatalf("检测 Size=%v, want 150", det.Size)
	}
}

func TestSpoof_TouchedOrAgedNotFlagged(t *testing.T) {
	d := NewSpoof(SpoofConfig{MinSize: 100, MaxAgeNs: 5_000_000_000})

	// 有成交触及的撤单不是幌骗
	d.OnOrderAdd(1, model.SideSell, 4501, 200, 0)
	d.OnTrade(4501)
	if det := d.OnOrderCancel(1, 1_000_000_000); det != nil {
		t.Fatalf("价位有成交的撤单不应视为幌骗")
	}

	// 超过年龄窗口的撤单不是幌骗
	d.OnOrderAdd(2, model.SideSell, 4502, 200, 0)
	if det := d.OnOrderCancel(2, 6_000_000_000); det != nil {
		t.Fatalf("超过年龄窗口的撤单不应视为幌骗")
	}

	// 小单不跟踪
	d.OnOrderAdd(3, model.SideBuy, 4500, 50, 0)
	if got := d.TrackedCount(); got != 0 {
		t.Fatalf("TrackedCount=%d, want 0", got)
	}
}

func TestAbsorption_ConfirmAndBreak(t *testing.T) {
	cfg := AbsorptionConfig{
		MinSize:        50,
		Multiple:       5,
		ConfirmNs:      3_000_000_000,
		BreakTolerance: 1,
		CooldownNs:     10_000_000_000,
		AvgWindow:      100,
	}
	d := NewAbsorption(cfg)

	// 喂平均成交量：10 手 × 10 笔
	for i := 0; i < 10; i++ {
		d.OnTrade(4500, 10, model.SideBuy, int64(i)*100_000_000)
	}

	// 大额主动卖单 100 手（≥ 5×10）进入候选
	d.OnTrade(4500, 100, model.SideSell, 2_000_000_000)
	if got := d.PendingCount(); got != 1 {
		t.Fatalf("PendingCount=%d, want 1", got)
	}

	// 确认窗口内价格未下穿 → 确认吸筹
	out := d.OnTrade(4500, 10, model.SideBuy, 6_000_000_000)
	if len(out) != 1 {
		t.Fatalf("确认窗口到期且未穿越应确认吸筹，got %d", len(out))
	}
	if out[0].Direction != model.DirLong {
		t.Fatalf("主动卖被吸收方向=%s, want long", out[0].Direction)
	}

	// 第二个候选被价格下穿作废
	d2 := NewAbsorption(cfg)
	for i := 0; i < 10; i++ {
		d2.OnTrade(4500, 10, model.SideBuy, int64(i)*100_000_000)
	}
	d2.OnTrade(4500, 100, model.SideSell, 2_000_000_000)
	d2.OnTrade(4497, 10, model.SideSell, 2_500_000_000) // 下穿超出容差
	out2 := d2.OnTrade(4497, 10, model.SideSell, 6_000_000_000)
	if len(out2) != 0 {
		t.Fatalf("价格穿越的候选不应确认，got %d", len(out2))
	}
}
