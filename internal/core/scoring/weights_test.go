// Package scoring 权重表测试
package scoring

import (
	"testing"
)

func TestWeightTable_Defaults(t *testing.T) {
	tbl := NewWeightTable()

	v, err := tbl.Get(WeightIcebergMax)
	if err != nil {
		t.Fatalf("读取默认权重失败: %v", err)
	}
	if v != 20 {
		t.Fatalf("iceberg_max 默认值期望 20, 实际 %v", v)
	}

	if len(tbl.Names()) != 17 {
		t.Fatalf("权重数量期望 17, 实际 %d", len(tbl.Names()))
	}
}

func TestWeightTable_UnknownName(t *testing.T) {
	tbl := NewWeightTable()

	if _, err := tbl.Get("no_such_weight"); err == nil {
		t.Fatal("未知权重名称应返回错误")
	}
	if err := tbl.Set("no_such_weight", 1); err == nil {
		t.Fatal("写入未知权重名称应返回错误")
	}
}

func TestWeightTable_SetClamps(t *testing.T) {
	tbl := NewWeightTable()

	// 越上界钳制到 max
	if err := tbl.Set(WeightCVDAlign, 9999); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	if v, _ := tbl.Get(WeightCVDAlign); v != 30 {
		t.Fatalf("越上界写入应钳制到 30, 实际 %v", v)
	}

	// 越下界钳制到 min
	if err := tbl.Set(WeightCVDAlign, -50); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	if v, _ := tbl.Get(WeightCVDAlign); v != 0 {
		t.Fatalf("越下界写入应钳制到 0, 实际 %v", v)
	}
}

func TestWeightTable_ApplyAtomic(t *testing.T) {
	tbl := NewWeightTable()

	// 含未知名称的批量导入应整体失败，已有值不变
	err := tbl.Apply(map[string]float64{
		WeightCVDAlign: 20,
		"bogus_weight": 5,
	})
	if err == nil {
		t.Fatal("含未知名称的批量导入应返回错误")
	}
	if v, _ := tbl.Get(WeightCVDAlign); v != 15 {
		t.Fatalf("失败的批量导入不应修改任何值, cvd_align 实际 %v", v)
	}

	// 合法批量导入生效
	if err := tbl.Apply(map[string]float64{WeightCVDAlign: 20, WeightVWAPAlign: 10}); err != nil {
		t.Fatalf("合法批量导入失败: %v", err)
	}
	if v, _ := tbl.Get(WeightCVDAlign); v != 20 {
		t.Fatalf("批量导入后 cvd_align 期望 20, 实际 %v", v)
	}
}

func TestWeightTable_ExportImportReset(t *testing.T) {
	tbl := NewWeightTable()
	tbl.Set(WeightTimeOfDay, 9)

	snap := tbl.Export()
	if snap[WeightTimeOfDay] != 9 {
		t.Fatalf("导出快照 time_of_day 期望 9, 实际 %v", snap[WeightTimeOfDay])
	}

	tbl.Reset()
	if v, _ := tbl.Get(WeightTimeOfDay); v != 5 {
		t.Fatalf("重置后 time_of_day 期望默认值 5, 实际 %v", v)
	}

	if err := tbl.Import(snap); err != nil {
		t.Fatalf("导入快照失败: %v", err)
	}
	if v, _ := tbl.Get(WeightTimeOfDay); v != 9 {
		t.Fatalf("导入快照后 time_of_day 期望 9, 实际 %v", v)
	}
}

func TestWeightTable_MaxPossibleScore(t *testing.T) {
	tbl := NewWeightTable()

	// 默认正向权重上限之和: 40+30+20+20+20+30+15+20... 此处只验证单调性与正值
	base := tbl.MaxPossibleScore()
	if base <= 0 {
		t.Fatalf("最大可能得分应为正, 实际 %v", base)
	}

	// 降低一个正向权重的值不改变上限之和
	tbl.Set(WeightCVDAlign, 5)
	if got := tbl.MaxPossibleScore(); got != base {
		t.Fatalf("最大可能得分依据边界而非当前值, 期望 %v, 实际 %v", base, got)
	}
}
