// Package telemetry 留痕模块测试
package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJournal_WriteReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := NewJournal(path, 10)
	if err != nil {
		t.Fatalf("创建留痕写入器失败: %v", err)
	}

	recs := []SignalRecord{
		{Type: "signal", SignalID: "a", Kind: "iceberg", Direction: "long", Price: 4500, Score: 80, Threshold: 70},
		{Type: "signal", SignalID: "b", Kind: "stop_hunt", Direction: "short", Price: 4510, Score: 92, Threshold: 70},
	}
	for _, r := range recs {
		if err := j.Append(r); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("打开留痕文件失败: %v", err)
	}
	defer f.Close()

	var got []SignalRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r SignalRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("解析留痕行失败: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("留痕行数期望 2, 实际 %d", len(got))
	}
	if got[0].SignalID != "a" || got[1].SignalID != "b" {
		t.Fatalf("留痕顺序错误: %+v", got)
	}
	if got[1].Kind != "stop_hunt" || got[1].Price != 4510 {
		t.Fatalf("留痕字段错误: %+v", got[1])
	}
}

func TestJournal_AppendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := NewJournal(path, 10)
	if err != nil {
		t.Fatalf("创建留痕写入器失败: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}
	if err := j.Append(SignalRecord{SignalID: "x"}); err == nil {
		t.Fatal("关闭后写入应返回错误")
	}
	// 重复关闭为空操作
	if err := j.Close(); err != nil {
		t.Fatalf("重复关闭应返回首次结果: %v", err)
	}
}

func TestJournal_RequiredFields(t *testing.T) {
	// 仓位留痕必含核心字段
	b, err := json.Marshal(PositionRecord{
		Type:       "exit",
		PositionID: "p1",
		Direction:  "long",
		Quantity:   2,
		EntryPrice: 4500,
		OpenedAtNs: 1,
	})
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	for _, k := range []string{"type", "position_id", "direction", "quantity", "entry_price", "opened_at_ns"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("仓位留痕缺少字段 %q", k)
		}
	}
}
