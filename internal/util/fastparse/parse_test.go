package fastparse

import "testing"

func TestParseFloat(t *testing.T) {
	v, err := ParseFloat("64231.25")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if v != 64231.25 {
		t.Fatalf("解析结果=%v, want 64231.25", v)
	}

	if _, err := ParseFloat("not-a-number"); err == nil {
		t.Fatal("非法输入应返回错误")
	}
}
