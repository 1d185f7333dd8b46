package timeutil

import (
	"testing"
	"time"
)

func TestNowNano_Monotonic(t *testing.T) {
	a := NowNano()
	b := NowNano()
	if b < a {
		t.Fatalf("时间戳倒退: %d -> %d", a, b)
	}
	if diff := time.Now().UnixNano() - b; diff < -int64(time.Second) || diff > int64(time.Second) {
		t.Fatalf("与系统时钟偏差过大: %dns", diff)
	}
}

func TestNanoToTime(t *testing.T) {
	ns := int64(1_700_000_000_123_456_789)
	if got := NanoToTime(ns).UnixNano(); got != ns {
		t.Fatalf("还原时间戳=%d, want %d", got, ns)
	}
}
