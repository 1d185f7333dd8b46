// Package timeutil 提供流水线统一的纳秒时间源。
package timeutil

import "time"

var (
	// base 进程启动时刻（携带单调时钟读数）
	base = time.Now()
	// baseNs 启动时刻的 Unix 纳秒
	baseNs = base.UnixNano()
)

// NowNano 当前 Unix 纳秒时间戳
// 由启动时刻加单调时钟偏移构成，系统时钟跳变（NTP 校正、手动
// 调整）不会让事件间的时间差倒退。
// 返回: 当前时间的 Unix 纳秒时间戳
func NowNano() int64 {
	return baseNs + time.Since(base).Nanoseconds()
}

// NanoToTime 将纳秒时间戳还原为 time.Time
// 参数 ns: Unix 纳秒时间戳
// 返回: 对应的 time.Time
func NanoToTime(ns int64) time.Time {
	return time.Unix(0, ns)
}
