// Package fastparse 解析行情消息中以字符串编码的数值字段。
// 热路径上直接走 strconv，不经过 fmt。
package fastparse

import "strconv"

// ParseFloat 解析十进制浮点数字符串，如 "64231.25"
// 参数 s: 待解析的字符串
// 返回: 解析结果与可能的错误
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
