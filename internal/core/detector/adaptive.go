// Package detector 实现订单流形态检测器。
// 每个检测器持有私有滚动状态，由事件流水线单 goroutine 串行更新；
// 对外仅暴露只读快照查询，供评分引擎消费。
package detector

// rollingHistory 有界滚动观测历史（环形缓冲）
// 用于自适应阈值：阈值 = max(基线, 3 × 滚动均值)。
type rollingHistory struct {
	// buf 环形缓冲
	buf []float64
	// pos 写入位置
	pos int
	// full 是否已填满
	full bool
	// sum 缓冲内观测之和（O(1) 更新）
	sum float64
}

// newRollingHistory 创建滚动历史
// 参数 size: 窗口大小（建议 100）
func newRollingHistory(size int) *rollingHistory {
	if size <= 0 {
		size = 100
	}
	return &rollingHistory{buf: make([]float64, size)}
}

// add 记录一个观测
func (h *rollingHistory) add(v float64) {
	if h.full {
		h.sum -= h.buf[h.pos]
	}
	h.buf[h.pos] = v
	h.sum += v
	h.pos++
	if h.pos >= len(h.buf) {
		h.pos = 0
		h.full = true
	}
}

// count 获取当前观测数
func (h *rollingHistory) count() int {
	if h.full {
		return len(h.buf)
	}
	return h.pos
}

// average 获取滚动均值
// 无观测时返回 0。
func (h *rollingHistory) average() float64 {
	n := h.count()
	if n == 0 {
		return 0
	}
	return h.sum / float64(n)
}

// adaptiveThreshold 自适应阈值
// 当前阈值 = max(baseline, multiplier × 滚动均值)。
type adaptiveThreshold struct {
	// baseline 基线阈值（配置最小值）
	baseline float64
	// multiplier 均值倍数（固定取 3）
	multiplier float64
	// hist 观测历史
	hist *rollingHistory
}

// newAdaptiveThreshold 创建自适应阈值
func newAdaptiveThreshold(baseline float64, windowSize int) *adaptiveThreshold {
	return &adaptiveThreshold{
		baseline:   baseline,
		multiplier: 3,
		hist:       newRollingHistory(windowSize),
	}
}

// observe 记录一个观测
func (t *adaptiveThreshold) observe(v float64) {
	t.hist.add(v)
}

// current 获取当前阈值
func (t *adaptiveThreshold) current() float64 {
	adaptive := t.multiplier * t.hist.average()
	if adaptive > t.baseline {
		return adaptive
	}
	return t.baseline
}
