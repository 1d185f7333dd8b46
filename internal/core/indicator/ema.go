// Package indicator 实现滚动技术指标计算器。
package indicator

// EMA 指数移动平均计算器
// 平滑系数 multiplier = 2 / (period + 1)。
// 在观测到 period 个样本之前报告未初始化。
type EMA struct {
	// period 周期
	period int
	// multiplier 平滑系数
	multiplier float64
	// value 当前 EMA 值
	value float64
	// count 已观测样本数
	count int
}

// NewEMA 创建 EMA 计算器
// 参数 period: 周期（≥1）
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

// Update 记录一个样本
func (e *EMA) Update(v float64) {
	e.count++
	if e.count == 1 {
		e.value = v
		return
	}
	e.value = (v-e.value)*e.multiplier + e.value
}

// Value 获取当前 EMA 值
// 返回: 值与是否已初始化（观测样本数 ≥ period）
func (e *EMA) Value() (float64, bool) {
	return e.value, e.Ready()
}

// Ready 判断是否已初始化
// 第 period 个样本起视为已初始化。
func (e *EMA) Ready() bool {
	return e.count >= e.period
}

// Period 获取周期
func (e *EMA) Period() int { return e.period }
