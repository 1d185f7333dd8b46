// Package decision 实现信号到交易决策的外部决策边界。
package decision

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"orderflow-signal-engine/internal/core/model"
)

// Provider 决策提供方
// 可以是内置规则集，也可以是外部进程/服务的适配器。
type Provider interface {
	// Decide 对合格信号给出决策
	// 实现必须尊重 ctx 超时，内部的搜索/精化循环次数不得超过
	// IterationBudget(ctx)；返回错误时边界回退为 skip。
	Decide(ctx context.Context, sig *model.Signal) (*model.Decision, error)
}

// BoundaryConfig 决策边界配置
type BoundaryConfig struct {
	// Timeout 单次决策超时
	Timeout time.Duration
	// MaxConsecutiveFaults 连续故障熔断阈值
	// 连续故障达到阈值后不再调用提供方，直接回退 skip；成功一次后恢复。
	MaxConsecutiveFaults int
	// MaxIterations 单次决策允许的提供方内部迭代上限
	// 超时是时间侧的护栏，迭代预算是工作量侧的硬上限。
	MaxIterations int
}

// setDefaults 填充零值配置项
func (c *BoundaryConfig) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 500 * time.Millisecond
	}
	if c.MaxConsecutiveFaults <= 0 {
		c.MaxConsecutiveFaults = 5
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 8
	}
}

// iterationBudgetKey 迭代预算的上下文键
type iterationBudgetKey struct{}

// WithIterationBudget 在上下文中携带迭代预算
func WithIterationBudget(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, iterationBudgetKey{}, n)
}

// IterationBudget 读取上下文中的迭代预算
// 返回: 预算次数；未设置时为 0。
func IterationBudget(ctx context.Context) int {
	n, _ := ctx.Value(iterationBudgetKey{}).(int)
	return n
}

// Boundary 决策边界
// 包装决策提供方，保证任何故障（超时、错误、panic、非法输出）
// 都退化为保守的 skip 决策，绝不让故障进入下单路径。
type Boundary struct {
	cfg      BoundaryConfig
	provider Provider
	logger   *zap.Logger

	mu     sync.Mutex
	faults int
}

// NewBoundary 创建决策边界
func NewBoundary(cfg BoundaryConfig, provider Provider, logger *zap.Logger) *Boundary {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Boundary{cfg: cfg, provider: provider, logger: logger}
}

// Decide 对合格信号给出决策
// 永不返回 nil：任何故障路径都返回 skip 决策。
func (b *Boundary) Decide(ctx context.Context, sig *model.Signal) *model.Decision {
	if sig == nil {
		return model.SkipDecision("信号为空")
	}
	if b.provider == nil {
		return model.SkipDecision("未配置决策提供方")
	}

	// 熔断：连续故障后不再打扰提供方
	b.mu.Lock()
	if b.faults >= b.cfg.MaxConsecutiveFaults {
		b.mu.Unlock()
		return model.SkipDecision(fmt.Sprintf("决策提供方连续 %d 次故障，已熔断", b.cfg.MaxConsecutiveFaults))
	}
	b.mu.Unlock()

	dec, err := b.decideWithTimeout(ctx, sig)
	if err != nil {
		b.recordFault(sig, err)
		return model.SkipDecision(fmt.Sprintf("决策故障: %v", err))
	}
	if dec == nil {
		b.recordFault(sig, fmt.Errorf("提供方返回空决策"))
		return model.SkipDecision("提供方返回空决策")
	}
	if err := dec.Validate(); err != nil {
		b.recordFault(sig, err)
		return model.SkipDecision(fmt.Sprintf("决策非法: %v", err))
	}

	b.mu.Lock()
	b.faults = 0
	b.mu.Unlock()
	return dec
}

// decideWithTimeout 在独立协程中调用提供方，吸收 panic 与超时
func (b *Boundary) decideWithTimeout(ctx context.Context, sig *model.Signal) (*model.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	ctx = WithIterationBudget(ctx, b.cfg.MaxIterations)

	type result struct {
		dec *model.Decision
		err error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("提供方 panic: %v", r)}
			}
		}()
		dec, err := b.provider.Decide(ctx, sig)
		ch <- result{dec: dec, err: err}
	}()

	select {
	case r := <-ch:
		return r.dec, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("决策超时(%s): %w", b.cfg.Timeout, ctx.Err())
	}
}

// recordFault 累计故障计数并记录日志
func (b *Boundary) recordFault(sig *model.Signal, err error) {
	b.mu.Lock()
	b.faults++
	faults := b.faults
	b.mu.Unlock()

	b.logger.Warn("决策边界故障，回退 skip",
		zap.String("signal_id", sig.ID),
		zap.String("kind", string(sig.Kind)),
		zap.Int("consecutive_faults", faults),
		zap.Error(err))
}

// Faults 当前连续故障计数（监控用）
func (b *Boundary) Faults() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.faults
}
