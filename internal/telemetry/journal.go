// Package telemetry 实现生命周期事件的日志与 JSONL 留痕。
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"orderflow-signal-engine/internal/core/model"
)

// SignalRecord 信号留痕记录
type SignalRecord struct {
	Type         string              `json:"type"`
	SignalID     string              `json:"signal_id"`
	Kind         string              `json:"kind"`
	Direction    string              `json:"direction"`
	Price        float64             `json:"price"`
	Score        float64             `json:"score"`
	Threshold    float64             `json:"threshold"`
	Breakdown    []model.ScoreFactor `json:"breakdown,omitempty"`
	Detail       string              `json:"detail,omitempty"`
	DetectedAtNs int64               `json:"detected_at_ns"`
}

// DecisionRecord 决策留痕记录
type DecisionRecord struct {
	Type       string  `json:"type"`
	SignalID   string  `json:"signal_id"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Style      string  `json:"style,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	Reason     string  `json:"reason"`
}

// PositionRecord 仓位留痕记录
type PositionRecord struct {
	Type        string  `json:"type"`
	PositionID  string  `json:"position_id"`
	SignalID    string  `json:"signal_id,omitempty"`
	Direction   string  `json:"direction"`
	Quantity    int     `json:"quantity"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price,omitempty"`
	ExitReason  string  `json:"exit_reason,omitempty"`
	RealizedPnL float64 `json:"realized_pnl,omitempty"`
	OpenedAtNs  int64   `json:"opened_at_ns"`
	ClosedAtNs  int64   `json:"closed_at_ns,omitempty"`
}

type journalOpType int

const (
	journalWrite journalOpType = iota
	journalFlush
	journalClose
)

type journalOp struct {
	typ  journalOpType
	val  any
	done chan error
}

// Journal 异步 JSONL 留痕写入器
// Append 只负责投递，实际 JSON 编码与文件 I/O 在后台 goroutine 完成，
// 不阻塞事件线程。
type Journal struct {
	// path 输出文件路径
	path string
	// ch 操作通道
	ch chan journalOp

	closeOnce sync.Once
	closeErr  error
	closed    int32

	sendMu sync.Mutex

	wg sync.WaitGroup
}

// NewJournal 创建留痕写入器
// 参数 path: 输出文件路径
// 参数 bufferSize: 写入缓冲区大小（channel capacity）
func NewJournal(path string, bufferSize int) (*Journal, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建留痕目录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开留痕文件失败: %w", err)
	}

	j := &Journal{
		path: path,
		ch:   make(chan journalOp, bufferSize),
	}

	j.wg.Add(1)
	go j.loop(f)

	return j, nil
}

// Append 异步写入一条留痕记录
func (j *Journal) Append(v any) error {
	if j == nil {
		return fmt.Errorf("journal 为空")
	}
	if atomic.LoadInt32(&j.closed) == 1 {
		return fmt.Errorf("journal 已关闭")
	}
	j.sendMu.Lock()
	defer j.sendMu.Unlock()
	if atomic.LoadInt32(&j.closed) == 1 {
		return fmt.Errorf("journal 已关闭")
	}
	j.ch <- journalOp{typ: journalWrite, val: v}
	return nil
}

// Flush 同步刷盘
func (j *Journal) Flush() error {
	if j == nil || atomic.LoadInt32(&j.closed) == 1 {
		return fmt.Errorf("journal 已关闭")
	}
	done := make(chan error, 1)
	j.sendMu.Lock()
	if atomic.LoadInt32(&j.closed) == 1 {
		j.sendMu.Unlock()
		return fmt.Errorf("journal 已关闭")
	}
	j.ch <- journalOp{typ: journalFlush, done: done}
	j.sendMu.Unlock()
	return <-done
}

// Close 关闭写入器并等待全部记录落盘
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		done := make(chan error, 1)
		j.sendMu.Lock()
		atomic.StoreInt32(&j.closed, 1)
		j.ch <- journalOp{typ: journalClose, done: done}
		j.sendMu.Unlock()
		j.closeErr = <-done
		j.wg.Wait()
	})
	return j.closeErr
}

func (j *Journal) loop(f *os.File) {
	defer j.wg.Done()

	w := bufio.NewWriterSize(f, 64*1024)
	enc := json.NewEncoder(w)

	for op := range j.ch {
		switch op.typ {
		case journalWrite:
			// 编码失败丢弃该条，不中断后续写入
			_ = enc.Encode(op.val)
		case journalFlush:
			op.done <- w.Flush()
		case journalClose:
			ferr := w.Flush()
			cerr := f.Close()
			if ferr != nil {
				op.done <- ferr
			} else {
				op.done <- cerr
			}
			return
		}
	}
}
