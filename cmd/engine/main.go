// Package main 是订单流信号引擎的入口点。
// 引擎消费 Bitstamp 的逐单订单簿与成交流，运行冰山/幌骗/吸筹/扫损
// 等形态检测，合流评分后经决策边界转化为影子仓位并管理其生命周期。
//
// 重要：本系统仅用于研究/验证，严禁真实下单。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"orderflow-signal-engine/internal/config"
	"orderflow-signal-engine/internal/core/flow"
	"orderflow-signal-engine/internal/core/lifecycle"
	"orderflow-signal-engine/internal/core/scoring"
	"orderflow-signal-engine/internal/decision"
	"orderflow-signal-engine/internal/exchange/bitstamp"
	"orderflow-signal-engine/internal/exchange/paper"
	"orderflow-signal-engine/internal/stats/session"
	"orderflow-signal-engine/internal/telemetry"
	"orderflow-signal-engine/internal/util/timeutil"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	// 留痕文件（路径为空则仅打日志）
	var journal *telemetry.Journal
	if cfg.Telemetry.JournalPath != "" {
		journal, err = telemetry.NewJournal(cfg.Telemetry.JournalPath, cfg.Telemetry.BufferSize)
		if err != nil {
			logger.Error("创建留痕文件失败", zap.Error(err))
			os.Exit(1)
		}
	}
	sink := telemetry.NewSink(logger, journal)

	// 权重表 + 配置覆盖
	weights := scoring.NewWeightTable()
	if len(cfg.Scoring.Weights) > 0 {
		if err := weights.Apply(cfg.Scoring.Weights); err != nil {
			logger.Error("应用权重覆盖失败", zap.Error(err))
			os.Exit(1)
		}
	}
	engine := scoring.NewEngine(weights, cfg.Scoring.Threshold)

	boundary := decision.NewBoundary(decision.BoundaryConfig{
		Timeout:              time.Duration(cfg.Decision.TimeoutMs) * time.Millisecond,
		MaxConsecutiveFaults: cfg.Decision.MaxConsecutiveFaults,
		MaxIterations:        cfg.Decision.MaxIterations,
	}, decision.NewRuleset(decision.RulesetConfig{
		RewardRatio: cfg.Decision.RewardRatio,
		ATRMultiple: cfg.Decision.ATRMultiple,
	}), logger)

	tracker := session.NewTracker(cfg.Risk.DailyLossLimit)
	exec := paper.NewExecutor(cfg.Risk.AccountBalance, logger)
	manager := lifecycle.NewManager(lifecycle.ManagerConfig{
		MaxPositions:     cfg.Risk.MaxPositions,
		MaxContracts:     cfg.Risk.MaxContracts,
		AccountRisk:      cfg.Risk.AccountRisk,
		RiskPercent:      cfg.Risk.RiskPercent,
		PointValue:       cfg.Instrument.PointValue,
		SignalMaxAgeNs:   int64(cfg.Risk.SignalMaxAgeMs) * 1_000_000,
		MaxSlippage:      cfg.Risk.MaxSlippage,
		BreakEvenTrigger: cfg.Risk.BreakEvenTrigger,
		BreakEvenOffset:  cfg.Risk.BreakEvenOffset,
		TrailingDistance: cfg.Risk.TrailingDistance,
	}, exec, tracker, sink)

	hub := flow.NewHub(cfg, engine, boundary, manager, tracker, sink, logger)

	client := bitstamp.NewClient(&cfg.Feed, logger)
	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	defer startCancel()
	if err := client.Connect(startCtx); err != nil {
		logger.Error("Bitstamp 连接失败", zap.Error(err))
		os.Exit(1)
	}
	if err := client.Subscribe(); err != nil {
		logger.Error("Bitstamp 订阅失败", zap.Error(err))
		os.Exit(1)
	}
	go client.Run(ctx)

	logger.Info("引擎已启动",
		zap.String("pair", cfg.Feed.Pair),
		zap.Float64("threshold", engine.Threshold()))

	runPipeline(ctx, logger, cfg, hub, client, tracker, manager)

	// 优雅关闭：撤掉挂单、按最新价平掉全部影子仓位、落盘留痕
	lastPrice := hub.Book().LastPrice()
	if lastPrice > 0 {
		manager.CloseAll(lastPrice, timeutil.NowNano())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Close()
		if journal != nil {
			_ = journal.Close()
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("关闭超时，强制退出")
	case <-done:
		logger.Info("关闭完成")
	}
}

// runPipeline 单 goroutine 串行消费行情事件并周期性输出会话统计
func runPipeline(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	hub *flow.Hub,
	client *bitstamp.Client,
	tracker *session.Tracker,
	manager *lifecycle.Manager,
) {
	eventCh := client.EventCh()

	statsTicker := time.NewTicker(time.Duration(cfg.App.StatsIntervalMs) * time.Millisecond)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			dispatch(hub, ev)

		case <-statsTicker.C:
			sum := tracker.Summarize()
			metrics := client.Metrics()
			logger.Info("会话统计",
				zap.String("day", sum.Day),
				zap.Int("trades", sum.Trades),
				zap.Int("wins", sum.Wins),
				zap.Int("losses", sum.Losses),
				zap.Float64("win_rate", sum.WinRate),
				zap.Float64("pnl", sum.PnL),
				zap.Int("active_positions", manager.Count()),
				zap.Float64("updates_per_sec", metrics.UpdatesPerSec),
				zap.Int64("reconnects", metrics.ReconnectCount),
				zap.Int64("parse_errors", metrics.ParseErrorCount))
			if sum.LossLimitHit {
				logger.Warn("已触及日亏损上限，今日不再进场",
					zap.Float64("pnl", sum.PnL))
			}
		}
	}
}

// dispatch 把行情事件映射到流水线回调
func dispatch(hub *flow.Hub, ev bitstamp.Event) {
	switch {
	case ev.OrderAdd != nil:
		hub.OnOrderAdd(ev.OrderAdd.OrderID, ev.OrderAdd.Side, ev.OrderAdd.Price, ev.OrderAdd.Size)
	case ev.OrderModify != nil:
		hub.OnOrderModify(ev.OrderModify.OrderID, ev.OrderModify.Price, ev.OrderModify.Size)
	case ev.OrderCancel != nil:
		hub.OnOrderCancel(ev.OrderCancel.OrderID)
	case ev.Trade != nil:
		hub.OnTrade(ev.Trade.Price, ev.Trade.Size, ev.Trade.Aggressor)
	case ev.BBO != nil:
		hub.OnBestBidOffer(ev.BBO.BidPrice, ev.BBO.AskPrice, ev.BBO.BidSize, ev.BBO.AskSize)
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
