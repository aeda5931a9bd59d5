// Command backtestcore wires the replay pipeline, strategy engine, and a
// handful of breakout strategies together end to end. It takes no flags;
// it exists so every package in this module has a real entrypoint to be
// exercised from, the same role the upstream project's many cmd/*
// directories play for its own subsystems.
package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/ashft/internal/hft/engine"
	"github.com/abdoElHodaky/ashft/internal/hft/events"
	"github.com/abdoElHodaky/ashft/internal/hft/signal"
	"github.com/abdoElHodaky/ashft/internal/hft/strategies"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	metrics := engine.NewMetrics(prometheus.NewRegistry())
	eng := engine.New(logger, metrics)

	ctx := signal.NewMetricsContext(
		signal.NewCircuitBreakerContext(signal.NewBacktestContext(logger), logger),
		metrics.SignalsEmitted,
	)

	eng.AddStrategy("600519.SH", strategies.NewPercentageGainBreakoutStrategy(logger, ctx))
	eng.AddStrategy("300750.SZ", strategies.NewGapUpBreakoutStrategy(logger, ctx))
	eng.AddStrategy("601318.SH", strategies.NewConsolidationBreakoutStrategy(logger, ctx, 0.02))

	hot := strategies.NewHotHenggouStrategy(logger, ctx)
	eng.AddStrategy("688111.SH", hot)

	// Demonstrates the broadcast control path: every strategy on this
	// symbol whose StrategyTypeID matches 2 (percentage-gain) is paused
	// without needing to know its registered name.
	eng.BroadcastControl("600519.SH", engine.ControlMessage{Type: engine.ControlDisable, TargetTypeID: 2})

	replayer, err := events.NewReplayer(logger, 8)
	if err != nil {
		logger.Fatal("failed to start replayer", zap.Error(err))
	}
	defer replayer.Release()

	// A real run loads events from an upstream source; this entrypoint
	// demonstrates wiring with an empty batch.
	replayer.Replay(nil, eng)
	eng.Shutdown()
}
