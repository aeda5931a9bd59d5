// Package signal defines the trade-signal sink contract strategies emit
// buy signals through, decoupling the strategy state machines from how
// (or whether) a signal actually reaches an execution venue.
package signal

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
)

// TradeSignal is the buy (or sell) instruction a strategy state machine
// emits on breakout.
type TradeSignal struct {
	ID            string // ksuid, k-sortable by emission time
	Symbol        string
	Side          book.Side
	Price         book.PriceTick
	Quantity      uint64
	TriggerMDTime int32
	StrategyName  string
	StrategyType  uint8
}

// NewTradeSignal stamps a fresh ksuid onto a signal.
func NewTradeSignal(symbol string, side book.Side, price book.PriceTick, qty uint64, triggerMDTime int32, strategyName string, strategyType uint8) TradeSignal {
	return TradeSignal{
		ID:            ksuid.New().String(),
		Symbol:        symbol,
		Side:          side,
		Price:         price,
		Quantity:      qty,
		TriggerMDTime: triggerMDTime,
		StrategyName:  strategyName,
		StrategyType:  strategyType,
	}
}

// Context is the external collaborator a strategy hands its signals to.
// It performs no retry, confirmation, or coalescing: a single best-effort
// attempt per signal.
type Context interface {
	PlaceOrder(sig TradeSignal) error
}

// BacktestContext only logs signals; it never reaches an external venue.
type BacktestContext struct {
	logger *zap.Logger
	Placed []TradeSignal
}

// NewBacktestContext builds a log-only sink suitable for replay runs.
func NewBacktestContext(logger *zap.Logger) *BacktestContext {
	return &BacktestContext{logger: logger}
}

func (c *BacktestContext) PlaceOrder(sig TradeSignal) error {
	c.Placed = append(c.Placed, sig)
	c.logger.Info("signal placed (backtest)",
		zap.String("id", sig.ID),
		zap.String("symbol", sig.Symbol),
		zap.String("side", sig.Side.String()),
		zap.Uint32("price", sig.Price),
		zap.Uint64("qty", sig.Quantity),
		zap.String("strategy", sig.StrategyName))
	return nil
}

// CircuitBreakerContext wraps another Context with a gobreaker circuit
// breaker, so a downstream sink that keeps returning errors trips open
// and later signals fail fast without calling it. A call that blocks is
// not interrupted and is not counted until it returns.
type CircuitBreakerContext struct {
	inner   Context
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewCircuitBreakerContext wraps inner with breaker defaults tuned for a
// signal sink: trip once at least 10 requests have been counted and half
// or more of them failed (with Interval 0 the counts accumulate for as
// long as the breaker stays closed), half-open retry after 30s.
func NewCircuitBreakerContext(inner Context, logger *zap.Logger) *CircuitBreakerContext {
	settings := gobreaker.Settings{
		Name:        "signal-sink",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("signal sink circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &CircuitBreakerContext{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (c *CircuitBreakerContext) PlaceOrder(sig TradeSignal) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.inner.PlaceOrder(sig)
	})
	if err != nil {
		return fmt.Errorf("signal sink: %w", err)
	}
	return nil
}

// MetricsContext wraps another Context, incrementing a Prometheus
// counter (labeled by strategy name) on every signal the inner context
// accepts without error.
type MetricsContext struct {
	inner   Context
	emitted *prometheus.CounterVec
}

// NewMetricsContext wraps inner, recording into emitted (typically
// engine.Metrics.SignalsEmitted). emitted may be nil to skip recording.
func NewMetricsContext(inner Context, emitted *prometheus.CounterVec) *MetricsContext {
	return &MetricsContext{inner: inner, emitted: emitted}
}

func (c *MetricsContext) PlaceOrder(sig TradeSignal) error {
	err := c.inner.PlaceOrder(sig)
	if err == nil && c.emitted != nil {
		c.emitted.WithLabelValues(sig.StrategyName).Inc()
	}
	return err
}
