// Package engine hosts the per-symbol strategy engine: one FastOrderBook
// and one worker goroutine per symbol, fed by a lazily-created queue that
// carries both market data and control-plane operations so ordering
// between "add strategy" and "the next trade" stays deterministic.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
	"github.com/abdoElHodaky/ashft/internal/hft/events"
)

type controlOp int

const (
	opAddStrategy controlOp = iota
	opRemoveStrategy
	opEnableStrategy
	opDisableStrategy
	opBroadcastControl
	opShutdown
)

type controlMessage struct {
	op            controlOp
	strategyName  string
	strategy      Strategy
	broadcast     *ControlMessage
	correlationID uuid.UUID
}

type message struct {
	ev   *events.Event
	ctrl *controlMessage
}

// sessionInfo is the per-symbol metadata cached across a trading date.
type sessionInfo struct {
	tradingDate int32
	minPrice    book.PriceTick
	maxPrice    book.PriceTick
}

type symbolWorker struct {
	symbol     string
	book       *book.FastOrderBook
	queue      chan message
	done       chan struct{}
	strategies map[string]Strategy
	enabled    map[string]bool
}

// StrategyEngine owns one symbolWorker per symbol seen so far, created
// lazily on first event.
type StrategyEngine struct {
	logger  *zap.Logger
	metrics *Metrics
	cache   *gocache.Cache

	mu      sync.RWMutex
	workers map[string]*symbolWorker

	queueSize   int
	diagLimiter *rate.Limiter
}

// New builds a StrategyEngine. metrics may be nil to disable metric
// collection.
func New(logger *zap.Logger, metrics *Metrics) *StrategyEngine {
	return &StrategyEngine{
		logger:      logger,
		metrics:     metrics,
		cache:       gocache.New(24*time.Hour, time.Hour),
		workers:     make(map[string]*symbolWorker),
		queueSize:   4096,
		diagLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

func (e *StrategyEngine) worker(symbol string) *symbolWorker {
	e.mu.RLock()
	w, ok := e.workers[symbol]
	e.mu.RUnlock()
	if ok {
		return w
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.workers[symbol]; ok {
		return w
	}
	w = &symbolWorker{
		symbol:     symbol,
		queue:      make(chan message, e.queueSize),
		done:       make(chan struct{}),
		strategies: make(map[string]Strategy),
		enabled:    make(map[string]bool),
	}
	e.workers[symbol] = w
	go e.runWorker(w)
	return w
}

// ensureBook lazily constructs the worker's book from the first snapshot
// it sees, resetting it (and its session cache entry) whenever the
// trading date advances.
func (e *StrategyEngine) ensureBook(w *symbolWorker, tradingDate int32, minPrice, maxPrice book.PriceTick) {
	cacheKey := "session:" + w.symbol
	cached, found := e.cache.Get(cacheKey)
	info, ok := cached.(sessionInfo)

	if w.book != nil && found && ok && info.tradingDate == tradingDate {
		return
	}

	w.book = book.NewFastOrderBook(w.symbol, e.logger, minPrice, maxPrice)
	e.cache.Set(cacheKey, sessionInfo{tradingDate: tradingDate, minPrice: minPrice, maxPrice: maxPrice}, gocache.DefaultExpiration)
}

// Dispatch implements events.Dispatcher: it routes ev to the event's
// symbol worker, creating the worker (and, for the first snapshot,
// its book) lazily.
func (e *StrategyEngine) Dispatch(ev *events.Event) {
	w := e.worker(ev.Symbol)
	select {
	case w.queue <- message{ev: ev}:
	case <-w.done:
	}
}

// AddStrategy enqueues a control-as-data "add" operation for symbol, so
// it is applied in order relative to concurrently queued market data
// rather than racing it via a separately-locked mutation.
func (e *StrategyEngine) AddStrategy(symbol string, s Strategy) {
	w := e.worker(symbol)
	w.queue <- message{ctrl: &controlMessage{op: opAddStrategy, strategyName: s.Name(), strategy: s, correlationID: uuid.New()}}
}

func (e *StrategyEngine) RemoveStrategy(symbol, name string) {
	w := e.worker(symbol)
	w.queue <- message{ctrl: &controlMessage{op: opRemoveStrategy, strategyName: name, correlationID: uuid.New()}}
}

// BroadcastControl enqueues msg as control-as-data for every strategy
// currently registered on symbol: each strategy whose StrategyTypeID
// matches msg.TargetTypeID receives OnControl, and the engine's own
// per-name enabled gate is flipped to match so callback dispatch stays
// consistent with what the strategy itself was just told.
func (e *StrategyEngine) BroadcastControl(symbol string, msg ControlMessage) {
	w := e.worker(symbol)
	w.queue <- message{ctrl: &controlMessage{op: opBroadcastControl, broadcast: &msg, correlationID: uuid.New()}}
}

func (e *StrategyEngine) SetStrategyEnabled(symbol, name string, enabled bool) {
	op := opDisableStrategy
	if enabled {
		op = opEnableStrategy
	}
	w := e.worker(symbol)
	w.queue <- message{ctrl: &controlMessage{op: op, strategyName: name, correlationID: uuid.New()}}
}

// Shutdown enqueues a sentinel shutdown message to every known symbol
// worker and waits for each to exit.
func (e *StrategyEngine) Shutdown() {
	e.mu.RLock()
	workers := make([]*symbolWorker, 0, len(e.workers))
	for _, w := range e.workers {
		workers = append(workers, w)
	}
	e.mu.RUnlock()

	for _, w := range workers {
		w.queue <- message{ctrl: &controlMessage{op: opShutdown}}
	}
	for _, w := range workers {
		<-w.done
	}
}

func (e *StrategyEngine) runWorker(w *symbolWorker) {
	defer close(w.done)
	for msg := range w.queue {
		if e.metrics != nil {
			e.metrics.QueueDepth.WithLabelValues(w.symbol).Set(float64(len(w.queue)))
		}
		if msg.ctrl != nil {
			if e.applyControl(w, msg.ctrl) {
				return
			}
			continue
		}
		e.applyEvent(w, msg.ev)
	}
}

func (e *StrategyEngine) applyControl(w *symbolWorker, c *controlMessage) (shutdown bool) {
	switch c.op {
	case opAddStrategy:
		w.strategies[c.strategyName] = c.strategy
		w.enabled[c.strategyName] = true
		e.logger.Info("strategy added", zap.String("symbol", w.symbol), zap.String("strategy", c.strategyName), zap.String("correlation_id", c.correlationID.String()))
		c.strategy.OnStart(w.symbol)
	case opRemoveStrategy:
		if s, ok := w.strategies[c.strategyName]; ok {
			s.OnStop(w.symbol)
			delete(w.strategies, c.strategyName)
			delete(w.enabled, c.strategyName)
			e.logger.Info("strategy removed", zap.String("symbol", w.symbol), zap.String("strategy", c.strategyName), zap.String("correlation_id", c.correlationID.String()))
		}
	case opEnableStrategy:
		w.enabled[c.strategyName] = true
	case opDisableStrategy:
		w.enabled[c.strategyName] = false
	case opBroadcastControl:
		for name, s := range w.strategies {
			if s.StrategyTypeID() != c.broadcast.TargetTypeID {
				continue
			}
			s.OnControl(c.broadcast)
			w.enabled[name] = c.broadcast.Type == ControlEnable
		}
	case opShutdown:
		for name, s := range w.strategies {
			s.OnStop(w.symbol)
			delete(w.strategies, name)
		}
		return true
	}
	return false
}

func (e *StrategyEngine) applyEvent(w *symbolWorker, ev *events.Event) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.EventsProcessed.WithLabelValues(w.symbol, ev.Kind.String()).Inc()
			e.metrics.ProcessLatency.WithLabelValues(w.symbol).Observe(time.Since(start).Seconds())
		}
	}()

	switch ev.Kind {
	case events.KindSnapshot:
		snap := ev.Snapshot
		e.ensureBook(w, snap.TradingDate, snap.MinPx, snap.MaxPx)
		for name, s := range w.strategies {
			if w.enabled[name] {
				s.OnTick(snap, w.book)
			}
		}
	case events.KindOrder:
		if w.book == nil {
			e.warnRateLimited("order event before first snapshot, dropped", w.symbol)
			return
		}
		events.ApplyOrder(w.book, ev.Order)
		for name, s := range w.strategies {
			if w.enabled[name] {
				s.OnOrder(ev.Order, w.book)
			}
		}
	case events.KindTransaction:
		if w.book == nil {
			e.warnRateLimited("transaction event before first snapshot, dropped", w.symbol)
			return
		}
		events.ApplyTransaction(w.book, ev.Transaction)
		for name, s := range w.strategies {
			if w.enabled[name] {
				s.OnTransaction(ev.Transaction, w.book)
			}
		}
	default:
		e.warnRateLimited(fmt.Sprintf("unknown event kind %d, dropped", ev.Kind), w.symbol)
	}
}

// warnRateLimited logs a malformed/out-of-order event warning, throttled
// so a misbehaving upstream feed can't flood the log at full event rate.
func (e *StrategyEngine) warnRateLimited(msg, symbol string) {
	if e.diagLimiter.Allow() {
		e.logger.Warn(msg, zap.String("symbol", symbol))
	}
}
