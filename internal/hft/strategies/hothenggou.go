package strategies

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
	"github.com/abdoElHodaky/ashft/internal/hft/breakout"
	"github.com/abdoElHodaky/ashft/internal/hft/engine"
	"github.com/abdoElHodaky/ashft/internal/hft/events"
	"github.com/abdoElHodaky/ashft/internal/hft/signal"
)

const (
	hotLockWindowMS         = 27_000
	hotOverallTimeoutMS     = 180_000
	hotEntryMultiplier      = 1.014
	hotMaxMarketDataDelayMS = 5_000
)

type hotState struct {
	phase    consolidationPhase
	detector *breakout.Detector
	history  priceHistory
	limitUp  book.PriceTick
}

// HotHenggouStrategy is a single shared instance that can watch many
// symbols at once, added and removed at runtime as symbols become
// "hot" during the trading day. On qualifying, a symbol's consolidation
// tracker is seeded from the high of its 60s rolling price history. That
// history is kept per watched symbol and starts empty when the symbol is
// added, so a symbol added mid-session seeds only from ticks seen since
// the add, not from ticks before it. A transaction whose local receive
// timestamp is more than 5s older than the current wall-clock time is
// not fed to the breakout detector.
type HotHenggouStrategy struct {
	logger *zap.Logger
	ctx    signal.Context

	mu     sync.Mutex
	states map[string]*hotState
}

func NewHotHenggouStrategy(logger *zap.Logger, ctx signal.Context) *HotHenggouStrategy {
	return &HotHenggouStrategy{
		logger: logger,
		ctx:    ctx,
		states: make(map[string]*hotState),
	}
}

func (s *HotHenggouStrategy) Name() string { return "hot_henggou" }

func (s *HotHenggouStrategy) StrategyTypeID() uint8 { return 4 }

// OnControl logs a broadcast enable/disable; as a single instance
// shared across every symbol it monitors, it has no one symbol's
// enabled gate to flip itself — that is the engine's per-(symbol,name)
// concern.
func (s *HotHenggouStrategy) OnControl(msg *engine.ControlMessage) {
	s.logger.Info("hot-henggou control received",
		zap.Bool("enable", msg.Type == engine.ControlEnable),
		zap.Int("symbols_watched", s.SymbolCount()))
}

// AddSymbol registers symbol for monitoring if it isn't already.
func (s *HotHenggouStrategy) AddSymbol(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(symbol)
}

func (s *HotHenggouStrategy) addLocked(symbol string) *hotState {
	if st, ok := s.states[symbol]; ok {
		return st
	}
	st := &hotState{
		phase:    newConsolidationPhase(hotLockWindowMS, hotOverallTimeoutMS),
		detector: breakout.New(),
	}
	s.states[symbol] = st
	return st
}

// RemoveSymbol stops monitoring symbol.
func (s *HotHenggouStrategy) RemoveSymbol(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, symbol)
}

// HasSymbol reports whether symbol is currently monitored.
func (s *HotHenggouStrategy) HasSymbol(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states[symbol]
	return ok
}

// SymbolCount returns the number of symbols currently monitored.
func (s *HotHenggouStrategy) SymbolCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *HotHenggouStrategy) OnStart(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(symbol)
}

func (s *HotHenggouStrategy) OnStop(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, symbol)
}

func (s *HotHenggouStrategy) OnTick(snap *events.Snapshot, b *book.FastOrderBook) {
	s.mu.Lock()
	st, ok := s.states[snap.Symbol]
	s.mu.Unlock()
	if !ok {
		return
	}

	st.limitUp = snap.MaxPx
	if snap.HighPx > 0 {
		st.history.record(snap.MDTime, snap.HighPx)
	}

	if st.phase.expired(snap.MDTime) {
		st.phase.reset()
		st.detector.Reset()
		st.detector.SetEnabled(false)
		return
	}

	switch st.phase.phase {
	case phaseQualification:
		if snap.HighPx == 0 {
			return
		}
		// A symbol can be added mid-session; seed the initial high from
		// its 60s lookback instead of the bare current tick.
		initialHigh := snap.HighPx
		if hist := st.history.max(); hist > initialHigh {
			initialHigh = hist
		}
		st.phase.beginConsolidation(snap.MDTime, initialHigh)
	case phaseConsolidation:
		if snap.HighPx > 0 && st.phase.update(snap.HighPx, snap.MDTime) {
			s.arm(snap.Symbol, st, snap.MDTime)
		}
	}
}

func (s *HotHenggouStrategy) arm(symbol string, st *hotState, mdtime int32) {
	st.detector.SetTargetPrice(st.phase.lockedTarget)
	st.detector.SetCallback(func(price book.PriceTick, fireTime int32) {
		entry := entryPrice(price, hotEntryMultiplier, st.limitUp)
		sig := signal.NewTradeSignal(symbol, book.Buy, entry, 0, fireTime, s.Name(), 4)
		if err := s.ctx.PlaceOrder(sig); err != nil {
			s.logger.Error("hot-henggou signal dropped", zap.String("symbol", symbol), zap.Error(err))
		}
		st.phase.phase = phaseDone
	})
	st.detector.SetEnabled(true)
}

func (s *HotHenggouStrategy) OnOrder(o *events.Order, b *book.FastOrderBook) {
	s.mu.Lock()
	st, ok := s.states[o.Symbol]
	s.mu.Unlock()
	if !ok || st.phase.phase != phaseTrigger {
		return
	}
	st.detector.OnOrder(o.MDTime, b)
}

func (s *HotHenggouStrategy) OnTransaction(t *events.Transaction, b *book.FastOrderBook) {
	s.mu.Lock()
	st, ok := s.states[t.Symbol]
	s.mu.Unlock()
	if !ok || st.phase.phase != phaseTrigger {
		return
	}
	if s.marketDataStale(t.LocalRecvTimestampNanos) {
		return
	}
	buyQty := st.detector.BuyTradeQty(t.TradeBSFlag, t.TradePrice, t.TradeQty)
	st.detector.OnTransaction(t.MDTime, b, buyQty)
}

// marketDataStale reports whether an event's local receive timestamp is
// already more than 5s old, in which case a breakout fired from it would
// be acting on stale market data.
func (s *HotHenggouStrategy) marketDataStale(localRecvNanos int64) bool {
	if localRecvNanos == 0 {
		return false
	}
	delay := time.Since(time.Unix(0, localRecvNanos))
	return delay > hotMaxMarketDataDelayMS*time.Millisecond
}
