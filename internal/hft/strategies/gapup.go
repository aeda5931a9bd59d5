package strategies

import (
	"go.uber.org/zap"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
	"github.com/abdoElHodaky/ashft/internal/hft/breakout"
	"github.com/abdoElHodaky/ashft/internal/hft/engine"
	"github.com/abdoElHodaky/ashft/internal/hft/events"
	"github.com/abdoElHodaky/ashft/internal/hft/signal"
)

const (
	gapUpLockWindowMS     = 30_000
	gapUpOverallTimeoutMS = 180_000
	gapUpEntryMultiplier  = 1.014
)

// GapUpBreakoutStrategy qualifies a symbol whose opening print gapped up
// over the previous close, then tracks the post-open high through a 30s
// consolidation window before arming a BreakoutDetector at the locked
// target.
type GapUpBreakoutStrategy struct {
	symbol string
	logger *zap.Logger
	ctx    signal.Context

	prevClose book.PriceTick
	limitUp   book.PriceTick
	gapped    bool

	phase    consolidationPhase
	detector *breakout.Detector
}

// NewGapUpBreakoutStrategy builds the strategy around ctx, the signal
// sink it emits buy instructions to.
func NewGapUpBreakoutStrategy(logger *zap.Logger, ctx signal.Context) *GapUpBreakoutStrategy {
	return &GapUpBreakoutStrategy{
		logger:   logger,
		ctx:      ctx,
		phase:    newConsolidationPhase(gapUpLockWindowMS, gapUpOverallTimeoutMS),
		detector: breakout.New(),
	}
}

func (s *GapUpBreakoutStrategy) Name() string { return "gap_up_breakout" }

// StrategyTypeID matches the id embedded in this variant's trade
// signals (see arm's call to signal.NewTradeSignal).
func (s *GapUpBreakoutStrategy) StrategyTypeID() uint8 { return 1 }

func (s *GapUpBreakoutStrategy) OnStart(symbol string) { s.symbol = symbol }

func (s *GapUpBreakoutStrategy) OnStop(symbol string) {}

// OnControl handles a broadcast enable/disable addressed to this
// variant; the engine applies the actual callback gating itself, so
// this only needs to log the transition for traceability.
func (s *GapUpBreakoutStrategy) OnControl(msg *engine.ControlMessage) {
	s.logger.Info("gap-up breakout control received",
		zap.String("symbol", s.symbol),
		zap.Bool("enable", msg.Type == engine.ControlEnable))
}

func (s *GapUpBreakoutStrategy) OnTick(snap *events.Snapshot, b *book.FastOrderBook) {
	s.limitUp = snap.MaxPx
	if s.phase.expired(snap.MDTime) {
		s.reset()
		return
	}

	switch s.phase.phase {
	case phaseQualification:
		s.prevClose = snap.PreClosePx
		if snap.OpenPx == 0 || s.prevClose == 0 {
			return
		}
		if snap.OpenPx >= s.prevClose {
			s.gapped = true
			s.phase.beginConsolidation(snap.MDTime, snap.OpenPx)
		}
	case phaseConsolidation:
		if snap.HighPx > 0 && s.phase.update(snap.HighPx, snap.MDTime) {
			s.arm(snap.MDTime)
		}
	}
}

func (s *GapUpBreakoutStrategy) arm(mdtime int32) {
	s.detector.SetTargetPrice(s.phase.lockedTarget)
	s.detector.SetCallback(func(price book.PriceTick, fireTime int32) {
		entry := entryPrice(price, gapUpEntryMultiplier, s.limitUp)
		sig := signal.NewTradeSignal(s.symbol, book.Buy, entry, 0, fireTime, s.Name(), 1)
		if err := s.ctx.PlaceOrder(sig); err != nil {
			s.logger.Error("gap-up signal dropped", zap.String("symbol", s.symbol), zap.Error(err))
		}
		s.phase.phase = phaseDone
	})
	s.detector.SetEnabled(true)
}

func (s *GapUpBreakoutStrategy) OnOrder(o *events.Order, b *book.FastOrderBook) {
	if s.phase.phase == phaseTrigger {
		s.detector.OnOrder(o.MDTime, b)
	}
}

func (s *GapUpBreakoutStrategy) OnTransaction(t *events.Transaction, b *book.FastOrderBook) {
	if s.phase.phase == phaseTrigger {
		buyQty := s.detector.BuyTradeQty(t.TradeBSFlag, t.TradePrice, t.TradeQty)
		s.detector.OnTransaction(t.MDTime, b, buyQty)
	}
}

func (s *GapUpBreakoutStrategy) reset() {
	s.phase.reset()
	s.detector.Reset()
	s.detector.SetEnabled(false)
	s.gapped = false
}
