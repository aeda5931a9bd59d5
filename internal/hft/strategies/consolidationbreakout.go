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
	consolidationLockWindowMS     = 27_000
	consolidationOverallTimeoutMS = 180_000
	consolidationEntryMultiplier  = 1.017
)

// ConsolidationBreakoutStrategy qualifies on the first tick whose high is
// at least minGainPct above the previous close, then runs the same
// lock/arm/trigger shape as the other variants with the wider 1.017
// entry multiplier.
type ConsolidationBreakoutStrategy struct {
	symbol string
	logger *zap.Logger
	ctx    signal.Context

	prevClose      book.PriceTick
	limitUp        book.PriceTick
	minGainPct     float64

	phase    consolidationPhase
	detector *breakout.Detector
}

// NewConsolidationBreakoutStrategy builds the strategy with minGainPct
// as the minimum gain-over-previous-close required to qualify (e.g.
// 0.02 for 2%).
func NewConsolidationBreakoutStrategy(logger *zap.Logger, ctx signal.Context, minGainPct float64) *ConsolidationBreakoutStrategy {
	return &ConsolidationBreakoutStrategy{
		logger:     logger,
		ctx:        ctx,
		minGainPct: minGainPct,
		phase:      newConsolidationPhase(consolidationLockWindowMS, consolidationOverallTimeoutMS),
		detector:   breakout.New(),
	}
}

func (s *ConsolidationBreakoutStrategy) Name() string { return "consolidation_breakout" }

func (s *ConsolidationBreakoutStrategy) StrategyTypeID() uint8 { return 3 }

func (s *ConsolidationBreakoutStrategy) OnStart(symbol string) { s.symbol = symbol }

func (s *ConsolidationBreakoutStrategy) OnStop(symbol string) {}

func (s *ConsolidationBreakoutStrategy) OnControl(msg *engine.ControlMessage) {
	s.logger.Info("consolidation breakout control received",
		zap.String("symbol", s.symbol),
		zap.Bool("enable", msg.Type == engine.ControlEnable))
}

func (s *ConsolidationBreakoutStrategy) OnTick(snap *events.Snapshot, b *book.FastOrderBook) {
	s.limitUp = snap.MaxPx
	if s.phase.expired(snap.MDTime) {
		s.reset()
		return
	}

	switch s.phase.phase {
	case phaseQualification:
		s.prevClose = snap.PreClosePx
		if s.prevClose == 0 || snap.HighPx == 0 {
			return
		}
		gain := (float64(snap.HighPx) - float64(s.prevClose)) / float64(s.prevClose)
		if gain >= s.minGainPct {
			s.phase.beginConsolidation(snap.MDTime, snap.HighPx)
		}
	case phaseConsolidation:
		if snap.HighPx > 0 && s.phase.update(snap.HighPx, snap.MDTime) {
			s.arm(snap.MDTime)
		}
	}
}

func (s *ConsolidationBreakoutStrategy) arm(mdtime int32) {
	s.detector.SetTargetPrice(s.phase.lockedTarget)
	s.detector.SetCallback(func(price book.PriceTick, fireTime int32) {
		entry := entryPrice(price, consolidationEntryMultiplier, s.limitUp)
		sig := signal.NewTradeSignal(s.symbol, book.Buy, entry, 0, fireTime, s.Name(), 3)
		if err := s.ctx.PlaceOrder(sig); err != nil {
			s.logger.Error("consolidation-breakout signal dropped", zap.String("symbol", s.symbol), zap.Error(err))
		}
		s.phase.phase = phaseDone
	})
	s.detector.SetEnabled(true)
}

func (s *ConsolidationBreakoutStrategy) OnOrder(o *events.Order, b *book.FastOrderBook) {
	if s.phase.phase == phaseTrigger {
		s.detector.OnOrder(o.MDTime, b)
	}
}

func (s *ConsolidationBreakoutStrategy) OnTransaction(t *events.Transaction, b *book.FastOrderBook) {
	if s.phase.phase == phaseTrigger {
		buyQty := s.detector.BuyTradeQty(t.TradeBSFlag, t.TradePrice, t.TradeQty)
		s.detector.OnTransaction(t.MDTime, b, buyQty)
	}
}

func (s *ConsolidationBreakoutStrategy) reset() {
	s.phase.reset()
	s.detector.Reset()
	s.detector.SetEnabled(false)
}
