package strategies

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
	"github.com/abdoElHodaky/ashft/internal/hft/breakout"
	"github.com/abdoElHodaky/ashft/internal/hft/engine"
	"github.com/abdoElHodaky/ashft/internal/hft/events"
	"github.com/abdoElHodaky/ashft/internal/hft/signal"
)

const (
	pgLockWindowMS     = 27_000
	pgSessionWindowMS  = 10 * 60_000
	pgEntryMultiplier  = 1.014
)

type gapScenario int

const (
	gapNormal gapScenario = iota
	gapModerate
	gapLarge
)

// board-dependent thresholds: growth-board symbols (prefixes 300/688)
// trade with a wider daily limit band, so their initial-gain,
// breakout, and abandon-cap thresholds scale up accordingly
// (mainboard 3%/4%/7%, growth-board 5%/6%/17%).
func boardThresholds(symbol string) (initialPct, breakoutPct, capPct float64) {
	core := strings.TrimSuffix(strings.TrimSuffix(symbol, ".SH"), ".SZ")
	if strings.HasPrefix(core, "300") || strings.HasPrefix(core, "688") {
		return 0.05, 0.06, 0.17
	}
	return 0.03, 0.04, 0.07
}

// PercentageGainBreakoutStrategy qualifies on an initial opening gain
// past a board-dependent threshold, classifies the gap size, and tracks
// the post-open high through a 27s consolidation window (inside a
// 10-minute overall session) before arming a BreakoutDetector.
type PercentageGainBreakoutStrategy struct {
	symbol string
	logger *zap.Logger
	ctx    signal.Context

	prevClose   book.PriceTick
	limitUp     book.PriceTick
	initialPct  float64
	breakoutPct float64
	capPct      float64
	scenario    gapScenario
	qualified   bool
	abandoned   bool

	phase    consolidationPhase
	detector *breakout.Detector
}

func NewPercentageGainBreakoutStrategy(logger *zap.Logger, ctx signal.Context) *PercentageGainBreakoutStrategy {
	return &PercentageGainBreakoutStrategy{
		logger:   logger,
		ctx:      ctx,
		phase:    newConsolidationPhase(pgLockWindowMS, pgSessionWindowMS),
		detector: breakout.New(),
	}
}

func (s *PercentageGainBreakoutStrategy) Name() string { return "percentage_gain_breakout" }

func (s *PercentageGainBreakoutStrategy) StrategyTypeID() uint8 { return 2 }

func (s *PercentageGainBreakoutStrategy) OnStart(symbol string) {
	s.symbol = symbol
	s.initialPct, s.breakoutPct, s.capPct = boardThresholds(symbol)
}

func (s *PercentageGainBreakoutStrategy) OnStop(symbol string) {}

func (s *PercentageGainBreakoutStrategy) OnControl(msg *engine.ControlMessage) {
	s.logger.Info("percentage-gain breakout control received",
		zap.String("symbol", s.symbol),
		zap.Bool("enable", msg.Type == engine.ControlEnable))
}

func (s *PercentageGainBreakoutStrategy) OnTick(snap *events.Snapshot, b *book.FastOrderBook) {
	s.limitUp = snap.MaxPx
	if s.abandoned || s.phase.expired(snap.MDTime) {
		s.reset()
		return
	}

	switch s.phase.phase {
	case phaseQualification:
		s.prevClose = snap.PreClosePx
		if s.prevClose == 0 || snap.HighPx == 0 {
			return
		}
		// A moderate or large opening gap already clears the Phase 1
		// gain gate at the open print itself, so it skips straight to
		// Phase 2 instead of waiting on a further new high.
		s.scenario = s.determineGapScenario(snap)
		if s.scenario == gapNormal {
			gain := (float64(snap.HighPx) - float64(s.prevClose)) / float64(s.prevClose)
			if gain < s.initialPct {
				return
			}
		}
		s.qualified = true
		s.phase.beginConsolidation(snap.MDTime, snap.HighPx)
	case phaseConsolidation:
		gain := (float64(snap.HighPx) - float64(s.prevClose)) / float64(s.prevClose)
		if gain >= s.capPct {
			s.abandoned = true
			return
		}
		if snap.HighPx > 0 && s.phase.update(snap.HighPx, snap.MDTime) {
			s.lockBreakoutThresholdFloor()
			s.arm(snap.MDTime)
		}
	}
}

// lockBreakoutThresholdFloor raises the just-locked target up to
// prevClose*(1+breakoutPct) when the observed high never reached it:
// target_price = max(breakout_threshold_price, highest_price).
func (s *PercentageGainBreakoutStrategy) lockBreakoutThresholdFloor() {
	threshold := book.PriceTick(math.Round(float64(s.prevClose) * (1 + s.breakoutPct)))
	if threshold > s.phase.lockedTarget {
		s.phase.lockedTarget = threshold
	}
}

// determineGapScenario classifies the opening print against this
// symbol's board-dependent initial/breakout thresholds: NORMAL (below
// initial), MODERATE (initial..breakout), or LARGE (at or above
// breakout).
func (s *PercentageGainBreakoutStrategy) determineGapScenario(snap *events.Snapshot) gapScenario {
	if s.prevClose == 0 {
		return gapNormal
	}
	openGain := (float64(snap.OpenPx) - float64(s.prevClose)) / float64(s.prevClose)
	switch {
	case openGain >= s.breakoutPct:
		return gapLarge
	case openGain >= s.initialPct:
		return gapModerate
	default:
		return gapNormal
	}
}

func (s *PercentageGainBreakoutStrategy) arm(mdtime int32) {
	s.detector.SetTargetPrice(s.phase.lockedTarget)
	s.detector.SetCallback(func(price book.PriceTick, fireTime int32) {
		entry := entryPrice(price, pgEntryMultiplier, s.limitUp)
		sig := signal.NewTradeSignal(s.symbol, book.Buy, entry, 0, fireTime, s.Name(), 2)
		if err := s.ctx.PlaceOrder(sig); err != nil {
			s.logger.Error("percentage-gain signal dropped", zap.String("symbol", s.symbol), zap.Error(err))
		}
		s.phase.phase = phaseDone
	})
	s.detector.SetEnabled(true)
}

func (s *PercentageGainBreakoutStrategy) OnOrder(o *events.Order, b *book.FastOrderBook) {
	if s.phase.phase == phaseTrigger {
		s.detector.OnOrder(o.MDTime, b)
	}
}

func (s *PercentageGainBreakoutStrategy) OnTransaction(t *events.Transaction, b *book.FastOrderBook) {
	if s.phase.phase == phaseTrigger {
		buyQty := s.detector.BuyTradeQty(t.TradeBSFlag, t.TradePrice, t.TradeQty)
		s.detector.OnTransaction(t.MDTime, b, buyQty)
	}
}

func (s *PercentageGainBreakoutStrategy) reset() {
	s.phase.reset()
	s.detector.Reset()
	s.detector.SetEnabled(false)
	s.qualified = false
	s.abandoned = false
}
