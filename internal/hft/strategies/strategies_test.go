package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
	"github.com/abdoElHodaky/ashft/internal/hft/events"
	"github.com/abdoElHodaky/ashft/internal/hft/signal"
)

func newTestBook(t *testing.T) *book.FastOrderBook {
	t.Helper()
	return book.NewFastOrderBook("600519.SH", zap.NewNop(), 900000, 1300000)
}

// TestPercentageGainEndToEnd reproduces the full scenario: a symbol
// gaps up past its initial threshold, consolidates for 27s without a
// new high, arms the detector at the locked target, and fires a buy
// signal at target*1.014 once the breakout dynamics trigger.
func TestPercentageGainEndToEnd(t *testing.T) {
	b := newTestBook(t)
	logger := zap.NewNop()
	ctx := signal.NewBacktestContext(logger)
	s := NewPercentageGainBreakoutStrategy(logger, ctx)
	s.OnStart("600519.SH")

	prevClose := book.PriceTick(1000000)
	limitUp := book.PriceTick(1200000)

	// Opening print qualifies: +4% over prev close (>= 3% mainboard
	// threshold).
	s.OnTick(&events.Snapshot{
		Symbol: "600519.SH", MDTime: 93000000,
		PreClosePx: prevClose, OpenPx: 1030000, HighPx: 1040000, MaxPx: limitUp,
	}, b)
	require.Equal(t, phaseConsolidation, s.phase.phase)

	// No new high for 27s: target locks.
	s.OnTick(&events.Snapshot{
		Symbol: "600519.SH", MDTime: 93027100,
		PreClosePx: prevClose, HighPx: 1040000, MaxPx: limitUp,
	}, b)
	require.Equal(t, phaseTrigger, s.phase.phase)
	require.EqualValues(t, 1040000, s.phase.lockedTarget)

	// Arm a resting ask at the locked target so the detector has
	// something to watch, then feed an aggressive buy large enough to
	// trigger the pressure-based breakout.
	require.True(t, b.AddOrder(1, book.Limit, book.Sell, 1040000, 500))
	s.OnOrder(&events.Order{Symbol: "600519.SH", MDTime: 93027200}, b)
	s.OnOrder(&events.Order{Symbol: "600519.SH", MDTime: 93027250}, b)
	s.OnTransaction(&events.Transaction{
		Symbol: "600519.SH", MDTime: 93027300,
		TradeBSFlag: book.BSBuy, TradePrice: 1040000, TradeQty: 500,
	}, b)

	require.Len(t, ctx.Placed, 1)
	sig := ctx.Placed[0]
	assert.EqualValues(t, 1054560, sig.Price) // round(1040000 * 1.014)
	assert.Equal(t, book.Buy, sig.Side)
}

// TestPercentageGainLocksAtBreakoutThresholdNotBareHighest reproduces
// spec scenario 6 precisely: the observed high (+3.5%) never reaches
// the mainboard's 4% breakout-threshold price, so the locked target
// must be max(breakout_threshold_price, highest_price), not the bare
// highest price the consolidation tracker observed.
func TestPercentageGainLocksAtBreakoutThresholdNotBareHighest(t *testing.T) {
	b := newTestBook(t)
	logger := zap.NewNop()
	ctx := signal.NewBacktestContext(logger)
	s := NewPercentageGainBreakoutStrategy(logger, ctx)
	s.OnStart("600519.SH")

	prevClose := book.PriceTick(1000000)
	limitUp := book.PriceTick(1200000)

	// No opening gap: qualifies only once the climbing high clears the
	// 3% mainboard initial threshold, well short of the 4% breakout
	// threshold (1040000).
	s.OnTick(&events.Snapshot{
		Symbol: "600519.SH", MDTime: 93020000,
		PreClosePx: prevClose, OpenPx: prevClose, HighPx: 1035000, MaxPx: limitUp,
	}, b)
	require.Equal(t, phaseConsolidation, s.phase.phase)
	require.Equal(t, gapNormal, s.scenario)

	// No new high for 27s: target locks at the breakout-threshold price,
	// not the lower 1035000 high actually observed.
	s.OnTick(&events.Snapshot{
		Symbol: "600519.SH", MDTime: 93047100,
		PreClosePx: prevClose, HighPx: 1035000, MaxPx: limitUp,
	}, b)
	require.Equal(t, phaseTrigger, s.phase.phase)
	require.EqualValues(t, 1040000, s.phase.lockedTarget)
}

// TestPercentageGainLargeGapSkipsInitialThresholdWait reproduces the
// LARGE_GAP scenario: an opening print already past the breakout
// threshold enters Phase 2 immediately instead of waiting for a current
// gain re-check, matching determineGapScenario's LARGE classification.
func TestPercentageGainLargeGapSkipsInitialThresholdWait(t *testing.T) {
	b := newTestBook(t)
	logger := zap.NewNop()
	ctx := signal.NewBacktestContext(logger)
	s := NewPercentageGainBreakoutStrategy(logger, ctx)
	s.OnStart("600519.SH")

	prevClose := book.PriceTick(1000000)

	// Open print itself gaps +5%, already past the 4% breakout
	// threshold: Phase 1 is skipped even though this same tick's high
	// is the only data point seen so far.
	s.OnTick(&events.Snapshot{
		Symbol: "600519.SH", MDTime: 93000000,
		PreClosePx: prevClose, OpenPx: 1050000, HighPx: 1050000, MaxPx: 1200000,
	}, b)
	require.Equal(t, gapLarge, s.scenario)
	assert.Equal(t, phaseConsolidation, s.phase.phase)
}

func TestPercentageGainAbandonsAboveCapThreshold(t *testing.T) {
	b := newTestBook(t)
	logger := zap.NewNop()
	ctx := signal.NewBacktestContext(logger)
	s := NewPercentageGainBreakoutStrategy(logger, ctx)
	s.OnStart("600519.SH")

	s.OnTick(&events.Snapshot{
		Symbol: "600519.SH", MDTime: 93000000,
		PreClosePx: 1000000, OpenPx: 1030000, HighPx: 1040000, MaxPx: 1200000,
	}, b)
	require.Equal(t, phaseConsolidation, s.phase.phase)

	// Gain blows past the 7% cap before locking: strategy abandons.
	s.OnTick(&events.Snapshot{
		Symbol: "600519.SH", MDTime: 93005000,
		PreClosePx: 1000000, HighPx: 1080000, MaxPx: 1200000,
	}, b)
	assert.True(t, s.abandoned)
}

func TestGapUpQualifiesOnlyWhenOpenAtOrAbovePrevClose(t *testing.T) {
	b := newTestBook(t)
	logger := zap.NewNop()
	ctx := signal.NewBacktestContext(logger)
	s := NewGapUpBreakoutStrategy(logger, ctx)
	s.OnStart("300750.SZ")

	s.OnTick(&events.Snapshot{Symbol: "300750.SZ", MDTime: 93000000, PreClosePx: 500000, OpenPx: 490000, MaxPx: 600000}, b)
	assert.Equal(t, phaseQualification, s.phase.phase, "gap-down open should not qualify")

	s.OnTick(&events.Snapshot{Symbol: "300750.SZ", MDTime: 93000100, PreClosePx: 500000, OpenPx: 505000, HighPx: 505000, MaxPx: 600000}, b)
	assert.Equal(t, phaseConsolidation, s.phase.phase)
}

func TestHotHenggouDynamicAddRemove(t *testing.T) {
	logger := zap.NewNop()
	ctx := signal.NewBacktestContext(logger)
	s := NewHotHenggouStrategy(logger, ctx)

	assert.False(t, s.HasSymbol("688111.SH"))
	s.AddSymbol("688111.SH")
	assert.True(t, s.HasSymbol("688111.SH"))
	assert.Equal(t, 1, s.SymbolCount())

	s.RemoveSymbol("688111.SH")
	assert.False(t, s.HasSymbol("688111.SH"))
	assert.Equal(t, 0, s.SymbolCount())
}

func TestHotHenggouSeedsHighFromRingBufferOnMidSessionAdd(t *testing.T) {
	b := newTestBook(t)
	logger := zap.NewNop()
	ctx := signal.NewBacktestContext(logger)
	s := NewHotHenggouStrategy(logger, ctx)
	s.OnStart("688111.SH")

	// Ticks arrive (and are recorded into the 60s history) before the
	// symbol formally qualifies for consolidation tracking.
	s.OnTick(&events.Snapshot{Symbol: "688111.SH", MDTime: 93000000, HighPx: 1100000, MaxPx: 1300000}, b)
	s.OnTick(&events.Snapshot{Symbol: "688111.SH", MDTime: 93000500, HighPx: 1150000, MaxPx: 1300000}, b)

	st := s.states["688111.SH"]
	require.NotNil(t, st)
	assert.EqualValues(t, 1150000, st.phase.highestPrice, "initial high should pick up the ring buffer's max, not just the current tick")
}
