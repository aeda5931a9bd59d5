// Package strategies implements the breakout state machines: gap-up,
// percentage-gain, consolidation-breakout, and the dynamically
// reconfigurable "hot symbol" variant. All four share the same
// three-phase shape (qualify, consolidate, arm-and-trigger), factored
// here into consolidationPhase so each variant only supplies its own
// qualification rule and entry multiplier.
package strategies

import (
	"math"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
	"github.com/abdoElHodaky/ashft/internal/hft/timeutil"
)

type phase int

const (
	phaseQualification phase = iota
	phaseConsolidation
	phaseTrigger
	phaseDone
)

// consolidationPhase tracks the highest observed price during phase 2
// and decides when enough time has passed without a new high to lock
// the breakout target.
type consolidationPhase struct {
	phase            phase
	startMDTime      int32
	highestPrice     book.PriceTick
	highestMDTime    int32
	lockWindowMS     int64
	overallTimeoutMS int64
	locked           bool
	lockedTarget     book.PriceTick
}

func newConsolidationPhase(lockWindowMS, overallTimeoutMS int64) consolidationPhase {
	return consolidationPhase{
		phase:            phaseQualification,
		lockWindowMS:     lockWindowMS,
		overallTimeoutMS: overallTimeoutMS,
	}
}

// beginConsolidation transitions into phase 2, seeding the highest price
// with an initial value (e.g. the qualifying tick's price, or a
// ring-buffer lookback's max for a symbol added mid-session).
func (c *consolidationPhase) beginConsolidation(mdtime int32, initialHigh book.PriceTick) {
	c.phase = phaseConsolidation
	c.startMDTime = mdtime
	c.highestPrice = initialHigh
	c.highestMDTime = mdtime
	c.locked = false
}

// update feeds one tick's price into the consolidation tracker. It
// returns true the instant the target locks (new-high window has
// elapsed without a further new high).
func (c *consolidationPhase) update(price book.PriceTick, mdtime int32) bool {
	if c.phase != phaseConsolidation {
		return false
	}
	if price > c.highestPrice {
		c.highestPrice = price
		c.highestMDTime = mdtime
	}
	if !c.locked && timeutil.DiffMillis(c.highestMDTime, mdtime) >= c.lockWindowMS {
		c.locked = true
		c.lockedTarget = c.highestPrice
		c.phase = phaseTrigger
		return true
	}
	return false
}

// expired reports whether the overall consolidation timeout has elapsed
// since phase 2 began, regardless of lock state.
func (c *consolidationPhase) expired(mdtime int32) bool {
	if c.phase == phaseQualification || c.phase == phaseDone {
		return false
	}
	return timeutil.DiffMillis(c.startMDTime, mdtime) >= c.overallTimeoutMS
}

func (c *consolidationPhase) reset() {
	c.phase = phaseQualification
	c.locked = false
	c.highestPrice = 0
	c.highestMDTime = 0
}

// entryPrice applies an entry multiplier to the locked target, capped at
// limitUp.
func entryPrice(target book.PriceTick, multiplier float64, limitUp book.PriceTick) book.PriceTick {
	p := book.PriceTick(math.Round(float64(target) * multiplier))
	if p > limitUp {
		return limitUp
	}
	return p
}
