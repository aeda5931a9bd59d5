// Package breakout implements order-book-dynamics breakout detection: a
// rolling window over a target price level's resting volume and
// aggressive-buy trade flow, used to decide when a consolidation target
// has been broken through.
package breakout

import (
	"gonum.org/v1/gonum/stat"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
	"github.com/abdoElHodaky/ashft/internal/hft/timeutil"
)

const windowMS = 200

// maxSparseSearchLevels bounds how many occupied ask levels, counted
// from the best ask upward, are scanned when the target level itself is
// empty.
const maxSparseSearchLevels = 10

// Callback is invoked exactly once, the first time Detector fires.
type Callback func(price book.PriceTick, mdtime int32)

type snapshot struct {
	mdtime      int32
	volume      uint64
	buyTradeQty uint64
}

// Stats summarizes the current window, useful for logging/diagnostics.
type Stats struct {
	AvgVolume     float64
	TotalBuyQty   uint64
	CurrentVolume uint64
	WindowSize    int
}

// Detector watches a single target price level across a 200ms rolling
// window and fires Callback the first time either (a) the target has
// already been crossed by the best ask, or (b) cumulative aggressive-buy
// volume in the window has caught up to the window's average resting
// volume. Once fired it stays latched until Reset.
type Detector struct {
	targetPrice book.PriceTick
	callback    Callback
	triggered   bool
	enabled     bool
	window      []snapshot
}

// New builds a disabled detector; set a target with SetTargetPrice and
// turn it on with SetEnabled(true).
func New() *Detector {
	return &Detector{}
}

// SetTargetPrice sets the watched price and resets the window/latch; it
// leaves the enabled flag unchanged.
func (d *Detector) SetTargetPrice(price book.PriceTick) {
	d.targetPrice = price
	d.Reset()
}

// TargetPrice returns the currently armed target price.
func (d *Detector) TargetPrice() book.PriceTick { return d.targetPrice }

// SetCallback installs the fire callback.
func (d *Detector) SetCallback(cb Callback) { d.callback = cb }

// SetEnabled toggles detection; disabling clears the rolling window.
func (d *Detector) SetEnabled(enabled bool) {
	d.enabled = enabled
	if !enabled {
		d.window = d.window[:0]
	}
}

// Enabled reports whether the detector is currently active.
func (d *Detector) Enabled() bool { return d.enabled }

// Triggered reports whether the detector has already fired.
func (d *Detector) Triggered() bool { return d.triggered }

// Reset clears the latch and the rolling window, leaving the target
// price and enabled flag untouched.
func (d *Detector) Reset() {
	d.triggered = false
	d.window = d.window[:0]
}

// OnOrder feeds one order-book update into the detector. Returns true if
// this call caused the detector to fire.
func (d *Detector) OnOrder(mdtime int32, b *book.FastOrderBook) bool {
	if !d.enabled || d.triggered {
		return false
	}
	vol, ok := d.volumeAtTarget(b)
	if !ok {
		return false
	}
	d.addToWindow(mdtime, vol, 0)
	return d.checkTrigger(mdtime)
}

// OnTransaction feeds one trade into the detector. buyTradeQty should be
// the trade's quantity if it is an aggressive buy at exactly the target
// price, else 0 (see BuyTradeQty).
func (d *Detector) OnTransaction(mdtime int32, b *book.FastOrderBook, buyTradeQty uint64) bool {
	if !d.enabled || d.triggered {
		return false
	}
	vol, ok := d.volumeAtTarget(b)
	if !ok {
		return false
	}
	d.addToWindow(mdtime, vol, buyTradeQty)
	return d.checkTrigger(mdtime)
}

// BuyTradeQty returns qty if the trade is an aggressive buy (bsFlag ==
// Buy) executed exactly at the detector's target price, else 0. Callers
// compute this from the raw transaction event before calling
// OnTransaction.
func (d *Detector) BuyTradeQty(bsFlag book.BSFlag, tradePrice book.PriceTick, qty uint64) uint64 {
	if bsFlag != book.BSBuy {
		return 0
	}
	if tradePrice == d.targetPrice {
		return qty
	}
	return 0
}

// Stats summarizes the current window state.
func (d *Detector) Stats() Stats {
	s := Stats{WindowSize: len(d.window)}
	if len(d.window) == 0 {
		return s
	}
	var totalVolume uint64
	for _, w := range d.window {
		totalVolume += w.volume
		s.TotalBuyQty += w.buyTradeQty
	}
	s.AvgVolume = float64(totalVolume) / float64(len(d.window))
	s.CurrentVolume = d.window[len(d.window)-1].volume
	return s
}

// volumeAtTarget resolves the effective level to monitor: the target
// price itself if it has resting volume, volume 0 if the best ask has
// already moved above the target (or the ask side is empty), or the
// nearest occupied ask level above target among the first
// maxSparseSearchLevels occupied ask levels. ok is false when no such
// level is found and the target cannot be monitored.
func (d *Detector) volumeAtTarget(b *book.FastOrderBook) (uint64, bool) {
	bestAsk := b.GetBestAsk()
	if bestAsk == nil {
		return 0, true // ask side empty: treat as already broken through
	}
	if d.targetPrice < *bestAsk {
		return 0, true
	}

	if vol := b.GetVolumeAtPrice(d.targetPrice); vol > 0 {
		return vol, true
	}

	for _, lvl := range b.GetAskLevels(maxSparseSearchLevels) {
		if lvl.Price > d.targetPrice && lvl.Volume > 0 {
			return lvl.Volume, true
		}
	}
	return 0, false
}

func (d *Detector) addToWindow(mdtime int32, volume, buyTradeQty uint64) {
	d.window = append(d.window, snapshot{mdtime: mdtime, volume: volume, buyTradeQty: buyTradeQty})
	for len(d.window) > 0 && !timeutil.IsWithinMillis(d.window[0].mdtime, mdtime, windowMS) {
		d.window = d.window[1:]
	}
}

func (d *Detector) checkTrigger(mdtime int32) bool {
	if d.triggered || len(d.window) == 0 {
		return false
	}

	latest := d.window[len(d.window)-1]
	if latest.volume == 0 {
		d.fire(mdtime)
		return true
	}

	volumes := make([]float64, len(d.window))
	var totalBuy uint64
	for i, w := range d.window {
		volumes[i] = float64(w.volume)
		totalBuy += w.buyTradeQty
	}
	n := stat.Mean(volumes, nil)
	if n < 1.0 {
		return false
	}
	if float64(totalBuy) >= n {
		d.fire(mdtime)
		return true
	}
	return false
}

func (d *Detector) fire(mdtime int32) {
	d.triggered = true
	if d.callback != nil {
		d.callback(d.targetPrice, mdtime)
	}
}
