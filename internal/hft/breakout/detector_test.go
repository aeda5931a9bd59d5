package breakout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
)

func newTestBook(t *testing.T) *book.FastOrderBook {
	t.Helper()
	return book.NewFastOrderBook("600000.SH", zap.NewNop(), 90000, 110000)
}

func TestDirectBreakoutFiresWhenTargetAlreadyCrossed(t *testing.T) {
	b := newTestBook(t)
	// The only resting ask sits above the target: best_ask has already
	// moved past the watched level, so the breakout is a fait accompli.
	require.True(t, b.AddOrder(1, book.Limit, book.Sell, 105000, 100))

	d := New()
	var fired book.PriceTick
	d.SetTargetPrice(100000)
	d.SetCallback(func(price book.PriceTick, mdtime int32) { fired = price })
	d.SetEnabled(true)

	assert.True(t, d.OnOrder(93000100, b))
	assert.True(t, d.Triggered())
	assert.EqualValues(t, 100000, fired)
}

func TestPressureBasedBreakoutFires(t *testing.T) {
	b := newTestBook(t)
	require.True(t, b.AddOrder(1, book.Limit, book.Sell, 100000, 1000))

	d := New()
	var fired bool
	d.SetTargetPrice(100000)
	d.SetCallback(func(price book.PriceTick, mdtime int32) { fired = true })
	d.SetEnabled(true)

	// Seed the window with resting-volume observations (n ~= 1000).
	d.OnOrder(93000000, b)
	d.OnOrder(93000050, b)

	// A large aggressive buy at the target price within the window
	// should push delta_n up to n and trigger.
	result := d.OnTransaction(93000100, b, 1000)
	assert.True(t, result)
	assert.True(t, fired)
}

func TestNoTriggerBelowThreshold(t *testing.T) {
	b := newTestBook(t)
	require.True(t, b.AddOrder(1, book.Limit, book.Sell, 100000, 1000))

	d := New()
	d.SetTargetPrice(100000)
	d.SetEnabled(true)

	d.OnOrder(93000000, b)
	assert.False(t, d.OnTransaction(93000050, b, 10))
	assert.False(t, d.Triggered())
}

func TestLatchFiresOnlyOnce(t *testing.T) {
	b := newTestBook(t)
	require.True(t, b.AddOrder(1, book.Limit, book.Sell, 105000, 10))

	d := New()
	count := 0
	d.SetTargetPrice(100000) // best ask has already moved past this level
	d.SetCallback(func(price book.PriceTick, mdtime int32) { count++ })
	d.SetEnabled(true)

	d.OnOrder(93000000, b)
	d.OnOrder(93000050, b)
	assert.Equal(t, 1, count)
}

func TestResetClearsLatchAndWindow(t *testing.T) {
	b := newTestBook(t)
	require.True(t, b.AddOrder(1, book.Limit, book.Sell, 105000, 10))

	d := New()
	d.SetTargetPrice(100000)
	d.SetEnabled(true)
	d.OnOrder(93000000, b)
	require.True(t, d.Triggered())

	d.Reset()
	assert.False(t, d.Triggered())
	assert.Equal(t, 0, d.Stats().WindowSize)
}

func TestSparseLevelRemapsToNearestOccupiedAskLevel(t *testing.T) {
	b := newTestBook(t)
	// best_ask sits below the target (not yet crossed); the target's own
	// level is empty, but an occupied level above it exists, so the
	// detector should monitor that level instead.
	require.True(t, b.AddOrder(1, book.Limit, book.Sell, 95000, 10))
	require.True(t, b.AddOrder(2, book.Limit, book.Sell, 100500, 400))

	d := New()
	d.SetTargetPrice(100000)
	d.SetEnabled(true)

	assert.False(t, d.OnOrder(93000000, b)) // shouldn't trigger, just seeds window
	assert.Equal(t, 1, d.Stats().WindowSize)
	assert.EqualValues(t, 400, d.Stats().CurrentVolume)
}

func TestUnmonitorableWhenTargetAboveAllVisibleLevels(t *testing.T) {
	b := newTestBook(t)
	require.True(t, b.AddOrder(1, book.Limit, book.Sell, 90000, 10))

	d := New()
	d.SetTargetPrice(109000) // far above the only resting ask, no level within 10
	d.SetEnabled(true)

	assert.False(t, d.OnOrder(93000000, b))
	assert.Equal(t, 0, d.Stats().WindowSize)
}
