package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMarketOpen(t *testing.T) {
	assert.True(t, IsMarketOpen(93000000))
	assert.True(t, IsMarketOpen(100000000))
	assert.False(t, IsMarketOpen(113000000)) // exactly 11:30:00, exclusive upper bound
	assert.False(t, IsMarketOpen(120000000)) // lunch break
	assert.True(t, IsMarketOpen(130000000))
	assert.False(t, IsMarketOpen(150000000)) // exactly 15:00:00, exclusive upper bound
	assert.False(t, IsMarketOpen(92959999))
}

func TestDiffMillisWithinSameSession(t *testing.T) {
	assert.EqualValues(t, 200, DiffMillis(93000000, 93000200))
	assert.EqualValues(t, 500, DiffMillis(100000000, 100000500))
}

func TestDiffMillisNeverNaivelySubtractsAcrossLunchBreak(t *testing.T) {
	// Naive HHMMSSmmm subtraction here would yield 130000100 - 112959900
	// = 17040200, a meaningless value far larger than the 200ms of session
	// time actually elapsed. The session-aware helper must return 200.
	before := int32(112959900) // 11:29:59.900
	after := int32(130000100)  // 13:00:00.100
	assert.EqualValues(t, 200, DiffMillis(before, after))
}

func TestSessionElapsedMillisFreezesDuringLunch(t *testing.T) {
	atClose := SessionElapsedMillis(113000000)
	duringLunch := SessionElapsedMillis(120000000)
	assert.Equal(t, atClose, duringLunch)
}

func TestIsWithinMillis(t *testing.T) {
	assert.True(t, IsWithinMillis(93000000, 93000199, 200))
	assert.False(t, IsWithinMillis(93000000, 93000201, 200))
}
