package signal

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/ashft/internal/hft/book"
)

func TestBacktestContextRecordsPlacedSignals(t *testing.T) {
	ctx := NewBacktestContext(zap.NewNop())
	sig := NewTradeSignal("600519.SH", book.Buy, 1054560, 0, 93027300, "percentage_gain_breakout", 2)

	require.NoError(t, ctx.PlaceOrder(sig))
	require.Len(t, ctx.Placed, 1)
	assert.Equal(t, sig.ID, ctx.Placed[0].ID)
}

func TestMetricsContextIncrementsCounterOnSuccess(t *testing.T) {
	backtest := NewBacktestContext(zap.NewNop())
	emitted := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_signals_emitted_total"}, []string{"strategy"})
	ctx := NewMetricsContext(backtest, emitted)

	sig := NewTradeSignal("300750.SZ", book.Buy, 600000, 0, 93000000, "gap_up_breakout", 1)
	require.NoError(t, ctx.PlaceOrder(sig))

	m := &dto.Metric{}
	require.NoError(t, emitted.WithLabelValues("gap_up_breakout").Write(m))
	assert.EqualValues(t, 1, m.GetCounter().GetValue())
}

func TestMetricsContextToleratesNilCounter(t *testing.T) {
	ctx := NewMetricsContext(NewBacktestContext(zap.NewNop()), nil)
	sig := NewTradeSignal("300750.SZ", book.Buy, 600000, 0, 93000000, "gap_up_breakout", 1)
	assert.NoError(t, ctx.PlaceOrder(sig))
}
