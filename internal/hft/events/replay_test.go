package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	bySymbol map[string][]*Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{bySymbol: make(map[string][]*Event)}
}

func (d *recordingDispatcher) Dispatch(ev *Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bySymbol[ev.Symbol] = append(d.bySymbol[ev.Symbol], ev)
}

func mkEvent(symbol string, mdtime int32, seq int64, kind Kind) *Event {
	return &Event{Symbol: symbol, Kind: kind, TradingDate: 20260731, MDTime: mdtime, Sequence: seq}
}

func TestSnapshotSortsFirstAtEqualTimestamp(t *testing.T) {
	evs := []*Event{
		mkEvent("600000.SH", 93000000, 5, KindOrder),
		mkEvent("600000.SH", 93000000, -1, KindSnapshot),
	}
	r, err := NewReplayer(zap.NewNop(), 2)
	require.NoError(t, err)
	defer r.Release()

	d := newRecordingDispatcher()
	r.Replay(evs, d)

	got := d.bySymbol["600000.SH"]
	require.Len(t, got, 2)
	assert.Equal(t, KindSnapshot, got[0].Kind)
	assert.Equal(t, KindOrder, got[1].Kind)
}

func TestPerSymbolOrderPreservedAcrossShards(t *testing.T) {
	symbols := []string{"600000.SH", "000001.SZ", "300750.SZ", "688111.SH"}
	var evs []*Event
	for _, sym := range symbols {
		for i := int64(0); i < 20; i++ {
			evs = append(evs, mkEvent(sym, 93000000+int32(i)*100, i, KindOrder))
		}
	}

	r, err := NewReplayer(zap.NewNop(), 4)
	require.NoError(t, err)
	defer r.Release()

	d := newRecordingDispatcher()
	r.Replay(evs, d)

	for _, sym := range symbols {
		got := d.bySymbol[sym]
		require.Len(t, got, 20)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i-1].Sequence < got[i].Sequence, "events for %s must stay in sequence order", sym)
		}
	}
}

func TestShardOfIsDeterministic(t *testing.T) {
	r, err := NewReplayer(zap.NewNop(), 16)
	require.NoError(t, err)
	defer r.Release()

	a := r.shardOf("600000.SH")
	b := r.shardOf("600000.SH")
	assert.Equal(t, a, b)
}
