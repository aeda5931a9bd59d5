package strategies

import (
	"github.com/abdoElHodaky/ashft/internal/hft/book"
	"github.com/abdoElHodaky/ashft/internal/hft/timeutil"
)

const ringBufferWindowMS = 60_000

type ringSample struct {
	mdtime int32
	price  book.PriceTick
}

// priceHistory keeps a rolling window of the prices recorded over the
// last 60s of session time, so a strategy can seed its consolidation
// tracker from that window's high instead of the bare current tick. It
// holds only what has been recorded into it.
type priceHistory struct {
	samples []ringSample
}

func (h *priceHistory) record(mdtime int32, price book.PriceTick) {
	h.samples = append(h.samples, ringSample{mdtime: mdtime, price: price})
	cutoff := 0
	for i, s := range h.samples {
		if timeutil.DiffMillis(s.mdtime, mdtime) <= ringBufferWindowMS {
			break
		}
		cutoff = i + 1
	}
	if cutoff > 0 {
		h.samples = h.samples[cutoff:]
	}
}

func (h *priceHistory) max() book.PriceTick {
	var m book.PriceTick
	for _, s := range h.samples {
		if s.price > m {
			m = s.price
		}
	}
	return m
}
