package book

import (
	"fmt"

	"github.com/abdoElHodaky/ashft/internal/common/pool"
	"go.uber.org/zap"
)

// FastOrderBook is a dense price-indexed limit order book. Levels span
// the instrument's daily [minPrice, maxPrice] limit-up/down band and are
// addressed by direct array offset, so adding, canceling, and trading an
// order are all O(1) except for the rare cursor rescan when the best
// bid/ask level empties out.
type FastOrderBook struct {
	symbol   string
	logger   *zap.Logger
	pool     *pool.IndexPool[OrderNode]
	minPrice PriceTick
	maxPrice PriceTick

	levels []PriceLevel

	bestBidIdx int32 // -1 == no bids
	bestAskIdx int32 // -1 == no asks

	orderIndex   map[uint64]int32
	marketOrders []int32
}

// NewFastOrderBook builds a book covering [minPrice, maxPrice] inclusive.
func NewFastOrderBook(symbol string, logger *zap.Logger, minPrice, maxPrice PriceTick) *FastOrderBook {
	capacity := int(maxPrice-minPrice) + 1
	levels := make([]PriceLevel, capacity)
	for i := range levels {
		levels[i] = PriceLevel{HeadOrderIdx: -1, TailOrderIdx: -1}
	}
	return &FastOrderBook{
		symbol:       symbol,
		logger:       logger,
		pool:         pool.New[OrderNode](1024),
		minPrice:     minPrice,
		maxPrice:     maxPrice,
		levels:       levels,
		bestBidIdx:   -1,
		bestAskIdx:   -1,
		orderIndex:   make(map[uint64]int32, 4096),
		marketOrders: make([]int32, 0, 64),
	}
}

// Symbol returns the instrument this book was built for.
func (b *FastOrderBook) Symbol() string { return b.symbol }

func (b *FastOrderBook) inRange(price PriceTick) bool {
	return price >= b.minPrice && price <= b.maxPrice
}

// AddOrder allocates a resting order node and links it into the book.
// Returns false (and logs) on pool exhaustion or an out-of-range price.
func (b *FastOrderBook) AddOrder(seq uint64, kind OrderKind, side Side, price PriceTick, volume uint64) bool {
	idx := b.pool.Alloc()
	if idx < 0 {
		b.logger.Error("order pool exhausted", zap.String("symbol", b.symbol))
		return false
	}

	node := b.pool.Get(idx)
	*node = OrderNode{
		Seq:           seq,
		Volume:        volume,
		Kind:          kind,
		Side:          side,
		OriginalPrice: price,
		PrevIdx:       -1,
		NextIdx:       -1,
	}
	b.orderIndex[seq] = idx

	if kind == Market {
		node.SortPrice = 0
		b.marketOrders = append(b.marketOrders, idx)
		return true
	}

	targetPrice := price
	if kind == Best {
		var bestOpt *PriceTick
		if side == Buy {
			bestOpt = b.GetBestBid()
		} else {
			bestOpt = b.GetBestAsk()
		}
		if bestOpt == nil {
			// Own side has no resting interest to peg to: park as a
			// market order, matching the observed venue behavior.
			b.marketOrders = append(b.marketOrders, idx)
			return true
		}
		targetPrice = *bestOpt
	}

	if !b.inRange(targetPrice) {
		b.logger.Warn("order price out of range, rejected",
			zap.String("symbol", b.symbol),
			zap.Uint64("seq", seq),
			zap.Uint32("price", targetPrice))
		delete(b.orderIndex, seq)
		b.pool.Free(idx)
		return false
	}

	node.SortPrice = targetPrice
	lvlIdx := int32(targetPrice - b.minPrice)
	lvl := &b.levels[lvlIdx]
	lvl.Price = targetPrice
	b.addNodeToLevel(lvl, idx, node)

	if side == Buy {
		if b.bestBidIdx == -1 || lvlIdx > b.bestBidIdx {
			b.bestBidIdx = lvlIdx
		}
	} else {
		if b.bestAskIdx == -1 || lvlIdx < b.bestAskIdx {
			b.bestAskIdx = lvlIdx
		}
	}
	return true
}

// CancelOrder decrements seq's resting volume by cancelQty, removing the
// order entirely once its volume reaches zero.
func (b *FastOrderBook) CancelOrder(seq uint64, cancelQty uint64) bool {
	return b.updateVolume(seq, cancelQty)
}

// Trade applies a matched Shenzhen-style trade that names both the
// resting buy and sell orders directly.
func (b *FastOrderBook) Trade(bidSeq, askSeq uint64, qty uint64) bool {
	ok1 := b.updateVolume(bidSeq, qty)
	ok2 := b.updateVolume(askSeq, qty)
	return ok1 && ok2
}

func (b *FastOrderBook) updateVolume(seq uint64, delta uint64) bool {
	idx, ok := b.orderIndex[seq]
	if !ok {
		b.logger.Warn("unknown order reference", zap.String("symbol", b.symbol), zap.Uint64("seq", seq))
		return false
	}
	node := b.pool.Get(idx)

	if node.Volume < delta {
		b.logger.Error("volume underflow, clamping to zero",
			zap.String("symbol", b.symbol),
			zap.Uint64("seq", seq),
			zap.Uint64("node_volume", node.Volume),
			zap.Uint64("delta", delta),
			zap.Uint32("price", node.SortPrice),
			zap.String("side", node.Side.String()))
		node.Volume = 0
	} else {
		node.Volume -= delta
	}

	isLimitType := node.Kind != Market
	var lvl *PriceLevel
	if isLimitType {
		lvl = b.levelPtr(node.SortPrice)
		if lvl != nil {
			if delta > lvl.TotalVolume {
				lvl.TotalVolume = 0
			} else {
				lvl.TotalVolume -= delta
			}
		}
	}

	if node.Volume > 0 {
		return true
	}

	if isLimitType && lvl != nil {
		b.removeNodeFromLevel(lvl, idx, node)

		lvlIdx := int32(node.SortPrice - b.minPrice)
		if node.Side == Buy && lvlIdx == b.bestBidIdx {
			if !b.levelHasSide(lvl, Buy) {
				b.updateBestBidCursor()
			}
		} else if node.Side == Sell && lvlIdx == b.bestAskIdx {
			if !b.levelHasSide(lvl, Sell) {
				b.updateBestAskCursor()
			}
		}
	} else {
		// Market orders and best-price orders parked without a level both
		// live in marketOrders.
		for i, mi := range b.marketOrders {
			if mi == idx {
				last := len(b.marketOrders) - 1
				b.marketOrders[i] = b.marketOrders[last]
				b.marketOrders = b.marketOrders[:last]
				break
			}
		}
	}

	delete(b.orderIndex, seq)
	b.pool.Free(idx)
	return true
}

func (b *FastOrderBook) levelHasSide(lvl *PriceLevel, side Side) bool {
	if lvl.HeadOrderIdx == -1 {
		return false
	}
	return b.pool.Get(lvl.HeadOrderIdx).Side == side
}

func (b *FastOrderBook) addNodeToLevel(lvl *PriceLevel, idx int32, node *OrderNode) {
	lvl.TotalVolume += node.Volume
	if lvl.HeadOrderIdx == -1 {
		lvl.HeadOrderIdx = idx
		lvl.TailOrderIdx = idx
		node.PrevIdx = -1
		node.NextIdx = -1
		return
	}
	oldTailIdx := lvl.TailOrderIdx
	oldTail := b.pool.Get(oldTailIdx)
	oldTail.NextIdx = idx
	node.PrevIdx = oldTailIdx
	node.NextIdx = -1
	lvl.TailOrderIdx = idx
}

func (b *FastOrderBook) removeNodeFromLevel(lvl *PriceLevel, idx int32, node *OrderNode) {
	if node.PrevIdx != -1 {
		b.pool.Get(node.PrevIdx).NextIdx = node.NextIdx
	} else {
		lvl.HeadOrderIdx = node.NextIdx
	}
	if node.NextIdx != -1 {
		b.pool.Get(node.NextIdx).PrevIdx = node.PrevIdx
	} else {
		lvl.TailOrderIdx = node.PrevIdx
	}
}

func (b *FastOrderBook) updateBestBidCursor() {
	for b.bestBidIdx >= 0 {
		lvl := &b.levels[b.bestBidIdx]
		if lvl.TotalVolume > 0 && lvl.HeadOrderIdx != -1 {
			if b.pool.Get(lvl.HeadOrderIdx).Side == Buy {
				return
			}
		}
		b.bestBidIdx--
	}
}

func (b *FastOrderBook) updateBestAskCursor() {
	maxIdx := int32(len(b.levels) - 1)
	for b.bestAskIdx <= maxIdx && b.bestAskIdx != -1 {
		lvl := &b.levels[b.bestAskIdx]
		if lvl.TotalVolume > 0 && lvl.HeadOrderIdx != -1 {
			if b.pool.Get(lvl.HeadOrderIdx).Side == Sell {
				return
			}
		}
		b.bestAskIdx++
	}
	if b.bestAskIdx > maxIdx {
		b.bestAskIdx = -1
	}
}

// GetBestBid returns the best bid price, or nil if the bid side is empty.
func (b *FastOrderBook) GetBestBid() *PriceTick {
	if b.bestBidIdx == -1 {
		return nil
	}
	p := b.minPrice + PriceTick(b.bestBidIdx)
	return &p
}

// GetBestAsk returns the best ask price, or nil if the ask side is empty.
func (b *FastOrderBook) GetBestAsk() *PriceTick {
	if b.bestAskIdx == -1 {
		return nil
	}
	p := b.minPrice + PriceTick(b.bestAskIdx)
	return &p
}

// GetVolumeAtPrice returns the resting volume at price, or 0 if price is
// out of range or empty.
func (b *FastOrderBook) GetVolumeAtPrice(price PriceTick) uint64 {
	if !b.inRange(price) {
		return 0
	}
	return b.levels[price-b.minPrice].TotalVolume
}

// GetAskVolumeInRange sums resting ask-side volume across [start, end],
// clipped to the book's range.
func (b *FastOrderBook) GetAskVolumeInRange(start, end PriceTick) uint64 {
	if start < b.minPrice {
		start = b.minPrice
	}
	if end > b.maxPrice {
		end = b.maxPrice
	}
	if start > end {
		return 0
	}
	var total uint64
	for i := start - b.minPrice; i <= end-b.minPrice; i++ {
		lvl := &b.levels[i]
		if lvl.HeadOrderIdx != -1 && b.pool.Get(lvl.HeadOrderIdx).Side == Sell {
			total += lvl.TotalVolume
		}
	}
	return total
}

// PriceVolume is one (price, total volume) pair returned from a
// best-to-worst book scan.
type PriceVolume struct {
	Price  PriceTick
	Volume uint64
}

// GetBidLevels returns up to n occupied bid levels, best price first.
func (b *FastOrderBook) GetBidLevels(n int) []PriceVolume {
	result := make([]PriceVolume, 0, n)
	for idx := b.bestBidIdx; idx >= 0 && len(result) < n; idx-- {
		lvl := &b.levels[idx]
		if lvl.TotalVolume > 0 && lvl.HeadOrderIdx != -1 && b.pool.Get(lvl.HeadOrderIdx).Side == Buy {
			result = append(result, PriceVolume{Price: b.minPrice + PriceTick(idx), Volume: lvl.TotalVolume})
		}
	}
	return result
}

// GetAskLevels returns up to n occupied ask levels, best price first.
func (b *FastOrderBook) GetAskLevels(n int) []PriceVolume {
	result := make([]PriceVolume, 0, n)
	maxIdx := int32(len(b.levels) - 1)
	for idx := b.bestAskIdx; idx >= 0 && idx <= maxIdx && len(result) < n; idx++ {
		lvl := &b.levels[idx]
		if lvl.TotalVolume > 0 && lvl.HeadOrderIdx != -1 && b.pool.Get(lvl.HeadOrderIdx).Side == Sell {
			result = append(result, PriceVolume{Price: b.minPrice + PriceTick(idx), Volume: lvl.TotalVolume})
		}
	}
	return result
}

func (b *FastOrderBook) levelPtr(price PriceTick) *PriceLevel {
	if !b.inRange(price) {
		return nil
	}
	return &b.levels[price-b.minPrice]
}

// OnTransaction dispatches a trade/cancel transaction to the correct
// venue-specific handling path: Shenzhen trades name both sides
// directly; Shanghai trades name only the passive side plus a BS flag
// identifying the aggressor. Cancellation transaction types (1,2,5,6,
// 7,8) deduct from whichever side the BS flag identifies.
func (b *FastOrderBook) OnTransaction(
	tradeType TradeType,
	bsFlag BSFlag,
	source SecuritySource,
	buyRef, sellRef uint64,
	qty uint64,
) bool {
	if tradeType.IsCancel() {
		if bsFlag == BSBuy {
			return b.CancelOrder(buyRef, qty)
		}
		return b.CancelOrder(sellRef, qty)
	}

	if source == SourceShenzhen {
		return b.Trade(buyRef, sellRef, qty)
	}

	// Shanghai: only the passive side's reference is meaningful; the
	// aggressor's reference should not resolve to a resting order.
	switch bsFlag {
	case BSBuy:
		if _, found := b.orderIndex[buyRef]; found {
			b.logger.Error("shanghai trade inconsistency: aggressor buy ref found resting",
				zap.String("symbol", b.symbol), zap.Uint64("buy_ref", buyRef))
		}
		return b.updateVolume(sellRef, qty)
	case BSSell:
		if _, found := b.orderIndex[sellRef]; found {
			b.logger.Error("shanghai trade inconsistency: aggressor sell ref found resting",
				zap.String("symbol", b.symbol), zap.Uint64("sell_ref", sellRef))
		}
		return b.updateVolume(buyRef, qty)
	default:
		return b.Trade(buyRef, sellRef, qty)
	}
}

// String renders a short best-bid/ask summary, useful in debug logs.
func (b *FastOrderBook) String() string {
	bid, ask := "-", "-"
	if p := b.GetBestBid(); p != nil {
		bid = fmt.Sprintf("%d", *p)
	}
	if p := b.GetBestAsk(); p != nil {
		ask = fmt.Sprintf("%d", *p)
	}
	return fmt.Sprintf("FastOrderBook{%s bid=%s ask=%s}", b.symbol, bid, ask)
}
