package events

import "github.com/abdoElHodaky/ashft/internal/hft/book"

// ApplyOrder dispatches a tick-by-tick order message to the book: adds a
// resting order for Limit/Market/Best, or cancels for Cancel/
// ShanghaiCancel. Malformed order types are dropped.
func ApplyOrder(b *book.FastOrderBook, o *Order) bool {
	side := book.Sell
	if o.BSFlag == book.BSBuy {
		side = book.Buy
	}
	switch o.OrderType {
	case book.Market, book.Limit, book.Best:
		return b.AddOrder(o.OrderNo, o.OrderType, side, o.Price, o.Qty)
	case book.Cancel, book.ShanghaiCancel:
		return b.CancelOrder(o.OrderNo, o.Qty)
	default:
		return false
	}
}

// ApplyTransaction dispatches a tick-by-tick transaction message to the
// book's venue-aware trade/cancel handling.
func ApplyTransaction(b *book.FastOrderBook, t *Transaction) bool {
	return b.OnTransaction(t.TradeType, t.TradeBSFlag, t.SecurityIDSource, t.TradeBuyNo, t.TradeSellNo, t.TradeQty)
}
