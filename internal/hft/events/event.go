// Package events defines the wire-level market data event model and the
// replay pipeline that feeds it to the strategy engine in timestamp
// order.
package events

import "github.com/abdoElHodaky/ashft/internal/hft/book"

// Kind discriminates the three event payloads the engine consumes.
type Kind int32

const (
	KindSnapshot Kind = iota
	KindOrder
	KindTransaction
)

func (k Kind) String() string {
	switch k {
	case KindSnapshot:
		return "snapshot"
	case KindOrder:
		return "order"
	case KindTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// Snapshot is a periodic Level-2 quote snapshot for one symbol.
type Snapshot struct {
	Symbol       string
	TradingDate  int32 // YYYYMMDD
	MDTime       int32 // HHMMSSmmm
	PreClosePx   book.PriceTick
	OpenPx       book.PriceTick
	HighPx       book.PriceTick
	LowPx        book.PriceTick
	MaxPx        book.PriceTick // daily limit-up
	MinPx        book.PriceTick // daily limit-down
	BuyPrice     [10]book.PriceTick
	BuyOrderQty  [10]uint64
	SellPrice    [10]book.PriceTick
	SellOrderQty [10]uint64
}

// Order is one tick-by-tick order entry/cancel message.
type Order struct {
	Symbol    string
	TradingDate int32
	MDTime    int32
	ApplSeqNum int64
	OrderNo   uint64
	OrderType book.OrderKind
	BSFlag    book.BSFlag
	Price     book.PriceTick
	Qty       uint64
	OrderIndex int64
}

// Transaction is one tick-by-tick trade/cancel-confirmation message.
type Transaction struct {
	Symbol            string
	TradingDate       int32
	MDTime            int32
	ApplSeqNum        int64
	TradeBuyNo        uint64
	TradeSellNo       uint64
	TradePrice        book.PriceTick
	TradeQty          uint64
	TradeType         book.TradeType
	TradeBSFlag       book.BSFlag
	TradeIndex        int64
	SecurityIDSource  book.SecuritySource
	LocalRecvTimestampNanos int64
}

// Event wraps one of Snapshot/Order/Transaction with the metadata the
// replay pipeline needs to sort and shard it.
type Event struct {
	Symbol      string
	Kind        Kind
	TradingDate int32
	MDTime      int32
	// Sequence orders events carrying an identical (TradingDate, MDTime)
	// pair. Snapshots use -1 so they sort before any order/transaction
	// stamped at the same instant.
	Sequence    int64

	Snapshot    *Snapshot
	Order       *Order
	Transaction *Transaction
}

// SortKey returns the composite (timestamp, sequence) key events are
// ordered by: timestamp = trading_date*1e9 + MDTime (HHMMSSmmm, which
// orders the same way as milliseconds since midnight).
func (e *Event) SortKey() (int64, int64) {
	ts := int64(e.TradingDate)*1_000_000_000 + int64(e.MDTime)
	return ts, e.Sequence
}

// Less reports whether e sorts before o under the composite key.
func (e *Event) Less(o *Event) bool {
	ts1, seq1 := e.SortKey()
	ts2, seq2 := o.SortKey()
	if ts1 != ts2 {
		return ts1 < ts2
	}
	return seq1 < seq2
}
