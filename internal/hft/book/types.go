// Package book implements a dense, array-indexed limit order book tuned
// for a single instrument's daily price-limit band.
package book

// PriceTick is a price scaled by 10,000 (e.g. 12.3450 yuan == 123450).
// Every price the book handles, including min/max band bounds, is in
// this unit.
type PriceTick = uint32

// Side identifies which book side an order or trade reference sits on.
type Side int32

const (
	Buy  Side = 1
	Sell Side = 2
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// OrderKind mirrors the venue's order-type codes.
type OrderKind int32

const (
	Market OrderKind = 1
	Limit  OrderKind = 2
	Best   OrderKind = 3
	// Cancel is the standard cancel order type.
	Cancel OrderKind = 4
	// ShanghaiCancel is a second, Shanghai-specific cancel code with
	// identical semantics to Cancel.
	ShanghaiCancel OrderKind = 10
)

// TradeType mirrors the venue's transaction-type codes on the tick-by-
// tick transaction feed.
type TradeType int32

const (
	Trade        TradeType = 0
	CancelTxn    TradeType = 1
	OtherCancel2 TradeType = 2
	OtherCancel5 TradeType = 5
	OtherCancel6 TradeType = 6
	OtherCancel7 TradeType = 7
	OtherCancel8 TradeType = 8
)

// IsCancel reports whether t is one of the cancel-type transaction
// codes (1,2,5,6,7,8). All six carry identical cancel semantics.
func (t TradeType) IsCancel() bool {
	switch t {
	case CancelTxn, OtherCancel2, OtherCancel5, OtherCancel6, OtherCancel7, OtherCancel8:
		return true
	default:
		return false
	}
}

// BSFlag identifies the aggressor side of a transaction.
type BSFlag int32

const (
	BSUnknown BSFlag = 0
	BSBuy     BSFlag = 1
	BSSell    BSFlag = 2
)

// SecuritySource distinguishes the two venues that feed this book; their
// transaction payloads carry different order-reference semantics.
type SecuritySource int32

const (
	SourceShanghai SecuritySource = 101
	SourceShenzhen SecuritySource = 102
)

// OrderNode is a pool-allocated resting order. PrevIdx/NextIdx link it
// into its PriceLevel's doubly-linked list using pool indices rather
// than pointers, so the list survives pool slice growth.
type OrderNode struct {
	Seq           uint64
	Volume        uint64
	Kind          OrderKind
	Side          Side
	OriginalPrice PriceTick
	SortPrice     PriceTick
	PrevIdx       int32
	NextIdx       int32
}

// PriceLevel is one slot of the book's dense price array.
type PriceLevel struct {
	Price        PriceTick
	TotalVolume  uint64
	HeadOrderIdx int32
	TailOrderIdx int32
}

func (l *PriceLevel) empty() bool {
	return l.HeadOrderIdx == -1
}
