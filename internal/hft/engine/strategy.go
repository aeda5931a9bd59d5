package engine

import (
	"github.com/abdoElHodaky/ashft/internal/hft/book"
	"github.com/abdoElHodaky/ashft/internal/hft/events"
)

// Strategy is the callback contract a strategy state machine implements.
// The engine applies every order/transaction to the symbol's book before
// invoking OnOrder/OnTransaction, so book always reflects the event just
// delivered. Snapshot events only drive OnTick; the book is untouched by
// a snapshot.
type Strategy interface {
	Name() string
	// StrategyTypeID identifies the strategy variant a ControlMessage is
	// addressed to, matching the original's uint8 strategy_type_id tag.
	StrategyTypeID() uint8
	OnStart(symbol string)
	OnStop(symbol string)
	OnTick(snap *events.Snapshot, b *book.FastOrderBook)
	OnOrder(o *events.Order, b *book.FastOrderBook)
	OnTransaction(t *events.Transaction, b *book.FastOrderBook)
	OnControl(msg *ControlMessage)
}

// ControlType is the kind of instruction carried by a ControlMessage.
type ControlType int

const (
	ControlEnable ControlType = iota
	ControlDisable
)

// ControlMessage is a control-plane instruction broadcast to every
// strategy on a symbol whose StrategyTypeID matches TargetTypeID,
// mirroring strategy_base.cpp's on_control_message (which compares
// msg.unique_id & 0xFF against the strategy's own type id before
// acting). Delivered as control-as-data, so it is never reordered
// against the market-data events already queued ahead of or behind it.
type ControlMessage struct {
	Type         ControlType
	TargetTypeID uint8
}
