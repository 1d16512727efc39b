package orderbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Side int8

const (
	SideUnknown Side = iota
	Bid
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "BID":
		*s = Bid
	case "ASK":
		*s = Ask
	default:
		*s = SideUnknown
	}
	return nil
}

// Opposite returns the side an order matches against.
func (s Side) Opposite() Side {
	switch s {
	case Bid:
		return Ask
	case Ask:
		return Bid
	default:
		return SideUnknown
	}
}

type OrderType int8

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Market {
		return "MARKET"
	}
	return "LIMIT"
}

func (t OrderType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *OrderType) UnmarshalText(b []byte) error {
	if string(b) == "MARKET" {
		*t = Market
	} else {
		*t = Limit
	}
	return nil
}

type TimeInForce int8

const (
	Session TimeInForce = iota
	FOK
	FAK
)

func (f TimeInForce) String() string {
	switch f {
	case FOK:
		return "FOK"
	case FAK:
		return "FAK"
	default:
		return "SESSION"
	}
}

func (f TimeInForce) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *TimeInForce) UnmarshalText(b []byte) error {
	switch string(b) {
	case "FOK":
		*f = FOK
	case "FAK":
		*f = FAK
	default:
		*f = Session
	}
	return nil
}

type Operation int8

const (
	Insert Operation = iota
	Update
	Cancel
)

func (op Operation) String() string {
	switch op {
	case Update:
		return "UPDATE"
	case Cancel:
		return "CANCEL"
	default:
		return "INSERT"
	}
}

func (op Operation) MarshalText() ([]byte, error) { return []byte(op.String()), nil }

func (op *Operation) UnmarshalText(b []byte) error {
	switch string(b) {
	case "UPDATE":
		*op = Update
	case "CANCEL":
		*op = Cancel
	default:
		*op = Insert
	}
	return nil
}

// Cause tags why a particular version of an order exists.
type Cause int8

const (
	CauseNew Cause = iota
	CausePartialFill
	CauseFilled
	CauseKilled
	CauseSelfMatch
	CauseCancelled
)

func (c Cause) String() string {
	switch c {
	case CausePartialFill:
		return "PARTIAL_FILL"
	case CauseFilled:
		return "FILLED"
	case CauseKilled:
		return "KILLED"
	case CauseSelfMatch:
		return "SELF_MATCH"
	case CauseCancelled:
		return "CANCELLED"
	default:
		return "NEW"
	}
}

func (c Cause) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Cause) UnmarshalText(b []byte) error {
	switch string(b) {
	case "PARTIAL_FILL":
		*c = CausePartialFill
	case "FILLED":
		*c = CauseFilled
	case "KILLED":
		*c = CauseKilled
	case "SELF_MATCH":
		*c = CauseSelfMatch
	case "CANCELLED":
		*c = CauseCancelled
	default:
		*c = CauseNew
	}
	return nil
}

// Order is an immutable order version. State changes never mutate an Order in
// place; they produce a replacement value carrying the cause of the change.
type Order struct {
	Operation     Operation       `json:"operation"`
	Side          Side            `json:"side"`
	Type          OrderType       `json:"type"`
	TimeInForce   TimeInForce     `json:"timeInForce"`
	InitialVolume decimal.Decimal `json:"initialVolume"`
	CurrentVolume decimal.Decimal `json:"currentVolume"`
	Price         decimal.Decimal `json:"price"`
	SubmittedAt   time.Time       `json:"submittedAt"`
	Sequence      uint64          `json:"sequence"`
	Participant   string          `json:"participant"`
	InstrumentID  string          `json:"instrumentId"`
	OrderbookID   string          `json:"orderbookId"`
	OrderID       string          `json:"orderId"`
	Cause         Cause           `json:"cause"`
}

// IsActive reports whether the order is eligible to rest in the book. Only
// SESSION limit orders rest; everything else is matched transiently.
func (o Order) IsActive() bool {
	return o.Type == Limit && o.TimeInForce == Session
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %s %s@%s id=%s book=%s",
		o.Operation, o.Side, o.Type, o.CurrentVolume, o.Price, o.OrderID, o.OrderbookID)
}

// withUpdate returns the order version that remains after tradeVolume has been
// taken out of it.
func (o Order) withUpdate(tradeVolume decimal.Decimal, cause Cause) Order {
	next := o
	next.Operation = Update
	next.CurrentVolume = o.CurrentVolume.Sub(tradeVolume)
	next.Cause = cause
	return next
}

// asCancel returns the cancellation version of the order. CurrentVolume is kept
// so downstream consumers can see how much was left when the order died.
func (o Order) asCancel(cause Cause) Order {
	next := o
	next.Operation = Cancel
	next.Cause = cause
	return next
}
