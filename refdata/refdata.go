package refdata

import (
	"time"

	"github.com/shopspring/decimal"

	"exchange/domain/orderbook"
)

// Instrument is the tradable security a book trades.
type Instrument struct {
	InstrumentID string `json:"instrumentId"`
	Symbol       string `json:"symbol"`
	FullName     string `json:"fullName"`
	Currency     string `json:"currency"`
}

// OrderbookData configures one order book: which instrument it trades on
// which market, which matching algorithm it runs and the trading calendar
// that drives its session states. Books of one market share an engine
// partition.
type OrderbookData struct {
	OrderbookID      string          `json:"orderbookId"`
	InstrumentID     string          `json:"instrumentId"`
	MarketID         string          `json:"marketId"`
	Algorithm        string          `json:"algorithm"`
	AuctionAlgorithm string          `json:"auctionAlgorithm"`
	TickSize         decimal.Decimal `json:"tickSize"`
	MinTradeVolume   decimal.Decimal `json:"minTradeVolume"`
	CalendarID       string          `json:"calendarId"`
}

// TradingWindow schedules one session state change.
type TradingWindow struct {
	State    orderbook.State `json:"state"`
	StartsAt time.Time       `json:"startsAt"`
}

// TradingCalendar is the ordered list of state changes for one trading day.
type TradingCalendar struct {
	CalendarID string          `json:"calendarId"`
	Windows    []TradingWindow `json:"windows"`
}

// Update is one inbound reference data message. Any subset of the fields may
// be set; each present entity is upserted.
type Update struct {
	Instrument *Instrument      `json:"instrument,omitempty"`
	Orderbook  *OrderbookData   `json:"orderbook,omitempty"`
	Calendar   *TradingCalendar `json:"calendar,omitempty"`
}

// Lookup resolves reference data by id. Implementations must be safe for
// concurrent use; the engine workers read on the hot path.
type Lookup interface {
	Orderbook(orderbookID string) (OrderbookData, bool)
	Instrument(instrumentID string) (Instrument, bool)
	Calendar(calendarID string) (TradingCalendar, bool)
}
