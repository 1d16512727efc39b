package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"exchange/domain/orderbook"
	"exchange/refdata"
)

var testBase = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

// staticLookup serves fixed reference data in tests.
type staticLookup struct {
	books     map[string]refdata.OrderbookData
	calendars map[string]refdata.TradingCalendar
}

func newStaticLookup(books ...refdata.OrderbookData) *staticLookup {
	l := &staticLookup{
		books:     make(map[string]refdata.OrderbookData),
		calendars: make(map[string]refdata.TradingCalendar),
	}
	for _, b := range books {
		l.books[b.OrderbookID] = b
	}
	return l
}

func (l *staticLookup) Orderbook(id string) (refdata.OrderbookData, bool) {
	b, ok := l.books[id]
	return b, ok
}

func (l *staticLookup) Instrument(id string) (refdata.Instrument, bool) {
	return refdata.Instrument{}, false
}

func (l *staticLookup) Calendar(id string) (refdata.TradingCalendar, bool) {
	c, ok := l.calendars[id]
	return c, ok
}

func fifoBook(id string) refdata.OrderbookData {
	return refdata.OrderbookData{
		OrderbookID:  id,
		InstrumentID: "inst-" + id,
		Algorithm:    "FIFO",
	}
}

// capturePublisher records everything the engine publishes.
type capturePublisher struct {
	mu     sync.Mutex
	orders []orderbook.Order
	trades []orderbook.TradeExecution
	tops   []orderbook.TopOfBook
	states []orderbook.State
	panics bool
}

func (p *capturePublisher) PublishOrder(o orderbook.Order) {
	p.mu.Lock()
	panics := p.panics
	p.mu.Unlock()
	if panics {
		panic("publisher exploded")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, o)
}

func (p *capturePublisher) setPanics(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panics = v
}

func (p *capturePublisher) PublishTrade(t orderbook.TradeExecution) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades = append(p.trades, t)
}

func (p *capturePublisher) PublishTopOfBook(t orderbook.TopOfBook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tops = append(p.tops, t)
}

func (p *capturePublisher) PublishStateChange(orderbookID string, state orderbook.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
}

func (p *capturePublisher) numOrders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.orders)
}

func (p *capturePublisher) numTrades() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.trades)
}

func (p *capturePublisher) numStates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

func testOrder(id, bookID string, side orderbook.Side, price string, volume int64, offset time.Duration) *orderbook.Order {
	vol := decimal.NewFromInt(volume)
	return &orderbook.Order{
		Operation:     orderbook.Insert,
		Side:          side,
		Type:          orderbook.Limit,
		TimeInForce:   orderbook.Session,
		InitialVolume: vol,
		CurrentVolume: vol,
		Price:         decimal.RequireFromString(price),
		SubmittedAt:   testBase.Add(offset),
		Participant:   "firm-" + id,
		InstrumentID:  "inst-" + bookID,
		OrderbookID:   bookID,
		OrderID:       id,
		Cause:         orderbook.CauseNew,
	}
}

func stateEvent(bookID string, target orderbook.State, seq uint64) InboundEvent {
	return InboundEvent{
		StateChange: &orderbook.StateChange{
			OrderbookID: bookID,
			TargetState: target,
			Sequence:    seq,
		},
		Sequence:   seq,
		ReceivedAt: testBase.Add(time.Duration(seq)),
	}
}

func nopLog() zerolog.Logger { return zerolog.Nop() }
