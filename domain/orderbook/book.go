package orderbook

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"exchange/infra/sequence"
)

var (
	ErrNotAccepting      = errors.New("orderbook not accepting orders")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Orderbook is one instrument's book: resting orders, session state and the
// matching machinery. All mutations run under a single mutex; the engine
// additionally guarantees a single writer per book, so the lock only guards
// read-path queries against in-flight writes.
type Orderbook struct {
	mu sync.Mutex

	id           string
	instrumentID string
	state        State
	active       *ActiveOrders
	matcher      MatchingAlgorithm
	auction      AuctionAlgorithm
	tradeSeq     *sequence.Sequencer
	lastTop      TopOfBook
	now          func() time.Time
	log          zerolog.Logger
}

func NewOrderbook(id, instrumentID string, matcher MatchingAlgorithm, auction AuctionAlgorithm, log zerolog.Logger) *Orderbook {
	return &Orderbook{
		id:           id,
		instrumentID: instrumentID,
		state:        Closed,
		active:       NewActiveOrders(matcher.OrderComparator()),
		matcher:      matcher,
		auction:      auction,
		tradeSeq:     sequence.New(0),
		now:          time.Now,
		log:          log.With().Str("orderbook", id).Str("algorithm", matcher.Name()).Logger(),
	}
}

func (ob *Orderbook) ID() string           { return ob.id }
func (ob *Orderbook) InstrumentID() string { return ob.instrumentID }

func (ob *Orderbook) State() State {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.state
}

func (ob *Orderbook) tradeID() string {
	return fmt.Sprintf("%s-%d", ob.id, ob.tradeSeq.Next())
}

func (ob *Orderbook) matchContext() MatchContext {
	return MatchContext{Now: ob.now(), TradeID: ob.tradeID}
}

// UpdateState moves the book to the target session state. Re-entering the
// current state is a no-op. Entering an auction run state uncrosses the book
// immediately and advances to the follow state, so the returned state can
// differ from the target. The returned events carry the auction's trades and
// order mutations.
func (ob *Orderbook) UpdateState(target State) ([]Event, State, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if target == ob.state {
		return nil, ob.state, nil
	}
	if !ob.state.CanTransition(target) {
		return nil, ob.state, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ob.state, target)
	}
	ob.log.Info().Stringer("from", ob.state).Stringer("to", target).Msg("state change")
	ob.state = target

	var events []Event
	if target.AuctionRun() {
		events = ob.runAuctionLocked()
		if next, ok := target.followState(); ok {
			ob.log.Info().Stringer("from", target).Stringer("to", next).Msg("auction complete")
			ob.state = next
		}
	}
	return events, ob.state, nil
}

// Submit processes one order against the book and returns everything that
// happened as a result: inserts, fills, cancels and trades.
func (ob *Orderbook) Submit(o Order) ([]Event, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !ob.state.Accepting() {
		return nil, fmt.Errorf("%w: %s in state %s", ErrNotAccepting, ob.id, ob.state)
	}

	switch o.Operation {
	case Cancel:
		return ob.cancelLocked(o)
	case Insert:
		return ob.insertLocked(o)
	case Update:
		return ob.updateLocked(o)
	default:
		return nil, fmt.Errorf("unsupported operation %s", o.Operation)
	}
}

func (ob *Orderbook) cancelLocked(o Order) ([]Event, error) {
	existing, found := ob.active.Get(o.OrderID)
	if !found {
		return nil, fmt.Errorf("cancel %s: %w", o.OrderID, ErrUnknownOrder)
	}
	if err := ob.active.Remove(o.OrderID); err != nil {
		return nil, err
	}
	return []Event{orderEvent(existing.asCancel(CauseCancelled))}, nil
}

func (ob *Orderbook) insertLocked(o Order) ([]Event, error) {
	if !o.CurrentVolume.IsPositive() {
		// Nothing to trade and nothing that may rest.
		return nil, nil
	}
	if _, exists := ob.active.Get(o.OrderID); exists {
		return nil, fmt.Errorf("insert %s: order id already in book", o.OrderID)
	}
	if !ob.state.Continuous() {
		// Call phases collect resting orders for the uncross. Orders that
		// cannot rest have nothing to wait for and are killed.
		if !o.IsActive() {
			return []Event{killEvent(o)}, nil
		}
		return ob.restLocked(o)
	}
	return ob.runMatchingLocked(o)
}

func (ob *Orderbook) updateLocked(o Order) ([]Event, error) {
	if !o.CurrentVolume.IsPositive() {
		return nil, nil
	}
	if _, found := ob.active.Get(o.OrderID); !found {
		return nil, fmt.Errorf("update %s: %w", o.OrderID, ErrUnknownOrder)
	}
	if err := ob.active.Remove(o.OrderID); err != nil {
		return nil, err
	}
	if !ob.state.Continuous() {
		return ob.restLocked(o)
	}
	// A price change can cross the book, so an update re-enters matching.
	return ob.runMatchingLocked(o)
}

func (ob *Orderbook) restLocked(o Order) ([]Event, error) {
	o.Operation = Insert
	o.Cause = CauseNew
	if err := ob.active.Add(o); err != nil {
		return nil, err
	}
	return []Event{orderEvent(o)}, nil
}

// runMatchingLocked drives the single-shot matching algorithm until the
// incoming order is filled, killed or left to rest. Each round's events are
// applied to the book before the next round so the algorithm always sees the
// post-fill book.
func (ob *Orderbook) runMatchingLocked(incoming Order) ([]Event, error) {
	var all []Event
	current := incoming
	for {
		events := ob.matcher.MatchOrder(ob.active, current, ob.matchContext())
		if len(events) == 0 {
			if current.IsActive() {
				rested, err := ob.restLocked(current)
				if err != nil {
					return all, err
				}
				all = append(all, rested...)
			}
			return all, nil
		}
		done := false
		for _, ev := range events {
			all = append(all, ev)
			if ev.Trade != nil {
				continue
			}
			o := *ev.Order
			if o.OrderID == current.OrderID {
				// The incoming order is not in the book yet; track its
				// remaining volume instead of applying the mutation.
				if o.Operation == Cancel {
					done = true
				} else {
					current = o
				}
				continue
			}
			ob.applyLocked(o)
		}
		if done {
			return all, nil
		}
	}
}

// applyLocked folds one mutation produced by matching back into the book.
func (ob *Orderbook) applyLocked(o Order) {
	var err error
	switch o.Operation {
	case Insert:
		err = ob.active.Add(o)
	case Update:
		err = ob.active.Update(o)
	case Cancel:
		err = ob.active.Remove(o.OrderID)
	}
	if err != nil {
		ob.log.Error().Err(err).Str("order", o.OrderID).Stringer("op", o.Operation).Msg("apply mutation")
	}
}

// RunAuction uncrosses the book at the equilibrium price. Exposed for
// halt-recovery flows; state-driven auctions go through UpdateState.
func (ob *Orderbook) RunAuction() []Event {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.runAuctionLocked()
}

func (ob *Orderbook) runAuctionLocked() []Event {
	result := ob.auction.EquilibriumPrice(ob.active)
	if !result.HasEquilibrium {
		ob.log.Info().Msg("auction found no equilibrium")
		return nil
	}
	ob.log.Info().
		Stringer("price", result.EquilibriumPrice).
		Stringer("volume", result.MatchedVolume).
		Msg("auction equilibrium")

	var all []Event
	for {
		events := ob.matcher.MatchAtPrice(ob.active, result.EquilibriumPrice, ob.matchContext())
		if len(events) == 0 {
			return all
		}
		for _, ev := range events {
			all = append(all, ev)
			if ev.Order != nil {
				ob.applyLocked(*ev.Order)
			}
		}
	}
}

// TopOfBook returns the current best-bid/best-ask snapshot.
func (ob *Orderbook) TopOfBook() TopOfBook {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.topOfBookLocked()
}

func (ob *Orderbook) topOfBookLocked() TopOfBook {
	top := TopOfBook{
		OrderbookID:  ob.id,
		InstrumentID: ob.instrumentID,
		Timestamp:    ob.now(),
	}
	if level, ok := ob.active.BestBidLevel(); ok {
		top.BidPrice = level.Price
		top.BidVolume = level.Volume()
	}
	if level, ok := ob.active.BestAskLevel(); ok {
		top.AskPrice = level.Price
		top.AskVolume = level.Volume()
	}
	return top
}

// TopOfBookIfChanged returns a snapshot only when best bid or ask moved since
// the last call, so downstream streams carry changes rather than heartbeats.
func (ob *Orderbook) TopOfBookIfChanged() (TopOfBook, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	top := ob.topOfBookLocked()
	if top.Equal(ob.lastTop) {
		return TopOfBook{}, false
	}
	ob.lastTop = top
	return top, true
}

// ---- read-path queries ----

func (ob *Orderbook) GetOrder(orderID string) (Order, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.active.Get(orderID)
}

func (ob *Orderbook) BestBidPrice() decimal.Decimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.active.BestBidPrice()
}

func (ob *Orderbook) BestAskPrice() decimal.Decimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.active.BestAskPrice()
}

func (ob *Orderbook) NumOrders() int64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.active.NumOrders()
}

func (ob *Orderbook) TotalVolume() decimal.Decimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.active.TotalVolume()
}

func (ob *Orderbook) VolumeAtDepth(depth int) decimal.Decimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.active.VolumeAtDepth(depth)
}

func (ob *Orderbook) BidPriceAtDepth(depth int) decimal.Decimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.active.BidPriceAtDepth(depth)
}

func (ob *Orderbook) AskPriceAtDepth(depth int) decimal.Decimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.active.AskPriceAtDepth(depth)
}
