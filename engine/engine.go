package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"exchange/domain/orderbook"
)

// Publisher receives everything the engine produces. Implementations must not
// block for long: they run on the worker goroutine.
type Publisher interface {
	PublishOrder(o orderbook.Order)
	PublishTrade(t orderbook.TradeExecution)
	PublishTopOfBook(t orderbook.TopOfBook)
	PublishStateChange(orderbookID string, state orderbook.State)
}

const (
	engineStopped int32 = iota
	engineRunning
	engineStopping
)

var ErrNotRunning = errors.New("matching engine not running")

const pollInterval = 100 * time.Millisecond

// MatchingEngine is one partition worker: a single goroutine draining a
// time-ordered queue and applying each event to its books in turn. Because
// every book belongs to exactly one engine, book access needs no further
// coordination.
type MatchingEngine struct {
	id       int
	queue    *eventQueue
	registry *Registry
	pub      Publisher
	state    atomic.Int32
	done     chan struct{}
	log      zerolog.Logger
}

func NewMatchingEngine(id int, registry *Registry, pub Publisher, log zerolog.Logger) *MatchingEngine {
	return &MatchingEngine{
		id:       id,
		queue:    newEventQueue(),
		registry: registry,
		pub:      pub,
		done:     make(chan struct{}),
		log:      log.With().Int("engine", id).Logger(),
	}
}

// Start launches the worker goroutine. Starting twice is an error.
func (e *MatchingEngine) Start() error {
	if !e.state.CompareAndSwap(engineStopped, engineRunning) {
		return fmt.Errorf("engine %d already started", e.id)
	}
	go e.run()
	e.log.Info().Msg("engine started")
	return nil
}

// Stop drains the queue and stops the worker. Events submitted after Stop are
// rejected. Returns once the worker exits or the context ends.
func (e *MatchingEngine) Stop(ctx context.Context) error {
	if !e.state.CompareAndSwap(engineRunning, engineStopping) {
		return nil
	}
	select {
	case <-e.done:
		e.log.Info().Msg("engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues one event for processing.
func (e *MatchingEngine) Submit(ev InboundEvent) error {
	if e.state.Load() != engineRunning {
		return fmt.Errorf("%w: engine %d", ErrNotRunning, e.id)
	}
	e.queue.Push(ev)
	return nil
}

func (e *MatchingEngine) Backlog() int { return e.queue.Len() }

func (e *MatchingEngine) run() {
	defer close(e.done)
	defer e.state.Store(engineStopped)
	for {
		ev, ok := e.queue.Pop(pollInterval)
		if !ok {
			if e.state.Load() == engineStopping {
				return
			}
			continue
		}
		e.handle(ev)
	}
}

// handle processes one event. A panic in one event must not take down the
// partition, so each event runs under its own recover.
func (e *MatchingEngine) handle(ev InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Interface("panic", r).
				Str("orderbook", ev.OrderbookID()).
				Bytes("stack", debug.Stack()).
				Msg("event processing panicked")
		}
	}()

	switch {
	case ev.StateChange != nil:
		e.handleStateChange(*ev.StateChange)
	case ev.Order != nil:
		e.handleOrder(*ev.Order)
	default:
		e.log.Warn().Uint64("sequence", ev.Sequence).Msg("empty inbound event dropped")
	}
}

func (e *MatchingEngine) handleStateChange(sc orderbook.StateChange) {
	books := e.registry.All()
	if sc.OrderbookID != "" {
		book, err := e.registry.Get(sc.OrderbookID)
		if err != nil {
			e.log.Error().Err(err).Str("orderbook", sc.OrderbookID).Msg("state change for unknown book")
			return
		}
		books = []*orderbook.Orderbook{book}
	}
	for _, book := range books {
		events, state, err := book.UpdateState(sc.TargetState)
		if err != nil {
			e.log.Error().Err(err).Str("orderbook", book.ID()).Msg("state change rejected")
			continue
		}
		e.pub.PublishStateChange(book.ID(), state)
		e.publish(book, events)
	}
}

func (e *MatchingEngine) handleOrder(o orderbook.Order) {
	book, err := e.registry.Get(o.OrderbookID)
	if err != nil {
		e.log.Error().Err(err).Str("orderbook", o.OrderbookID).Str("order", o.OrderID).Msg("order for unknown book")
		return
	}
	events, err := book.Submit(o)
	if err != nil {
		e.log.Warn().Err(err).Str("order", o.OrderID).Msg("order rejected")
		return
	}
	e.publish(book, events)
}

func (e *MatchingEngine) publish(book *orderbook.Orderbook, events []orderbook.Event) {
	state := book.State()
	for _, ev := range events {
		switch {
		case ev.Order != nil:
			e.pub.PublishOrder(*ev.Order)
		case ev.Trade != nil:
			e.pub.PublishTrade(orderbook.TradeExecution{Trade: *ev.Trade, State: state})
		}
	}
	if top, changed := book.TopOfBookIfChanged(); changed {
		e.pub.PublishTopOfBook(top)
	}
}
