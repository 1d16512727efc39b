package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"exchange/domain/orderbook"
	"exchange/infra/sequence"
	"exchange/refdata"
)

// SessionScheduler turns a trading calendar into timed state changes routed
// through the engines like any other inbound event. Windows already in the
// past fire immediately, so a mid-day restart catches a book up to the right
// session state.
type SessionScheduler struct {
	router *Router
	seq    *sequence.Sequencer
	now    func() time.Time
	log    zerolog.Logger

	mu     sync.Mutex
	timers []*time.Timer
}

func NewSessionScheduler(router *Router, seq *sequence.Sequencer, log zerolog.Logger) *SessionScheduler {
	return &SessionScheduler{
		router: router,
		seq:    seq,
		now:    time.Now,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Schedule arms one timer per calendar window for the given book.
func (s *SessionScheduler) Schedule(orderbookID string, cal refdata.TradingCalendar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, window := range cal.Windows {
		delay := window.StartsAt.Sub(s.now())
		if delay <= 0 {
			// catch-up happens in calendar order, not timer order
			s.fire(orderbookID, window)
			continue
		}
		w := window
		s.timers = append(s.timers, time.AfterFunc(delay, func() {
			s.fire(orderbookID, w)
		}))
		s.log.Info().
			Str("orderbook", orderbookID).
			Stringer("state", window.State).
			Time("at", window.StartsAt).
			Dur("delay", delay).
			Msg("state change scheduled")
	}
}

func (s *SessionScheduler) fire(orderbookID string, window refdata.TradingWindow) {
	seq := s.seq.Next()
	ev := InboundEvent{
		StateChange: &orderbook.StateChange{
			OrderbookID: orderbookID,
			TargetState: window.State,
			EffectiveAt: window.StartsAt,
			Sequence:    seq,
		},
		Sequence:   seq,
		ReceivedAt: s.now(),
	}
	if err := s.router.Route(ev); err != nil {
		s.log.Error().Err(err).
			Str("orderbook", orderbookID).
			Stringer("state", window.State).
			Msg("scheduled state change not delivered")
	}
}

// Stop cancels all pending timers. Already-fired changes are not recalled.
func (s *SessionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}
