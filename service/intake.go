package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"exchange/domain/orderbook"
	"exchange/engine"
	"exchange/infra/kafka"
	"exchange/infra/sequence"
	"exchange/refdata"
)

// Recorder is the audit trail seen by the intake.
type Recorder interface {
	Record(ctx context.Context, source string, payload any)
}

// Intake is the inbound edge of the engine: it decodes consumed envelopes,
// stamps them with an arrival sequence, records them to the audit trail and
// routes them to their partition. One Intake serves all inbound topics.
type Intake struct {
	router    *engine.Router
	store     *refdata.Store
	scheduler *engine.SessionScheduler
	audit     Recorder
	seq       *sequence.Sequencer
	now       func() time.Time
	log       zerolog.Logger
}

func NewIntake(router *engine.Router, store *refdata.Store, scheduler *engine.SessionScheduler, trail Recorder, seq *sequence.Sequencer, log zerolog.Logger) *Intake {
	return &Intake{
		router:    router,
		store:     store,
		scheduler: scheduler,
		audit:     trail,
		seq:       seq,
		now:       time.Now,
		log:       log.With().Str("component", "intake").Logger(),
	}
}

// HandleOrder processes one order-data envelope.
func (i *Intake) HandleOrder(ctx context.Context, env kafka.Envelope) error {
	i.audit.Record(ctx, kafka.CategoryOrderData, env)
	var o orderbook.Order
	if err := env.Unwrap(&o); err != nil {
		return err
	}
	seq := i.seq.Next()
	o.Sequence = seq
	if o.SubmittedAt.IsZero() {
		o.SubmittedAt = i.now()
	}
	return i.router.Route(engine.InboundEvent{
		Order:      &o,
		Sequence:   seq,
		ReceivedAt: i.now(),
	})
}

// HandleStateChange processes one externally requested session state change,
// e.g. a trade halt from market operations.
func (i *Intake) HandleStateChange(ctx context.Context, env kafka.Envelope) error {
	i.audit.Record(ctx, kafka.CategoryStateChange, env)
	var sc orderbook.StateChange
	if err := env.Unwrap(&sc); err != nil {
		return err
	}
	seq := i.seq.Next()
	sc.Sequence = seq
	return i.router.Route(engine.InboundEvent{
		StateChange: &sc,
		Sequence:    seq,
		ReceivedAt:  i.now(),
	})
}

// HandleReferenceData upserts reference data and arms the session scheduler
// for any book whose calendar is known.
func (i *Intake) HandleReferenceData(ctx context.Context, env kafka.Envelope) error {
	i.audit.Record(ctx, kafka.CategoryReferenceData, env)
	var up refdata.Update
	if err := env.Unwrap(&up); err != nil {
		return err
	}
	if up.Instrument != nil {
		if err := i.store.PutInstrument(*up.Instrument); err != nil {
			return err
		}
	}
	if up.Calendar != nil {
		if err := i.store.PutCalendar(*up.Calendar); err != nil {
			return err
		}
	}
	if up.Orderbook != nil {
		if err := i.store.PutOrderbook(*up.Orderbook); err != nil {
			return err
		}
		if cal, ok := i.store.Calendar(up.Orderbook.CalendarID); ok {
			i.scheduler.Schedule(up.Orderbook.OrderbookID, cal)
		} else if up.Orderbook.CalendarID != "" {
			i.log.Warn().
				Str("orderbook", up.Orderbook.OrderbookID).
				Str("calendar", up.Orderbook.CalendarID).
				Msg("calendar not yet known, sessions unscheduled")
		}
	}
	return nil
}
