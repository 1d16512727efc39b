package engine

import (
	"fmt"
	"hash/fnv"

	"github.com/rs/zerolog"

	"exchange/refdata"
)

// Router assigns each order book to exactly one engine by hashing its market
// identifier, so all books of a market are handled by a single worker in
// arrival order.
type Router struct {
	engines []*MatchingEngine
	lookup  refdata.Lookup
	log     zerolog.Logger
}

func NewRouter(lookup refdata.Lookup, log zerolog.Logger, engines ...*MatchingEngine) (*Router, error) {
	if len(engines) == 0 {
		return nil, fmt.Errorf("router needs at least one engine")
	}
	return &Router{engines: engines, lookup: lookup, log: log}, nil
}

// Route submits the event to its partition. A state change with no book id
// fans out to every engine.
func (r *Router) Route(ev InboundEvent) error {
	id := ev.OrderbookID()
	if id == "" {
		if ev.StateChange == nil {
			return fmt.Errorf("event without orderbook id")
		}
		for _, e := range r.engines {
			if err := e.Submit(ev); err != nil {
				return err
			}
		}
		return nil
	}
	return r.engines[r.partition(id)].Submit(ev)
}

// partition keys on the book's market when reference data names one; books
// without a market hash on their own id.
func (r *Router) partition(orderbookID string) int {
	key := orderbookID
	if data, ok := r.lookup.Orderbook(orderbookID); ok && data.MarketID != "" {
		key = data.MarketID
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(r.engines)))
}
