package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"exchange/domain/orderbook"
	"exchange/refdata"
)

var ErrUnknownOrderbook = errors.New("unknown orderbook")

// Registry creates and caches order books on first reference, wiring each one
// with the algorithms its reference data names. Creation is serialised so a
// book exists exactly once no matter how many goroutines ask for it.
type Registry struct {
	mu     sync.Mutex
	books  map[string]*orderbook.Orderbook
	lookup refdata.Lookup
	log    zerolog.Logger
}

func NewRegistry(lookup refdata.Lookup, log zerolog.Logger) *Registry {
	return &Registry{
		books:  make(map[string]*orderbook.Orderbook),
		lookup: lookup,
		log:    log,
	}
}

// Get returns the book for the id, creating it from reference data when first
// seen. An id with no reference data is an error, not an implicit book.
func (r *Registry) Get(orderbookID string) (*orderbook.Orderbook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if book, ok := r.books[orderbookID]; ok {
		return book, nil
	}
	data, ok := r.lookup.Orderbook(orderbookID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrderbook, orderbookID)
	}
	matcher, err := matcherFor(data)
	if err != nil {
		return nil, err
	}
	auction, err := auctionFor(data)
	if err != nil {
		return nil, err
	}
	book := orderbook.NewOrderbook(data.OrderbookID, data.InstrumentID, matcher, auction, r.log)
	r.books[orderbookID] = book
	r.log.Info().Str("orderbook", orderbookID).Str("algorithm", matcher.Name()).Msg("orderbook created")
	return book, nil
}

// All returns every book created so far.
func (r *Registry) All() []*orderbook.Orderbook {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*orderbook.Orderbook, 0, len(r.books))
	for _, book := range r.books {
		out = append(out, book)
	}
	return out
}

func matcherFor(data refdata.OrderbookData) (orderbook.MatchingAlgorithm, error) {
	switch data.Algorithm {
	case "", "FIFO":
		return orderbook.NewFIFOMatching(), nil
	case "PRO_RATA":
		min := data.MinTradeVolume
		if !min.IsPositive() {
			min = decimal.NewFromInt(1)
		}
		return orderbook.NewProRataMatching(min), nil
	default:
		return nil, fmt.Errorf("unknown matching algorithm %q for %s", data.Algorithm, data.OrderbookID)
	}
}

func auctionFor(data refdata.OrderbookData) (orderbook.AuctionAlgorithm, error) {
	switch data.AuctionAlgorithm {
	case "", "DUTCH":
		return orderbook.NewDutchAuction(), nil
	case "NONE":
		return orderbook.NewNoAuction(), nil
	default:
		return nil, fmt.Errorf("unknown auction algorithm %q for %s", data.AuctionAlgorithm, data.OrderbookID)
	}
}
