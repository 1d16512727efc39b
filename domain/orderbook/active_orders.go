package orderbook

import (
	"errors"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSide    = errors.New("invalid order side")
	ErrUnknownOrder   = errors.New("unknown order id")
	ErrDuplicateOrder = errors.New("duplicate order id")
)

func priceAsc(a, b interface{}) int {
	return a.(decimal.Decimal).Cmp(b.(decimal.Decimal))
}

func priceDesc(a, b interface{}) int {
	return b.(decimal.Decimal).Cmp(a.(decimal.Decimal))
}

// ActiveOrders is the mutable core of one order book: two price-ordered maps
// of price levels (bids descending, asks ascending) plus an order-id index.
// An order id appears in at most one level on at most one side. The structure
// does not prevent crossed books; resolving a cross is the matching
// algorithm's job.
type ActiveOrders struct {
	bids     *treemap.Map
	asks     *treemap.Map
	byID     map[string]Order
	orderCmp utils.Comparator
}

// NewActiveOrders builds a book whose levels order their orders with the given
// comparator (price/time for FIFO, volume-descending for pro-rata).
func NewActiveOrders(orderCmp utils.Comparator) *ActiveOrders {
	return &ActiveOrders{
		bids:     treemap.NewWith(priceDesc),
		asks:     treemap.NewWith(priceAsc),
		byID:     make(map[string]Order),
		orderCmp: orderCmp,
	}
}

func (a *ActiveOrders) sideMap(side Side) *treemap.Map {
	switch side {
	case Bid:
		return a.bids
	case Ask:
		return a.asks
	default:
		return nil
	}
}

// Add inserts a new resting order, creating its price level when needed. An
// id already in the book is rejected so it can never occupy two levels.
func (a *ActiveOrders) Add(o Order) error {
	levels := a.sideMap(o.Side)
	if levels == nil {
		return ErrInvalidSide
	}
	if _, exists := a.byID[o.OrderID]; exists {
		return ErrDuplicateOrder
	}
	var level *PriceLevel
	if v, found := levels.Get(o.Price); found {
		level = v.(*PriceLevel)
	} else {
		level = newPriceLevel(o.Price, a.orderCmp)
		levels.Put(o.Price, level)
	}
	level.add(o)
	a.byID[o.OrderID] = o
	return nil
}

// Update replaces an order version. A price change re-buckets the order, so
// update is remove followed by add.
func (a *ActiveOrders) Update(o Order) error {
	if o.Side != Bid && o.Side != Ask {
		return ErrInvalidSide
	}
	if err := a.Remove(o.OrderID); err != nil {
		return err
	}
	return a.Add(o)
}

// Remove takes an order out of the book by id. Empty levels are dropped
// immediately.
func (a *ActiveOrders) Remove(orderID string) error {
	o, found := a.byID[orderID]
	if !found {
		return ErrUnknownOrder
	}
	delete(a.byID, orderID)
	levels := a.sideMap(o.Side)
	if v, ok := levels.Get(o.Price); ok {
		level := v.(*PriceLevel)
		level.remove(o)
		if level.Empty() {
			levels.Remove(o.Price)
		}
	}
	return nil
}

func (a *ActiveOrders) Get(orderID string) (Order, bool) {
	o, found := a.byID[orderID]
	return o, found
}

func (a *ActiveOrders) HasBothSides() bool {
	return !a.bids.Empty() && !a.asks.Empty()
}

// ---- best-of-book ----

func bestLevel(levels *treemap.Map) (*PriceLevel, bool) {
	_, v := levels.Min()
	if v == nil {
		return nil, false
	}
	return v.(*PriceLevel), true
}

func (a *ActiveOrders) BestBidLevel() (*PriceLevel, bool) { return bestLevel(a.bids) }
func (a *ActiveOrders) BestAskLevel() (*PriceLevel, bool) { return bestLevel(a.asks) }

func (a *ActiveOrders) BestBid() (Order, bool) {
	if level, ok := a.BestBidLevel(); ok {
		return level.First()
	}
	return Order{}, false
}

func (a *ActiveOrders) BestAsk() (Order, bool) {
	if level, ok := a.BestAskLevel(); ok {
		return level.First()
	}
	return Order{}, false
}

func (a *ActiveOrders) BestBidPrice() decimal.Decimal {
	if level, ok := a.BestBidLevel(); ok {
		return level.Price
	}
	return decimal.Zero
}

func (a *ActiveOrders) BestAskPrice() decimal.Decimal {
	if level, ok := a.BestAskLevel(); ok {
		return level.Price
	}
	return decimal.Zero
}

// bestOpposing returns the best-priced opposing order not owned by the
// aggressor's participant, walking deeper orders and levels as needed. Skipping
// same-participant orders here is what keeps wash trades out: the pairing is
// never formed, and the resting order stays where it is.
func (a *ActiveOrders) bestOpposing(aggressor Order) (Order, bool) {
	levels := a.sideMap(aggressor.Side.Opposite())
	if levels == nil {
		return Order{}, false
	}
	it := levels.Iterator()
	for it.Next() {
		if o, ok := it.Value().(*PriceLevel).FirstExcluding(aggressor.Participant); ok {
			return o, true
		}
	}
	return Order{}, false
}

// bestOpposingLevel returns the best opposing level holding volume the
// aggressor is allowed to trade against.
func (a *ActiveOrders) bestOpposingLevel(aggressor Order) (*PriceLevel, bool) {
	levels := a.sideMap(aggressor.Side.Opposite())
	if levels == nil {
		return nil, false
	}
	it := levels.Iterator()
	for it.Next() {
		level := it.Value().(*PriceLevel)
		if level.VolumeExcluding(aggressor.Participant).IsPositive() {
			return level, true
		}
	}
	return nil, false
}

// ---- counters and depth accessors ----

func (a *ActiveOrders) NumBidLevels() int { return a.bids.Size() }
func (a *ActiveOrders) NumAskLevels() int { return a.asks.Size() }
func (a *ActiveOrders) NumLevels() int    { return a.bids.Size() + a.asks.Size() }

func countOrders(levels *treemap.Map) int64 {
	var n int64
	it := levels.Iterator()
	for it.Next() {
		n += int64(it.Value().(*PriceLevel).Size())
	}
	return n
}

func (a *ActiveOrders) NumBidOrders() int64 { return countOrders(a.bids) }
func (a *ActiveOrders) NumAskOrders() int64 { return countOrders(a.asks) }
func (a *ActiveOrders) NumOrders() int64    { return int64(len(a.byID)) }

func sumVolume(levels *treemap.Map) decimal.Decimal {
	vol := decimal.Zero
	it := levels.Iterator()
	for it.Next() {
		vol = vol.Add(it.Value().(*PriceLevel).Volume())
	}
	return vol
}

func (a *ActiveOrders) TotalBidVolume() decimal.Decimal { return sumVolume(a.bids) }
func (a *ActiveOrders) TotalAskVolume() decimal.Decimal { return sumVolume(a.asks) }

func (a *ActiveOrders) TotalVolume() decimal.Decimal {
	return a.TotalBidVolume().Add(a.TotalAskVolume())
}

// levelAtDepth returns the 1-based depth-th level. Depths past the end yield
// nil so callers can probe without bounds-checking first.
func levelAtDepth(levels *treemap.Map, depth int) *PriceLevel {
	if depth < 1 {
		return nil
	}
	it := levels.Iterator()
	for it.Next() {
		depth--
		if depth == 0 {
			return it.Value().(*PriceLevel)
		}
	}
	return nil
}

func (a *ActiveOrders) BidVolumeAtDepth(depth int) decimal.Decimal {
	if level := levelAtDepth(a.bids, depth); level != nil {
		return level.Volume()
	}
	return decimal.Zero
}

func (a *ActiveOrders) AskVolumeAtDepth(depth int) decimal.Decimal {
	if level := levelAtDepth(a.asks, depth); level != nil {
		return level.Volume()
	}
	return decimal.Zero
}

func (a *ActiveOrders) VolumeAtDepth(depth int) decimal.Decimal {
	return a.BidVolumeAtDepth(depth).Add(a.AskVolumeAtDepth(depth))
}

func (a *ActiveOrders) BidPriceAtDepth(depth int) decimal.Decimal {
	if level := levelAtDepth(a.bids, depth); level != nil {
		return level.Price
	}
	return decimal.Zero
}

func (a *ActiveOrders) AskPriceAtDepth(depth int) decimal.Decimal {
	if level := levelAtDepth(a.asks, depth); level != nil {
		return level.Price
	}
	return decimal.Zero
}

// ---- matching support ----

// IsTotalFillPossible walks the opposing levels accumulating volume the order
// could trade against, stopping as soon as the order's remaining volume is
// covered. Limit orders stop at the first price they cannot cross; own
// liquidity is never counted.
func (a *ActiveOrders) IsTotalFillPossible(o Order) bool {
	levels := a.sideMap(o.Side.Opposite())
	if levels == nil {
		return false
	}
	available := decimal.Zero
	it := levels.Iterator()
	for it.Next() {
		level := it.Value().(*PriceLevel)
		if o.Type != Market && !priceCompatible(o, level.Price) {
			return false
		}
		available = available.Add(level.VolumeExcluding(o.Participant))
		if o.CurrentVolume.LessThanOrEqual(available) {
			return true
		}
	}
	return false
}

// BidLevelsAtOrAbove returns bid levels priced >= limit, best first. The
// auction algorithm uses it to bound its candidate search to the crossed
// region.
func (a *ActiveOrders) BidLevelsAtOrAbove(limit decimal.Decimal) []*PriceLevel {
	var out []*PriceLevel
	it := a.bids.Iterator()
	for it.Next() {
		level := it.Value().(*PriceLevel)
		if level.Price.LessThan(limit) {
			break
		}
		out = append(out, level)
	}
	return out
}

// AskLevelsAtOrBelow returns ask levels priced <= limit, best first.
func (a *ActiveOrders) AskLevelsAtOrBelow(limit decimal.Decimal) []*PriceLevel {
	var out []*PriceLevel
	it := a.asks.Iterator()
	for it.Next() {
		level := it.Value().(*PriceLevel)
		if level.Price.GreaterThan(limit) {
			break
		}
		out = append(out, level)
	}
	return out
}

// priceCompatible reports whether the order's limit allows it to trade at the
// opposing price. Market orders always trade.
func priceCompatible(o Order, opposingPrice decimal.Decimal) bool {
	if o.Type == Market {
		return true
	}
	switch o.Side {
	case Bid:
		return o.Price.GreaterThanOrEqual(opposingPrice)
	case Ask:
		return o.Price.LessThanOrEqual(opposingPrice)
	default:
		return false
	}
}
