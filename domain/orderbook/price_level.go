package orderbook

import (
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/shopspring/decimal"
)

// fifoComparator orders resting orders by submission time, ties broken by
// order id. It is the price/time priority used by FIFO books.
func fifoComparator(a, b interface{}) int {
	oa, ob := a.(Order), b.(Order)
	if oa.SubmittedAt.Before(ob.SubmittedAt) {
		return -1
	}
	if oa.SubmittedAt.After(ob.SubmittedAt) {
		return 1
	}
	return strings.Compare(oa.OrderID, ob.OrderID)
}

// proRataComparator orders resting orders by current volume descending, ties
// broken by order id. Pro-rata uses it purely as the allocation visiting order.
func proRataComparator(a, b interface{}) int {
	oa, ob := a.(Order), b.(Order)
	if c := ob.CurrentVolume.Cmp(oa.CurrentVolume); c != 0 {
		return c
	}
	return strings.Compare(oa.OrderID, ob.OrderID)
}

// PriceLevel is the ordered set of resting orders at a single price on one
// side of the book. It caches the total resting volume and must never persist
// empty: the owning ActiveOrders removes it when its last order is removed.
type PriceLevel struct {
	Price decimal.Decimal

	orders *treeset.Set
	volume decimal.Decimal
}

func newPriceLevel(price decimal.Decimal, cmp utils.Comparator) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: treeset.NewWith(cmp),
	}
}

func (pl *PriceLevel) add(o Order) {
	pl.orders.Add(o)
	pl.volume = pl.volume.Add(o.CurrentVolume)
}

func (pl *PriceLevel) remove(o Order) bool {
	if !pl.orders.Contains(o) {
		return false
	}
	pl.orders.Remove(o)
	pl.volume = pl.volume.Sub(o.CurrentVolume)
	return true
}

func (pl *PriceLevel) Empty() bool { return pl.orders.Empty() }

func (pl *PriceLevel) Size() int { return pl.orders.Size() }

// Volume is the total resting volume at this level.
func (pl *PriceLevel) Volume() decimal.Decimal { return pl.volume }

// VolumeExcluding is the resting volume at this level not owned by the given
// participant. Matching uses it so an aggressor never counts its own liquidity.
func (pl *PriceLevel) VolumeExcluding(participant string) decimal.Decimal {
	vol := decimal.Zero
	pl.Each(func(o Order) bool {
		if o.Participant != participant {
			vol = vol.Add(o.CurrentVolume)
		}
		return true
	})
	return vol
}

// First returns the highest-priority order at this level.
func (pl *PriceLevel) First() (Order, bool) {
	it := pl.orders.Iterator()
	if !it.Next() {
		return Order{}, false
	}
	return it.Value().(Order), true
}

// FirstExcluding returns the highest-priority order at this level that does
// not belong to the given participant.
func (pl *PriceLevel) FirstExcluding(participant string) (Order, bool) {
	var first Order
	found := false
	pl.Each(func(o Order) bool {
		if o.Participant != participant {
			first, found = o, true
			return false
		}
		return true
	})
	return first, found
}

// Each walks the level in priority order until fn returns false.
func (pl *PriceLevel) Each(fn func(Order) bool) {
	it := pl.orders.Iterator()
	for it.Next() {
		if !fn(it.Value().(Order)) {
			return
		}
	}
}
