package orderbook

import (
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/shopspring/decimal"
)

// VolumeMatchAtPrice is one candidate uncross price with the volume each side
// would trade there.
type VolumeMatchAtPrice struct {
	Price         decimal.Decimal `json:"price"`
	BidVolume     decimal.Decimal `json:"bidVolume"`
	AskVolume     decimal.Decimal `json:"askVolume"`
	MatchedVolume decimal.Decimal `json:"matchedVolume"`
}

// EquilibriumPriceResult is the outcome of an equilibrium search. When
// HasEquilibrium is false the book was not crossed and nothing trades.
type EquilibriumPriceResult struct {
	HasEquilibrium   bool                 `json:"hasEquilibrium"`
	EquilibriumPrice decimal.Decimal      `json:"equilibriumPrice"`
	MatchedVolume    decimal.Decimal      `json:"matchedVolume"`
	Candidates       []VolumeMatchAtPrice `json:"candidates"`
}

// AuctionAlgorithm finds the single price an auction uncrosses at.
type AuctionAlgorithm interface {
	Name() string
	EquilibriumPrice(active *ActiveOrders) EquilibriumPriceResult
}

// NoAuction never finds an equilibrium. Books configured with it pass through
// auction run states with every resting order untouched.
type NoAuction struct{}

func NewNoAuction() NoAuction { return NoAuction{} }

func (NoAuction) Name() string { return "NONE" }

func (NoAuction) EquilibriumPrice(*ActiveOrders) EquilibriumPriceResult {
	return EquilibriumPriceResult{}
}

// DutchAuction picks the price that maximises matched volume over the crossed
// region of the book. Candidates are scanned in ascending price order and an
// incumbent is only replaced by strictly more volume, so ties resolve to the
// lowest price.
type DutchAuction struct{}

func NewDutchAuction() DutchAuction { return DutchAuction{} }

func (DutchAuction) Name() string { return "DUTCH" }

func (DutchAuction) EquilibriumPrice(active *ActiveOrders) EquilibriumPriceResult {
	if !active.HasBothSides() {
		return EquilibriumPriceResult{}
	}
	bestBid := active.BestBidPrice()
	bestAsk := active.BestAskPrice()
	if bestBid.LessThan(bestAsk) {
		return EquilibriumPriceResult{}
	}

	// Candidate prices are every level price inside [bestAsk, bestBid].
	prices := treeset.NewWith(priceAsc)
	for _, level := range active.BidLevelsAtOrAbove(bestAsk) {
		prices.Add(level.Price)
	}
	for _, level := range active.AskLevelsAtOrBelow(bestBid) {
		prices.Add(level.Price)
	}

	result := EquilibriumPriceResult{}
	it := prices.Iterator()
	for it.Next() {
		price := it.Value().(decimal.Decimal)
		bidVol := decimal.Zero
		for _, level := range active.BidLevelsAtOrAbove(price) {
			bidVol = bidVol.Add(level.Volume())
		}
		askVol := decimal.Zero
		for _, level := range active.AskLevelsAtOrBelow(price) {
			askVol = askVol.Add(level.Volume())
		}
		candidate := VolumeMatchAtPrice{
			Price:         price,
			BidVolume:     bidVol,
			AskVolume:     askVol,
			MatchedVolume: decimal.Min(bidVol, askVol),
		}
		result.Candidates = append(result.Candidates, candidate)
		if candidate.MatchedVolume.GreaterThan(result.MatchedVolume) {
			result.HasEquilibrium = true
			result.EquilibriumPrice = candidate.Price
			result.MatchedVolume = candidate.MatchedVolume
		}
	}
	return result
}
