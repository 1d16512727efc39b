package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange/refdata"
)

func TestRegistryCreatesBookOnce(t *testing.T) {
	r := NewRegistry(newStaticLookup(fifoBook("b-1")), nopLog())

	first, err := r.Get("b-1")
	require.NoError(t, err)
	second, err := r.Get("b-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, r.All(), 1)
}

func TestRegistryRejectsUnknownBook(t *testing.T) {
	r := NewRegistry(newStaticLookup(), nopLog())
	_, err := r.Get("ghost")
	assert.ErrorIs(t, err, ErrUnknownOrderbook)
}

func TestRegistryRejectsUnknownMatchingAlgorithm(t *testing.T) {
	data := fifoBook("b-1")
	data.Algorithm = "VWAP"
	r := NewRegistry(newStaticLookup(data), nopLog())
	_, err := r.Get("b-1")
	assert.Error(t, err)
}

func TestRegistrySelectsAuctionAlgorithm(t *testing.T) {
	none := fifoBook("b-none")
	none.AuctionAlgorithm = "NONE"
	dutch := fifoBook("b-dutch")
	dutch.AuctionAlgorithm = "DUTCH"
	bad := fifoBook("b-bad")
	bad.AuctionAlgorithm = "SEALED_BID"
	r := NewRegistry(newStaticLookup(none, dutch, bad), nopLog())

	_, err := r.Get("b-none")
	assert.NoError(t, err)
	_, err = r.Get("b-dutch")
	assert.NoError(t, err)
	_, err = r.Get("b-bad")
	assert.Error(t, err)
}

func TestAuctionVariantSelection(t *testing.T) {
	auction, err := auctionFor(refdata.OrderbookData{OrderbookID: "b-1"})
	require.NoError(t, err)
	assert.Equal(t, "DUTCH", auction.Name())

	auction, err = auctionFor(refdata.OrderbookData{OrderbookID: "b-1", AuctionAlgorithm: "NONE"})
	require.NoError(t, err)
	assert.Equal(t, "NONE", auction.Name())
}
