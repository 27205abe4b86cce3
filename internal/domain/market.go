package domain

import (
	"fmt"
	"sort"
)

// Market holds the two order lists for one traded asset. Asks are kept
// ascending by price (cheapest first), bids descending (highest first).
// Ordering is restored by a full re-sort after every mutation rather than
// maintained incrementally; the sorts are stable so orders at the same
// price keep their insertion order.
type Market struct {
	Asks []Order `json:"asks"`
	Bids []Order `json:"bids"`
}

// NewMarket returns an empty market.
func NewMarket() *Market {
	return &Market{Asks: []Order{}, Bids: []Order{}}
}

// ReorderAsks restores the ascending price order of the ask list.
func (m *Market) ReorderAsks() {
	sort.SliceStable(m.Asks, func(i, j int) bool {
		return m.Asks[i].Price < m.Asks[j].Price
	})
}

// ReorderBids restores the descending price order of the bid list.
func (m *Market) ReorderBids() {
	sort.SliceStable(m.Bids, func(i, j int) bool {
		return m.Bids[i].Price > m.Bids[j].Price
	})
}

// VerifyInvariant panics if the market violates its structural invariants:
// no zero-quantity resident orders, asks non-decreasing, bids non-increasing.
func (m *Market) VerifyInvariant() {
	for i, o := range m.Asks {
		if o.Quantity == 0 {
			panic(fmt.Sprintf("INVARIANT_ZERO_QTY_ASK: index %d actor %s", i, o.Actor))
		}
		if i > 0 && m.Asks[i-1].Price > o.Price {
			panic(fmt.Sprintf("INVARIANT_ASKS_UNSORTED: index %d", i))
		}
	}
	for i, o := range m.Bids {
		if o.Quantity == 0 {
			panic(fmt.Sprintf("INVARIANT_ZERO_QTY_BID: index %d actor %s", i, o.Actor))
		}
		if i > 0 && m.Bids[i-1].Price < o.Price {
			panic(fmt.Sprintf("INVARIANT_BIDS_UNSORTED: index %d", i))
		}
	}
}

// Clone returns a deep copy of the market.
func (m *Market) Clone() *Market {
	c := &Market{
		Asks: make([]Order, len(m.Asks)),
		Bids: make([]Order, len(m.Bids)),
	}
	copy(c.Asks, m.Asks)
	copy(c.Bids, m.Bids)
	return c
}
