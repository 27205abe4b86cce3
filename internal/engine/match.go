package engine

import (
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
)

// MatchResult identifies the two counterparties of a single fill along with
// the quantity and price they settle at. The price is always the resting
// order's price: price improvement favors the resting side, never the
// aggressor.
type MatchResult struct {
	BidActor string
	AskActor string
	Quantity uint64
	Price    float64
}

// matchOrder applies one incoming order to a market. It selects at most one
// counter-order: the scan is first-fit over the opposing list, which
// coincides with best-price only because both lists are kept sorted with
// the best price first. That coincidence is load-bearing; do not change the
// list ordering without revisiting this scan.
//
// A large aggressive order therefore consumes a single price level per
// invocation and rests its remainder even when deeper matchable liquidity
// exists. That is the contract's defined behavior, not an oversight.
func matchOrder(incoming domain.Order, market *domain.Market) (MatchResult, bool) {
	switch incoming.Side {
	case domain.SideAsk:
		idx := -1
		for i := range market.Bids {
			if market.Bids[i].Price >= incoming.Price {
				idx = i
				break
			}
		}
		if idx < 0 {
			market.Asks = append(market.Asks, incoming)
			market.ReorderAsks()
			return MatchResult{}, false
		}

		counter := market.Bids[idx]
		qty := min(incoming.Quantity, counter.Quantity)

		if counter.Quantity-qty == 0 {
			market.Bids = append(market.Bids[:idx], market.Bids[idx+1:]...)
		} else {
			market.Bids[idx].Quantity = counter.Quantity - qty
		}

		if remaining := incoming.Quantity - qty; remaining > 0 {
			incoming.Quantity = remaining
			market.Asks = append(market.Asks, incoming)
			market.ReorderAsks()
		}

		return MatchResult{
			BidActor: counter.Actor,
			AskActor: incoming.Actor,
			Quantity: qty,
			Price:    counter.Price,
		}, true

	default: // domain.SideBid, validated upstream
		idx := -1
		for i := range market.Asks {
			if market.Asks[i].Price <= incoming.Price {
				idx = i
				break
			}
		}
		if idx < 0 {
			market.Bids = append(market.Bids, incoming)
			market.ReorderBids()
			return MatchResult{}, false
		}

		counter := market.Asks[idx]
		qty := min(incoming.Quantity, counter.Quantity)

		if counter.Quantity-qty == 0 {
			market.Asks = append(market.Asks[:idx], market.Asks[idx+1:]...)
		} else {
			market.Asks[idx].Quantity = counter.Quantity - qty
		}

		if remaining := incoming.Quantity - qty; remaining > 0 {
			incoming.Quantity = remaining
			market.Bids = append(market.Bids, incoming)
			market.ReorderBids()
		}

		return MatchResult{
			BidActor: incoming.Actor,
			AskActor: counter.Actor,
			Quantity: qty,
			Price:    counter.Price,
		}, true
	}
}
