package engine

import (
	"testing"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
)

// =====================================================
// Matching Algorithm Tests
// =====================================================

func TestMatch_NoCounterOrderRests(t *testing.T) {
	market := domain.NewMarket()

	_, ok := matchOrder(domain.Order{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 10}, market)
	if ok {
		t.Fatal("expected no match against an empty book")
	}

	if len(market.Bids) != 1 {
		t.Fatalf("expected 1 resting bid, got %d", len(market.Bids))
	}
	if market.Bids[0].Actor != "alice" || market.Bids[0].Quantity != 10 {
		t.Errorf("resting bid corrupted: %+v", market.Bids[0])
	}
	market.VerifyInvariant()
}

func TestMatch_AskAgainstRestingBid(t *testing.T) {
	market := domain.NewMarket()
	market.Bids = append(market.Bids, domain.Order{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 10})

	res, ok := matchOrder(domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 4, Quantity: 10}, market)
	if !ok {
		t.Fatal("expected a match")
	}

	// Resting order's price always wins.
	if res.Price != 5 {
		t.Errorf("matched price = %v, want 5 (resting bid price)", res.Price)
	}
	if res.Quantity != 10 {
		t.Errorf("matched quantity = %d, want 10", res.Quantity)
	}
	if res.BidActor != "alice" || res.AskActor != "bob" {
		t.Errorf("actor pair = (%s, %s), want (alice, bob)", res.BidActor, res.AskActor)
	}

	if len(market.Bids) != 0 {
		t.Errorf("fully consumed bid should be removed, got %d bids", len(market.Bids))
	}
	if len(market.Asks) != 0 {
		t.Errorf("fully filled ask should not rest, got %d asks", len(market.Asks))
	}
}

func TestMatch_PriceNotAcceptable(t *testing.T) {
	market := domain.NewMarket()
	market.Bids = append(market.Bids, domain.Order{Actor: "alice", Side: domain.SideBid, Price: 3, Quantity: 10})

	// Ask at 4 against a bid at 3: no trade, ask rests.
	_, ok := matchOrder(domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 4, Quantity: 10}, market)
	if ok {
		t.Fatal("ask above best bid must not match")
	}
	if len(market.Asks) != 1 || len(market.Bids) != 1 {
		t.Errorf("book shape = %d asks / %d bids, want 1/1", len(market.Asks), len(market.Bids))
	}
}

func TestMatch_PartialFillReducesCounterInPlace(t *testing.T) {
	market := domain.NewMarket()
	market.Bids = append(market.Bids,
		domain.Order{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 10},
		domain.Order{Actor: "carol", Side: domain.SideBid, Price: 4, Quantity: 7},
	)

	res, ok := matchOrder(domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 4, Quantity: 6}, market)
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Quantity != 6 || res.Price != 5 {
		t.Fatalf("match = %d @ %v, want 6 @ 5", res.Quantity, res.Price)
	}

	// Alice keeps her position with a reduced quantity.
	if market.Bids[0].Actor != "alice" || market.Bids[0].Quantity != 4 {
		t.Errorf("best bid after partial fill = %+v, want alice qty 4", market.Bids[0])
	}
	if len(market.Bids) != 2 {
		t.Errorf("bid count = %d, want 2", len(market.Bids))
	}
	market.VerifyInvariant()
}

func TestMatch_RemainderRestsWithoutSweeping(t *testing.T) {
	market := domain.NewMarket()
	market.Bids = append(market.Bids,
		domain.Order{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 10},
		domain.Order{Actor: "carol", Side: domain.SideBid, Price: 5, Quantity: 10},
	)

	// Incoming ask for 15: consumes alice's bid, then rests the remaining 5
	// instead of sweeping carol's bid.
	res, ok := matchOrder(domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 4, Quantity: 15}, market)
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Quantity != 10 || res.BidActor != "alice" {
		t.Fatalf("match = %d against %s, want 10 against alice", res.Quantity, res.BidActor)
	}

	if len(market.Bids) != 1 || market.Bids[0].Actor != "carol" {
		t.Errorf("carol's bid should survive untouched: %+v", market.Bids)
	}
	if len(market.Asks) != 1 || market.Asks[0].Quantity != 5 {
		t.Errorf("ask remainder should rest with qty 5: %+v", market.Asks)
	}
	market.VerifyInvariant()
}

func TestMatch_BidAgainstRestingAsk(t *testing.T) {
	market := domain.NewMarket()
	market.Asks = append(market.Asks,
		domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 4, Quantity: 5},
		domain.Order{Actor: "dave", Side: domain.SideAsk, Price: 6, Quantity: 5},
	)

	res, ok := matchOrder(domain.Order{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 5}, market)
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Price != 4 {
		t.Errorf("matched price = %v, want 4 (resting ask price)", res.Price)
	}
	if res.AskActor != "bob" {
		t.Errorf("matched against %s, want bob (best ask first)", res.AskActor)
	}
	if len(market.Asks) != 1 || market.Asks[0].Actor != "dave" {
		t.Errorf("dave's ask should remain: %+v", market.Asks)
	}
}

func TestMatch_TimePriorityAtSamePrice(t *testing.T) {
	market := domain.NewMarket()
	market.Bids = append(market.Bids,
		domain.Order{Actor: "first", Side: domain.SideBid, Price: 5, Quantity: 3},
		domain.Order{Actor: "second", Side: domain.SideBid, Price: 5, Quantity: 3},
	)

	res, ok := matchOrder(domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 5, Quantity: 3}, market)
	if !ok {
		t.Fatal("expected a match")
	}
	if res.BidActor != "first" {
		t.Errorf("matched %s, want first (insertion order at same price)", res.BidActor)
	}
}
