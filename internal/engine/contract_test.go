package engine

import (
	"errors"
	"testing"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/action"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
)

const testContract = "orderbook"

func deposit(t *testing.T, state *domain.OrderBookState, identity, token string, amount uint64) {
	t.Helper()
	c := NewContract(identity, testContract, state)
	_, err := c.DepositAsset(action.TokenTransfer{
		Kind:      action.TransferKind,
		Token:     token,
		Recipient: testContract,
		Amount:    amount,
	})
	if err != nil {
		t.Fatalf("deposit %d %s for %s: %v", amount, token, identity, err)
	}
}

// =====================================================
// Deposit Tests
// =====================================================

func TestDeposit_CreditsCaller(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	deposit(t, state, "alice", "USD", 100)

	if got := state.Balances.Get("alice", "USD"); got != 100 {
		t.Errorf("alice USD = %d, want 100", got)
	}
}

func TestDeposit_RecipientMismatch(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	c := NewContract("alice", testContract, state)

	_, err := c.DepositAsset(action.TokenTransfer{
		Kind:      action.TransferKind,
		Token:     "USD",
		Recipient: "someone-else",
		Amount:    100,
	})
	if !errors.Is(err, ErrRecipientMismatch) {
		t.Fatalf("expected ErrRecipientMismatch, got %v", err)
	}
	if got := state.Balances.Get("alice", "USD"); got != 0 {
		t.Errorf("rejected deposit must not credit, alice USD = %d", got)
	}
}

func TestDeposit_UnsupportedTransferVariant(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	c := NewContract("alice", testContract, state)

	_, err := c.DepositAsset(action.TokenTransfer{
		Kind:      "approve",
		Token:     "USD",
		Recipient: testContract,
		Amount:    100,
	})
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}
}

// =====================================================
// Insert Order Tests (spec scenarios and error paths)
// =====================================================

// Register USD, alice deposits 100 USD, bids 10 TOK @ 5: reserve of 50 is
// debited and the bid rests.
func TestInsertOrder_BidRests(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	deposit(t, state, "alice", "USD", 100)

	c := NewContract("alice", testContract, state)
	_, err := c.InsertOrder(domain.Order{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 10}, "TOK")
	if err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}

	if got := state.Balances.Get("alice", "USD"); got != 50 {
		t.Errorf("alice USD after reserve = %d, want 50", got)
	}
	market := state.Markets["TOK"]
	if market == nil || len(market.Bids) != 1 {
		t.Fatalf("expected one resting TOK bid, got %+v", market)
	}
	if market.Bids[0].Quantity != 10 || market.Bids[0].Price != 5 {
		t.Errorf("resting bid = %+v, want qty 10 @ 5", market.Bids[0])
	}
}

func TestInsertOrder_BidInsufficientBalance(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	deposit(t, state, "alice", "USD", 49) // one short of the 50 reserve

	c := NewContract("alice", testContract, state)
	_, err := c.InsertOrder(domain.Order{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 10}, "TOK")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Atomicity: the rejection left nothing behind, not even the market.
	if got := state.Balances.Get("alice", "USD"); got != 49 {
		t.Errorf("alice USD = %d, want 49 untouched", got)
	}
	if _, exists := state.Markets["TOK"]; exists {
		t.Error("rejected order must not create the market")
	}
}

func TestInsertOrder_AskInsufficientBalance(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	deposit(t, state, "bob", "TOK", 5)

	c := NewContract("bob", testContract, state)
	_, err := c.InsertOrder(domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 4, Quantity: 10}, "TOK")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := state.Balances.Get("bob", "TOK"); got != 5 {
		t.Errorf("bob TOK = %d, want 5 untouched", got)
	}
}

func TestInsertOrder_NeverCreditedBalanceReadsAsZero(t *testing.T) {
	state := domain.NewOrderBookState("USD")

	// ghost has never been credited anything; the order must be rejected,
	// not crash.
	c := NewContract("ghost", testContract, state)
	_, err := c.InsertOrder(domain.Order{Actor: "ghost", Side: domain.SideBid, Price: 5, Quantity: 10}, "TOK")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance for unknown identity, got %v", err)
	}
}

// Scenario: alice rests a bid for 10 TOK @ 5, bob asks 10 TOK @ 4. The
// trade settles at the resting bid's price 5: bob loses 10 TOK and gains
// 50 USD, alice gains 10 TOK.
func TestInsertOrder_AskMatchesRestingBid(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	deposit(t, state, "alice", "USD", 100)
	deposit(t, state, "bob", "TOK", 20)

	c := NewContract("alice", testContract, state)
	if _, err := c.InsertOrder(domain.Order{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 10}, "TOK"); err != nil {
		t.Fatalf("alice bid: %v", err)
	}

	c = NewContract("bob", testContract, state)
	if _, err := c.InsertOrder(domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 4, Quantity: 10}, "TOK"); err != nil {
		t.Fatalf("bob ask: %v", err)
	}

	if got := state.Balances.Get("bob", "TOK"); got != 10 {
		t.Errorf("bob TOK = %d, want 10", got)
	}
	if got := state.Balances.Get("bob", "USD"); got != 50 {
		t.Errorf("bob USD = %d, want 50", got)
	}
	if got := state.Balances.Get("alice", "TOK"); got != 10 {
		t.Errorf("alice TOK = %d, want 10", got)
	}
	if got := state.Balances.Get("alice", "USD"); got != 50 {
		t.Errorf("alice USD = %d, want 50 (100 minus reserve)", got)
	}

	market := state.Markets["TOK"]
	if len(market.Bids) != 0 || len(market.Asks) != 0 {
		t.Errorf("book should be empty after full fill: %d bids, %d asks",
			len(market.Bids), len(market.Asks))
	}
}

// An aggressing bid above the best ask trades at the ask's price and gets
// the over-reserved difference back.
func TestInsertOrder_AggressingBidRefundedPriceImprovement(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	deposit(t, state, "bob", "TOK", 10)
	deposit(t, state, "alice", "USD", 100)

	c := NewContract("bob", testContract, state)
	if _, err := c.InsertOrder(domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 4, Quantity: 10}, "TOK"); err != nil {
		t.Fatalf("bob ask: %v", err)
	}

	// Alice bids at 6, reserve 60; trade executes at the resting ask's 4.
	c = NewContract("alice", testContract, state)
	if _, err := c.InsertOrder(domain.Order{Actor: "alice", Side: domain.SideBid, Price: 6, Quantity: 10}, "TOK"); err != nil {
		t.Fatalf("alice bid: %v", err)
	}

	if got := state.Balances.Get("alice", "USD"); got != 60 {
		t.Errorf("alice USD = %d, want 60 (100 - 60 reserve + 20 refund)", got)
	}
	if got := state.Balances.Get("alice", "TOK"); got != 10 {
		t.Errorf("alice TOK = %d, want 10", got)
	}
	if got := state.Balances.Get("bob", "USD"); got != 40 {
		t.Errorf("bob USD = %d, want 40 (10 @ 4)", got)
	}
}

// Incoming ask for 15 against a single resting bid of 10: the bid is
// consumed and the remaining 5 rests, with no attempt at a second match.
func TestInsertOrder_PartialFillRemainderRests(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	deposit(t, state, "alice", "USD", 100)
	deposit(t, state, "bob", "TOK", 15)

	c := NewContract("alice", testContract, state)
	if _, err := c.InsertOrder(domain.Order{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 10}, "TOK"); err != nil {
		t.Fatalf("alice bid: %v", err)
	}

	c = NewContract("bob", testContract, state)
	if _, err := c.InsertOrder(domain.Order{Actor: "bob", Side: domain.SideAsk, Price: 4, Quantity: 15}, "TOK"); err != nil {
		t.Fatalf("bob ask: %v", err)
	}

	market := state.Markets["TOK"]
	if len(market.Bids) != 0 {
		t.Errorf("bid should be fully consumed, got %+v", market.Bids)
	}
	if len(market.Asks) != 1 || market.Asks[0].Quantity != 5 {
		t.Errorf("ask remainder should rest with qty 5, got %+v", market.Asks)
	}
	if got := state.Balances.Get("bob", "USD"); got != 50 {
		t.Errorf("bob USD = %d, want 50 for the filled 10", got)
	}
}

func TestInsertOrder_RejectsInvalidOrders(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	deposit(t, state, "alice", "USD", 100)

	cases := []domain.Order{
		{Actor: "alice", Side: "hold", Price: 5, Quantity: 10},
		{Actor: "alice", Side: domain.SideBid, Price: 5, Quantity: 0},
		{Actor: "alice", Side: domain.SideBid, Price: 0, Quantity: 10},
		{Actor: "alice", Side: domain.SideBid, Price: -2, Quantity: 10},
	}
	for _, order := range cases {
		c := NewContract("alice", testContract, state)
		if _, err := c.InsertOrder(order, "TOK"); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("order %+v: expected ErrInvalidOrder, got %v", order, err)
		}
	}
}

// Fractional prices go through the documented half-up rounding before any
// balance math: a bid at 2.5 reserves 3 per unit.
func TestInsertOrder_PriceRoundingInReserve(t *testing.T) {
	state := domain.NewOrderBookState("USD")
	deposit(t, state, "alice", "USD", 30)

	c := NewContract("alice", testContract, state)
	if _, err := c.InsertOrder(domain.Order{Actor: "alice", Side: domain.SideBid, Price: 2.5, Quantity: 10}, "TOK"); err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}
	if got := state.Balances.Get("alice", "USD"); got != 0 {
		t.Errorf("alice USD = %d, want 0 (reserve 3*10 after half-up rounding)", got)
	}
}

// =====================================================
// Dispatcher Tests
// =====================================================

func TestApply_RegisterThenOperate(t *testing.T) {
	state, _, err := Apply(nil, testContract, "deployer", &action.Register{BaseAsset: "USD"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if state.BaseAsset != "USD" {
		t.Errorf("base asset = %s, want USD", state.BaseAsset)
	}

	if _, _, err := Apply(state, testContract, "deployer", &action.Register{BaseAsset: "EUR"}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second register: expected ErrAlreadyRegistered, got %v", err)
	}

	state, _, err = Apply(state, testContract, "alice", &action.DepositAsset{
		Transfer: action.TokenTransfer{Kind: action.TransferKind, Token: "USD", Recipient: testContract, Amount: 100},
	})
	if err != nil {
		t.Fatalf("deposit via dispatch: %v", err)
	}
	if got := state.Balances.Get("alice", "USD"); got != 100 {
		t.Errorf("alice USD = %d, want 100", got)
	}

	state, _, err = Apply(state, testContract, "alice", &action.InsertOrder{
		OrderAsset: "TOK", OrderSide: domain.SideBid, OrderPrice: 5, OrderQuantity: 10,
	})
	if err != nil {
		t.Fatalf("insert via dispatch: %v", err)
	}
	if len(state.Markets["TOK"].Bids) != 1 {
		t.Error("expected a resting bid after dispatch")
	}
}

func TestApply_RequiresRegistration(t *testing.T) {
	_, _, err := Apply(nil, testContract, "alice", &action.InsertOrder{
		OrderAsset: "TOK", OrderSide: domain.SideBid, OrderPrice: 5, OrderQuantity: 10,
	})
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}
