package engine

import (
	"fmt"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/action"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
	"github.com/armanthepythonguy/zkOrderbook-hyle/pkg/quant"
	"github.com/armanthepythonguy/zkOrderbook-hyle/pkg/safe"
)

// Contract binds the submitting identity and the deployed contract name to
// one state for the duration of a single action. Both operations are pure
// state transitions: no I/O, no clock, no randomness. All validation
// happens before the first mutation, so an error always leaves the state
// exactly as it was handed in.
type Contract struct {
	identity string
	name     string
	state    *domain.OrderBookState
}

// NewContract wraps state for one invocation on behalf of identity.
func NewContract(identity, name string, state *domain.OrderBookState) *Contract {
	return &Contract{
		identity: identity,
		name:     name,
		state:    state,
	}
}

// State returns the wrapped state.
func (c *Contract) State() *domain.OrderBookState {
	return c.state
}

// DepositAsset credits the caller with the amount asserted by a token
// transfer. The transfer's recipient and amount are trusted as already
// authenticated by the asset ledger that produced the assertion; the only
// checks here are that the transfer actually targets this contract and is
// the plain transfer variant.
func (c *Contract) DepositAsset(transfer action.TokenTransfer) (string, error) {
	if transfer.Kind != action.TransferKind {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAction, transfer.Kind)
	}
	if transfer.Recipient != c.name {
		return "", fmt.Errorf("%w: recipient should be %s but was %s",
			ErrRecipientMismatch, c.name, transfer.Recipient)
	}

	c.state.Balances.Credit(c.identity, transfer.Token, transfer.Amount)

	return fmt.Sprintf("deposit of %d %s accepted for %s",
		transfer.Amount, transfer.Token, c.identity), nil
}

// InsertOrder reserves the caller's funds, runs the matching algorithm
// against the named market, and settles at most one fill.
//
// Reserves: a bid locks round(price) * quantity of the base asset, an ask
// locks quantity of the market's asset. The reserve check precedes every
// mutation; an insufficient balance rejects the action with the book and
// balances untouched.
//
// Settlement of a fill of quantity q at resting price p (u = round(p)):
// the ask side receives q*u base asset, the bid side receives q of the
// market asset, and an aggressing bid is refunded q*(round(bid price) - u)
// base asset, returning the part of its reserve above the actual trade
// price. Price-to-unit conversions all go through quant.PriceUnits so both
// counterparties settle on identical integers.
func (c *Contract) InsertOrder(order domain.Order, marketName string) (string, error) {
	if !order.Side.Valid() || order.Quantity == 0 || order.Price <= 0 {
		return "", fmt.Errorf("%w: side=%q price=%v quantity=%d",
			ErrInvalidOrder, order.Side, order.Price, order.Quantity)
	}

	base := c.state.BaseAsset

	switch order.Side {
	case domain.SideBid:
		reserve := safe.MulU64(quant.PriceUnits(order.Price), order.Quantity)
		if c.state.Balances.Get(c.identity, base) < reserve {
			return "", fmt.Errorf("%w: %s needs %d %s for bid on %s",
				ErrInsufficientBalance, c.identity, reserve, base, marketName)
		}

		market := c.state.Market(marketName)
		c.state.Balances.Debit(c.identity, base, reserve)

		if res, ok := matchOrder(order, market); ok {
			c.settle(res, marketName)
			// Aggressing bid reserved at its own price but traded at the
			// resting price; hand back the difference.
			if bidUnits, units := quant.PriceUnits(order.Price), quant.PriceUnits(res.Price); bidUnits > units {
				c.state.Balances.Credit(res.BidActor, base, safe.MulU64(res.Quantity, bidUnits-units))
			}
		}

	case domain.SideAsk:
		if c.state.Balances.Get(c.identity, marketName) < order.Quantity {
			return "", fmt.Errorf("%w: %s needs %d %s for ask on %s",
				ErrInsufficientBalance, c.identity, order.Quantity, marketName, marketName)
		}

		market := c.state.Market(marketName)
		c.state.Balances.Debit(c.identity, marketName, order.Quantity)

		if res, ok := matchOrder(order, market); ok {
			// Trade executes at the resting bid's price, the exact price its
			// reserve was taken at, so no refund arises on this path.
			c.settle(res, marketName)
		}
	}

	return fmt.Sprintf("order inserted for %s on %s", c.identity, marketName), nil
}

// settle moves the matched value between the two counterparties.
func (c *Contract) settle(res MatchResult, marketName string) {
	units := quant.PriceUnits(res.Price)
	c.state.Balances.Credit(res.AskActor, c.state.BaseAsset, safe.MulU64(res.Quantity, units))
	c.state.Balances.Credit(res.BidActor, marketName, res.Quantity)
}
