package engine

import (
	"fmt"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/action"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
)

// Apply is the dispatcher between decoded actions and the contract surface.
// It takes the prior state (nil until registration), applies exactly one
// action on behalf of identity, and returns the new state together with a
// human-readable result message. On error the returned state is the input
// state, untouched.
//
// The contract operations themselves stay unaware of action encoding; this
// is the only place that knows the variant set, and the switch is
// exhaustive over it.
func Apply(state *domain.OrderBookState, contractName, identity string, act action.Action) (*domain.OrderBookState, string, error) {
	if reg, ok := act.(*action.Register); ok {
		if state != nil {
			return state, "", fmt.Errorf("%w: base asset is %s", ErrAlreadyRegistered, state.BaseAsset)
		}
		next := domain.NewOrderBookState(reg.BaseAsset)
		return next, fmt.Sprintf("orderbook %s registered with base asset %s", contractName, reg.BaseAsset), nil
	}

	if state == nil {
		return nil, "", ErrNotRegistered
	}

	contract := NewContract(identity, contractName, state)

	switch a := act.(type) {
	case *action.DepositAsset:
		msg, err := contract.DepositAsset(a.Transfer)
		return state, msg, err
	case *action.InsertOrder:
		order := domain.Order{
			Actor:    identity,
			Side:     a.OrderSide,
			Price:    a.OrderPrice,
			Quantity: a.OrderQuantity,
		}
		msg, err := contract.InsertOrder(order, a.OrderAsset)
		return state, msg, err
	default:
		return state, "", fmt.Errorf("%w: %T", action.ErrUnknownKind, act)
	}
}
