package action

import (
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
)

// Kind tags the action variants carried in a submission payload.
type Kind uint16

const (
	KindRegister Kind = iota + 1
	KindDepositAsset
	KindInsertOrder
)

// String returns the wire name of the kind, used on the HTTP surface.
func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindDepositAsset:
		return "deposit_asset"
	case KindInsertOrder:
		return "insert_order"
	default:
		return "unknown"
	}
}

// KindFromString parses a wire name back into a Kind. Unknown names map to
// Kind(0), which the codec rejects.
func KindFromString(s string) Kind {
	switch s {
	case "register":
		return KindRegister
	case "deposit_asset":
		return KindDepositAsset
	case "insert_order":
		return KindInsertOrder
	default:
		return 0
	}
}

// Action is the decoded form of one external state transition request.
type Action interface {
	ActionKind() Kind
}

// Register fixes the base asset and creates the initial empty state. It is
// only valid as the very first action of a contract's history.
type Register struct {
	BaseAsset string `json:"base_asset"`
}

func (Register) ActionKind() Kind { return KindRegister }

// TokenTransfer is the transfer assertion produced by the external asset
// ledger and attached to a deposit. The engine trusts Recipient and Amount
// as already authenticated by the collaborator that produced them. Kind is
// the token action variant; only "transfer" is accepted by a deposit.
type TokenTransfer struct {
	Kind      string `json:"kind"`
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// TransferKind is the only token action variant a deposit accepts.
const TransferKind = "transfer"

// DepositAsset credits the caller with the amount asserted by the attached
// token transfer.
type DepositAsset struct {
	Transfer TokenTransfer `json:"transfer"`
}

func (DepositAsset) ActionKind() Kind { return KindDepositAsset }

// InsertOrder submits one order into the named market.
type InsertOrder struct {
	OrderAsset    string      `json:"order_asset"`
	OrderSide     domain.Side `json:"order_side"`
	OrderPrice    float64     `json:"order_price"`
	OrderQuantity uint64      `json:"order_quantity"`
}

func (InsertOrder) ActionKind() Kind { return KindInsertOrder }
