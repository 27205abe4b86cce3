package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a payload carries a kind tag the
// dispatcher does not recognize.
var ErrUnknownKind = errors.New("unknown action kind")

// Encode serializes an action payload. The kind tag travels separately
// (in the log row and on the wire), matching how the payload column is
// stored.
func Encode(a Action) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s action: %w", a.ActionKind(), err)
	}
	return data, nil
}

// Decode deserializes a payload into the concrete action for kind. The
// switch is exhaustive over the known kinds; anything else is rejected so
// a corrupted or future log row can never be silently misapplied.
func Decode(k Kind, payload []byte) (Action, error) {
	switch k {
	case KindRegister:
		var a Register
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("failed to decode register action: %w", err)
		}
		return &a, nil
	case KindDepositAsset:
		var a DepositAsset
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("failed to decode deposit action: %w", err)
		}
		return &a, nil
	case KindInsertOrder:
		var a InsertOrder
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("failed to decode insert-order action: %w", err)
		}
		return &a, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, k)
	}
}
