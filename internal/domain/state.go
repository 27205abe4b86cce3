package domain

import (
	"encoding/json"
	"fmt"
)

// OrderBookState is the aggregate root: the entirety of durable state for
// one deployed order book. It is constructed once at registration, handed
// into every state transition, mutated in place, and handed back. There is
// no terminal state.
type OrderBookState struct {
	BaseAsset string             `json:"base_asset"`
	Markets   map[string]*Market `json:"markets"`
	Balances  BalanceBook        `json:"balances"`
}

// NewOrderBookState builds the initial empty state with the settlement
// currency fixed to base.
func NewOrderBookState(base string) *OrderBookState {
	return &OrderBookState{
		BaseAsset: base,
		Markets:   make(map[string]*Market),
		Balances:  NewBalanceBook(),
	}
}

// Market returns the market for name, creating an empty one if absent.
func (s *OrderBookState) Market(name string) *Market {
	m, ok := s.Markets[name]
	if !ok {
		m = NewMarket()
		s.Markets[name] = m
	}
	return m
}

// Digest serializes the state to its canonical byte form. Encoding is
// deterministic: map keys are emitted in sorted order, so identical states
// produce byte-identical digests on every execution. Multiple parties
// re-derive and compare these bytes, which is the whole point.
func (s *OrderBookState) Digest() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode orderbook state: %w", err)
	}
	return data, nil
}

// StateFromDigest decodes a digest produced by Digest back into a state.
func StateFromDigest(data []byte) (*OrderBookState, error) {
	var s OrderBookState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode orderbook state: %w", err)
	}
	if s.Markets == nil {
		s.Markets = make(map[string]*Market)
	}
	if s.Balances == nil {
		s.Balances = NewBalanceBook()
	}
	return &s, nil
}

// Clone returns a deep copy of the state.
func (s *OrderBookState) Clone() *OrderBookState {
	c := &OrderBookState{
		BaseAsset: s.BaseAsset,
		Markets:   make(map[string]*Market, len(s.Markets)),
		Balances:  s.Balances.Clone(),
	}
	for name, m := range s.Markets {
		c.Markets[name] = m.Clone()
	}
	return c
}

// VerifyInvariant panics if any market violates its invariants.
func (s *OrderBookState) VerifyInvariant() {
	for _, m := range s.Markets {
		m.VerifyInvariant()
	}
}
