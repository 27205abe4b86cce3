package domain

import (
	"github.com/armanthepythonguy/zkOrderbook-hyle/pkg/safe"
)

// BalanceBook maps identity -> asset -> amount. Amounts are whole units and
// never negative. An identity/asset pair that has never been credited reads
// as zero; it is not an error and must not panic.
type BalanceBook map[string]map[string]uint64

// NewBalanceBook returns an empty balance book.
func NewBalanceBook() BalanceBook {
	return make(BalanceBook)
}

// Get returns the balance for an identity/asset pair, defaulting to zero.
func (b BalanceBook) Get(identity, asset string) uint64 {
	return b[identity][asset]
}

// Credit adds amount to the identity's balance for asset, creating the
// entry if absent. Credit never fails.
func (b BalanceBook) Credit(identity, asset string, amount uint64) {
	entry, ok := b[identity]
	if !ok {
		entry = make(map[string]uint64)
		b[identity] = entry
	}
	entry[asset] = safe.AddU64(entry[asset], amount)
}

// Debit subtracts amount from the identity's balance for asset. The caller
// must have verified amount <= Get(identity, asset) first; Debit itself
// does not re-check and will halt on underflow rather than go negative.
func (b BalanceBook) Debit(identity, asset string, amount uint64) {
	entry, ok := b[identity]
	if !ok {
		entry = make(map[string]uint64)
		b[identity] = entry
	}
	entry[asset] = safe.SubU64(entry[asset], amount)
}

// Clone returns a deep copy of the balance book.
func (b BalanceBook) Clone() BalanceBook {
	c := make(BalanceBook, len(b))
	for identity, assets := range b {
		entry := make(map[string]uint64, len(assets))
		for asset, amount := range assets {
			entry[asset] = amount
		}
		c[identity] = entry
	}
	return c
}
