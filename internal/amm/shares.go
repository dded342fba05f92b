package amm

import "github.com/ethereum/go-ethereum/common"

// shareKey identifies a provider's entry for one pool.
type shareKey struct {
	Pool     common.Address
	Provider common.Address
}

// ShareLedger tracks liquidity shares per (pool, provider). The sum of all
// entries for a pool equals that pool's TotalShareSupply.
type ShareLedger struct {
	entries map[shareKey]uint64
}

// NewShareLedger returns an empty share ledger.
func NewShareLedger() *ShareLedger {
	return &ShareLedger{entries: make(map[shareKey]uint64)}
}

// Balance returns the shares a provider holds in a pool.
func (l *ShareLedger) Balance(pool, provider common.Address) uint64 {
	return l.entries[shareKey{Pool: pool, Provider: provider}]
}

// Entries returns every (pool, provider, shares) triple. Iteration order is
// unspecified; callers sort when they need determinism.
func (l *ShareLedger) Entries() []ShareEntry {
	out := make([]ShareEntry, 0, len(l.entries))
	for key, shares := range l.entries {
		out = append(out, ShareEntry{Pool: key.Pool, Provider: key.Provider, Shares: shares})
	}
	return out
}

// ShareEntry is one provider's holding in one pool.
type ShareEntry struct {
	Pool     common.Address
	Provider common.Address
	Shares   uint64
}

// Set overwrites a provider's entry. Zero-share entries are dropped.
func (l *ShareLedger) Set(pool, provider common.Address, shares uint64) {
	key := shareKey{Pool: pool, Provider: provider}
	if shares == 0 {
		delete(l.entries, key)
		return
	}
	l.entries[key] = shares
}
