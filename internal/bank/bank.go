// Package bank provides an in-memory TransferGateway backed by per-account
// balances. Authorization is checked against the deterministic capability of
// the debited account, so a pool vault can be debited only by an engine that
// derived its capability.
package bank

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cryptobluejava/phbt/internal/amm"
)

// Bank holds native currency and token balances per account.
type Bank struct {
	mu       sync.Mutex
	currency map[common.Address]uint64
	tokens   map[common.Address]map[common.Address]uint64
}

// New returns an empty bank.
func New() *Bank {
	return &Bank{
		currency: make(map[common.Address]uint64),
		tokens:   make(map[common.Address]map[common.Address]uint64),
	}
}

// DepositCurrency credits native currency to an account outside any trade.
func (b *Bank) DepositCurrency(account common.Address, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currency[account] += amount
}

// MintToken credits token units to an account outside any trade.
func (b *Bank) MintToken(token, account common.Address, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holders(token)[account] += amount
}

// CurrencyBalance returns an account's native currency balance.
func (b *Bank) CurrencyBalance(account common.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currency[account]
}

// TokenBalance returns an account's balance of one token.
func (b *Bank) TokenBalance(token, account common.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.holders(token)[account]
}

// MoveCurrency transfers native currency between accounts. It fails with
// ErrTransferFailed when the authorization does not match the source account
// or the source balance is insufficient.
func (b *Bank) MoveCurrency(from, to common.Address, amount uint64, auth amm.Capability) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if auth != amm.CapabilityFor(from) {
		return fmt.Errorf("%w: bad authorization for %s", amm.ErrTransferFailed, from.Hex())
	}
	if b.currency[from] < amount {
		return fmt.Errorf("%w: insufficient currency in %s", amm.ErrTransferFailed, from.Hex())
	}
	b.currency[from] -= amount
	b.currency[to] += amount
	return nil
}

// MoveToken transfers token units between holders of one mint, under the same
// authorization and balance rules as MoveCurrency.
func (b *Bank) MoveToken(token, from, to common.Address, amount uint64, auth amm.Capability) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if auth != amm.CapabilityFor(from) {
		return fmt.Errorf("%w: bad authorization for %s", amm.ErrTransferFailed, from.Hex())
	}
	holders := b.holders(token)
	if holders[from] < amount {
		return fmt.Errorf("%w: insufficient tokens in %s", amm.ErrTransferFailed, from.Hex())
	}
	holders[from] -= amount
	holders[to] += amount
	return nil
}

// CurrencyEntry is one account's native currency balance.
type CurrencyEntry struct {
	Account common.Address
	Amount  uint64
}

// TokenEntry is one holder's balance of one token.
type TokenEntry struct {
	Token  common.Address
	Holder common.Address
	Amount uint64
}

// CurrencyEntries returns every non-zero currency balance. Iteration order is
// unspecified; callers sort when they need determinism.
func (b *Bank) CurrencyEntries() []CurrencyEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]CurrencyEntry, 0, len(b.currency))
	for account, amount := range b.currency {
		if amount == 0 {
			continue
		}
		out = append(out, CurrencyEntry{Account: account, Amount: amount})
	}
	return out
}

// TokenEntries returns every non-zero token balance.
func (b *Bank) TokenEntries() []TokenEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []TokenEntry
	for token, holders := range b.tokens {
		for holder, amount := range holders {
			if amount == 0 {
				continue
			}
			out = append(out, TokenEntry{Token: token, Holder: holder, Amount: amount})
		}
	}
	return out
}

func (b *Bank) holders(token common.Address) map[common.Address]uint64 {
	holders, ok := b.tokens[token]
	if !ok {
		holders = make(map[common.Address]uint64)
		b.tokens[token] = holders
	}
	return holders
}
