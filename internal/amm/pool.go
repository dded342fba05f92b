package amm

import "github.com/ethereum/go-ethereum/common"

// Pool holds one market's reserves and outstanding share supply. The token
// side is identified by its mint address; the other side is native currency.
//
// TotalShareSupply is zero exactly when both reserves are zero: a pool is
// either untouched or carries liquidity.
type Pool struct {
	Token                  common.Address
	ReserveToken           uint64
	ReserveCurrency        uint64
	VirtualCurrencyReserve uint64
	TotalShareSupply       uint64
	Nonce                  uint8
}

// NewPool creates an empty pool for a token mint. The virtual currency
// reserve is a pricing constant fixed at creation; it is never transferred
// and never reduced by a swap.
func NewPool(token common.Address, virtualCurrency uint64) *Pool {
	return &Pool{
		Token:                  token,
		VirtualCurrencyReserve: virtualCurrency,
		Nonce:                  DeriveNonce(token),
	}
}

// Vault returns the address holding this pool's transferable reserves.
func (p *Pool) Vault() common.Address {
	return VaultAddress(p.Token, p.Nonce)
}

// EffectiveCurrencyReserve returns the currency reserve used for quoting:
// real reserve plus the virtual offset, saturating at the integer limit.
func (p *Pool) EffectiveCurrencyReserve() uint64 {
	sum, err := checkedAdd(p.ReserveCurrency, p.VirtualCurrencyReserve)
	if err != nil {
		return ^uint64(0)
	}
	return sum
}

// setReserves overwrites both reserves. Callers have already validated the
// new values with checked arithmetic.
func (p *Pool) setReserves(reserveToken, reserveCurrency uint64) {
	p.ReserveToken = reserveToken
	p.ReserveCurrency = reserveCurrency
}

// grantShares credits newly minted shares to a provider's ledger entry and
// the pool's total supply. Both checks pass before either value is written.
func (p *Pool) grantShares(shares *ShareLedger, provider common.Address, amount uint64) error {
	entry, err := checkedAdd(shares.Balance(p.Token, provider), amount)
	if err != nil {
		return ErrFailedToAllocateShares
	}
	supply, err := checkedAdd(p.TotalShareSupply, amount)
	if err != nil {
		return ErrOverflowOrUnderflow
	}
	shares.Set(p.Token, provider, entry)
	p.TotalShareSupply = supply
	return nil
}

// removeShares burns shares from a provider's ledger entry and the pool's
// total supply. Both checks pass before either value is written.
func (p *Pool) removeShares(shares *ShareLedger, provider common.Address, amount uint64) error {
	entry, err := checkedSub(shares.Balance(p.Token, provider), amount)
	if err != nil {
		return ErrFailedToDeallocateShares
	}
	supply, err := checkedSub(p.TotalShareSupply, amount)
	if err != nil {
		return ErrOverflowOrUnderflow
	}
	shares.Set(p.Token, provider, entry)
	p.TotalShareSupply = supply
	return nil
}
