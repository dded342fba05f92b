package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// LiquidityEngine mints and burns pool shares against proportional deposits
// and withdrawals of both reserves.
type LiquidityEngine struct {
	gateway TransferGateway
	logger  *zap.Logger
}

// NewLiquidityEngine builds a LiquidityEngine. A nil logger is replaced with
// a no-op logger.
func NewLiquidityEngine(gateway TransferGateway, logger *zap.Logger) *LiquidityEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiquidityEngine{gateway: gateway, logger: logger}
}

// AddLiquidity deposits both reserves and mints shares to the provider.
//
// The bootstrap deposit mints integer sqrt(amountToken * amountCurrency)
// shares. Later deposits mint the smaller of the two reserve ratios, so a
// lopsided deposit cannot move the price.
func (e *LiquidityEngine) AddLiquidity(ledger *Ledger, provider, token common.Address, amountToken, amountCurrency uint64) (uint64, error) {
	pool, err := ledger.Pool(token)
	if err != nil {
		return 0, err
	}

	var minted uint64
	if pool.TotalShareSupply == 0 {
		minted = integerSqrt(wideMul(amountToken, amountCurrency))
	} else {
		sharesToken, err := mulDiv(amountToken, pool.TotalShareSupply, pool.ReserveToken)
		if err != nil {
			return 0, err
		}
		sharesCurrency, err := mulDiv(amountCurrency, pool.TotalShareSupply, pool.ReserveCurrency)
		if err != nil {
			return 0, err
		}
		minted = min(sharesToken, sharesCurrency)
	}
	if minted == 0 {
		return 0, ErrFailedToAddLiquidity
	}

	newReserveToken, err := checkedAdd(pool.ReserveToken, amountToken)
	if err != nil {
		return 0, err
	}
	newReserveCurrency, err := checkedAdd(pool.ReserveCurrency, amountCurrency)
	if err != nil {
		return 0, err
	}

	if err := pool.grantShares(ledger.Shares(), provider, minted); err != nil {
		return 0, err
	}
	pool.setReserves(newReserveToken, newReserveCurrency)

	vault := pool.Vault()
	auth := CapabilityFor(provider)
	if err := e.gateway.MoveToken(pool.Token, provider, vault, amountToken, auth); err != nil {
		return 0, err
	}
	if err := e.gateway.MoveCurrency(provider, vault, amountCurrency, auth); err != nil {
		return 0, err
	}

	e.logger.Info("liquidity added",
		zap.String("pool", pool.Token.Hex()),
		zap.String("provider", provider.Hex()),
		zap.Uint64("amount_token", amountToken),
		zap.Uint64("amount_currency", amountCurrency),
		zap.Uint64("shares", minted),
	)
	return minted, nil
}

// RemoveLiquidity burns the provider's shares and pays out the proportional
// slice of both reserves.
func (e *LiquidityEngine) RemoveLiquidity(ledger *Ledger, provider, token common.Address, shares uint64) (amountToken, amountCurrency uint64, err error) {
	pool, err := ledger.Pool(token)
	if err != nil {
		return 0, 0, err
	}
	if shares == 0 {
		return 0, 0, ErrFailedToRemoveLiquidity
	}
	if ledger.Shares().Balance(pool.Token, provider) < shares {
		return 0, 0, ErrInsufficientShares
	}

	amountToken, err = mulDiv(shares, pool.ReserveToken, pool.TotalShareSupply)
	if err != nil {
		return 0, 0, err
	}
	amountCurrency, err = mulDiv(shares, pool.ReserveCurrency, pool.TotalShareSupply)
	if err != nil {
		return 0, 0, err
	}
	if amountToken == 0 || amountCurrency == 0 {
		return 0, 0, ErrFailedToRemoveLiquidity
	}

	newReserveToken, err := checkedSub(pool.ReserveToken, amountToken)
	if err != nil {
		return 0, 0, err
	}
	newReserveCurrency, err := checkedSub(pool.ReserveCurrency, amountCurrency)
	if err != nil {
		return 0, 0, err
	}

	if err := pool.removeShares(ledger.Shares(), provider, shares); err != nil {
		return 0, 0, err
	}
	pool.setReserves(newReserveToken, newReserveCurrency)

	vault := pool.Vault()
	vaultAuth := CapabilityFor(vault)
	if err := e.gateway.MoveToken(pool.Token, vault, provider, amountToken, vaultAuth); err != nil {
		return 0, 0, err
	}
	if err := e.gateway.MoveCurrency(vault, provider, amountCurrency, vaultAuth); err != nil {
		return 0, 0, err
	}

	e.logger.Info("liquidity removed",
		zap.String("pool", pool.Token.Hex()),
		zap.String("provider", provider.Hex()),
		zap.Uint64("shares", shares),
		zap.Uint64("amount_token", amountToken),
		zap.Uint64("amount_currency", amountCurrency),
	)
	return amountToken, amountCurrency, nil
}
