package amm

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt/internal/model"
)

// Side is the direction of a swap.
type Side uint8

const (
	// SideBuy spends currency for tokens.
	SideBuy Side = iota + 1
	// SideSell spends tokens for currency.
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// SwapResult reports what a swap produced: the output credited to the trader
// and any paperhand tax routed to the treasury.
type SwapResult struct {
	Output uint64
	Tax    uint64
}

// SwapEngine prices trades against a pool's constant product, levies the
// trade fee and the paperhand tax, and settles through the transfer gateway.
//
// Every public method validates and computes first, mutates the ledger
// second, and requests transfers and notifications last. Any failed check
// aborts with no mutation retained.
type SwapEngine struct {
	gateway TransferGateway
	sink    EventSink
	logger  *zap.Logger
	now     func() time.Time
}

// NewSwapEngine builds a SwapEngine. A nil sink discards events and a nil
// logger is replaced with a no-op logger.
func NewSwapEngine(gateway TransferGateway, sink EventSink, logger *zap.Logger) *SwapEngine {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapEngine{
		gateway: gateway,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// Swap executes a trade for amount input units in the given direction. The
// trade is rejected with ErrSlippageExceeded when the pre-tax output falls
// below minOutput, and with ErrInvalidAmount when the input is zero or too
// small to price to any output.
func (e *SwapEngine) Swap(ledger *Ledger, trader, token common.Address, amount uint64, side Side, minOutput uint64) (SwapResult, error) {
	if amount == 0 {
		return SwapResult{}, ErrInvalidAmount
	}

	pool, err := ledger.Pool(token)
	if err != nil {
		return SwapResult{}, err
	}
	config := ledger.Config

	adjusted, err := feeAdjustedInput(amount, config.FeeBps)
	if err != nil {
		return SwapResult{}, err
	}

	switch side {
	case SideSell:
		return e.sell(ledger, pool, config, trader, amount, adjusted, minOutput)
	default:
		return e.buy(ledger, pool, config, trader, amount, adjusted, minOutput)
	}
}

// sell trades tokens for currency. When the sale realizes a loss against the
// seller's cost basis, the paperhand tax is taken out of the proceeds and
// routed to the treasury.
func (e *SwapEngine) sell(ledger *Ledger, pool *Pool, config Config, trader common.Address, amount, adjusted, minOutput uint64) (SwapResult, error) {
	k := wideMul(pool.ReserveToken, pool.ReserveCurrency)

	newReserveToken, err := checkedAdd(pool.ReserveToken, adjusted)
	if err != nil {
		return SwapResult{}, err
	}
	quotient := k.Div(k, k.Clone().SetUint64(newReserveToken))
	if !quotient.IsUint64() {
		return SwapResult{}, ErrMathOverflow
	}
	newReserveCurrency := quotient.Uint64()

	preTaxOutput, err := checkedSub(pool.ReserveCurrency, newReserveCurrency)
	if err != nil {
		return SwapResult{}, ErrMathOverflow
	}
	// A dust input can price to zero output. Rejecting it keeps tokens from
	// leaving a position with nothing received in return.
	if preTaxOutput == 0 {
		return SwapResult{}, ErrInvalidAmount
	}
	if preTaxOutput < minOutput {
		return SwapResult{}, ErrSlippageExceeded
	}

	position := ledger.findPosition(pool.Token, trader)
	if position == nil || position.TotalTokens < amount {
		return SwapResult{}, ErrInsufficientPosition
	}

	costBasis, err := position.CostBasisForSale(amount)
	if err != nil {
		return SwapResult{}, err
	}

	var tax uint64
	netOutput := preTaxOutput
	loss := preTaxOutput < costBasis
	if loss {
		tax, err = mulDiv(preTaxOutput, uint64(config.TaxBps), BpsDenominator)
		if err != nil {
			return SwapResult{}, err
		}
		netOutput, err = checkedSub(preTaxOutput, tax)
		if err != nil {
			return SwapResult{}, err
		}
	}

	// Raw input grows the token reserve; the fee stays in the pool. The
	// currency reserve drops by the full pre-tax output since the tax is
	// carved out of the trader's share, not the pool's.
	finalReserveToken, err := checkedAdd(pool.ReserveToken, amount)
	if err != nil {
		return SwapResult{}, err
	}
	finalReserveCurrency, err := checkedSub(pool.ReserveCurrency, preTaxOutput)
	if err != nil {
		return SwapResult{}, err
	}

	// RecordSell is all-or-nothing, so ordering it before the reserve write
	// keeps the pool untouched if the position update rejects.
	if err := position.RecordSell(amount, costBasis); err != nil {
		return SwapResult{}, err
	}
	pool.setReserves(finalReserveToken, finalReserveCurrency)

	vault := pool.Vault()
	vaultAuth := CapabilityFor(vault)
	if err := e.gateway.MoveToken(pool.Token, trader, vault, amount, CapabilityFor(trader)); err != nil {
		return SwapResult{}, err
	}
	if err := e.gateway.MoveCurrency(vault, trader, netOutput, vaultAuth); err != nil {
		return SwapResult{}, err
	}
	if tax > 0 {
		if err := e.gateway.MoveCurrency(vault, config.Treasury, tax, vaultAuth); err != nil {
			return SwapResult{}, err
		}
	}

	if loss {
		e.logger.Info("paperhand tax applied",
			zap.String("pool", pool.Token.Hex()),
			zap.String("user", trader.Hex()),
			zap.Uint64("pre_tax_output", preTaxOutput),
			zap.Uint64("cost_basis", costBasis),
			zap.Uint64("tax", tax),
		)
		e.sink.Publish(model.Event{
			Type: model.EventTypeTax,
			Tax: &model.PaperhandTaxApplied{
				User:         trader.Hex(),
				Pool:         pool.Token.Hex(),
				PreTaxOutput: preTaxOutput,
				CostBasis:    costBasis,
				Tax:          tax,
				NetToUser:    netOutput,
			},
		})
	}
	e.publishTrade(trader, pool.Token, SideSell, amount, netOutput)
	e.publishPosition(trader, position)

	return SwapResult{Output: netOutput, Tax: tax}, nil
}

// buy trades currency for tokens. The raw currency paid becomes the buyer's
// cost basis, independent of the fee taken from it.
func (e *SwapEngine) buy(ledger *Ledger, pool *Pool, config Config, trader common.Address, amount, adjusted, minOutput uint64) (SwapResult, error) {
	k := wideMul(pool.ReserveToken, pool.ReserveCurrency)

	newReserveCurrency, err := checkedAdd(pool.ReserveCurrency, adjusted)
	if err != nil {
		return SwapResult{}, err
	}
	quotient := k.Div(k, k.Clone().SetUint64(newReserveCurrency))
	if !quotient.IsUint64() {
		return SwapResult{}, ErrMathOverflow
	}
	newReserveToken := quotient.Uint64()

	tokensOut, err := checkedSub(pool.ReserveToken, newReserveToken)
	if err != nil {
		return SwapResult{}, ErrMathOverflow
	}
	// A dust input can price to zero output. Rejecting it keeps cost basis
	// from accruing against zero tokens held.
	if tokensOut == 0 {
		return SwapResult{}, ErrInvalidAmount
	}
	if tokensOut < minOutput {
		return SwapResult{}, ErrSlippageExceeded
	}

	finalReserveToken, err := checkedSub(pool.ReserveToken, tokensOut)
	if err != nil {
		return SwapResult{}, err
	}
	finalReserveCurrency, err := checkedAdd(pool.ReserveCurrency, amount)
	if err != nil {
		return SwapResult{}, err
	}

	position := ledger.Position(pool.Token, trader)

	if err := position.RecordBuy(tokensOut, amount); err != nil {
		return SwapResult{}, err
	}
	pool.setReserves(finalReserveToken, finalReserveCurrency)

	vault := pool.Vault()
	if err := e.gateway.MoveCurrency(trader, vault, amount, CapabilityFor(trader)); err != nil {
		return SwapResult{}, err
	}
	if err := e.gateway.MoveToken(pool.Token, vault, trader, tokensOut, CapabilityFor(vault)); err != nil {
		return SwapResult{}, err
	}

	e.publishTrade(trader, pool.Token, SideBuy, tokensOut, amount)
	e.publishPosition(trader, position)

	return SwapResult{Output: tokensOut}, nil
}

func (e *SwapEngine) publishTrade(trader, pool common.Address, side Side, tokenAmount, currencyAmount uint64) {
	e.logger.Debug("trade executed",
		zap.String("pool", pool.Hex()),
		zap.String("user", trader.Hex()),
		zap.String("side", side.String()),
		zap.Uint64("token_amount", tokenAmount),
		zap.Uint64("currency_amount", currencyAmount),
	)
	e.sink.Publish(model.Event{
		Type: model.EventTypeTrade,
		Trade: &model.TradeExecuted{
			User:           trader.Hex(),
			Pool:           pool.Hex(),
			Side:           side.String(),
			TokenAmount:    tokenAmount,
			CurrencyAmount: currencyAmount,
			Timestamp:      e.now().Unix(),
		},
	})
}

func (e *SwapEngine) publishPosition(trader common.Address, position *Position) {
	e.sink.Publish(model.Event{
		Type: model.EventTypePosition,
		Position: &model.PositionUpdated{
			User:          trader.Hex(),
			Pool:          position.Pool.Hex(),
			TotalTokens:   position.TotalTokens,
			TotalCurrency: position.TotalCostBasis,
		},
	})
}
