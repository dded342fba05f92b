package amm

import "github.com/ethereum/go-ethereum/common"

// Position tracks a trader's holdings in one pool together with the currency
// spent to acquire them. The cost basis is the weighted-average acquisition
// cost used to detect sales at a realized loss.
//
// Invariant: TotalTokens == 0 implies TotalCostBasis == 0.
type Position struct {
	Pool           common.Address
	Owner          common.Address
	TotalTokens    uint64
	TotalCostBasis uint64
}

// CostBasisForSale returns the proportional cost basis of selling
// tokenAmount: floor(TotalCostBasis * tokenAmount / TotalTokens). An empty
// position has zero basis.
func (p *Position) CostBasisForSale(tokenAmount uint64) (uint64, error) {
	if p.TotalTokens == 0 {
		return 0, nil
	}
	return mulDiv(p.TotalCostBasis, tokenAmount, p.TotalTokens)
}

// RecordBuy adds a purchase to the position. The raw currency paid is the
// cost basis, independent of any fee taken from it.
func (p *Position) RecordBuy(tokensReceived, currencySpent uint64) error {
	tokens, err := checkedAdd(p.TotalTokens, tokensReceived)
	if err != nil {
		return ErrMathOverflow
	}
	basis, err := checkedAdd(p.TotalCostBasis, currencySpent)
	if err != nil {
		return ErrMathOverflow
	}
	p.TotalTokens = tokens
	p.TotalCostBasis = basis
	return nil
}

// RecordSell removes a sale from the position. When the last token leaves,
// any rounding remainder in the cost basis is cleared so an empty position
// never carries dust.
func (p *Position) RecordSell(tokenAmount, costBasis uint64) error {
	tokens, err := checkedSub(p.TotalTokens, tokenAmount)
	if err != nil {
		return ErrInsufficientPosition
	}
	basis, err := checkedSub(p.TotalCostBasis, costBasis)
	if err != nil {
		return ErrMathOverflow
	}
	p.TotalTokens = tokens
	p.TotalCostBasis = basis
	if p.TotalTokens == 0 {
		p.TotalCostBasis = 0
	}
	return nil
}
