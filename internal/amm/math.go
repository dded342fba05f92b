package amm

import (
	"math/bits"

	"github.com/holiman/uint256"
)

// BpsDenominator is the fixed-point scale for fee and tax rates.
// 100 bps = 1%. Rates are integers so every computation is deterministic.
const BpsDenominator = 10000

// mulDiv computes floor(a * b / den) with a 256-bit intermediate product.
// The quotient must fit in 64 bits or ErrMathOverflow is returned.
func mulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrMathOverflow
	}
	product := new(uint256.Int).Mul(
		new(uint256.Int).SetUint64(a),
		new(uint256.Int).SetUint64(b),
	)
	quotient := product.Div(product, new(uint256.Int).SetUint64(den))
	if !quotient.IsUint64() {
		return 0, ErrMathOverflow
	}
	return quotient.Uint64(), nil
}

// wideMul returns a*b without truncation. A product of two uint64 values
// always fits in 128 bits.
func wideMul(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(
		new(uint256.Int).SetUint64(a),
		new(uint256.Int).SetUint64(b),
	)
}

// checkedAdd returns a+b or ErrOverflowOrUnderflow on 64-bit overflow.
func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflowOrUnderflow
	}
	return sum, nil
}

// checkedSub returns a-b or ErrOverflowOrUnderflow when b exceeds a.
func checkedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflowOrUnderflow
	}
	return diff, nil
}

// integerSqrt returns the integer square root of product by Newton's method.
// product is at most 128 bits wide, so the root always fits in 64 bits.
func integerSqrt(product *uint256.Int) uint64 {
	if product.LtUint64(2) {
		return product.Uint64()
	}

	x := product.Clone()
	y := new(uint256.Int).AddUint64(product, 1)
	y.Rsh(y, 1)

	tmp := new(uint256.Int)
	for y.Lt(x) {
		x.Set(y)
		tmp.Div(product, x)
		y.Add(x, tmp)
		y.Rsh(y, 1)
	}
	return x.Uint64()
}

// feeAdjustedInput applies the trade fee to an input amount:
// floor(amount * (10000 - feeBps) / 10000).
func feeAdjustedInput(amount uint64, feeBps uint16) (uint64, error) {
	return mulDiv(amount, BpsDenominator-uint64(feeBps), BpsDenominator)
}
