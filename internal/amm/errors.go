package amm

import "errors"

// Every error below is terminal for the operation that returns it: the
// operation rejects before any ledger mutation is kept, and recovery is the
// caller's responsibility.
var (
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrMathOverflow             = errors.New("math overflow")
	ErrOverflowOrUnderflow      = errors.New("overflow or underflow occurred")
	ErrSlippageExceeded         = errors.New("slippage tolerance exceeded")
	ErrInsufficientPosition     = errors.New("insufficient position for sale")
	ErrInsufficientShares       = errors.New("insufficient shares")
	ErrFailedToAddLiquidity     = errors.New("failed to add liquidity")
	ErrFailedToRemoveLiquidity  = errors.New("failed to remove liquidity")
	ErrFailedToAllocateShares   = errors.New("failed to allocate shares")
	ErrFailedToDeallocateShares = errors.New("failed to deallocate shares")
	ErrUnauthorized             = errors.New("caller is not the configured admin")
	ErrInvalidFee               = errors.New("fee basis points out of range")
	ErrInvalidTaxBps            = errors.New("tax basis points out of range")
	ErrPoolNotFound             = errors.New("pool not found")
	ErrPoolExists               = errors.New("pool already exists")
	ErrTransferFailed           = errors.New("transfer failed")
)
