package model

// EventType discriminates the payload carried by an Event.
type EventType string

const (
	EventTypeTrade    EventType = "trade_executed"
	EventTypeTax      EventType = "paperhand_tax_applied"
	EventTypePosition EventType = "position_updated"
)

// Event is the journal record published by the engines. Exactly one payload
// field is set, matching Type.
type Event struct {
	Type     EventType            `json:"type"`
	Trade    *TradeExecuted       `json:"trade,omitempty"`
	Tax      *PaperhandTaxApplied `json:"tax,omitempty"`
	Position *PositionUpdated     `json:"position,omitempty"`
}

// TradeExecuted records a completed swap. Side is "buy" or "sell";
// CurrencyAmount is what the trader paid (buy) or received net of tax (sell).
type TradeExecuted struct {
	User           string `json:"user"`
	Pool           string `json:"pool"`
	Side           string `json:"side"`
	TokenAmount    uint64 `json:"token_amount"`
	CurrencyAmount uint64 `json:"currency_amount"`
	Timestamp      int64  `json:"timestamp"`
}

// PaperhandTaxApplied records a tax levied on a sale that realized a loss
// against the seller's cost basis.
type PaperhandTaxApplied struct {
	User         string `json:"user"`
	Pool         string `json:"pool"`
	PreTaxOutput uint64 `json:"pre_tax_output"`
	CostBasis    uint64 `json:"cost_basis"`
	Tax          uint64 `json:"tax"`
	NetToUser    uint64 `json:"net_to_user"`
}

// PositionUpdated records a position's totals after a trade settled.
type PositionUpdated struct {
	User          string `json:"user"`
	Pool          string `json:"pool"`
	TotalTokens   uint64 `json:"total_tokens"`
	TotalCurrency uint64 `json:"total_currency"`
}
