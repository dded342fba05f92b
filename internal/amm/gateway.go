package amm

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cryptobluejava/phbt/internal/model"
)

// TransferGateway executes the value movement requested by the engines. It is
// invoked only after every local check in the operation has passed. A failed
// transfer aborts the surrounding operation before its state is persisted.
type TransferGateway interface {
	// MoveToken transfers token units between holders of the given mint.
	MoveToken(token, from, to common.Address, amount uint64, auth Capability) error
	// MoveCurrency transfers native currency between accounts.
	MoveCurrency(from, to common.Address, amount uint64, auth Capability) error
}

// EventSink receives notifications of completed trades, taxes, and position
// changes. Publication is fire-and-forget: the only guarantee callers get is
// that an event is published after the corresponding mutation is committed.
type EventSink interface {
	Publish(event model.Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(model.Event) {}
