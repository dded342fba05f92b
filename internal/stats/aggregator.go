// Package stats replays the event journal into per-pool trading totals.
package stats

import (
	"sort"

	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt/internal/model"
)

// Aggregator folds journal events into per-pool accumulators.
type Aggregator struct {
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run processes the events in order and returns the totals sorted by pool.
func (a *Aggregator) Run(events []model.Event) []model.PoolStats {
	for _, event := range events {
		pool := poolOf(event)
		if pool == "" {
			continue
		}
		acc, ok := a.accumulators[pool]
		if !ok {
			acc = NewAccumulator(pool)
			a.accumulators[pool] = acc
		}
		acc.AddEvent(event)
	}

	out := make([]model.PoolStats, 0, len(a.accumulators))
	for _, acc := range a.accumulators {
		out = append(out, acc.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pool < out[j].Pool })

	a.logger.Info("aggregation complete",
		zap.Int("events", len(events)),
		zap.Int("pools", len(out)),
	)
	return out
}

func poolOf(event model.Event) string {
	switch {
	case event.Trade != nil:
		return event.Trade.Pool
	case event.Tax != nil:
		return event.Tax.Pool
	default:
		return ""
	}
}
