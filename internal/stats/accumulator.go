package stats

import "github.com/cryptobluejava/phbt/internal/model"

// Accumulator totals one pool's journal.
type Accumulator struct {
	Pool           string
	BuyCount       uint64
	SellCount      uint64
	VolumeToken    uint64
	VolumeCurrency uint64
	TaxEvents      uint64
	TaxCollected   uint64
	LastTimestamp  int64
}

func NewAccumulator(pool string) *Accumulator {
	return &Accumulator{Pool: pool}
}

// AddEvent folds one journal event into the totals. Position updates carry no
// flow and are ignored. Volumes saturate rather than wrap; a journal long
// enough to overflow a uint64 of volume is beyond this tool's scope.
func (a *Accumulator) AddEvent(event model.Event) {
	switch {
	case event.Trade != nil:
		trade := event.Trade
		switch trade.Side {
		case "buy":
			a.BuyCount++
		case "sell":
			a.SellCount++
		default:
			// A malformed journal line must not skew the counts.
			return
		}
		a.VolumeToken = saturatingAdd(a.VolumeToken, trade.TokenAmount)
		a.VolumeCurrency = saturatingAdd(a.VolumeCurrency, trade.CurrencyAmount)
		if trade.Timestamp > a.LastTimestamp {
			a.LastTimestamp = trade.Timestamp
		}
	case event.Tax != nil:
		a.TaxEvents++
		a.TaxCollected = saturatingAdd(a.TaxCollected, event.Tax.Tax)
	}
}

// Stats returns the accumulated totals as a storable record.
func (a *Accumulator) Stats() model.PoolStats {
	return model.PoolStats{
		Pool:           a.Pool,
		BuyCount:       a.BuyCount,
		SellCount:      a.SellCount,
		VolumeToken:    a.VolumeToken,
		VolumeCurrency: a.VolumeCurrency,
		TaxEvents:      a.TaxEvents,
		TaxCollected:   a.TaxCollected,
		LastTimestamp:  a.LastTimestamp,
	}
}

func saturatingAdd(a, b uint64) uint64 {
	if sum := a + b; sum >= a {
		return sum
	}
	return ^uint64(0)
}
