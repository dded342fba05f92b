package model

// PoolStats aggregates a pool's journal into per-pool totals.
type PoolStats struct {
	Pool           string `json:"pool"`
	BuyCount       uint64 `json:"buy_count"`
	SellCount      uint64 `json:"sell_count"`
	VolumeToken    uint64 `json:"volume_token"`
	VolumeCurrency uint64 `json:"volume_currency"`
	TaxEvents      uint64 `json:"tax_events"`
	TaxCollected   uint64 `json:"tax_collected"`
	LastTimestamp  int64  `json:"last_timestamp"`
}
