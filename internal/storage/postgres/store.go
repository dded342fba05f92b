package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cryptobluejava/phbt/internal/model"
)

// Store provides Postgres persistence for trades, taxes, and pool stats.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertEvents appends trade and tax events to their journal tables.
// Position updates are skipped; the snapshot is the source of truth there.
func (s *Store) InsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	queued := 0
	for _, event := range events {
		switch {
		case event.Trade != nil:
			batch.Queue(`
				INSERT INTO trades (user_addr, pool_addr, side, token_amount, currency_amount, traded_at, created_at)
				VALUES ($1, $2, $3, $4, $5, to_timestamp($6), now())
			`,
				event.Trade.User,
				event.Trade.Pool,
				event.Trade.Side,
				int64(event.Trade.TokenAmount),
				int64(event.Trade.CurrencyAmount),
				event.Trade.Timestamp,
			)
			queued++
		case event.Tax != nil:
			batch.Queue(`
				INSERT INTO paperhand_taxes (user_addr, pool_addr, pre_tax_output, cost_basis, tax, net_to_user, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, now())
			`,
				event.Tax.User,
				event.Tax.Pool,
				int64(event.Tax.PreTaxOutput),
				int64(event.Tax.CostBasis),
				int64(event.Tax.Tax),
				int64(event.Tax.NetToUser),
			)
			queued++
		}
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPoolStats inserts or updates aggregated pool totals.
func (s *Store) UpsertPoolStats(ctx context.Context, stats []model.PoolStats) error {
	if len(stats) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range stats {
		batch.Queue(`
			INSERT INTO pool_stats (
				pool_addr, buy_count, sell_count, volume_token, volume_currency,
				tax_events, tax_collected, last_trade_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, to_timestamp($8), now(), now())
			ON CONFLICT (pool_addr)
			DO UPDATE SET
				buy_count = EXCLUDED.buy_count,
				sell_count = EXCLUDED.sell_count,
				volume_token = EXCLUDED.volume_token,
				volume_currency = EXCLUDED.volume_currency,
				tax_events = EXCLUDED.tax_events,
				tax_collected = EXCLUDED.tax_collected,
				last_trade_at = EXCLUDED.last_trade_at,
				updated_at = now()
		`,
			st.Pool,
			int64(st.BuyCount),
			int64(st.SellCount),
			int64(st.VolumeToken),
			int64(st.VolumeCurrency),
			int64(st.TaxEvents),
			int64(st.TaxCollected),
			st.LastTimestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range stats {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
