// Package state persists the ledger as a JSON snapshot on disk. Saves are
// atomic (tmp file + rename), so a crashed operation leaves the previous
// snapshot intact.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cryptobluejava/phbt/internal/amm"
	"github.com/cryptobluejava/phbt/internal/bank"
)

// Snapshot is the on-disk form of the ledger and its balance book.
type Snapshot struct {
	Version   int              `json:"version"`
	UpdatedAt string           `json:"updated_at"`
	Config    ConfigRecord     `json:"config"`
	Pools     []PoolRecord     `json:"pools"`
	Positions []PositionRecord `json:"positions"`
	Shares    []ShareRecord    `json:"shares"`
	Currency  []CurrencyRecord `json:"currency"`
	Tokens    []TokenBalRecord `json:"tokens"`
}

const snapshotVersion = 1

// ConfigRecord mirrors amm.Config with hex-encoded identities.
type ConfigRecord struct {
	FeeBps                 uint16 `json:"fee_bps"`
	TaxBps                 uint16 `json:"tax_bps"`
	Treasury               string `json:"treasury"`
	Admin                  string `json:"admin"`
	DefaultVirtualCurrency uint64 `json:"default_virtual_currency"`
}

// PoolRecord mirrors amm.Pool.
type PoolRecord struct {
	Token                  string `json:"token"`
	ReserveToken           uint64 `json:"reserve_token"`
	ReserveCurrency        uint64 `json:"reserve_currency"`
	VirtualCurrencyReserve uint64 `json:"virtual_currency_reserve"`
	TotalShareSupply       uint64 `json:"total_share_supply"`
	Nonce                  uint8  `json:"nonce"`
}

// PositionRecord mirrors amm.Position.
type PositionRecord struct {
	Pool           string `json:"pool"`
	Owner          string `json:"owner"`
	TotalTokens    uint64 `json:"total_tokens"`
	TotalCostBasis uint64 `json:"total_cost_basis"`
}

// ShareRecord mirrors one share ledger entry.
type ShareRecord struct {
	Pool     string `json:"pool"`
	Provider string `json:"provider"`
	Shares   uint64 `json:"shares"`
}

// CurrencyRecord mirrors one account's native currency balance.
type CurrencyRecord struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// TokenBalRecord mirrors one holder's balance of one token.
type TokenBalRecord struct {
	Token  string `json:"token"`
	Holder string `json:"holder"`
	Amount uint64 `json:"amount"`
}

// Capture builds a snapshot from a ledger and its bank. Records are sorted so
// the output is deterministic.
func Capture(ledger *amm.Ledger, book *bank.Bank) Snapshot {
	snap := Snapshot{
		Version:   snapshotVersion,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Config: ConfigRecord{
			FeeBps:                 ledger.Config.FeeBps,
			TaxBps:                 ledger.Config.TaxBps,
			Treasury:               ledger.Config.Treasury.Hex(),
			Admin:                  ledger.Config.Admin.Hex(),
			DefaultVirtualCurrency: ledger.Config.DefaultVirtualCurrency,
		},
	}

	for _, pool := range ledger.Pools() {
		snap.Pools = append(snap.Pools, PoolRecord{
			Token:                  pool.Token.Hex(),
			ReserveToken:           pool.ReserveToken,
			ReserveCurrency:        pool.ReserveCurrency,
			VirtualCurrencyReserve: pool.VirtualCurrencyReserve,
			TotalShareSupply:       pool.TotalShareSupply,
			Nonce:                  pool.Nonce,
		})
	}
	sort.Slice(snap.Pools, func(i, j int) bool { return snap.Pools[i].Token < snap.Pools[j].Token })

	for _, position := range ledger.Positions() {
		snap.Positions = append(snap.Positions, PositionRecord{
			Pool:           position.Pool.Hex(),
			Owner:          position.Owner.Hex(),
			TotalTokens:    position.TotalTokens,
			TotalCostBasis: position.TotalCostBasis,
		})
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		if snap.Positions[i].Pool != snap.Positions[j].Pool {
			return snap.Positions[i].Pool < snap.Positions[j].Pool
		}
		return snap.Positions[i].Owner < snap.Positions[j].Owner
	})

	for _, entry := range ledger.Shares().Entries() {
		snap.Shares = append(snap.Shares, ShareRecord{
			Pool:     entry.Pool.Hex(),
			Provider: entry.Provider.Hex(),
			Shares:   entry.Shares,
		})
	}
	sort.Slice(snap.Shares, func(i, j int) bool {
		if snap.Shares[i].Pool != snap.Shares[j].Pool {
			return snap.Shares[i].Pool < snap.Shares[j].Pool
		}
		return snap.Shares[i].Provider < snap.Shares[j].Provider
	})

	for _, entry := range book.CurrencyEntries() {
		snap.Currency = append(snap.Currency, CurrencyRecord{
			Account: entry.Account.Hex(),
			Amount:  entry.Amount,
		})
	}
	sort.Slice(snap.Currency, func(i, j int) bool { return snap.Currency[i].Account < snap.Currency[j].Account })

	for _, entry := range book.TokenEntries() {
		snap.Tokens = append(snap.Tokens, TokenBalRecord{
			Token:  entry.Token.Hex(),
			Holder: entry.Holder.Hex(),
			Amount: entry.Amount,
		})
	}
	sort.Slice(snap.Tokens, func(i, j int) bool {
		if snap.Tokens[i].Token != snap.Tokens[j].Token {
			return snap.Tokens[i].Token < snap.Tokens[j].Token
		}
		return snap.Tokens[i].Holder < snap.Tokens[j].Holder
	})

	return snap
}

// Restore rebuilds a ledger and bank from a snapshot.
func Restore(snap Snapshot) (*amm.Ledger, *bank.Bank, error) {
	treasury, err := parseAddress(snap.Config.Treasury)
	if err != nil {
		return nil, nil, fmt.Errorf("config treasury: %w", err)
	}
	admin, err := parseAddress(snap.Config.Admin)
	if err != nil {
		return nil, nil, fmt.Errorf("config admin: %w", err)
	}

	config, err := amm.NewConfig(snap.Config.FeeBps, snap.Config.TaxBps, treasury, admin)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	config.DefaultVirtualCurrency = snap.Config.DefaultVirtualCurrency

	ledger := amm.NewLedger(config)
	book := bank.New()

	for _, record := range snap.Pools {
		token, err := parseAddress(record.Token)
		if err != nil {
			return nil, nil, fmt.Errorf("pool token: %w", err)
		}
		ledger.RestorePool(&amm.Pool{
			Token:                  token,
			ReserveToken:           record.ReserveToken,
			ReserveCurrency:        record.ReserveCurrency,
			VirtualCurrencyReserve: record.VirtualCurrencyReserve,
			TotalShareSupply:       record.TotalShareSupply,
			Nonce:                  record.Nonce,
		})
	}

	for _, record := range snap.Positions {
		pool, err := parseAddress(record.Pool)
		if err != nil {
			return nil, nil, fmt.Errorf("position pool: %w", err)
		}
		owner, err := parseAddress(record.Owner)
		if err != nil {
			return nil, nil, fmt.Errorf("position owner: %w", err)
		}
		ledger.RestorePosition(&amm.Position{
			Pool:           pool,
			Owner:          owner,
			TotalTokens:    record.TotalTokens,
			TotalCostBasis: record.TotalCostBasis,
		})
	}

	for _, record := range snap.Shares {
		pool, err := parseAddress(record.Pool)
		if err != nil {
			return nil, nil, fmt.Errorf("share pool: %w", err)
		}
		provider, err := parseAddress(record.Provider)
		if err != nil {
			return nil, nil, fmt.Errorf("share provider: %w", err)
		}
		ledger.Shares().Set(pool, provider, record.Shares)
	}

	for _, record := range snap.Currency {
		account, err := parseAddress(record.Account)
		if err != nil {
			return nil, nil, fmt.Errorf("currency account: %w", err)
		}
		book.DepositCurrency(account, record.Amount)
	}

	for _, record := range snap.Tokens {
		token, err := parseAddress(record.Token)
		if err != nil {
			return nil, nil, fmt.Errorf("token mint: %w", err)
		}
		holder, err := parseAddress(record.Holder)
		if err != nil {
			return nil, nil, fmt.Errorf("token holder: %w", err)
		}
		book.MintToken(token, holder, record.Amount)
	}

	return ledger, book, nil
}

// Store reads and writes snapshots at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the snapshot. The second return value reports whether a snapshot
// exists.
func (s *Store) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return Snapshot{}, false, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap, true, nil
}

// Save writes the snapshot atomically.
func (s *Store) Save(snap Snapshot) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(value), nil
}
