package amm

import "github.com/ethereum/go-ethereum/common"

// positionKey identifies a trader's position in one pool.
type positionKey struct {
	Pool  common.Address
	Owner common.Address
}

// Ledger is the in-memory root of all accounting state: the deployment
// config, every pool, every position, and the share ledger. Engines mutate it
// only through their operations; callers never write entries directly.
//
// The ledger performs no internal locking. Concurrent operations on the same
// pool or position must be serialized by the surrounding environment.
type Ledger struct {
	Config    Config
	pools     map[common.Address]*Pool
	positions map[positionKey]*Position
	shares    *ShareLedger
}

// NewLedger builds an empty ledger under the given config.
func NewLedger(config Config) *Ledger {
	return &Ledger{
		Config:    config,
		pools:     make(map[common.Address]*Pool),
		positions: make(map[positionKey]*Position),
		shares:    NewShareLedger(),
	}
}

// CreatePool initializes a pool for a token mint, seeding its virtual
// currency reserve from the config.
func (l *Ledger) CreatePool(token common.Address) (*Pool, error) {
	if _, ok := l.pools[token]; ok {
		return nil, ErrPoolExists
	}
	pool := NewPool(token, l.Config.DefaultVirtualCurrency)
	l.pools[token] = pool
	return pool, nil
}

// Pool returns the pool for a token mint.
func (l *Ledger) Pool(token common.Address) (*Pool, error) {
	pool, ok := l.pools[token]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

// Pools returns every pool. Iteration order is unspecified.
func (l *Ledger) Pools() []*Pool {
	out := make([]*Pool, 0, len(l.pools))
	for _, pool := range l.pools {
		out = append(out, pool)
	}
	return out
}

// Position returns the trader's position in a pool, creating it lazily on
// first use. Positions persist at zero and are never deleted.
func (l *Ledger) Position(pool, owner common.Address) *Position {
	key := positionKey{Pool: pool, Owner: owner}
	position, ok := l.positions[key]
	if !ok {
		position = &Position{Pool: pool, Owner: owner}
		l.positions[key] = position
	}
	return position
}

// findPosition returns an existing position or nil. Unlike Position it never
// creates an entry, so failed operations leave no trace.
func (l *Ledger) findPosition(pool, owner common.Address) *Position {
	return l.positions[positionKey{Pool: pool, Owner: owner}]
}

// Positions returns every position. Iteration order is unspecified.
func (l *Ledger) Positions() []*Position {
	out := make([]*Position, 0, len(l.positions))
	for _, position := range l.positions {
		out = append(out, position)
	}
	return out
}

// Shares returns the share ledger.
func (l *Ledger) Shares() *ShareLedger {
	return l.shares
}

// RestorePool installs a pool loaded from a snapshot.
func (l *Ledger) RestorePool(pool *Pool) {
	l.pools[pool.Token] = pool
}

// RestorePosition installs a position loaded from a snapshot.
func (l *Ledger) RestorePosition(position *Position) {
	l.positions[positionKey{Pool: position.Pool, Owner: position.Owner}] = position
}
