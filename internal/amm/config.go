package amm

import "github.com/ethereum/go-ethereum/common"

// DefaultVirtualCurrency is the virtual currency reserve seeded into new
// pools, in the smallest currency denomination. It softens price impact while
// a pool is young and is never transferable.
const DefaultVirtualCurrency uint64 = 50_000_000_000

// Config holds the deployment-wide fee and tax rates and the identities
// allowed to collect and change them. Rates are basis points and always
// within [0, 10000].
type Config struct {
	FeeBps                 uint16
	TaxBps                 uint16
	Treasury               common.Address
	Admin                  common.Address
	DefaultVirtualCurrency uint64
}

// NewConfig builds a Config with the default virtual currency reserve.
func NewConfig(feeBps, taxBps uint16, treasury, admin common.Address) (Config, error) {
	if feeBps > BpsDenominator {
		return Config{}, ErrInvalidFee
	}
	if taxBps > BpsDenominator {
		return Config{}, ErrInvalidTaxBps
	}
	return Config{
		FeeBps:                 feeBps,
		TaxBps:                 taxBps,
		Treasury:               treasury,
		Admin:                  admin,
		DefaultVirtualCurrency: DefaultVirtualCurrency,
	}, nil
}

// ConfigUpdate carries the optional fields of an admin configuration change.
// Nil fields are left untouched.
type ConfigUpdate struct {
	FeeBps   *uint16
	Treasury *common.Address
	TaxBps   *uint16
}

// UpdateConfiguration applies an admin change to the config. The caller must
// be the stored admin. Validation is all-or-nothing: if any provided field is
// out of range, no field is written.
func (c *Config) UpdateConfiguration(caller common.Address, update ConfigUpdate) error {
	if caller != c.Admin {
		return ErrUnauthorized
	}
	if update.FeeBps != nil && *update.FeeBps > BpsDenominator {
		return ErrInvalidFee
	}
	if update.TaxBps != nil && *update.TaxBps > BpsDenominator {
		return ErrInvalidTaxBps
	}

	if update.FeeBps != nil {
		c.FeeBps = *update.FeeBps
	}
	if update.Treasury != nil {
		c.Treasury = *update.Treasury
	}
	if update.TaxBps != nil {
		c.TaxBps = *update.TaxBps
	}
	return nil
}
