package amm

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testAdmin    = common.HexToAddress("0xAAA0000000000000000000000000000000000001")
	testTreasury = common.HexToAddress("0xBBB0000000000000000000000000000000000002")
)

func testConfig(t *testing.T, feeBps, taxBps uint16) Config {
	t.Helper()
	config, err := NewConfig(feeBps, taxBps, testTreasury, testAdmin)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return config
}

func TestNewConfigValidation(t *testing.T) {
	if _, err := NewConfig(10001, 0, testTreasury, testAdmin); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
	if _, err := NewConfig(0, 10001, testTreasury, testAdmin); !errors.Is(err, ErrInvalidTaxBps) {
		t.Fatalf("expected ErrInvalidTaxBps, got %v", err)
	}

	config := testConfig(t, 100, 5000)
	if config.DefaultVirtualCurrency != DefaultVirtualCurrency {
		t.Fatalf("default virtual currency = %d", config.DefaultVirtualCurrency)
	}
}

func TestUpdateConfigurationUnauthorized(t *testing.T) {
	config := testConfig(t, 100, 5000)
	stranger := common.HexToAddress("0x0D")

	fee := uint16(200)
	err := config.UpdateConfiguration(stranger, ConfigUpdate{FeeBps: &fee})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if config.FeeBps != 100 {
		t.Fatalf("config mutated by unauthorized caller: %+v", config)
	}
}

func TestUpdateConfigurationNoFieldsIsNoop(t *testing.T) {
	config := testConfig(t, 100, 5000)
	before := config

	if err := config.UpdateConfiguration(testAdmin, ConfigUpdate{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config != before {
		t.Fatalf("empty update changed config: %+v != %+v", config, before)
	}
}

func TestUpdateConfigurationAllOrNothing(t *testing.T) {
	config := testConfig(t, 100, 5000)
	before := config

	fee := uint16(300)
	badTax := uint16(10001)
	err := config.UpdateConfiguration(testAdmin, ConfigUpdate{FeeBps: &fee, TaxBps: &badTax})
	if !errors.Is(err, ErrInvalidTaxBps) {
		t.Fatalf("expected ErrInvalidTaxBps, got %v", err)
	}
	if config != before {
		t.Fatalf("partial write after invalid field: %+v != %+v", config, before)
	}

	badFee := uint16(10001)
	if err := config.UpdateConfiguration(testAdmin, ConfigUpdate{FeeBps: &badFee}); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
	if config != before {
		t.Fatalf("config mutated by invalid fee: %+v", config)
	}
}

func TestUpdateConfigurationAppliesFields(t *testing.T) {
	config := testConfig(t, 100, 5000)

	fee := uint16(250)
	tax := uint16(1000)
	treasury := common.HexToAddress("0xCCC0000000000000000000000000000000000003")
	err := config.UpdateConfiguration(testAdmin, ConfigUpdate{
		FeeBps:   &fee,
		TaxBps:   &tax,
		Treasury: &treasury,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.FeeBps != 250 || config.TaxBps != 1000 || config.Treasury != treasury {
		t.Fatalf("update not applied: %+v", config)
	}
	if config.Admin != testAdmin {
		t.Fatalf("admin must be untouched, got %s", config.Admin.Hex())
	}

	// Boundary value 10000 is valid.
	maxBps := uint16(10000)
	if err := config.UpdateConfiguration(testAdmin, ConfigUpdate{FeeBps: &maxBps, TaxBps: &maxBps}); err != nil {
		t.Fatalf("10000 bps must be accepted: %v", err)
	}
}
