package amm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cryptobluejava/phbt/internal/model"
)

var (
	testToken  = common.HexToAddress("0x7000000000000000000000000000000000000001")
	testTrader = common.HexToAddress("0x7000000000000000000000000000000000000002")
)

// fakeGateway records requested transfers and can be told to reject them.
type fakeGateway struct {
	tokenMoves    int
	currencyMoves int
	failCurrency  bool
}

func (g *fakeGateway) MoveToken(token, from, to common.Address, amount uint64, auth Capability) error {
	if auth != CapabilityFor(from) {
		return fmt.Errorf("%w: bad authorization", ErrTransferFailed)
	}
	g.tokenMoves++
	return nil
}

func (g *fakeGateway) MoveCurrency(from, to common.Address, amount uint64, auth Capability) error {
	if g.failCurrency {
		return ErrTransferFailed
	}
	if auth != CapabilityFor(from) {
		return fmt.Errorf("%w: bad authorization", ErrTransferFailed)
	}
	g.currencyMoves++
	return nil
}

// captureSink collects published events for assertions.
type captureSink struct {
	events []model.Event
}

func (s *captureSink) Publish(event model.Event) {
	s.events = append(s.events, event)
}

func (s *captureSink) ofType(eventType model.EventType) []model.Event {
	var out []model.Event
	for _, event := range s.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func newSwapFixture(t *testing.T, feeBps, taxBps uint16) (*Ledger, *Pool, *fakeGateway, *captureSink, *SwapEngine) {
	t.Helper()

	ledger := NewLedger(testConfig(t, feeBps, taxBps))
	pool, err := ledger.CreatePool(testToken)
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	pool.ReserveToken = 1_000_000
	pool.ReserveCurrency = 1_000_000_000
	pool.TotalShareSupply = 31_622_776

	gateway := &fakeGateway{}
	sink := &captureSink{}
	return ledger, pool, gateway, sink, NewSwapEngine(gateway, sink, nil)
}

func TestSwapBuyGoldenVector(t *testing.T) {
	ledger, pool, gateway, sink, engine := newSwapFixture(t, 100, 5000)

	result, err := engine.Swap(ledger, testTrader, testToken, 10_000_000, SideBuy, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != 9_803 {
		t.Fatalf("tokens out = %d, want 9803", result.Output)
	}
	if result.Tax != 0 {
		t.Fatalf("buy must not be taxed, got %d", result.Tax)
	}

	if pool.ReserveToken != 990_197 || pool.ReserveCurrency != 1_010_000_000 {
		t.Fatalf("reserves = %d / %d, want 990197 / 1010000000", pool.ReserveToken, pool.ReserveCurrency)
	}

	position := ledger.Position(testToken, testTrader)
	if position.TotalTokens != 9_803 || position.TotalCostBasis != 10_000_000 {
		t.Fatalf("position = %+v, want 9803 tokens / 10000000 basis", position)
	}

	if gateway.currencyMoves != 1 || gateway.tokenMoves != 1 {
		t.Fatalf("expected one currency and one token move, got %d / %d", gateway.currencyMoves, gateway.tokenMoves)
	}

	trades := sink.ofType(model.EventTypeTrade)
	if len(trades) != 1 {
		t.Fatalf("expected one trade event, got %d", len(trades))
	}
	trade := trades[0].Trade
	if trade.Side != "buy" || trade.TokenAmount != 9_803 || trade.CurrencyAmount != 10_000_000 {
		t.Fatalf("trade event = %+v", trade)
	}
	positions := sink.ofType(model.EventTypePosition)
	if len(positions) != 1 || positions[0].Position.TotalTokens != 9_803 {
		t.Fatalf("position event missing or wrong: %+v", positions)
	}
	if len(sink.ofType(model.EventTypeTax)) != 0 {
		t.Fatalf("buy must not publish a tax event")
	}
}

func TestSwapBuyCostBasisSumsRawInput(t *testing.T) {
	ledger, _, _, _, engine := newSwapFixture(t, 100, 5000)

	var paid, received uint64
	for i := 0; i < 3; i++ {
		result, err := engine.Swap(ledger, testTrader, testToken, 2_000_000, SideBuy, 0)
		if err != nil {
			t.Fatalf("buy %d: %v", i, err)
		}
		paid += 2_000_000
		received += result.Output
	}

	position := ledger.Position(testToken, testTrader)
	if position.TotalCostBasis != paid {
		t.Fatalf("basis = %d, want the raw currency paid %d", position.TotalCostBasis, paid)
	}
	if position.TotalTokens != received {
		t.Fatalf("tokens = %d, want the sum received %d", position.TotalTokens, received)
	}
}

func TestSwapConstantProductNonDecreasing(t *testing.T) {
	ledger, pool, _, _, engine := newSwapFixture(t, 100, 5000)

	before := wideMul(pool.ReserveToken, pool.ReserveCurrency)
	if _, err := engine.Swap(ledger, testTrader, testToken, 10_000_000, SideBuy, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := wideMul(pool.ReserveToken, pool.ReserveCurrency)

	if after.Lt(before) {
		t.Fatalf("constant product decreased: %s -> %s", before, after)
	}
}

func TestSwapBuySlippage(t *testing.T) {
	ledger, pool, gateway, sink, engine := newSwapFixture(t, 100, 5000)

	_, err := engine.Swap(ledger, testTrader, testToken, 10_000_000, SideBuy, 9_804)
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
	if pool.ReserveToken != 1_000_000 || pool.ReserveCurrency != 1_000_000_000 {
		t.Fatalf("reserves mutated on rejected swap: %+v", pool)
	}
	if gateway.tokenMoves != 0 || gateway.currencyMoves != 0 || len(sink.events) != 0 {
		t.Fatalf("side effects on rejected swap")
	}
}

func TestSwapInvalidAmount(t *testing.T) {
	ledger, _, _, _, engine := newSwapFixture(t, 100, 5000)

	if _, err := engine.Swap(ledger, testTrader, testToken, 0, SideBuy, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := engine.Swap(ledger, testTrader, testToken, 0, SideSell, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSwapUnknownPool(t *testing.T) {
	ledger, _, _, _, engine := newSwapFixture(t, 100, 5000)

	unknown := common.HexToAddress("0x0BAD")
	if _, err := engine.Swap(ledger, testTrader, unknown, 100, SideBuy, 0); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestSwapSellAtLossAppliesTax(t *testing.T) {
	ledger, pool, gateway, sink, engine := newSwapFixture(t, 0, 5000)

	position := ledger.Position(testToken, testTrader)
	position.TotalTokens = 10_000
	position.TotalCostBasis = 20_000_000

	result, err := engine.Swap(ledger, testTrader, testToken, 10_000, SideSell, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// preTax = 1e9 - floor(1e15 / 1_010_000) = 9_900_991, a loss against the
	// 20_000_000 basis, so half is taxed away.
	if result.Tax != 4_950_495 {
		t.Fatalf("tax = %d, want 4950495", result.Tax)
	}
	if result.Output != 4_950_496 {
		t.Fatalf("net output = %d, want 4950496", result.Output)
	}

	if pool.ReserveToken != 1_010_000 || pool.ReserveCurrency != 990_099_009 {
		t.Fatalf("reserves = %d / %d, want 1010000 / 990099009", pool.ReserveToken, pool.ReserveCurrency)
	}
	if position.TotalTokens != 0 || position.TotalCostBasis != 0 {
		t.Fatalf("full exit must clear the position, got %+v", position)
	}

	// Token in, net currency out, tax to treasury.
	if gateway.tokenMoves != 1 || gateway.currencyMoves != 2 {
		t.Fatalf("moves = %d token / %d currency, want 1 / 2", gateway.tokenMoves, gateway.currencyMoves)
	}

	taxes := sink.ofType(model.EventTypeTax)
	if len(taxes) != 1 {
		t.Fatalf("expected one tax event, got %d", len(taxes))
	}
	tax := taxes[0].Tax
	if tax.PreTaxOutput != 9_900_991 || tax.CostBasis != 20_000_000 || tax.Tax != 4_950_495 || tax.NetToUser != 4_950_496 {
		t.Fatalf("tax event = %+v", tax)
	}
	trades := sink.ofType(model.EventTypeTrade)
	if len(trades) != 1 || trades[0].Trade.Side != "sell" || trades[0].Trade.CurrencyAmount != 4_950_496 {
		t.Fatalf("trade event = %+v", trades)
	}
}

func TestSwapSellAtProfitNoTax(t *testing.T) {
	ledger, _, _, sink, engine := newSwapFixture(t, 0, 5000)

	position := ledger.Position(testToken, testTrader)
	position.TotalTokens = 10_000
	position.TotalCostBasis = 1_000_000

	result, err := engine.Swap(ledger, testTrader, testToken, 10_000, SideSell, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Tax != 0 {
		t.Fatalf("profitable sale must not be taxed, got %d", result.Tax)
	}
	if result.Output != 9_900_991 {
		t.Fatalf("output = %d, want the full 9900991", result.Output)
	}
	if len(sink.ofType(model.EventTypeTax)) != 0 {
		t.Fatalf("no tax event expected on a profitable sale")
	}
}

func TestSwapSellZeroTaxBps(t *testing.T) {
	ledger, _, _, sink, engine := newSwapFixture(t, 0, 0)

	position := ledger.Position(testToken, testTrader)
	position.TotalTokens = 10_000
	position.TotalCostBasis = 20_000_000

	result, err := engine.Swap(ledger, testTrader, testToken, 10_000, SideSell, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Tax != 0 {
		t.Fatalf("tax must be 0 at 0 bps, got %d", result.Tax)
	}
	if result.Output != 9_900_991 {
		t.Fatalf("output = %d, want 9900991", result.Output)
	}

	// The loss is still reported even though the levy rounds to nothing.
	taxes := sink.ofType(model.EventTypeTax)
	if len(taxes) != 1 || taxes[0].Tax.Tax != 0 {
		t.Fatalf("expected one zero-tax event, got %+v", taxes)
	}
}

func TestSwapSellInsufficientPosition(t *testing.T) {
	ledger, pool, gateway, sink, engine := newSwapFixture(t, 0, 5000)

	position := ledger.Position(testToken, testTrader)
	position.TotalTokens = 5_000
	position.TotalCostBasis = 1_000_000

	_, err := engine.Swap(ledger, testTrader, testToken, 10_000, SideSell, 0)
	if !errors.Is(err, ErrInsufficientPosition) {
		t.Fatalf("expected ErrInsufficientPosition, got %v", err)
	}
	if position.TotalTokens != 5_000 || position.TotalCostBasis != 1_000_000 {
		t.Fatalf("position mutated on rejected sell: %+v", position)
	}
	if pool.ReserveToken != 1_000_000 || pool.ReserveCurrency != 1_000_000_000 {
		t.Fatalf("reserves mutated on rejected sell: %+v", pool)
	}
	if gateway.tokenMoves != 0 || gateway.currencyMoves != 0 || len(sink.events) != 0 {
		t.Fatalf("side effects on rejected sell")
	}

	// A stranger with no position fails the same way without one being created.
	stranger := common.HexToAddress("0x0E")
	if _, err := engine.Swap(ledger, stranger, testToken, 1, SideSell, 0); !errors.Is(err, ErrInsufficientPosition) {
		t.Fatalf("expected ErrInsufficientPosition, got %v", err)
	}
	if ledger.findPosition(testToken, stranger) != nil {
		t.Fatalf("rejected sell created an empty position")
	}
}

func TestSwapSellSlippage(t *testing.T) {
	ledger, _, _, _, engine := newSwapFixture(t, 0, 5000)

	position := ledger.Position(testToken, testTrader)
	position.TotalTokens = 10_000
	position.TotalCostBasis = 1_000_000

	// Pre-tax output is 9_900_991; one unit above must reject.
	_, err := engine.Swap(ledger, testTrader, testToken, 10_000, SideSell, 9_900_992)
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
}

func TestSwapTransferFailurePropagates(t *testing.T) {
	ledger, _, gateway, _, engine := newSwapFixture(t, 100, 5000)
	gateway.failCurrency = true

	_, err := engine.Swap(ledger, testTrader, testToken, 10_000_000, SideBuy, 0)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
}

func TestSwapBuyDustInputRejected(t *testing.T) {
	ledger, pool, gateway, sink, engine := newSwapFixture(t, 100, 5000)

	// One currency unit fee-adjusts to zero and prices to zero tokens.
	_, err := engine.Swap(ledger, testTrader, testToken, 1, SideBuy, 0)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if pool.ReserveToken != 1_000_000 || pool.ReserveCurrency != 1_000_000_000 {
		t.Fatalf("reserves mutated by rejected buy: %d / %d", pool.ReserveToken, pool.ReserveCurrency)
	}
	if ledger.findPosition(testToken, testTrader) != nil {
		t.Fatalf("rejected buy must not create a position")
	}
	if gateway.tokenMoves != 0 || gateway.currencyMoves != 0 || len(sink.events) != 0 {
		t.Fatalf("rejected buy must have no side effects")
	}
}

func TestSwapSellDustInputRejected(t *testing.T) {
	ledger, pool, gateway, sink, engine := newSwapFixture(t, 100, 5000)

	position := ledger.Position(testToken, testTrader)
	if err := position.RecordBuy(10_000, 20_000_000); err != nil {
		t.Fatalf("RecordBuy: %v", err)
	}

	_, err := engine.Swap(ledger, testTrader, testToken, 1, SideSell, 0)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if pool.ReserveToken != 1_000_000 || pool.ReserveCurrency != 1_000_000_000 {
		t.Fatalf("reserves mutated by rejected sell: %d / %d", pool.ReserveToken, pool.ReserveCurrency)
	}
	if position.TotalTokens != 10_000 || position.TotalCostBasis != 20_000_000 {
		t.Fatalf("position mutated by rejected sell: %+v", position)
	}
	if gateway.tokenMoves != 0 || gateway.currencyMoves != 0 || len(sink.events) != 0 {
		t.Fatalf("rejected sell must have no side effects")
	}
}
