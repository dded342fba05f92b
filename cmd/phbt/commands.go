package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt/internal/amm"
	"github.com/cryptobluejava/phbt/internal/bank"
	"github.com/cryptobluejava/phbt/internal/config"
	"github.com/cryptobluejava/phbt/internal/state"
	"github.com/cryptobluejava/phbt/internal/stats"
	"github.com/cryptobluejava/phbt/internal/storage"
	"github.com/cryptobluejava/phbt/internal/storage/postgres"
)

// app wires one command invocation: snapshot in, one operation, snapshot out.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *state.Store
	ledger *amm.Ledger
	book   *bank.Bank
	sink   *storage.Sink
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store := state.NewStore(cfg.StatePath)
	snap, ok, err := store.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("ledger not initialized at %s, run `phbt init` first", cfg.StatePath)
	}

	ledger, book, err := state.Restore(snap)
	if err != nil {
		return nil, err
	}

	sink := storage.NewSink(storage.NewJsonlStorage(cfg.JournalPath), logger)
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		ledger: ledger,
		book:   book,
		sink:   sink,
	}, nil
}

// commit persists the mutated ledger, then delivers journal events. The
// snapshot write is the operation's durability point; journal delivery is
// best-effort and happens strictly after it.
func (a *app) commit(ctx context.Context) error {
	if err := a.store.Save(state.Capture(a.ledger, a.book)); err != nil {
		return err
	}

	if a.cfg.PGDSN != "" && len(a.sink.Pending()) > 0 {
		pgStore, err := postgres.NewStore(ctx, a.cfg.PGDSN)
		if err != nil {
			a.logger.Warn("postgres unavailable, events kept in journal only", zap.Error(err))
		} else {
			defer pgStore.Close()
			if err := pgStore.InsertEvents(ctx, a.sink.Pending()); err != nil {
				a.logger.Warn("postgres event insert failed", zap.Error(err))
			}
		}
	}

	if err := a.sink.Flush(); err != nil {
		a.logger.Warn("event journal write failed", zap.Error(err))
	}
	return nil
}

func parseAddr(value, name string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize an empty ledger snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}

			store := state.NewStore(cfg.StatePath)
			if _, ok, err := store.Load(); err != nil {
				return err
			} else if ok {
				force, _ := cmd.Flags().GetBool("force")
				if !force {
					return fmt.Errorf("ledger already exists at %s (use --force to overwrite)", cfg.StatePath)
				}
			}

			feeBps, _ := cmd.Flags().GetUint16("fee-bps")
			taxBps, _ := cmd.Flags().GetUint16("tax-bps")
			treasuryHex, _ := cmd.Flags().GetString("treasury")
			adminHex, _ := cmd.Flags().GetString("admin")
			virtualCurrency, _ := cmd.Flags().GetUint64("virtual-currency")

			treasury, err := parseAddr(treasuryHex, "treasury")
			if err != nil {
				return err
			}
			admin, err := parseAddr(adminHex, "admin")
			if err != nil {
				return err
			}

			ammConfig, err := amm.NewConfig(feeBps, taxBps, treasury, admin)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("virtual-currency") {
				ammConfig.DefaultVirtualCurrency = virtualCurrency
			}

			ledger := amm.NewLedger(ammConfig)
			if err := store.Save(state.Capture(ledger, bank.New())); err != nil {
				return err
			}

			logger.Info("ledger initialized",
				zap.String("state", cfg.StatePath),
				zap.Uint16("fee_bps", feeBps),
				zap.Uint16("tax_bps", taxBps),
				zap.String("treasury", treasury.Hex()),
				zap.String("admin", admin.Hex()),
			)
			return nil
		},
	}

	cmd.Flags().Uint16("fee-bps", 100, "trade fee in basis points")
	cmd.Flags().Uint16("tax-bps", 5000, "paperhand tax in basis points")
	cmd.Flags().String("treasury", "", "treasury address receiving the tax")
	cmd.Flags().String("admin", "", "admin address allowed to update config")
	cmd.Flags().Uint64("virtual-currency", amm.DefaultVirtualCurrency, "virtual currency reserve for new pools")
	cmd.Flags().Bool("force", false, "overwrite an existing ledger")
	return cmd
}

func newCreatePoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-pool",
		Short: "Create a pool for a token mint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			tokenHex, _ := cmd.Flags().GetString("token")
			token, err := parseAddr(tokenHex, "token")
			if err != nil {
				return err
			}

			pool, err := a.ledger.CreatePool(token)
			if err != nil {
				return err
			}
			if err := a.commit(cmd.Context()); err != nil {
				return err
			}

			a.logger.Info("pool created",
				zap.String("token", pool.Token.Hex()),
				zap.String("vault", pool.Vault().Hex()),
				zap.Uint64("virtual_currency_reserve", pool.VirtualCurrencyReserve),
			)
			return nil
		},
	}

	cmd.Flags().String("token", "", "token mint address")
	return cmd
}

func newFaucetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faucet",
		Short: "Credit test balances to an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			accountHex, _ := cmd.Flags().GetString("account")
			account, err := parseAddr(accountHex, "account")
			if err != nil {
				return err
			}

			currency, _ := cmd.Flags().GetUint64("currency")
			if currency > 0 {
				a.book.DepositCurrency(account, currency)
			}

			tokenHex, _ := cmd.Flags().GetString("token")
			tokenAmount, _ := cmd.Flags().GetUint64("tokens")
			if tokenHex != "" && tokenAmount > 0 {
				token, err := parseAddr(tokenHex, "token")
				if err != nil {
					return err
				}
				a.book.MintToken(token, account, tokenAmount)
			}

			return a.commit(cmd.Context())
		},
	}

	cmd.Flags().String("account", "", "account to credit")
	cmd.Flags().Uint64("currency", 0, "currency amount to credit")
	cmd.Flags().String("token", "", "token mint to credit")
	cmd.Flags().Uint64("tokens", 0, "token amount to credit")
	return cmd
}

func newSwapCmd(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			tokenHex, _ := cmd.Flags().GetString("token")
			token, err := parseAddr(tokenHex, "token")
			if err != nil {
				return err
			}
			traderHex, _ := cmd.Flags().GetString("trader")
			trader, err := parseAddr(traderHex, "trader")
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetUint64("amount")
			minOut, _ := cmd.Flags().GetUint64("min-out")

			side := amm.SideBuy
			if cmd.Name() == "sell" {
				side = amm.SideSell
			}

			engine := amm.NewSwapEngine(a.book, a.sink, a.logger)
			result, err := engine.Swap(a.ledger, trader, token, amount, side, minOut)
			if err != nil {
				return err
			}
			if err := a.commit(cmd.Context()); err != nil {
				return err
			}

			return printJSON(map[string]uint64{"output": result.Output, "tax": result.Tax})
		},
	}

	cmd.Flags().String("token", "", "token mint address")
	cmd.Flags().String("trader", "", "trader address")
	cmd.Flags().Uint64("amount", 0, "input amount")
	cmd.Flags().Uint64("min-out", 0, "minimum acceptable output")
	return cmd
}

func newAddLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Deposit both reserves and mint shares",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			tokenHex, _ := cmd.Flags().GetString("token")
			token, err := parseAddr(tokenHex, "token")
			if err != nil {
				return err
			}
			providerHex, _ := cmd.Flags().GetString("provider")
			provider, err := parseAddr(providerHex, "provider")
			if err != nil {
				return err
			}
			amountToken, _ := cmd.Flags().GetUint64("amount-token")
			amountCurrency, _ := cmd.Flags().GetUint64("amount-currency")

			engine := amm.NewLiquidityEngine(a.book, a.logger)
			shares, err := engine.AddLiquidity(a.ledger, provider, token, amountToken, amountCurrency)
			if err != nil {
				return err
			}
			if err := a.commit(cmd.Context()); err != nil {
				return err
			}

			return printJSON(map[string]uint64{"shares": shares})
		},
	}

	cmd.Flags().String("token", "", "token mint address")
	cmd.Flags().String("provider", "", "liquidity provider address")
	cmd.Flags().Uint64("amount-token", 0, "token amount to deposit")
	cmd.Flags().Uint64("amount-currency", 0, "currency amount to deposit")
	return cmd
}

func newRemoveLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "Burn shares and withdraw both reserves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			tokenHex, _ := cmd.Flags().GetString("token")
			token, err := parseAddr(tokenHex, "token")
			if err != nil {
				return err
			}
			providerHex, _ := cmd.Flags().GetString("provider")
			provider, err := parseAddr(providerHex, "provider")
			if err != nil {
				return err
			}
			shares, _ := cmd.Flags().GetUint64("shares")

			engine := amm.NewLiquidityEngine(a.book, a.logger)
			amountToken, amountCurrency, err := engine.RemoveLiquidity(a.ledger, provider, token, shares)
			if err != nil {
				return err
			}
			if err := a.commit(cmd.Context()); err != nil {
				return err
			}

			return printJSON(map[string]uint64{
				"amount_token":    amountToken,
				"amount_currency": amountCurrency,
			})
		},
	}

	cmd.Flags().String("token", "", "token mint address")
	cmd.Flags().String("provider", "", "liquidity provider address")
	cmd.Flags().Uint64("shares", 0, "shares to burn")
	return cmd
}

func newSetConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-config",
		Short: "Update fee, tax, or treasury (admin only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			callerHex, _ := cmd.Flags().GetString("caller")
			caller, err := parseAddr(callerHex, "caller")
			if err != nil {
				return err
			}

			var update amm.ConfigUpdate
			if cmd.Flags().Changed("fee-bps") {
				feeBps, _ := cmd.Flags().GetUint16("fee-bps")
				update.FeeBps = &feeBps
			}
			if cmd.Flags().Changed("tax-bps") {
				taxBps, _ := cmd.Flags().GetUint16("tax-bps")
				update.TaxBps = &taxBps
			}
			if cmd.Flags().Changed("treasury") {
				treasuryHex, _ := cmd.Flags().GetString("treasury")
				treasury, err := parseAddr(treasuryHex, "treasury")
				if err != nil {
					return err
				}
				update.Treasury = &treasury
			}

			if err := a.ledger.Config.UpdateConfiguration(caller, update); err != nil {
				return err
			}
			if err := a.commit(cmd.Context()); err != nil {
				return err
			}

			a.logger.Info("configuration updated", zap.String("caller", caller.Hex()))
			return nil
		},
	}

	cmd.Flags().String("caller", "", "caller address (must be admin)")
	cmd.Flags().Uint16("fee-bps", 0, "new trade fee in basis points")
	cmd.Flags().Uint16("tax-bps", 0, "new paperhand tax in basis points")
	cmd.Flags().String("treasury", "", "new treasury address")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current ledger snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			return printJSON(state.Capture(a.ledger, a.book))
		},
	}
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate the event journal into per-pool totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}

			events, err := storage.ReadEvents(cfg.JournalPath)
			if err != nil {
				return err
			}

			totals := stats.NewAggregator(logger).Run(events)

			if cfg.PGDSN != "" {
				pgStore, err := postgres.NewStore(cmd.Context(), cfg.PGDSN)
				if err != nil {
					return err
				}
				defer pgStore.Close()
				if err := pgStore.UpsertPoolStats(cmd.Context(), totals); err != nil {
					return err
				}
			}

			return printJSON(totals)
		},
	}

	cmd.Flags().String("pg-dsn", "", "Postgres DSN for persisting stats")
	return cmd
}
