package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/config"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/adapters/notify"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/adapters/polygon"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/adapters/polymarket"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/adapters/storage"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/application/history"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/application/monitor"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/application/planner"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/application/redeemer"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/application/scanner"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

const (
	credentialsFile      = "credentials.json"
	equityInterval       = 5 * time.Minute
	historyRefreshEvery  = time.Minute
	maxAutoOpenPositions = 1
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	scanOnly := flag.Bool("scan-only", false, "scan and rank only, no trading")
	auto := flag.Bool("auto", false, "auto-place pairs on the top candidate")
	place := flag.String("place", "", "place a pair on the given condition id and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full candidate table (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("arbbot starting",
		"config", *configPath,
		"scan_interval", cfg.ScanInterval(),
		"scan_only", *scanOnly,
		"auto", *auto,
		"once", *once,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.API.DataBase)
	notifier := notify.NewConsole(*table)

	scan := scanner.New(scanner.Config{
		Interval:        cfg.ScanInterval(),
		MinCombinedCost: cfg.Scanner.MinCombinedCost,
		MaxCombinedCost: cfg.Scanner.MaxCombinedCost,
		MinHoursToEnd:   cfg.Scanner.MinHoursToEnd,
		MaxHoursToEnd:   cfg.Scanner.MaxHoursToEnd,
		MaxMarkets:      cfg.Scanner.MaxMarkets,
	}, client, client, notifier)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		opps, err := scan.RunOnce(ctx)
		if err != nil {
			slog.Error("scan failed", "err", err)
			os.Exit(1)
		}
		if err := notifier.Notify(ctx, opps); err != nil {
			slog.Warn("notifier error", "err", err)
		}
		return
	}

	privateKey := config.PrivateKey()
	if *scanOnly || privateKey == "" {
		if privateKey == "" && !*scanOnly {
			slog.Warn("POLY_PRIVATE_KEY not set, falling back to scan-only mode")
		}
		if err := scan.Run(ctx); err != nil {
			slog.Error("scanner exited with error", "err", err)
			os.Exit(1)
		}
		slog.Info("arbbot stopped cleanly")
		return
	}

	app, err := buildTradingApp(ctx, cfg, client, notifier, scan, privateKey)
	if err != nil {
		slog.Error("failed to wire trading stack", "err", err)
		os.Exit(1)
	}
	defer app.close()

	if *place != "" {
		pos, plan, err := app.planner.Execute(ctx, planner.PlaceRequest{
			ConditionID: *place,
			Mode:        domain.ModeManual,
		})
		if err != nil {
			slog.Error("placement failed", "condition", *place, "err", err)
			os.Exit(1)
		}
		slog.Info("pair placed",
			"condition", pos.ConditionID,
			"priceA", plan.PriceA,
			"priceB", plan.PriceB,
			"size", plan.Size,
		)
		return
	}

	go func() {
		if err := app.monitor.Run(ctx); err != nil {
			slog.Error("monitor exited with error", "err", err)
		}
	}()
	go func() {
		if err := app.redeemer.Run(ctx); err != nil {
			slog.Error("redeemer exited with error", "err", err)
		}
	}()
	go app.equityLoop(ctx)
	if *auto {
		go app.autoTradeLoop(ctx, cfg.ScanInterval())
	}

	if err := scan.Run(ctx); err != nil {
		slog.Error("scanner exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("arbbot stopped cleanly")
}

// tradingApp bundles the wired trading-side components.
type tradingApp struct {
	planner  *planner.Planner
	monitor  *monitor.Monitor
	redeemer *redeemer.Redeemer
	ledger   *history.Ledger
	trading  *polymarket.TradingClient
	wallet   *polygon.RedeemClient
	equity   *storage.SQLiteStorage
	notifier *notify.Console
	scan     *scanner.Scanner
}

// buildTradingApp wires auth, chain access, state stores and the three
// trading loops. Requires a private key.
func buildTradingApp(ctx context.Context, cfg *config.Config, client *polymarket.Client, notifier *notify.Console, scan *scanner.Scanner, privateKey string) (*tradingApp, error) {
	funder := config.Funder()
	sigType := config.SignatureType()

	// Sin funder explícito, intentar detectar el proxy wallet del firmante.
	if funder == "" {
		probe, err := polymarket.NewAuthClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.API.DataBase, privateKey, "", 0)
		if err != nil {
			return nil, err
		}
		if proxy, err := client.DetectProxy(ctx, probe.Address()); err != nil {
			slog.Warn("proxy detection failed, trading from owner address", "err", err)
		} else if proxy != "" {
			slog.Info("proxy wallet detected", "proxy", proxy)
			funder = proxy
		}
	}
	if sigType < 0 {
		if funder == "" {
			sigType = 0
		} else {
			sigType = 2
		}
	}

	auth, err := polymarket.NewAuthClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.API.DataBase, privateKey, funder, sigType)
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureCreds(ctx); err != nil {
		return nil, err
	}
	trading := polymarket.NewTradingClient(auth)

	fileStore, err := storage.NewFileStore(cfg.State.Dir)
	if err != nil {
		return nil, err
	}
	equityStore, err := storage.NewSQLiteStorage(cfg.State.DSN)
	if err != nil {
		return nil, err
	}
	ledger, err := history.NewLedger(fileStore)
	if err != nil {
		return nil, err
	}

	rpcPool, err := polygon.NewRPCPool(cfg.Chain.RPCURLs)
	if err != nil {
		return nil, err
	}
	var relayer *polygon.RelayerClient
	if cfg.Redeem.RelayerURL != "" {
		relayer = polygon.NewRelayerClient(cfg.Redeem.RelayerURL)
	}
	creds := domain.NewCredentialPool(loadCredentials(fileStore))

	redeemClient, err := polygon.NewRedeemClient(rpcPool, relayer, creds, privateKey, auth.Funder(), cfg.Redeem.Recipients)
	if err != nil {
		return nil, err
	}

	mon := monitor.New(monitor.Config{Interval: cfg.MonitorInterval()}, trading, client, ledger)
	plan := planner.New(planner.Config{
		ProfitTargetPct: cfg.Trading.ProfitTargetPct,
		MaxScale:        cfg.Trading.MaxScale,
		DefaultBudget:   cfg.Trading.OrderBudgetUSDC,
	}, client, client, trading, mon, ledger)
	drain := redeemer.New(redeemer.Config{
		Enabled:   cfg.Redeem.Enabled,
		Interval:  cfg.RedeemInterval(),
		BatchSize: cfg.Redeem.BatchSize,
	}, redeemClient, client, mon, ledger)

	// Chequeo de cartera al arrancar: avisa si falta allowance o gas.
	if balances, err := redeemClient.Balances(ctx); err != nil {
		slog.Warn("wallet balance check failed", "err", err)
	} else {
		notifier.PrintWallet(balances)
	}

	return &tradingApp{
		planner:  plan,
		monitor:  mon,
		redeemer: drain,
		ledger:   ledger,
		trading:  trading,
		wallet:   redeemClient,
		equity:   equityStore,
		notifier: notifier,
		scan:     scan,
	}, nil
}

func (a *tradingApp) close() {
	if a.equity != nil {
		a.equity.Close()
	}
}

// equityLoop persiste un snapshot periódico de equity y refresca el
// historial con el estado actual de las órdenes.
func (a *tradingApp) equityLoop(ctx context.Context) {
	ticker := time.NewTicker(equityInterval)
	refresh := time.NewTicker(historyRefreshEvery)
	defer ticker.Stop()
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			a.ledger.Refresh(ctx, a.trading)
		case <-ticker.C:
			a.snapshotEquity(ctx)
		}
	}
}

func (a *tradingApp) snapshotEquity(ctx context.Context) {
	cash, err := a.trading.GetBalance(ctx)
	if err != nil {
		slog.Warn("equity: balance read failed", "err", err)
		return
	}

	positions := a.monitor.Positions()
	var exposure float64
	for _, p := range positions {
		exposure += p.EntryCost()
	}

	snap := domain.EquitySnapshot{
		Timestamp:     time.Now(),
		CashUSDC:      cash,
		OpenPositions: len(positions),
		ExposureUSDC:  exposure,
	}
	if err := a.equity.SaveEquitySnapshot(ctx, snap); err != nil {
		slog.Warn("equity: snapshot persist failed", "err", err)
		return
	}
	a.notifier.PrintPositions(positions)
}

// autoTradeLoop coloca una pareja sobre el mejor candidato del último
// scan cuando no hay posiciones abiertas.
func (a *tradingApp) autoTradeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if len(a.monitor.Positions()) >= maxAutoOpenPositions {
				continue
			}
			opps := a.scan.Latest()
			if len(opps) == 0 {
				continue
			}
			top := opps[0]
			_, plan, err := a.planner.Execute(ctx, planner.PlaceRequest{
				ConditionID: top.Market.ConditionID,
				Mode:        domain.ModeAuto,
			})
			if err != nil {
				slog.Warn("auto: placement failed", "condition", top.Market.ConditionID, "err", err)
				continue
			}
			slog.Info("auto: pair placed",
				"condition", top.Market.ConditionID,
				"cost", plan.PerSetCost,
				"size", plan.Size,
			)
		}
	}
}

// loadCredentials lee el pool de credenciales del relayer del state dir.
// Sin fichero o corrupto → pool vacío (solo path directo disponible).
func loadCredentials(store *storage.FileStore) []domain.RelayerCredential {
	data, err := store.Load(credentialsFile)
	if err != nil || len(data) == 0 {
		return nil
	}
	var creds []domain.RelayerCredential
	if err := json.Unmarshal(data, &creds); err != nil {
		slog.Warn("credentials file corrupt, ignoring", "err", err)
		return nil
	}
	return creds
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
