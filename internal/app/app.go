// Package app wires the payment engine together and manages its
// lifecycle: storage, chain clients, compliance, the HTTP surface and
// the background workers.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coinflow/payments/internal/billing"
	"github.com/coinflow/payments/internal/chain"
	"github.com/coinflow/payments/internal/chain/bitcoin"
	"github.com/coinflow/payments/internal/chain/evm"
	"github.com/coinflow/payments/internal/compliance"
	"github.com/coinflow/payments/internal/core/config"
	"github.com/coinflow/payments/internal/fees"
	redisclient "github.com/coinflow/payments/internal/infra/redis"
	"github.com/coinflow/payments/internal/infra/rpc"
	"github.com/coinflow/payments/internal/infra/storage"
	"github.com/coinflow/payments/internal/infra/storage/memory"
	"github.com/coinflow/payments/internal/infra/storage/postgres"
	"github.com/coinflow/payments/internal/lifecycle"
	"github.com/coinflow/payments/internal/notify"
	"github.com/coinflow/payments/internal/rates"
	"github.com/coinflow/payments/internal/server"
)

// App is the assembled payment engine.
type App struct {
	cfg config.AppConfig

	db          *postgres.DB
	redisClient *redisclient.Client

	service *lifecycle.Service
	monitor *lifecycle.Monitor
	sweeper *lifecycle.Sweeper
	biller  *billing.Worker

	httpServer *http.Server
	log        *slog.Logger

	wg sync.WaitGroup
}

// New builds the application from configuration.
func New(cfg config.AppConfig) (*App, error) {
	app := &App{cfg: cfg, log: slog.Default()}

	// Storage: postgres when a URL is configured, in-memory otherwise.
	var (
		txRepo       storage.TransactionRepository
		merchantRepo storage.MerchantRepository
		subRepo      storage.SubscriptionRepository
	)
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, fmt.Errorf("migrate db: %w", err)
		}
		txRepo = postgres.NewTxRepo(db)
		merchantRepo = postgres.NewMerchantRepo(db)
		subRepo = postgres.NewSubscriptionRepo(db)
		app.db = db
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		txRepo = memory.NewTxRepo(store)
		merchantRepo = memory.NewMerchantRepo(store)
		subRepo = memory.NewSubscriptionRepo(store)
		slog.Info("Using Memory storage")
	}

	// Redis backs the event channel and the fee-sync cooldown. The
	// engine runs without it, with those features degraded.
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, pub/sub and shared cooldowns disabled", "error", err)
		} else {
			app.redisClient = rc
		}
	}

	// Chain adapters and RPC clients per configured network.
	adapters := make([]chain.Adapter, 0, len(cfg.Networks))
	rpcClients := make(map[string]*rpc.Client, len(cfg.Networks))
	for _, netCfg := range cfg.Networks {
		providers := make([]rpc.Provider, 0, len(netCfg.Providers))
		for _, p := range netCfg.Providers {
			providers = append(providers, rpc.NewHTTPProvider(p.Name, p.URL, p.Timeout))
		}
		if len(providers) == 0 {
			return nil, fmt.Errorf("network %s has no providers", netCfg.Name)
		}
		client := rpc.NewClient(string(netCfg.Name), providers...)
		rpcClients[string(netCfg.Name)] = client

		switch netCfg.Type {
		case "bitcoin":
			adapters = append(adapters, bitcoin.NewAdapter(netCfg.Name, client, netCfg.RequiredConfirmations))
		case "evm", "":
			adapters = append(adapters, evm.NewAdapter(netCfg.Name, client, netCfg.RequiredConfirmations))
		default:
			return nil, fmt.Errorf("unknown network type %q for %s", netCfg.Type, netCfg.Name)
		}
	}

	tokens := make(map[string]map[string]chain.Token)
	for _, netCfg := range cfg.Networks {
		if len(netCfg.Tokens) == 0 {
			continue
		}
		table := make(map[string]chain.Token, len(netCfg.Tokens))
		for currency, tok := range netCfg.Tokens {
			table[currency] = chain.Token{Address: tok.Address, Decimals: tok.Decimals}
		}
		tokens[string(netCfg.Name)] = table
	}

	registry, err := chain.NewRegistry(adapters, cfg.Routing, tokens)
	if err != nil {
		return nil, fmt.Errorf("build network registry: %w", err)
	}
	verifier := chain.NewVerifier(registry)

	// Compliance gate.
	gateCfg, err := compliance.ParseConfig(cfg.Compliance)
	if err != nil {
		return nil, fmt.Errorf("parse compliance config: %w", err)
	}
	gate := compliance.NewGate(gateCfg, txRepo)

	// Exchange rates.
	resolver, err := rates.NewStaticResolver(cfg.Rates)
	if err != nil {
		return nil, fmt.Errorf("parse rate table: %w", err)
	}

	// Fee engine and the on-chain rate syncer.
	feeEngine, err := fees.NewEngine(cfg.Fees.Percentages)
	if err != nil {
		return nil, fmt.Errorf("build fee engine: %w", err)
	}

	contractCfg := cfg.Fees.Contract
	var writer fees.ContractWriter
	if contractCfg.Address != "" {
		client, ok := rpcClients[contractCfg.Network]
		if !ok {
			slog.Warn("Fee contract network not configured, on-chain sync disabled",
				"network", contractCfg.Network)
			contractCfg.Address = ""
		} else {
			writer = client
		}
	}
	var locks fees.CooldownLock = newLocalCooldown()
	if app.redisClient != nil {
		locks = app.redisClient
	}
	syncer := fees.NewSyncer(contractCfg, writer, locks)

	// Notification dispatcher.
	var emitters []notify.Emitter
	if app.redisClient != nil && cfg.Notify.Channel != "" {
		emitters = append(emitters, notify.NewRedisEmitter(app.redisClient, cfg.Notify.Channel))
	}
	if cfg.Notify.WebhookURL != "" {
		emitters = append(emitters, notify.NewWebhookEmitter(cfg.Notify.WebhookURL, cfg.Notify.Timeout))
	}
	if cfg.Notify.EmailURL != "" {
		emitters = append(emitters, notify.NewWebhookEmitter(cfg.Notify.EmailURL, cfg.Notify.Timeout))
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.Timeout, emitters...)

	var converter lifecycle.AutoConverter
	if cfg.Payments.ConvertURL != "" {
		converter = lifecycle.NewConvertChecker(cfg.Payments.ConvertURL, cfg.Notify.Timeout)
	}

	app.service = lifecycle.NewService(
		txRepo, subRepo, gate, resolver, registry, verifier,
		feeEngine, dispatcher, converter, cfg.Payments.PendingExpiry,
	)
	app.monitor = lifecycle.NewMonitor(app.service, cfg.Payments.MonitorInterval)
	app.sweeper = lifecycle.NewSweeper(txRepo, cfg.Payments.PendingExpiry, cfg.Payments.SweepInterval)
	app.biller = billing.NewWorker(subRepo, cfg.Billing.RolloverInterval, cfg.Billing.PeriodDays)

	billingSvc := billing.NewService(subRepo, feeEngine, syncer)

	handler := server.NewPaymentHandler(app.service, billingSvc)
	health := func() error {
		if app.db == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return app.db.Health(ctx)
	}
	router := server.NewRouter(handler, merchantRepo, health, app.log)

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app, nil
}

// Start launches the HTTP server and the background workers.
func (a *App) Start(ctx context.Context) error {
	a.wg.Add(3)
	go func() {
		defer a.wg.Done()
		a.monitor.Start(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.sweeper.Start(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.biller.Start(ctx)
	}()

	go func() {
		a.log.Info("HTTP server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	return nil
}

// Stop shuts the application down gracefully.
func (a *App) Stop(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("HTTP shutdown failed", "error", err)
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("Timed out waiting for workers")
	}

	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	return nil
}
