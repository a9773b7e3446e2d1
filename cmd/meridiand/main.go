package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/meridianfx/meridian/internal/dbg"
	"github.com/meridianfx/meridian/pkg/broadcast"
	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/candles"
	"github.com/meridianfx/meridian/pkg/catalog"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/data/duckdb"
	"github.com/meridianfx/meridian/pkg/data/memory"
	"github.com/meridianfx/meridian/pkg/data/psql"
	"github.com/meridianfx/meridian/pkg/datasource/journal"
	"github.com/meridianfx/meridian/pkg/datasource/synthetic"
	"github.com/meridianfx/meridian/pkg/exchange"
	"github.com/meridianfx/meridian/pkg/ledger"
	"github.com/meridianfx/meridian/pkg/middleware"
	"github.com/meridianfx/meridian/pkg/risk"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

const version = "0.1.0"

// engineStore is the write-side storage surface the trading engine
// needs. Both the in-memory store and the PostgreSQL store satisfy it.
type engineStore interface {
	ledger.Store
	exchange.AccountStore
	exchange.OrderStore
	exchange.PositionStore
	exchange.TradeStore
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger := dbg.NewLogger(cfg.Environment)
	defer func() { _ = logger.Sync() }()

	logger.Info("meridiand started",
		zap.String("environment", cfg.Environment),
		zap.String("version", version))
	defer logger.Info("meridiand finished")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instruments, err := loadCatalog(cfg)
	if err != nil {
		logger.Fatal("unable to load instrument catalog", zap.Error(err))
	}

	store, candleStore, cleanup, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("unable to open storage", zap.Error(err))
	}
	defer cleanup()

	router := bus.NewRouter(cfg.EventCapacity)
	ledgerWriter := ledger.NewWriter(store, router)
	accounts := exchange.NewAccountBook(store, ledgerWriter)

	engineOptions := []synthetic.Option{synthetic.WithTickInterval(cfg.TickInterval)}
	if cfg.Seed != 0 {
		engineOptions = append(engineOptions, synthetic.WithSeed(cfg.Seed))
	}
	engine := synthetic.NewEngine(router, instruments.Active(), engineOptions...)

	book := exchange.NewPositionBook(router, instruments, engine, accounts, store, store, ledgerWriter)
	executor := exchange.NewExecutor(router, instruments, engine, accounts, book, store)
	riskEngine := risk.NewEngine(router, instruments, engine, accounts, book)

	aggregator, err := candles.NewAggregator(router, candleStore)
	if err != nil {
		logger.Fatal("unable to create candle aggregator", zap.Error(err))
	}

	hub := broadcast.NewHub()

	startingBalance, err := fixed.FromString(cfg.StartingBalance)
	if err != nil {
		logger.Fatal("invalid starting balance", zap.Error(err))
	}
	if _, err := accounts.Open(ctx, cfg.AccountID, startingBalance, nil); err != nil {
		logger.Fatal("unable to open account", zap.Error(err))
	}

	monitor := middleware.NewMonitor(monitorFlags)
	telemetry := middleware.NewTelemetry(logger)
	performance := middleware.NewPerformance(logger)

	tickHandlers := []bus.EventHandler[common.Tick]{book.OnTick, aggregator.OnTick, hub.OnTick}
	var recorder *journal.Recorder
	if cfg.JournalDir != "" {
		recorder = journal.NewRecorder(cfg.JournalDir)
		defer recorder.Close()
		tickHandlers = append(tickHandlers, recorder.OnTick)
	}

	metricsWrappers := []func(bus.MetricsEventHandler) bus.MetricsEventHandler{
		monitor.WithMetrics, telemetry.WithMetrics,
	}
	if cfg.PushoverToken != "" {
		pushover := middleware.NewPushover(cfg.PushoverUser, cfg.PushoverToken, cfg.PushoverDevice)
		metricsWrappers = append(metricsWrappers, pushover.WithMetrics)
	}

	router.OnTick = middleware.Chain(monitor.WithTick, telemetry.WithTick, performance.WithTick)(
		bus.MergeHandlers(tickHandlers...))
	router.OnCandle = middleware.Chain(monitor.WithCandle, telemetry.WithCandle)(
		bus.CandleEventHandler(hub.OnCandle))
	router.OnOrderUpdate = middleware.Chain(monitor.WithOrderUpdate, telemetry.WithOrderUpdate)(
		bus.MergeHandlers(riskEngine.OnOrderUpdate, hub.OnOrderUpdate))
	router.OnPositionUpdate = middleware.Chain(monitor.WithPositionUpdate, telemetry.WithPositionUpdate)(
		bus.PositionUpdateEventHandler(hub.OnPositionUpdate))
	router.OnMetrics = middleware.Chain(metricsWrappers...)(
		bus.MetricsEventHandler(hub.OnMetrics))
	router.OnLedgerEntry = middleware.Chain(monitor.WithLedgerEntry, telemetry.WithLedgerEntry)(
		bus.LedgerEventHandler(hub.OnLedgerEntry))

	done := router.Exec(ctx)
	engine.Run(ctx)
	go riskEngine.Run(ctx, cfg.RiskInterval)
	go sweepLoop(ctx, executor, cfg.SweepInterval)

	server := &http.Server{Addr: cfg.ListenAddr, Handler: newMux(hub)}
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("event router stopped", zap.Error(err))
	}

	engine.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := aggregator.Flush(shutdownCtx); err != nil {
		logger.Warn("candle flush failed", zap.Error(err))
	}
	hub.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}

	telemetry.PrintStatistics()
	performance.PrintStatistics()
	router.Statistics().Print()
}

func loadCatalog(cfg config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.Load(cfg.CatalogPath)
	}
	return catalog.Parse([]byte(defaultCatalog))
}

// openStores picks PostgreSQL for the accounting side when configured and
// DuckDB for candle history when a path is given. Without either, a single
// in-memory store backs everything.
func openStores(ctx context.Context, cfg config, logger *zap.Logger) (engineStore, candles.Store, func(), error) {
	cleanup := func() {}

	var store engineStore
	if cfg.PgHost != "" {
		db, err := psql.Connect(ctx, cfg.PgHost, cfg.PgPort, cfg.PgUser, cfg.PgPass, cfg.PgName)
		if err != nil {
			return nil, nil, cleanup, err
		}
		pg := psql.NewStore(db)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, cleanup, err
		}
		store = pg
		cleanup = func() { _ = db.Close() }
		logger.Info("using postgresql store", zap.String("host", cfg.PgHost))
	} else {
		store = memory.NewStore()
		logger.Info("using in-memory store")
	}

	if cfg.DuckDBPath != "" {
		candleStore := duckdb.NewCandleStore(cfg.DuckDBPath)
		if err := candleStore.Connect(ctx); err != nil {
			cleanup()
			return nil, nil, func() {}, err
		}
		prev := cleanup
		cleanup = func() {
			candleStore.Close()
			prev()
		}
		logger.Info("using duckdb candle store", zap.String("path", cfg.DuckDBPath))
		return store, candleStore, cleanup, nil
	}

	if memStore, ok := store.(*memory.Store); ok {
		return store, memStore, cleanup, nil
	}
	return store, memory.NewStore(), cleanup, nil
}

func sweepLoop(ctx context.Context, executor *exchange.Executor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			executor.SweepPending(ctx)
		}
	}
}

func newMux(hub *broadcast.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
