package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"med-connect/internal/config"
	"med-connect/internal/database"
	"med-connect/internal/event"
	"med-connect/internal/handler"
	"med-connect/internal/metrics"
	"med-connect/internal/repository"
	"med-connect/internal/repository/memory"
	"med-connect/internal/router"
	"med-connect/internal/service"
	"med-connect/internal/token"
	"med-connect/internal/websocket"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

// Components is the wired service graph behind the HTTP handler.
type Components struct {
	Handler  http.Handler
	Bus      *event.InMemoryBus
	Hub      *websocket.Hub
	Metrics  *metrics.Metrics
	Codes    *service.CodeService
	Exchange *service.ExchangeService
	Guard    *service.AccessGuard
	Records  *service.RecordService
	Grants   *service.GrantService
}

func New(cfg *config.Config) (*App, error) {
	repos, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	components, err := Build(cfg, repos)
	if err != nil {
		closeStore()
		return nil, err
	}

	backgroundCtx, cancelBackground := context.WithCancel(context.Background())
	go components.Hub.Run(backgroundCtx)
	go components.Grants.StartCleanupTicker(backgroundCtx, cfg.TokenCleanupInterval)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           components.Handler,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		cleanupFuncs: []func(){
			cancelBackground,
			closeStore,
		},
	}, nil
}

// Build wires codec, services, handlers and router on top of repos.
func Build(cfg *config.Config, repos repository.Set) (*Components, error) {
	codec, err := token.NewCodec(cfg.TokenSecret, token.WithIssuer(cfg.TokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	m := metrics.New()
	if repos.PoolStat != nil {
		m.WatchPool(repos.PoolStat)
	}

	codeService := service.NewCodeService(repos.Codes)
	exchangeService := service.NewExchangeService(codec, codeService, repos.Tokens, repos.Connections, bus, m)
	guard := service.NewAccessGuard(codec, repos.Tokens, repos.Audit, bus, m, cfg.StrictRevocation())
	recordService := service.NewRecordService(guard, repos.Reports, repos.Clinical, cfg.MaxReportSize)
	grantService := service.NewGrantService(repos.Tokens, repos.Connections)
	auditService := service.NewAuditService(repos.Audit)

	appRouter := router.New(cfg, router.Handlers{
		Health:  handler.NewHealthHandler(repos.Driver, repos.Ping),
		Connect: handler.NewConnectHandler(exchangeService, codeService),
		Access:  handler.NewAccessHandler(guard, grantService, auditService),
		Records: handler.NewRecordHandler(recordService),
	}, m, hub)

	slog.Info("services ready",
		"store", repos.Driver,
		"revocation_mode", cfg.RevocationMode,
		"issuer", cfg.TokenIssuer,
	)

	return &Components{
		Handler:  appRouter,
		Bus:      bus,
		Hub:      hub,
		Metrics:  m,
		Codes:    codeService,
		Exchange: exchangeService,
		Guard:    guard,
		Records:  recordService,
		Grants:   grantService,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Set, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore().Set(), func() {}, nil
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, database.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return repository.Set{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return repository.Set{}, nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	return repository.NewPostgresSet(db.Pool), db.Close, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
