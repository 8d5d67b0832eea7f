package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/aggregate"
	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	snapshots := cache.NewLRUCache[[]core.Transaction](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache))
	caches.Register(snapshots)
	caches.StartCleanup(time.Minute)

	tokens := auth.NewTokens(cfg.JWTKey, cfg.TokenTTL)
	transactions := services.NewTransactionService(res.Backend, res.Publisher, snapshots)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:          ":" + cfg.Port,
		Origin:        cfg.Origin,
		SecureCookies: cfg.IsProduction(),
		AuthRateLimit: cfg.AuthRateLimit,
	}, apphttp.Deps{
		Auth:         services.NewAuthService(res.Backend, tokens),
		Transactions: transactions,
		Dashboard:    services.NewDashboardService(transactions, aggregate.New()),
		Tokens:       tokens,
		Ready:        res.Backend.Ping,
		Logger:       logger,
	})

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"env", cfg.AppEnv,
			"events", res.Publisher != nil)
		serveErr <- srv.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			exitCode = 1
		}
	case <-ctx.Done():
	}

	_ = cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		err := srv.Shutdown(ctx)
		caches.Stop()
		return errors.Join(err, res.Cleanup())
	})

	logger.Info("Server stopped")
	os.Exit(exitCode)
}
