package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/baharkarakas/tappay-backend/internal/api"
	"github.com/baharkarakas/tappay-backend/internal/api/handlers"
	"github.com/baharkarakas/tappay-backend/internal/auth"
	"github.com/baharkarakas/tappay-backend/internal/config"
	"github.com/baharkarakas/tappay-backend/internal/credentials"
	"github.com/baharkarakas/tappay-backend/internal/db"
	"github.com/baharkarakas/tappay-backend/internal/gateway"
	"github.com/baharkarakas/tappay-backend/internal/logger"
	"github.com/baharkarakas/tappay-backend/internal/metrics"
	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/payment"
	"github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/baharkarakas/tappay-backend/internal/repository/memory"
	"github.com/baharkarakas/tappay-backend/internal/repository/postgres"
	"github.com/baharkarakas/tappay-backend/internal/secrets"
	"github.com/baharkarakas/tappay-backend/internal/services"
	"github.com/baharkarakas/tappay-backend/internal/tracing"
	"github.com/baharkarakas/tappay-backend/internal/worker"
)

const (
	serviceName        = "tappay-backend"
	credentialCacheTTL = 30 * time.Second
	sweepEvery         = time.Minute
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracing", "err", err)
		os.Exit(1)
	}

	repos, pool, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("store", "err", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	box, err := secrets.NewBox(cfg.CredentialsKey)
	if err != nil {
		log.Error("credentials key", "err", err)
		os.Exit(1)
	}
	loader := credentials.NewLoader(repos.Credentials, box, credentialCacheTTL)

	client := gateway.NewHTTPClient(cfg.UpstreamTimeout)
	fasstap := gateway.NewFasstapProxy(
		gateway.Endpoints{Production: cfg.FasstapBaseURL, Sandbox: cfg.FasstapSandboxURL},
		loader, repos.IntegrationLogs, client, log)
	lynk := gateway.NewLynkProxy(gateway.LynkConfig{
		Endpoints:       gateway.Endpoints{Production: cfg.LynkBaseURL, Sandbox: cfg.LynkSandboxURL},
		TokenPath:       cfg.LynkTokenPath,
		NotificationURL: cfg.LynkNotificationURL,
	}, loader, repos.IntegrationLogs, client, log)

	// shared window in postgres, otherwise per process
	var window repository.RateWindow
	local := gateway.NewLocalWindow()
	if cfg.RateLimitStore == "postgres" && repos.RateWindow != nil {
		window = repos.RateWindow
	} else {
		window = local
	}
	limiter := gateway.NewLimiter(window, cfg.RateLimitRequests, cfg.RateLimitWindow, log)

	wp := worker.NewPool(cfg.Workers)
	defer wp.Stop()

	connectors := payment.GatewayConnectors(fasstap, lynk, log)
	if cfg.TerminalMode == "simulator" {
		connectors = payment.SimulatedConnectors(2 * time.Second)
		log.Warn("terminal simulator enabled, payments are not real")
	}
	sessions := payment.NewManager(payment.ManagerConfig{
		Credentials:    loader,
		Connectors:     connectors,
		Sequencer:      payment.NewSequencer(repos, cfg.AtomicInventory, log),
		Runner:         wp,
		Audit:          repos.AuditLogs,
		Log:            log,
		PaymentTimeout: cfg.PaymentTimeout,
		NavigateDelay:  cfg.NavigateDelay,
		Currency:       cfg.Currency,
		TTL:            cfg.SessionTTL,
	})
	defer sessions.CloseAll()
	go sessions.Run(ctx, sweepEvery)
	go sweepWindow(ctx, local, cfg.RateLimitWindow)

	tokens := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:          cfg,
		Log:          log,
		Tokens:       tokens,
		Auth:         handlers.NewAuthHandler(services.NewMerchantAuthService(repos.Credentials, tokens, cfg.Env)),
		Payments:     handlers.NewPaymentHandler(sessions, log),
		Transactions: handlers.NewTransactionHandler(services.NewTransactionService(repos.Transactions, repos.TransactionItems)),
		Fasstap:      fasstap,
		Lynk:         lynk,
		Limiter:      limiter,
		Ready:        readiness(pool),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(r, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "store", cfg.Store, "terminal", cfg.TerminalMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown", "err", err)
	}
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Repositories, *pgxpool.Pool, error) {
	if cfg.Store == "memory" {
		store := memory.NewStore()
		seedDemo(store)
		log.Warn("in-memory store enabled, data is lost on restart")
		return store.Repositories(), nil, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return repository.Repositories{}, nil, err
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return repository.Repositories{}, nil, err
		}
	}
	return postgres.NewRepositories(pool), pool, nil
}

// seedDemo gives the memory store one merchant that works with the simulator.
func seedDemo(s *memory.Store) {
	s.PutCredentials(models.MerchantCredentials{
		MerchantID:      "demo",
		Environment:     models.EnvSandbox,
		FasstapEnabled:  true,
		FasstapUsername: "demo",
		FasstapPassword: "demo",
		LynkEnabled:     true,
		CBDCEnabled:     true,
	})
	s.PutProduct(models.Product{ID: "demo-coffee", MerchantID: "demo", Name: "Coffee", Stock: 100})
}

func readiness(pool *pgxpool.Pool) func(context.Context) error {
	if pool == nil {
		return nil
	}
	return pool.Ping
}

func sweepWindow(ctx context.Context, w *gateway.LocalWindow, window time.Duration) {
	t := time.NewTicker(window)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			w.Sweep(now, window)
		}
	}
}
