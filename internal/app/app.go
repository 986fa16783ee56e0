// Package app wires configuration, storage, domain services and the HTTP
// server into a runnable promotion service.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"promosvc/db"
	"promosvc/internal/domain/checkout"
	"promosvc/internal/domain/promotion"
	"promosvc/internal/handler"
	"promosvc/internal/storage/postgres"
	"promosvc/pkg/health"
	"promosvc/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()

	// Promotion store: PostgreSQL when configured, otherwise the in-memory
	// registry seeded from the embedded catalog.
	var promos promotion.Store
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})

		store := postgres.NewPromotionStore(pool)
		if cfg.SeedOnEmpty {
			if err := seedIfEmpty(ctx, lg, store); err != nil {
				return errors.Wrap(err, "seed promotions")
			}
		}
		promos = store
	} else {
		lg.Info("No database configured, using in-memory promotion store")
		reg := promotion.NewRegistry()
		if cfg.SeedOnEmpty {
			seed, err := promotion.DecodePromotions(db.SeedPromotions)
			if err != nil {
				return errors.Wrap(err, "decode embedded seed")
			}
			reg.Load(seed)
			lg.Info("Loaded embedded promotion catalog", zap.Int("count", len(seed)))
		}
		promos = reg
	}

	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	engine := promotion.NewEngine()
	checkoutSvc := checkout.NewService(promos, engine)

	// HTTP routes: health endpoints plus the promotion API.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(promos, engine, checkoutSvc).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("promo-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// seedIfEmpty loads the embedded promotion catalog into an empty database.
// A non-empty promotions table is left untouched.
func seedIfEmpty(ctx context.Context, lg *zap.Logger, store *postgres.PromotionStore) error {
	existing, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	seed, err := promotion.DecodePromotions(db.SeedPromotions)
	if err != nil {
		return errors.Wrap(err, "decode embedded seed")
	}
	for i := range seed {
		if err := store.Create(ctx, &seed[i]); err != nil {
			return errors.Wrapf(err, "create %s", seed[i].ID)
		}
	}
	lg.Info("Seeded promotion catalog", zap.Int("count", len(seed)))
	return nil
}
