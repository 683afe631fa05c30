// Package app wires the payment relay together: configuration, storage,
// external clients, HTTP surface and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/badixth/chip-in-backend/internal/checkout"
	"github.com/badixth/chip-in-backend/internal/chip"
	"github.com/badixth/chip-in-backend/internal/coupon"
	"github.com/badixth/chip-in-backend/internal/handler"
	"github.com/badixth/chip-in-backend/internal/order"
	"github.com/badixth/chip-in-backend/internal/reconcile"
	"github.com/badixth/chip-in-backend/internal/repository"
	"github.com/badixth/chip-in-backend/internal/shopify"
	"github.com/badixth/chip-in-backend/pkg/health"
	"github.com/badixth/chip-in-backend/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Webhook dedup store: PostgreSQL when configured, in-memory otherwise.
	var eventStore reconcile.Store = reconcile.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := repository.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		eventStore = repository.NewEventRepository(pool)
	} else {
		lg.Warn("No database configured, webhook dedup is per-process only")
	}
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// External clients.
	platform := shopify.NewClient(shopify.Config{
		StoreURL:    cfg.ShopifyStoreURL,
		AccessToken: cfg.ShopifyAccessToken,
	})
	gateway := chip.NewClient(chip.Config{
		BaseURL: cfg.ChipAPIURL,
		APIKey:  cfg.ChipAPIKey,
	})

	// Domain services.
	coupons := coupon.NewRuleValidator(platform)
	initiator := checkout.NewInitiator(checkout.Config{
		StoreURL: cfg.ShopifyStoreURL,
		BrandID:  cfg.ChipBrandID,
	}, coupons, gateway)
	sequences := order.NewSequenceGenerator(platform)
	materializer := order.NewMaterializer(platform, coupons, sequences)
	reconciler, err := reconcile.NewReconciler(eventStore, materializer, m.MeterProvider().Meter("chipin"))
	if err != nil {
		return errors.Wrap(err, "create reconciler")
	}

	// HTTP surface: health endpoints + relay routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(initiator, reconciler, coupons).Routes(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
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
			httpmiddleware.Instrument("chipin-relay",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
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
