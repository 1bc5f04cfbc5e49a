package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/auth"
	"github.com/junaidrashid-git/shopcart-api/config"
	"github.com/junaidrashid-git/shopcart-api/database"
	"github.com/junaidrashid-git/shopcart-api/logging"
	"github.com/junaidrashid-git/shopcart-api/metrics"
	"github.com/junaidrashid-git/shopcart-api/middleware"
	"github.com/junaidrashid-git/shopcart-api/notifications"
	"github.com/junaidrashid-git/shopcart-api/repositories"
	"github.com/junaidrashid-git/shopcart-api/routes"
	"github.com/junaidrashid-git/shopcart-api/scheduler"
	"github.com/junaidrashid-git/shopcart-api/services/cart"
	"github.com/junaidrashid-git/shopcart-api/services/product"
	"github.com/junaidrashid-git/shopcart-api/services/user"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	mailAttempts    = 3
	mailBackoff     = 2 * time.Second
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.ServiceName, cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server_exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	db, err := database.Open(cfg.DSN(), logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Product-created notifications: management mail plus the live admin feed
	bus := notifications.NewBus(logger, m)
	var sender notifications.Sender = notifications.LogSender{Log: logger}
	if cfg.SendGridAPIKey != "" {
		sender = notifications.NewSendGridClient(cfg.SendGridAPIKey, cfg.ServiceName, logger)
	} else {
		logger.Warn("sendgrid_disabled", zap.String("reason", "SENDGRID_API_KEY is empty, mail is logged only"))
	}
	mailer := &notifications.Mailer{
		Sender:   sender,
		From:     cfg.MailFrom,
		To:       cfg.MailTo,
		Attempts: mailAttempts,
		Backoff:  mailBackoff,
		Log:      logger,
	}
	feed := notifications.NewFeed(logger)
	bus.Subscribe(notifications.EventProductCreated, mailer.Handle)
	bus.Subscribe(notifications.EventProductCreated, feed.Broadcast)

	productRepo := repositories.NewProductRepository(db)
	carts := cart.NewService(productRepo, repositories.NewCartRepository(db),
		cart.WithTTL(cfg.CartTTL),
		cart.WithLogger(logger),
		cart.WithMetrics(m),
	)
	deps := routes.Deps{
		Users: user.NewService(
			repositories.NewUserRepository(db),
			repositories.NewTokenRepository(db),
			auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
			logger,
		),
		Products:    product.NewService(productRepo, bus, logger, m),
		Carts:       carts,
		Feed:        feed,
		AdminAPIKey: cfg.AdminAPIKey,
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Observability(logger, m))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	routes.SetupRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http_server_listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		scheduler.RunDaily(gctx, "clear_expired_carts", cfg.SweepHour, cfg.SweepMinute, logger, func(ctx context.Context) error {
			_, err := carts.ClearExpiredCarts(ctx)
			return err
		})
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown_started")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		bus.Stop(shutdownCtx)

		logger.Info("shutdown_finished")
		return err
	})

	return g.Wait()
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
