// Command clear-expired-carts removes every cart that has not been updated in
// the last 24 hours, then exits.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/junaidrashid-git/shopcart-api/config"
	"github.com/junaidrashid-git/shopcart-api/database"
	"github.com/junaidrashid-git/shopcart-api/logging"
	"github.com/junaidrashid-git/shopcart-api/repositories"
	"github.com/junaidrashid-git/shopcart-api/services/cart"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.ServiceName, cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("clear_expired_carts_failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Failed to clear expired carts: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	fmt.Println("Expired carts cleared successfully.")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	db, err := database.Open(cfg.DSN(), logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	svc := cart.NewService(
		repositories.NewProductRepository(db),
		repositories.NewCartRepository(db),
		cart.WithTTL(cfg.CartTTL),
		cart.WithLogger(logger),
	)
	_, err = svc.ClearExpiredCarts(ctx)
	return err
}
