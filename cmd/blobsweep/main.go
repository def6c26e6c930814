package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/blob"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/config"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/db"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/logging"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/screening"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.WithFields(map[string]interface{}{
		"prefix": cfg.Storage.Prefix,
		"grace":  cfg.Storage.SweepGrace.String(),
	}).Info("blob sweep starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	database, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close()

	store, err := blob.Open(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("failed to open blob store")
	}

	sweeper := screening.NewSweepService(screening.NewRepository(database), store, cfg.Storage.Prefix, cfg.Storage.SweepGrace, logger)
	if _, err := sweeper.Sweep(ctx); err != nil {
		logger.WithError(err).Fatal("blob sweep failed")
	}
}
