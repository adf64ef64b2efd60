// Command seed creates the standard donation options for every confession.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"donation_bot/internal/catalog"
	"donation_bot/internal/config"
	"donation_bot/internal/domain"
	"donation_bot/internal/logging"
	"donation_bot/internal/store"
)

const (
	mongoConnectTimeout    = 10 * time.Second
	seedTimeout            = 30 * time.Second
	mongoDisconnectTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	seeder := catalog.NewSeeder(
		mongoManager.Donations(),
		domain.NewConfessionRepository(mongoManager.Confessions()),
		store.NewSequence(mongoManager.Counters()),
		logger,
	)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), seedTimeout)
	created, seedErr := seeder.Seed(seedCtx)
	cancelSeed()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(closeCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	}
	cancelClose()

	if seedErr != nil {
		logger.WithError(seedErr).Error("seed failed")
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", seedErr)
		os.Exit(1)
	}

	logger.WithFields(logging.Fields{
		"event":   "seed_complete",
		"created": created,
	}).Info("donation options seeded")
}
