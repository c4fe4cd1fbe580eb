// Command migrate applies the embedded schema migrations to the configured
// PostgreSQL database and exits.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/credstore/internal/config"
	"github.com/dmitrijs2005/credstore/internal/dbx"
	"github.com/dmitrijs2005/credstore/internal/logging"
	"github.com/dmitrijs2005/credstore/internal/repositories/repomanager"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}

	db, err := dbx.Open(ctx, cfg.DatabaseDSN, cfg.ConnectTimeout)
	if err != nil {
		logger.Error(ctx, "db init error", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repomanager.NewPostgresRepositoryManager().RunMigrations(ctx, db); err != nil {
		logger.Error(ctx, "migrations failed", "error", err)
		db.Close()
		os.Exit(1)
	}

	logger.Info(ctx, "migrations applied")

}
