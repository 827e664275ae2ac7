// Package main is the entry point for the Folio portfolio tracking service.
// It resolves FX rates and market quotes with caching, maintains an
// append-only trade ledger with derived holdings, and records periodic
// valuation snapshots for change tracking.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/clients/eodhd"
	"github.com/aristath/folio/internal/clients/exchangerate"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/fx"
	fxhandlers "github.com/aristath/folio/internal/modules/fx/handlers"
	"github.com/aristath/folio/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/folio/internal/modules/portfolio/handlers"
	"github.com/aristath/folio/internal/modules/prices"
	priceshandlers "github.com/aristath/folio/internal/modules/prices/handlers"
	"github.com/aristath/folio/internal/modules/snapshots"
	snapshotshandlers "github.com/aristath/folio/internal/modules/snapshots/handlers"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/aristath/folio/internal/server"
	"github.com/aristath/folio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting Folio")

	// Databases. The ledger gets full durability, the cache trades
	// durability for speed.
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	clientDataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open client data database")
	}
	defer clientDataDB.Close()

	for _, db := range []*database.DB{portfolioDB, clientDataDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Upstream clients and services.
	cacheRepo := clientdata.NewRepository(clientDataDB.Conn())

	eodhdClient := eodhd.NewClient(cfg.EODHDBaseURL, cfg.EODHDAPIToken, cfg.HTTPTimeout, log)
	exchangeRateClient := exchangerate.NewClient(cfg.ExchangeRateBaseURL, cfg.HTTPTimeout, log)

	fxService := fx.NewService(eodhdClient, exchangeRateClient, cacheRepo, cfg.FxTTL, log)
	pricesService := prices.NewService(eodhdClient, fxService, cacheRepo, cfg.PriceTTL, log)

	holdingRepo := portfolio.NewHoldingRepository(portfolioDB.Conn())
	transactionRepo := portfolio.NewTransactionRepository(portfolioDB.Conn())
	portfolioService := portfolio.NewService(portfolioDB.Conn(), holdingRepo, transactionRepo, pricesService, log)

	snapshotRepo := snapshots.NewRepository(portfolioDB.Conn())
	snapshotService := snapshots.NewService(snapshotRepo, portfolioService, log)

	// Background jobs.
	sched := scheduler.New(log)

	snapshotSchedules := map[domain.Scope]string{
		domain.ScopeDaily:   "0 8 * * *",
		domain.ScopeWeekly:  "0 8 * * 1",
		domain.ScopeMonthly: "0 8 1 * *",
	}
	for scope, schedule := range snapshotSchedules {
		if err := sched.AddJob(schedule, snapshots.NewJob(snapshotService, scope, log)); err != nil {
			log.Fatal().Err(err).Str("scope", string(scope)).Msg("Failed to register snapshot job")
		}
	}

	if err := sched.AddJob("30 3 * * *", clientdata.NewCleanupJob(cacheRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}

	if cfg.Backup.Enabled() {
		r2Client, err := reliability.NewR2Client(
			cfg.Backup.Endpoint,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.Bucket,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create R2 client")
		}

		backupService := reliability.NewBackupService(map[string]*database.DB{
			"portfolio":   portfolioDB,
			"client_data": clientDataDB,
		}, log)
		r2BackupService := reliability.NewR2BackupService(r2Client, backupService, cfg.DataDir, log)

		if err := sched.AddJob("0 4 * * *", reliability.NewBackupJob(r2BackupService, cfg.Backup.RetentionDays, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Cloud backups enabled")
	} else {
		log.Info().Msg("Cloud backups disabled (no R2 credentials configured)")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server.
	srv := server.New(server.Config{
		Log:         log,
		Config:      cfg,
		PortfolioDB: portfolioDB,
		ClientDB:    clientDataDB,
		Handlers: server.Handlers{
			Fx:        fxhandlers.NewHandler(fxService, cacheRepo, log),
			Prices:    priceshandlers.NewHandler(pricesService, log),
			Portfolio: portfoliohandlers.NewHandler(portfolioService, log),
			Snapshots: snapshotshandlers.NewHandler(snapshotService, log),
		},
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
