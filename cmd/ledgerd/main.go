package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/galleryprotocol/nft-ledger/internal/adapter"
	"github.com/galleryprotocol/nft-ledger/internal/api/middleware"
	"github.com/galleryprotocol/nft-ledger/internal/api/server"
	"github.com/galleryprotocol/nft-ledger/internal/config"
	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/executor"
	"github.com/galleryprotocol/nft-ledger/internal/ledger"
	"github.com/galleryprotocol/nft-ledger/internal/logger"
	"github.com/galleryprotocol/nft-ledger/internal/notifier"
	"github.com/galleryprotocol/nft-ledger/internal/payments"
	"github.com/galleryprotocol/nft-ledger/internal/providers/jetstream"
	"github.com/galleryprotocol/nft-ledger/internal/rent"
	"github.com/galleryprotocol/nft-ledger/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadLedgerdConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "ledgerd",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting NFT ledger service")

	// Parse storage pricing
	byteCost, err := domain.ParseAmount(cfg.Ledger.ByteCost)
	if err != nil {
		logger.Fatal("Invalid ledger.byte_cost", zap.Error(err))
	}
	dustThreshold, err := domain.ParseAmount(cfg.Ledger.DustThreshold)
	if err != nil {
		logger.Fatal("Invalid ledger.dust_threshold", zap.Error(err))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db, adapter.NewClock())

	// Rebuild the in-memory ledger from the durable state
	core := ledger.New()
	snapshot, err := dataStore.LoadLedger(ctx)
	if err != nil {
		logger.Fatal("Failed to load ledger state", zap.Error(err))
	}
	if snapshot != nil {
		for tokenID, token := range snapshot.Tokens {
			core.Restore(tokenID, token, snapshot.Metadata[tokenID])
		}
		logger.InfoCtx(ctx, "Restored ledger state", zap.Int("tokens", len(snapshot.Tokens)))
	}

	// Connect to NATS JetStream
	publisher, err := jetstream.NewPublisher(jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream(), adapter.NewJSON())
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer publisher.Close()
	logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))

	// Build the executor and its collaborators
	accountant := rent.NewAccountant(byteCost, dustThreshold)
	approvalNotifier := notifier.New(ctx, notifier.Config{
		Workers:        cfg.Ledger.NotifierWorkers,
		QueueSize:      cfg.Ledger.NotifierQueueSize,
		MaxElapsedTime: cfg.Ledger.NotifierTimeout,
	}, publisher)
	defer approvalNotifier.Shutdown()
	transferrer := payments.NewBrokerTransferrer(publisher)
	exec := executor.New(core, accountant, dataStore, publisher, approvalNotifier, transferrer)

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
		MaxPayoutRecipients: cfg.Ledger.MaxPayoutRecipients,
	}

	// Create and start server
	srv := server.New(serverConfig, exec)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("Ledger service stopped")
}
