package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bubio989-sudo/coinbasenov22/api"
	"github.com/bubio989-sudo/coinbasenov22/internal/config"
	"github.com/bubio989-sudo/coinbasenov22/pkg/coinbase"
	tradesignal "github.com/bubio989-sudo/coinbasenov22/pkg/signal"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "signal-relay",
		Short: "Webhook trade-signal relay for Coinbase Exchange",
		Long:  `Receives trade-signal webhooks, validates and authenticates them, and relays them as signed orders to the Coinbase Exchange REST API`,
		Run:   runRelay,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runRelay(cmd *cobra.Command, args []string) {
	// Local .env is optional; environment wins either way
	_ = godotenv.Load()

	// Initialize logger
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.Load(cfgFile, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Set log level
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	// Initialize exchange dispatcher
	dispatcher, err := coinbase.NewClient(coinbase.Config{
		APIKey:      cfg.Coinbase.APIKey,
		APISecret:   cfg.Coinbase.APISecret,
		Passphrase:  cfg.Coinbase.Passphrase,
		BaseURL:     cfg.Coinbase.BaseURL,
		AuthType:    coinbase.AuthType(cfg.Coinbase.AuthType),
		TestMode:    cfg.Trading.TestMode,
		LogPayloads: cfg.Logging.LogPayloads,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize exchange client")
	}

	if cfg.Webhook.Secret == "" && !cfg.Webhook.AllowUnauthenticated {
		logger.Warn("No webhook secret configured; all webhook calls will be refused")
	}

	opts := tradesignal.Options{
		Secret:               cfg.Webhook.Secret,
		AllowUnauthenticated: cfg.Webhook.AllowUnauthenticated,
		MaxOrderSize:         decimal.NewFromFloat(cfg.Trading.MaxOrderSize),
	}

	// Start webhook server
	server := api.NewServer(dispatcher, opts, logger, fmt.Sprintf("%d", cfg.Server.Port), cfg.Logging.LogPayloads)
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start webhook server")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Signal relay is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Received shutdown signal")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}

	logger.Info("Signal relay stopped")
}
