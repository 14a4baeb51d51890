package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/custom-policies/policy-console/internal/apiserver"
	"github.com/custom-policies/policy-console/internal/config"
	handlers "github.com/custom-policies/policy-console/internal/handlers/v1"
	"github.com/custom-policies/policy-console/internal/service"
	"github.com/custom-policies/policy-console/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Error("Failed to load configuration")
		return 1
	}

	configureLogging(cfg)

	// Initialize database
	db, err := store.InitDB(cfg)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize database")
		return 1
	}

	// Create store
	dataStore := store.NewStore(db)
	defer func() {
		if err := dataStore.Close(); err != nil {
			logrus.WithError(err).Error("Error closing database")
		}
	}()

	// Create service
	policyService := service.NewPolicyService(dataStore)

	// Create public API handler
	policyHandler := handlers.NewPolicyHandler(policyService)

	// Create public API TCP listener
	listener, err := net.Listen("tcp", cfg.Service.BindAddress)
	if err != nil {
		logrus.WithError(err).Error("Failed to create API listener")
		return 1
	}
	defer listener.Close()

	// Create public API server
	srv := apiserver.New(cfg, listener, policyHandler)

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		logrus.WithError(err).Error("Server error")
		return 1
	}

	return 0
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Service.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
