package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"infradash/internal/auth"
	"infradash/internal/backup"
	"infradash/internal/config"
	"infradash/internal/database"
	"infradash/internal/metrics"
	"infradash/internal/ports"
	"infradash/internal/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		info := web.ReadBuildInfo()
		fmt.Printf("infradash %s\nCommit: %s\nBuilt: %s\n", info.Version, info.GitCommit, info.BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"port":        cfg.Server.Port,
		"database":    cfg.Database.Path,
	}).Info("Starting infradash")

	collector := metrics.NewCollector()
	hub := web.NewHub(collector)

	// Initialize database
	store, err := database.Open(cfg.Database.Path,
		database.WithObserver(collector),
		database.WithChangeHook(hub.Publish),
		database.WithChangeHook(collector.RecordChange),
	)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	collector.Attach(store)

	allocator := ports.New(store.Services(),
		ports.WithReserved(cfg.Ports.Reserved...),
		ports.WithDefaultRange(cfg.Ports.RangeStart, cfg.Ports.RangeEnd),
		ports.WithRecorder(collector),
	)
	authService := auth.NewService(store.Users(), cfg.Auth.BcryptCost)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var archive *backup.Archive
	if cfg.Database.BackupEnabled {
		archive, err = backup.Open(cfg.Database.BackupPath)
		if err != nil {
			logrus.Fatalf("Failed to open backup archive: %v", err)
		}
		defer archive.Close()

		scheduler := backup.NewScheduler(archive, store, cfg.Database.BackupInterval, cfg.Database.BackupRetention)
		scheduler.OnSave(func(_ backup.Info, err error) {
			collector.RecordBackup(err)
		})
		go scheduler.Run(ctx)
	}

	webServer := web.NewServer(cfg, web.Deps{
		Store:     store,
		Allocator: allocator,
		Auth:      authService,
		Archive:   archive,
		Metrics:   collector,
		Hub:       hub,
	})

	if err := webServer.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start web server: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Web server shutdown error")
	}
	logrus.Info("Shutdown complete")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
