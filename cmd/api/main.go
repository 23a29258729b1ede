package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Wikid82/scirius/backend/internal/api/routes"
	"github.com/Wikid82/scirius/backend/internal/config"
	"github.com/Wikid82/scirius/backend/internal/database"
	"github.com/Wikid82/scirius/backend/internal/logger"
	"github.com/Wikid82/scirius/backend/internal/metrics"
	"github.com/Wikid82/scirius/backend/internal/server"
	"github.com/Wikid82/scirius/backend/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().WithError(err).Fatal("load config")
	}

	// Setup logging with rotation
	logDir := cfg.LogDir
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		logDir = "logs"
		_ = os.MkdirAll(logDir, 0o755)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "scirius.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	defer rotator.Close()
	logger.Init(cfg.Debug, io.MultiWriter(os.Stdout, rotator))
	log := logger.Log()

	log.WithField("version", version.Full()).Infof("starting %s backend", version.Name)

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	svc, err := routes.NewServices(db, cfg, nil)
	if err != nil {
		log.WithError(err).Fatal("build services")
	}

	srv, err := server.New(cfg, svc, registry)
	if err != nil {
		log.WithError(err).Fatal("create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("server error")
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
