package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/royal-empire/club_service/internal/api/routes"
	"github.com/royal-empire/club_service/internal/infrastructure/config"
	"github.com/royal-empire/club_service/internal/infrastructure/di"
	"github.com/royal-empire/club_service/pkg/graceful"
	"github.com/royal-empire/club_service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := di.NewContainer(cfg, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	router := routes.SetupRoutes(container)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go container.SettlementWorker.Start(workerCtx)
	log.Info("Settlement worker started",
		"poll_interval", cfg.Settlement.PollInterval.String(),
		"verification_delay", cfg.Settlement.VerificationDelay.String())

	if err := container.ProfitAccrualWorker.Start(workerCtx); err != nil {
		log.Fatal("Failed to start profit accrual worker", "error", err)
	}
	log.Info("Profit accrual worker started", "cron_spec", cfg.Accrual.CronSpec)

	go func() {
		log.Info("Starting HTTP server", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	shutdown := graceful.NewShutdownManager(server, log)
	shutdown.Register(container.SettlementWorker)
	shutdown.Register(container.ProfitAccrualWorker)
	shutdown.RegisterCloser(container.Close)
	shutdown.WaitForShutdown()
}
