package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"picking-control.com/picking-control/internal/cache"
	config "picking-control.com/picking-control/internal/configs"
	httpapi "picking-control.com/picking-control/internal/http"
	repository "picking-control.com/picking-control/internal/repositories"
	"picking-control.com/picking-control/internal/services"
	"picking-control.com/picking-control/internal/spreadsheet"
	"picking-control.com/picking-control/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the picking control HTTP API and realtime gateway",
	RunE: func(cmd *cobra.Command, args []string) error {

		if err := godotenv.Load(); err != nil {
			log.Println(".env file not found, using environment variables")
		}

		cfg := config.Load()

		taskRepo, cleanup := newTaskRepository(cfg)
		defer cleanup()

		redisClient, err := config.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("failed to create redis client: %v", err)
		}
		if redisClient != nil {
			defer redisClient.Close()
		}
		metricsCache := cache.NewMetricsCache(
			redisClient,
			time.Duration(cfg.MetricsCacheTTLSeconds)*time.Second,
		)

		store, err := spreadsheet.NewStorage(cfg.UploadDir)
		if err != nil {
			log.Fatalf("failed to prepare upload dir: %v", err)
		}

		registry := ws.NewRegistry()
		hub := ws.NewHub(registry)
		socket := ws.NewHandler(registry)

		lifecycle := services.NewLifecycleService(taskRepo, hub, store)
		metrics := services.NewMetricsService(taskRepo, metricsCache)
		auth := services.NewAuthService(cfg.AdminUsername, cfg.AdminPassword, cfg.JWTSecret)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		monitor := ws.NewMonitor(registry, time.Duration(cfg.HeartbeatIntervalSeconds)*time.Second)
		go monitor.Run(ctx)

		e := echo.New()
		e.HideBanner = true

		handler := httpapi.NewHandler(lifecycle, metrics, auth, store)
		httpapi.Register(e, handler, socket, cfg.RateLimit)

		go func() {
			log.Printf("HTTP server listening on %s", cfg.AppURL)
			if err := e.Start(cfg.AppURL); err != nil {
				log.Printf("server stopped: %v", err)
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second,
		)
		defer cancel()

		_ = e.Shutdown(shutdownCtx)
		registry.CloseAll()

		log.Println("HTTP server shut down gracefully")
		return nil
	},
}

func newTaskRepository(cfg config.Config) (repository.TaskRepository, func()) {
	switch cfg.StorageDriver {
	case "mongo":
		client := config.NewMongoClient(cfg.MongoURI)
		cleanup := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}
		return repository.NewMongoTaskRepository(client.Database(cfg.MongoDatabase), "tasks"), cleanup
	case "memory":
		log.Println("using in-memory storage, tasks are lost on restart")
		return repository.NewMemoryTaskRepository(), func() {}
	default:
		return repository.NewGormTaskRepository(config.NewSqlite(cfg.DatabaseDSN)), func() {}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
