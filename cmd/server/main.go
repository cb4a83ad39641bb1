package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/db"
	routes "github.com/sujalbistaa/whisperwall/internal/http"
	"github.com/sujalbistaa/whisperwall/internal/log"
	"github.com/sujalbistaa/whisperwall/internal/service"
	"github.com/sujalbistaa/whisperwall/internal/worker"
	"github.com/sujalbistaa/whisperwall/internal/ws"
)

func main() {
	// Production sets env vars directly, so a missing .env is fine.
	if err := godotenv.Load(); err != nil {
		log.Info.Println("No .env file found, reading from environment")
	}
	cfg := config.Load()

	database, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.Error.Fatalf("Failed to initialize database: %v", err)
	}

	log.Info.Println("Running database migrations...")
	if err := db.Migrate(database); err != nil {
		log.Error.Fatalf("Failed to run migrations: %v", err)
	}
	log.Info.Println("Migrations complete.")

	hub := ws.NewHub()
	hub.AllowedOrigin = cfg.CORSOrigin
	if cfg.RedisURL != "" {
		relay, err := ws.NewRedisRelay(cfg.RedisURL)
		if err != nil {
			log.Error.Fatalf("Failed to connect to redis: %v", err)
		}
		defer relay.Close()
		hub.UseRelay(relay)
		log.Info.Println("WebSocket relay enabled over redis")
	}
	go hub.Run()

	svc := service.New(database, hub, service.OptionsFromConfig(cfg))

	reaper := worker.NewReaper(svc)
	reaper.Start(cfg.ReapInterval)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	router := gin.New()
	routes.SetupRoutes(ctx, router, &routes.Env{Svc: svc, Hub: hub}, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Info.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error.Printf("Server forced to shutdown: %v", err)
	}
	stop()
	reaper.Stop()
	hub.Stop()

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info.Println("Server exiting")
}
