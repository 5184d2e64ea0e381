package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis"
	"gorm.io/gorm"

	"github.com/unilert/unilert/internal/app"
	"github.com/unilert/unilert/internal/config"
	"github.com/unilert/unilert/internal/database"
	"github.com/unilert/unilert/internal/server"
	"github.com/unilert/unilert/pkg/Logger"
)

// Entry point for the detection node. Loads config, wires the pipeline, and
// serves the HTTP/websocket surface until interrupted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := Logger.New(cfg.Debug)
	logger.Info("Logger initialized")

	// Database and redis are optional; a standalone node runs without them.
	var db *gorm.DB
	if cfg.DB.Host != "" {
		db, err = database.InitDB(cfg.DB)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.MigrateDB(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		logger.Warn("no database configured, running on local store only")
	}

	var rc *redis.Client
	if cfg.Redis.Addr != "" {
		rc, err = database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
	}

	application, err := app.NewApp(cfg, logger, db, rc)
	if err != nil {
		log.Fatalf("Failed to wire application: %v", err)
	}

	router := gin.Default()
	server.InitializeRoutes(cfg, router, application.GetServerDependencies())

	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router.Handler(),
	}
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server exiting: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Shutdown err %v", err)
	}
	logger.Info("Shutdown system")
}
