package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tekumsceh/gigstr/internal/api"
	"github.com/tekumsceh/gigstr/internal/config"
	"github.com/tekumsceh/gigstr/internal/ratesync"
	"github.com/tekumsceh/gigstr/internal/repository"
	"github.com/tekumsceh/gigstr/internal/service"
	"github.com/tekumsceh/gigstr/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret, cfg.Auth.AdminEmail)

	// Start the exchange rate sync job
	logger := utils.NewLogger()
	if cfg.RateSync.Enabled {
		syncer := ratesync.NewSyncer(repo, cfg.RateSync.URL, logger)
		syncer.Start(context.Background(), cfg.RateSync.Interval)
	}

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
