package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/clarazen/backend/internal/cache"
	"github.com/clarazen/backend/internal/config"
	"github.com/clarazen/backend/internal/database"
	"github.com/clarazen/backend/internal/database/migrations"
	"github.com/clarazen/backend/internal/jobs"
	"github.com/clarazen/backend/internal/logger"
	"github.com/clarazen/backend/internal/routes"
	affiliatesvc "github.com/clarazen/backend/internal/services/affiliate"
)

func main() {
	cfg := config.LoadConfig()

	logLevel := "info"
	if cfg.Environment == "development" {
		logLevel = "debug"
	}
	if err := logger.Initialize(logLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Log.Sync()

	// Setup database connection
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	statsCache := cache.NewStatsCache(cfg.Redis)
	affiliateSvc := affiliatesvc.NewAffiliateService(db, cfg.Affiliate, statsCache)

	// Start the commission release scheduler
	scheduler := jobs.NewScheduler(affiliateSvc, cfg.Affiliate)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.Default()

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Register routes
	routes.RegisterRoutes(router, db, cfg, affiliateSvc)

	fmt.Printf("Clara Zen API server running on port %s\n", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
