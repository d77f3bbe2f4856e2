package main

import (
	"context"
	"log"
	"os"

	"case-management-api/config"
	"case-management-api/middleware"
	"case-management-api/models"
	"case-management-api/routes"
	"case-management-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database and cache
	config.InitDB()
	config.InitRedis()

	if err := config.DB.AutoMigrate(
		&models.User{},
		&models.Court{},
		&models.Judge{},
		&models.CaseType{},
		&models.Case{},
		&models.CaseActivity{},
		&models.CaseJudgeAssignment{},
		&models.DailyImportBatch{},
		&models.ImportErrorDetail{},
	); err != nil {
		log.Fatal("Failed to migrate database schema:", err)
	}

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.Logger())

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Setup routes
	routes.SetupRoutes(router)

	// Create upload directory if not exists
	uploadPath := os.Getenv("UPLOAD_PATH")
	if uploadPath == "" {
		uploadPath = "./uploads"
	}
	if err := os.MkdirAll(uploadPath, os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create upload directory: %v", err)
	}

	// Sweep stalled batches in the background
	janitor := services.StartBatchJanitor(nil)
	defer janitor.Stop()

	// When Redis is configured, consume queued import jobs in-process unless
	// a dedicated worker binary handles them (EMBEDDED_WORKER=false).
	if config.RedisClient != nil && os.Getenv("EMBEDDED_WORKER") != "false" {
		queue := services.NewImportQueue(config.RedisClient)
		importService := services.NewImportService(nil, nil)
		go func() {
			if err := queue.Consume(context.Background(), importService.HandleQueuedJob); err != nil && err != context.Canceled {
				log.Printf("embedded import worker stopped: %v", err)
			}
		}()
		log.Println("Embedded import worker started")
	}

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
