// Command import-worker consumes queued returns-import jobs from Redis and
// processes them against the database.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"case-management-api/config"
	"case-management-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	config.InitDB()
	config.InitRedis()

	if config.RedisClient == nil {
		log.Fatal("REDIS_ADDR must be set for the import worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := services.StartBatchJanitor(nil)
	defer janitor.Stop()

	queue := services.NewImportQueue(config.RedisClient)
	importService := services.NewImportService(nil, nil)

	workers := 1
	if raw := os.Getenv("IMPORT_WORKERS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			workers = parsed
		}
	}

	log.Printf("Import worker started with %d consumer(s), waiting for jobs", workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.Consume(ctx, importService.HandleQueuedJob); err != nil && err != context.Canceled {
				log.Printf("Import worker consumer stopped: %v", err)
			}
		}()
	}
	wg.Wait()
	log.Println("Import worker shut down")
}
