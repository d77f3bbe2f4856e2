package services

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const defaultStaleBatchMinutes = 60

// StartBatchJanitor schedules a periodic sweep that fails PROCESSING batches
// that have made no progress within the allowed window, typically because a
// worker died mid-batch. Returns the started scheduler so callers can stop it.
func StartBatchJanitor(db *gorm.DB) *cron.Cron {
	staleMinutes := defaultStaleBatchMinutes
	if raw := os.Getenv("IMPORT_STALE_MINUTES"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			staleMinutes = parsed
		}
	}

	batches := NewImportBatchService(db)
	c := cron.New()
	_, err := c.AddFunc("@every 10m", func() {
		swept, err := batches.FailStale(time.Duration(staleMinutes) * time.Minute)
		if err != nil {
			log.Printf("batch janitor: sweep failed: %v", err)
			return
		}
		if swept > 0 {
			log.Printf("batch janitor: marked %d stalled batch(es) as failed", swept)
		}
	})
	if err != nil {
		log.Printf("batch janitor: failed to schedule sweep: %v", err)
		return c
	}

	c.Start()
	log.Printf("Batch janitor started (stale window %dm)", staleMinutes)
	return c
}
