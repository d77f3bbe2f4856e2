package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	importQueueKey   = "import:jobs"
	importDLQKey     = "import:jobs:dead"
	importMaxRetries = 3
)

// ImportJobMessage is the payload queued for the background worker.
type ImportJobMessage struct {
	BatchID  uint   `json:"batch_id"`
	FilePath string `json:"file_path"`
	Attempts int    `json:"attempts"`
}

// ImportQueue is a Redis list queue: LPush to enqueue, BRPop to consume.
// Whole-job failures are re-queued with backoff up to importMaxRetries, then
// parked on a dead-letter list.
type ImportQueue struct {
	rdb *redis.Client
}

func NewImportQueue(rdb *redis.Client) *ImportQueue {
	return &ImportQueue{rdb: rdb}
}

// Available reports whether a Redis connection backs this queue.
func (q *ImportQueue) Available() bool {
	return q != nil && q.rdb != nil
}

func (q *ImportQueue) Enqueue(ctx context.Context, msg ImportJobMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, importQueueKey, data).Err()
}

// Consume blocks on the queue until ctx is cancelled, handing each job to
// handler. A handler error re-queues the job with exponential backoff until
// the retry budget runs out.
func (q *ImportQueue) Consume(ctx context.Context, handler func(ctx context.Context, msg ImportJobMessage) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			result, err := q.rdb.BRPop(ctx, 5*time.Second, importQueueKey).Result()
			if err != nil {
				if err == redis.Nil {
					continue // timeout, keep polling
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("import queue: failed to pop job: %v", err)
				time.Sleep(time.Second)
				continue
			}
			if len(result) < 2 {
				continue
			}

			var msg ImportJobMessage
			if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
				log.Printf("import queue: dropping malformed job payload: %v", err)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				q.retry(ctx, msg, err)
			}
		}
	}
}

func (q *ImportQueue) retry(ctx context.Context, msg ImportJobMessage, cause error) {
	msg.Attempts++
	if msg.Attempts >= importMaxRetries {
		log.Printf("import queue: batch %d failed after %d attempts, moving to dead letter: %v",
			msg.BatchID, msg.Attempts, cause)
		if data, err := json.Marshal(msg); err == nil {
			if dlqErr := q.rdb.LPush(ctx, importDLQKey, data).Err(); dlqErr != nil {
				log.Printf("import queue: failed to park batch %d on dead letter: %v", msg.BatchID, dlqErr)
			}
		}
		return
	}

	backoff := time.Duration(1<<uint(msg.Attempts)) * time.Second
	log.Printf("import queue: batch %d attempt %d failed, retrying in %s: %v",
		msg.BatchID, msg.Attempts, backoff, cause)
	time.Sleep(backoff)
	if err := q.Enqueue(ctx, msg); err != nil {
		log.Printf("import queue: failed to re-queue batch %d: %v", msg.BatchID, err)
	}
}
