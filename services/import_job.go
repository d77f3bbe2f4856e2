package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"case-management-api/config"
	"case-management-api/models"
	"case-management-api/utils"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const defaultChunkSize = 500

// defaultInlineThreshold: files at or below this size are processed on the
// request path instead of the queue.
const defaultInlineThreshold = 1 << 20

// ImportResult is the structured outcome of an import initiation. Expected
// rejections (duplicate file, unreadable upload) come back as Success=false
// rather than an error so callers can surface a tailored message.
type ImportResult struct {
	Success bool   `json:"success"`
	BatchID uint   `json:"batch_id,omitempty"`
	Queued  bool   `json:"queued"`
	Error   string `json:"error,omitempty"`
}

// ImportStatusSnapshot merges the authoritative batch row with the cache
// progress hint. A terminal database status always wins over the cache.
type ImportStatusSnapshot struct {
	BatchID           uint     `json:"batch_id"`
	Status            string   `json:"status"`
	TotalRecords      int      `json:"total_records"`
	SuccessfulRecords int      `json:"successful_records"`
	FailedRecords     int      `json:"failed_records"`
	ProgressPercent   float64  `json:"progress_percent"`
	AllRowsFailed     bool     `json:"all_rows_failed"`
	ErrorMessage      *string  `json:"error_message,omitempty"`
	DurationSeconds   *float64 `json:"duration_seconds,omitempty"`
}

// BatchSummary is one entry of the import history listing.
type BatchSummary struct {
	BatchID           uint     `json:"batch_id"`
	Filename          string   `json:"filename"`
	FileSize          int64    `json:"file_size"`
	Status            string   `json:"status"`
	TotalRecords      int      `json:"total_records"`
	SuccessfulRecords int      `json:"successful_records"`
	FailedRecords     int      `json:"failed_records"`
	CreatedAt         string   `json:"created_at"`
	DurationSeconds   *float64 `json:"duration_seconds,omitempty"`
}

// RowValidationResult reports the field errors of one invalid row during a
// validation-only pass.
type RowValidationResult struct {
	RowNumber int          `json:"row_number"`
	Errors    []FieldError `json:"errors"`
}

// ValidationReport is the outcome of a validate-only run; nothing is
// persisted.
type ValidationReport struct {
	TotalRows   int                   `json:"total_rows"`
	ValidRows   int                   `json:"valid_rows"`
	InvalidRows int                   `json:"invalid_rows"`
	RowErrors   []RowValidationResult `json:"row_errors,omitempty"`
}

// ImportService orchestrates the CSV import pipeline: checksum and
// duplicate detection, batch creation, queue or inline dispatch, chunked row
// processing with progress updates, and status/history queries.
type ImportService struct {
	db              *gorm.DB
	batches         *ImportBatchService
	persistence     *CasePersistenceService
	progress        *ProgressCache
	queue           *ImportQueue
	chunkSize       int
	inlineThreshold int64
}

func NewImportService(db *gorm.DB, rdb *redis.Client) *ImportService {
	if db == nil {
		db = config.DB
	}
	if rdb == nil {
		rdb = config.RedisClient
	}

	inlineThreshold := int64(defaultInlineThreshold)
	if raw := os.Getenv("IMPORT_INLINE_THRESHOLD"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed >= 0 {
			inlineThreshold = parsed
		}
	}

	return &ImportService{
		db:              db,
		batches:         NewImportBatchService(db),
		persistence:     NewCasePersistenceService(db),
		progress:        NewProgressCache(rdb),
		queue:           NewImportQueue(rdb),
		chunkSize:       defaultChunkSize,
		inlineThreshold: inlineThreshold,
	}
}

// InitiateImport validates the upload, creates the batch record and either
// queues a background job or processes the file inline. No batch row is left
// behind when initiation fails.
func (s *ImportService) InitiateImport(ctx context.Context, filePath, filename string, fileSize int64, userID uint) (*ImportResult, error) {
	checksum, err := utils.FileChecksum(filePath)
	if err != nil {
		return &ImportResult{Success: false, Error: fmt.Sprintf("cannot read uploaded file: %v", err)}, nil
	}

	if userID == 0 {
		user, err := s.getOrCreateSystemUser()
		if err != nil {
			return nil, err
		}
		userID = uint(user.UserID)
	}

	// Best-effort duplicate detection; see DESIGN.md on the race window.
	existing, err := s.batches.FindActiveOrCompletedByChecksum(checksum)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ImportResult{
			Success: false,
			Error: fmt.Sprintf("%v: batch %d already holds this file (%s)",
				ErrDuplicateImport, existing.BatchID, existing.Status),
		}, nil
	}

	batch, err := s.batches.Start(filename, fileSize, checksum, userID)
	if err != nil {
		return nil, err
	}

	if s.queue.Available() && fileSize > s.inlineThreshold {
		msg := ImportJobMessage{BatchID: batch.BatchID, FilePath: filePath}
		if err := s.queue.Enqueue(ctx, msg); err != nil {
			// Queue down at initiation time: fail the batch explicitly so no
			// PENDING row dangles, then report the failure to the caller.
			if markErr := s.batches.MarkFailed(batch.BatchID, fmt.Errorf("queue unavailable: %w", err)); markErr != nil {
				log.Printf("failed to mark batch %d failed after enqueue error: %v", batch.BatchID, markErr)
			}
			return &ImportResult{Success: false, BatchID: batch.BatchID,
				Error: fmt.Sprintf("import queue unavailable: %v", err)}, nil
		}
		return &ImportResult{Success: true, BatchID: batch.BatchID, Queued: true}, nil
	}

	if err := s.ProcessBatch(ctx, batch.BatchID, filePath); err != nil {
		return &ImportResult{Success: false, BatchID: batch.BatchID, Error: err.Error()}, nil
	}
	return &ImportResult{Success: true, BatchID: batch.BatchID}, nil
}

// ProcessBatch runs the chunked row pipeline for one batch. Row-level
// failures are recorded and counted, never propagated; an error return means
// the whole job failed and the batch is marked FAILED.
func (s *ImportService) ProcessBatch(ctx context.Context, batchID uint, filePath string) error {
	parsed, err := ParseReturnsFile(filePath)
	if err != nil {
		if markErr := s.batches.MarkFailed(batchID, err); markErr != nil && !errors.Is(markErr, ErrBatchNotFound) {
			log.Printf("failed to mark batch %d failed: %v", batchID, markErr)
		}
		return err
	}

	if err := s.batches.MarkProcessing(batchID, len(parsed.Rows)); err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			// Batch was cancelled or finished elsewhere before we started.
			log.Printf("batch %d no longer pending, skipping", batchID)
			return nil
		}
		return err
	}

	total := len(parsed.Rows)
	processed := 0

	for start := 0; start < total; start += s.chunkSize {
		end := start + s.chunkSize
		if end > total {
			end = total
		}

		succeeded, failed := 0, 0
		for _, raw := range parsed.Rows[start:end] {
			row, fieldErrs := ValidateRow(raw)
			if row == nil {
				failed++
				if err := s.batches.RecordRowErrors(batchID, raw.LineNumber, models.ImportErrorTypeValidation, fieldErrs); err != nil {
					log.Printf("batch %d: failed to record validation errors for row %d: %v", batchID, raw.LineNumber, err)
				}
				continue
			}

			if err := s.persistence.PersistRow(row, batchID); err != nil {
				failed++
				persistErr := []FieldError{{
					Message:    err.Error(),
					Suggestion: "check the row against existing court and case records",
				}}
				if recErr := s.batches.RecordRowErrors(batchID, raw.LineNumber, models.ImportErrorTypePersistence, persistErr); recErr != nil {
					log.Printf("batch %d: failed to record persistence error for row %d: %v", batchID, raw.LineNumber, recErr)
				}
				continue
			}
			succeeded++
		}

		if err := s.batches.AddCounts(batchID, succeeded, failed); err != nil {
			return err
		}

		processed = end
		percent := float64(processed) / float64(total) * 100
		s.progress.SetProgress(ctx, batchID, percent)

		// Cancellation check between chunks: cancel sets FAILED, we stop
		// without rolling back committed rows.
		batch, err := s.batches.GetByID(batchID)
		if err != nil {
			return err
		}
		if batch.Status == models.ImportStatusFailed {
			log.Printf("batch %d cancelled after %d of %d rows", batchID, processed, total)
			s.progress.Clear(ctx, batchID)
			return nil
		}
	}

	// Partial success is still COMPLETED; the counts tell the story.
	if err := s.batches.MarkCompleted(batchID); err != nil && !errors.Is(err, ErrBatchNotFound) {
		return err
	}
	s.progress.SetProgress(ctx, batchID, 100)
	log.Printf("batch %d completed: %d rows", batchID, total)
	return nil
}

// HandleQueuedJob is the worker entry point for queued import jobs.
func (s *ImportService) HandleQueuedJob(ctx context.Context, msg ImportJobMessage) error {
	return s.ProcessBatch(ctx, msg.BatchID, msg.FilePath)
}

// ValidateFile runs the parser and validator over a file without touching
// the database.
func (s *ImportService) ValidateFile(filePath string) (*ValidationReport, error) {
	parsed, err := ParseReturnsFile(filePath)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{TotalRows: len(parsed.Rows)}
	for _, raw := range parsed.Rows {
		if _, fieldErrs := ValidateRow(raw); len(fieldErrs) > 0 {
			report.InvalidRows++
			report.RowErrors = append(report.RowErrors, RowValidationResult{
				RowNumber: raw.LineNumber,
				Errors:    fieldErrs,
			})
		} else {
			report.ValidRows++
		}
	}
	return report, nil
}

// GetImportStatus merges the cache hint with the authoritative batch row.
// The cache can never contradict a terminal status.
func (s *ImportService) GetImportStatus(ctx context.Context, batchID uint) (*ImportStatusSnapshot, error) {
	batch, err := s.batches.GetByID(batchID)
	if err != nil {
		return nil, err
	}

	snapshot := &ImportStatusSnapshot{
		BatchID:           batch.BatchID,
		Status:            batch.Status,
		TotalRecords:      batch.TotalRecords,
		SuccessfulRecords: batch.SuccessfulRecords,
		FailedRecords:     batch.FailedRecords,
		ErrorMessage:      batch.ErrorMessage,
		DurationSeconds:   batch.Duration(),
	}
	snapshot.AllRowsFailed = batch.TotalRecords > 0 && batch.FailedRecords == batch.TotalRecords

	switch {
	case batch.Status == models.ImportStatusCompleted:
		snapshot.ProgressPercent = 100
	case batch.IsTerminal():
		snapshot.ProgressPercent = dbProgress(batch)
	default:
		if hint, ok := s.progress.GetProgress(ctx, batchID); ok && hint > dbProgress(batch) {
			snapshot.ProgressPercent = hint
		} else {
			snapshot.ProgressPercent = dbProgress(batch)
		}
	}
	return snapshot, nil
}

func dbProgress(batch *models.DailyImportBatch) float64 {
	if batch.TotalRecords == 0 {
		return 0
	}
	done := batch.SuccessfulRecords + batch.FailedRecords
	return float64(done) / float64(batch.TotalRecords) * 100
}

// GetImportHistory lists recent batches, most recent first, with computed
// durations.
func (s *ImportService) GetImportHistory(limit int, status string) ([]BatchSummary, error) {
	batches, err := s.batches.List(limit, status)
	if err != nil {
		return nil, err
	}

	summaries := make([]BatchSummary, 0, len(batches))
	for i := range batches {
		b := &batches[i]
		summaries = append(summaries, BatchSummary{
			BatchID:           b.BatchID,
			Filename:          b.Filename,
			FileSize:          b.FileSize,
			Status:            b.Status,
			TotalRecords:      b.TotalRecords,
			SuccessfulRecords: b.SuccessfulRecords,
			FailedRecords:     b.FailedRecords,
			CreatedAt:         b.CreatedAt.Format("2006-01-02 15:04:05"),
			DurationSeconds:   b.Duration(),
		})
	}
	return summaries, nil
}

// Batches exposes the batch lifecycle service for controllers that need
// error listings and cancellation.
func (s *ImportService) Batches() *ImportBatchService {
	return s.batches
}

func (s *ImportService) getOrCreateSystemUser() (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", models.SystemUserEmail).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := utils.HashPassword(fmt.Sprintf("system-%d", os.Getpid()))
	if err != nil {
		return nil, err
	}
	user = models.User{
		FirstName: "System",
		LastName:  "Import",
		Email:     models.SystemUserEmail,
		Password:  hashed,
		RoleID:    models.RoleDataEntry,
		IsActive:  false,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
