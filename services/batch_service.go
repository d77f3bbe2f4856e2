package services

import (
	"errors"
	"fmt"
	"time"

	"case-management-api/config"
	"case-management-api/models"

	"gorm.io/gorm"
)

var (
	ErrBatchNotFound      = errors.New("import batch not found")
	ErrBatchNotCancelable = errors.New("import batch is already finished")
	ErrDuplicateImport    = errors.New("a batch with this file checksum already exists")
)

// ImportBatchService owns the DailyImportBatch lifecycle. Status moves only
// forward; finish operations refuse to touch terminal batches.
type ImportBatchService struct {
	db *gorm.DB
}

func NewImportBatchService(db *gorm.DB) *ImportBatchService {
	if db == nil {
		db = config.DB
	}
	return &ImportBatchService{db: db}
}

func (s *ImportBatchService) Start(filename string, fileSize int64, checksum string, userID uint) (*models.DailyImportBatch, error) {
	batch := &models.DailyImportBatch{
		ImportDate:   time.Now(),
		Filename:     filename,
		FileSize:     fileSize,
		FileChecksum: checksum,
		Status:       models.ImportStatusPending,
		CreatedBy:    userID,
	}
	if err := s.db.Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

// FindActiveOrCompletedByChecksum reports a prior batch with the same file
// content that is either done or still in flight. FAILED batches do not
// block a re-upload.
func (s *ImportBatchService) FindActiveOrCompletedByChecksum(checksum string) (*models.DailyImportBatch, error) {
	var batch models.DailyImportBatch
	err := s.db.Where("file_checksum = ? AND status <> ?", checksum, models.ImportStatusFailed).
		Order("created_at DESC").
		First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// MarkProcessing also accepts a PROCESSING batch so a retried queue job can
// restart with fresh counters. The retry replays the whole file, so the prior
// attempt's error log and activities are removed to keep the batch's activity
// count in step with successful_records.
func (s *ImportBatchService) MarkProcessing(batchID uint, totalRecords int) error {
	err := s.transition(batchID, []string{models.ImportStatusPending, models.ImportStatusProcessing}, map[string]interface{}{
		"status":             models.ImportStatusProcessing,
		"total_records":      totalRecords,
		"successful_records": 0,
		"failed_records":     0,
	})
	if err != nil {
		return err
	}
	if err := s.db.Where("batch_id = ?", batchID).Delete(&models.ImportErrorDetail{}).Error; err != nil {
		return err
	}
	return s.db.Where("import_batch_id = ?", batchID).Delete(&models.CaseActivity{}).Error
}

// AddCounts accumulates per-chunk success/failure counts on the batch row.
func (s *ImportBatchService) AddCounts(batchID uint, succeeded, failed int) error {
	res := s.db.Model(&models.DailyImportBatch{}).
		Where("batch_id = ?", batchID).
		Updates(map[string]interface{}{
			"successful_records": gorm.Expr("successful_records + ?", succeeded),
			"failed_records":     gorm.Expr("failed_records + ?", failed),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (s *ImportBatchService) MarkCompleted(batchID uint) error {
	now := time.Now()
	return s.transition(batchID, []string{models.ImportStatusProcessing, models.ImportStatusPending}, map[string]interface{}{
		"status":       models.ImportStatusCompleted,
		"completed_at": now,
	})
}

func (s *ImportBatchService) MarkFailed(batchID uint, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > 2000 {
		msg = fmt.Sprintf("%s...", msg[:1997])
	}
	now := time.Now()
	return s.transition(batchID, []string{models.ImportStatusProcessing, models.ImportStatusPending}, map[string]interface{}{
		"status":        models.ImportStatusFailed,
		"error_message": msg,
		"completed_at":  now,
	})
}

// Cancel stops further processing of an in-flight batch. Rows already
// committed stay committed.
func (s *ImportBatchService) Cancel(batchID uint) error {
	err := s.MarkFailed(batchID, errors.New("cancelled by user"))
	if errors.Is(err, ErrBatchNotFound) {
		// Distinguish a missing batch from one that already finished.
		if _, getErr := s.GetByID(batchID); getErr == nil {
			return ErrBatchNotCancelable
		}
		return ErrBatchNotFound
	}
	return err
}

// transition updates the batch only while it is in one of fromStatuses,
// which keeps the state machine monotonic under concurrent writers.
func (s *ImportBatchService) transition(batchID uint, fromStatuses []string, updates map[string]interface{}) error {
	res := s.db.Model(&models.DailyImportBatch{}).
		Where("batch_id = ? AND status IN ?", batchID, fromStatuses).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (s *ImportBatchService) GetByID(batchID uint) (*models.DailyImportBatch, error) {
	var batch models.DailyImportBatch
	if err := s.db.Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (s *ImportBatchService) List(limit int, status string) ([]models.DailyImportBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := s.db.Order("created_at DESC, batch_id DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var batches []models.DailyImportBatch
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// RecordRowErrors stores the error-log entries for one row of a batch.
func (s *ImportBatchService) RecordRowErrors(batchID uint, rowNumber int, errorType string, fieldErrors []FieldError) error {
	if len(fieldErrors) == 0 {
		return nil
	}
	details := make([]models.ImportErrorDetail, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		detail := models.ImportErrorDetail{
			BatchID:      batchID,
			RowNumber:    rowNumber,
			ErrorType:    errorType,
			ErrorMessage: fe.Message,
		}
		if fe.Field != "" {
			field := fe.Field
			detail.ColumnName = &field
		}
		if fe.Suggestion != "" {
			suggestion := fe.Suggestion
			detail.Suggestion = &suggestion
		}
		details = append(details, detail)
	}
	return s.db.Create(&details).Error
}

// ListErrors pages through a batch's error log, oldest rows first.
func (s *ImportBatchService) ListErrors(batchID uint, page, limit int) ([]models.ImportErrorDetail, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	var total int64
	if err := s.db.Model(&models.ImportErrorDetail{}).Where("batch_id = ?", batchID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var details []models.ImportErrorDetail
	err := s.db.Where("batch_id = ?", batchID).
		Order("row_number ASC, error_id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&details).Error
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// FailStale marks PROCESSING batches without progress for longer than
// maxAge as FAILED. Used by the cron janitor.
func (s *ImportBatchService) FailStale(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	now := time.Now()
	res := s.db.Model(&models.DailyImportBatch{}).
		Where("status = ? AND updated_at < ?", models.ImportStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        models.ImportStatusFailed,
			"error_message": "batch stalled: no progress within the allowed window",
			"completed_at":  now,
		})
	return res.RowsAffected, res.Error
}
