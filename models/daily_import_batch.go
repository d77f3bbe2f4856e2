package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ImportStatusPending    = "PENDING"
	ImportStatusProcessing = "PROCESSING"
	ImportStatusCompleted  = "COMPLETED"
	ImportStatusFailed     = "FAILED"
)

// DailyImportBatch is the lifecycle record for one uploaded returns file.
// Status only moves forward: PENDING -> PROCESSING -> COMPLETED|FAILED.
// The database row is authoritative; cache progress values are hints only.
type DailyImportBatch struct {
	BatchID      uint      `gorm:"primaryKey;autoIncrement;column:batch_id" json:"batch_id"`
	ImportDate   time.Time `gorm:"column:import_date;not null" json:"import_date"`
	Filename     string    `gorm:"column:filename;size:255;not null" json:"filename"`
	FileSize     int64     `gorm:"column:file_size;not null;default:0" json:"file_size"`
	FileChecksum string    `gorm:"column:file_checksum;size:64;not null;index" json:"file_checksum"`

	TotalRecords      int `gorm:"column:total_records;not null;default:0" json:"total_records"`
	SuccessfulRecords int `gorm:"column:successful_records;not null;default:0" json:"successful_records"`
	FailedRecords     int `gorm:"column:failed_records;not null;default:0" json:"failed_records"`

	Status       string  `gorm:"column:status;size:16;not null;default:'PENDING';index" json:"status"`
	ErrorMessage *string `gorm:"column:error_message;type:text" json:"error_message,omitempty"`

	CreatedBy   uint           `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`

	// Relations
	Creator User                `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Errors  []ImportErrorDetail `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"errors,omitempty"`
}

func (DailyImportBatch) TableName() string { return "daily_import_batches" }

// IsTerminal reports whether the batch has reached a final status.
func (b *DailyImportBatch) IsTerminal() bool {
	return b.Status == ImportStatusCompleted || b.Status == ImportStatusFailed
}

// Duration returns completedAt - createdAt in seconds when available.
func (b *DailyImportBatch) Duration() *float64 {
	if b.CompletedAt == nil {
		return nil
	}
	d := b.CompletedAt.Sub(b.CreatedAt).Seconds()
	return &d
}

const (
	ImportErrorTypeValidation  = "VALIDATION"
	ImportErrorTypePersistence = "PERSISTENCE"
	ImportErrorTypeParse       = "PARSE"
)

type ImportErrorDetail struct {
	ErrorID      uint    `gorm:"primaryKey;autoIncrement;column:error_id" json:"error_id"`
	BatchID      uint    `gorm:"column:batch_id;not null;index" json:"batch_id"`
	RowNumber    int     `gorm:"column:row_number;not null" json:"row_number"`
	ColumnName   *string `gorm:"column:column_name;size:64" json:"column_name,omitempty"`
	ErrorType    string  `gorm:"column:error_type;size:16;not null" json:"error_type"`
	ErrorMessage string  `gorm:"column:error_message;type:text;not null" json:"error_message"`
	Suggestion   *string `gorm:"column:suggestion;type:text" json:"suggestion,omitempty"`
	RawValue     *string `gorm:"column:raw_value;type:text" json:"raw_value,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ImportErrorDetail) TableName() string { return "import_error_details" }
