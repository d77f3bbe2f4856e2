package models

import (
	"time"

	"gorm.io/gorm"
)

// Court type codes derived from case-id prefixes. The deriver in
// services/court_type.go owns the prefix-to-code mapping.
const (
	CourtTypeSC   = "SC"   // Supreme Court
	CourtTypeELC  = "ELC"  // Environment and Land Court
	CourtTypeELRC = "ELRC" // Employment and Labour Relations Court
	CourtTypeKC   = "KC"   // Kadhi's Court
	CourtTypeSCC  = "SCC"  // Small Claims Court
	CourtTypeCOA  = "COA"  // Court of Appeal
	CourtTypeMC   = "MC"   // Magistrate Court
	CourtTypeHC   = "HC"   // High Court
	CourtTypeTC   = "TC"   // Tribunal Court
)

type Court struct {
	CourtID   uint           `gorm:"primaryKey;autoIncrement;column:court_id" json:"court_id"`
	CourtName string         `gorm:"column:court_name;size:255;not null;uniqueIndex" json:"court_name"`
	CourtType string         `gorm:"column:court_type;size:8;not null" json:"court_type"`
	CourtCode string         `gorm:"column:court_code;size:32;uniqueIndex" json:"court_code"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Court) TableName() string { return "courts" }

type Judge struct {
	JudgeID   uint           `gorm:"primaryKey;autoIncrement;column:judge_id" json:"judge_id"`
	FullName  string         `gorm:"column:full_name;size:255;not null;index" json:"full_name"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Judge) TableName() string { return "judges" }

type CaseType struct {
	CaseTypeID  uint      `gorm:"primaryKey;autoIncrement;column:case_type_id" json:"case_type_id"`
	TypeName    string    `gorm:"column:type_name;size:255;not null;uniqueIndex" json:"type_name"`
	Description *string   `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CaseType) TableName() string { return "case_types" }
