package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CaseStatusActive      = "ACTIVE"
	CaseStatusResolved    = "RESOLVED"
	CaseStatusPending     = "PENDING"
	CaseStatusTransferred = "TRANSFERRED"
	CaseStatusDeleted     = "DELETED"
)

// Case is keyed by a composite natural case number (case-id type plus
// case-id number). Import rows referencing an existing case number update
// the case instead of duplicating it.
type Case struct {
	CaseID     uint   `gorm:"primaryKey;autoIncrement;column:case_id" json:"case_id"`
	CaseNumber string `gorm:"column:case_number;size:128;not null;uniqueIndex" json:"case_number"`
	CaseidType string `gorm:"column:caseid_type;size:64;not null" json:"caseid_type"`
	CaseidNo   string `gorm:"column:caseid_no;size:64;not null" json:"caseid_no"`

	Status     string     `gorm:"column:status;size:16;not null;default:'ACTIVE'" json:"status"`
	FiledDate  *time.Time `gorm:"column:filed_date" json:"filed_date,omitempty"`
	CourtID    uint       `gorm:"column:court_id;not null;index" json:"court_id"`
	CaseTypeID *uint      `gorm:"column:case_type_id;index" json:"case_type_id,omitempty"`

	MaleApplicant         int `gorm:"column:male_applicant;not null;default:0" json:"male_applicant"`
	FemaleApplicant       int `gorm:"column:female_applicant;not null;default:0" json:"female_applicant"`
	OrganizationApplicant int `gorm:"column:organization_applicant;not null;default:0" json:"organization_applicant"`
	MaleDefendant         int `gorm:"column:male_defendant;not null;default:0" json:"male_defendant"`
	FemaleDefendant       int `gorm:"column:female_defendant;not null;default:0" json:"female_defendant"`
	OrganizationDefendant int `gorm:"column:organization_defendant;not null;default:0" json:"organization_defendant"`

	HasLegalRepresentation bool `gorm:"column:has_legal_representation;not null;default:false" json:"has_legal_representation"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`

	// Relations
	Court      Court          `gorm:"foreignKey:CourtID" json:"court,omitempty"`
	CaseType   *CaseType      `gorm:"foreignKey:CaseTypeID" json:"case_type,omitempty"`
	Activities []CaseActivity `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"activities,omitempty"`
}

func (Case) TableName() string { return "cases" }

// CaseNumberFor builds the composite natural key stored in case_number.
func CaseNumberFor(caseidType, caseidNo string) string {
	return caseidType + "/" + caseidNo
}

const (
	CustodyStatusInCustody = "IN_CUSTODY"
	CustodyStatusOnBail    = "ON_BAIL"
	CustodyStatusNone      = "NOT_APPLICABLE"
)

// CaseActivity records one court event derived from a single import row.
// Activities are append-only: created once, never updated.
type CaseActivity struct {
	ActivityID    uint  `gorm:"primaryKey;autoIncrement;column:activity_id" json:"activity_id"`
	CaseID        uint  `gorm:"column:case_id;not null;index" json:"case_id"`
	JudgeID       *uint `gorm:"column:judge_id;index" json:"judge_id,omitempty"`
	ImportBatchID uint  `gorm:"column:import_batch_id;not null;index" json:"import_batch_id"`

	ActivityDate       time.Time  `gorm:"column:activity_date;not null" json:"activity_date"`
	ActivityType       string     `gorm:"column:activity_type;size:255" json:"activity_type"`
	Outcome            string     `gorm:"column:outcome;size:255" json:"outcome"`
	ReasonForAdjourn   *string    `gorm:"column:reason_for_adjournment;type:text" json:"reason_for_adjournment,omitempty"`
	NextHearingDate    *time.Time `gorm:"column:next_hearing_date" json:"next_hearing_date,omitempty"`
	CustodyStatus      string     `gorm:"column:custody_status;size:16;not null;default:'NOT_APPLICABLE'" json:"custody_status"`
	CustodyCount       int        `gorm:"column:custody_count;not null;default:0" json:"custody_count"`
	ApplicantWitnesses int        `gorm:"column:applicant_witnesses;not null;default:0" json:"applicant_witnesses"`
	DefendantWitnesses int        `gorm:"column:defendant_witnesses;not null;default:0" json:"defendant_witnesses"`
	Details            *string    `gorm:"column:details;type:text" json:"details,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relations
	Case  Case   `gorm:"foreignKey:CaseID" json:"case,omitempty"`
	Judge *Judge `gorm:"foreignKey:JudgeID" json:"judge,omitempty"`
}

func (CaseActivity) TableName() string { return "case_activities" }

// CaseJudgeAssignment links a case to every judge that has handled it.
// The first judge seen for a case is flagged primary.
type CaseJudgeAssignment struct {
	AssignmentID uint      `gorm:"primaryKey;autoIncrement;column:assignment_id" json:"assignment_id"`
	CaseID       uint      `gorm:"column:case_id;not null;index:idx_case_judge,unique" json:"case_id"`
	JudgeID      uint      `gorm:"column:judge_id;not null;index:idx_case_judge,unique" json:"judge_id"`
	IsPrimary    bool      `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	AssignedAt   time.Time `gorm:"column:assigned_at;autoCreateTime" json:"assigned_at"`
}

func (CaseJudgeAssignment) TableName() string { return "case_judge_assignments" }
