package services

import (
	"errors"
	"fmt"
	"strings"

	"case-management-api/config"
	"case-management-api/models"

	"gorm.io/gorm"
)

// CasePersistenceService writes one validated row to the case tables. All
// writes for a row share one transaction so a failing row leaves nothing
// behind; other rows in the same batch are unaffected.
type CasePersistenceService struct {
	db *gorm.DB
}

func NewCasePersistenceService(db *gorm.DB) *CasePersistenceService {
	if db == nil {
		db = config.DB
	}
	return &CasePersistenceService{db: db}
}

// PersistRow upserts the master records referenced by the row and appends
// one CaseActivity tied to the batch.
func (s *CasePersistenceService) PersistRow(row *CaseReturnRow, batchID uint) error {
	if row == nil {
		return errors.New("row is nil")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		court, err := s.getOrCreateCourt(tx, row.CourtName, row.CaseidType)
		if err != nil {
			return fmt.Errorf("court %q: %w", row.CourtName, err)
		}

		judges := make([]*models.Judge, 0, len(row.Judges))
		for _, name := range row.Judges {
			judge, err := s.getOrCreateJudge(tx, name)
			if err != nil {
				return fmt.Errorf("judge %q: %w", name, err)
			}
			judges = append(judges, judge)
		}

		kase, err := s.upsertCase(tx, row, court)
		if err != nil {
			return fmt.Errorf("case %s: %w", row.CaseNumber(), err)
		}

		// Every listed judge gets an assignment; the activity records the
		// first one as the presiding judge.
		for _, judge := range judges {
			if err := s.ensureJudgeAssignment(tx, kase.CaseID, judge.JudgeID); err != nil {
				return fmt.Errorf("judge assignment: %w", err)
			}
		}

		activity := &models.CaseActivity{
			CaseID:             kase.CaseID,
			ImportBatchID:      batchID,
			ActivityDate:       row.ActivityDate,
			ActivityType:       row.ComingFor,
			Outcome:            row.Outcome,
			NextHearingDate:    row.NextHearingDate,
			CustodyCount:       row.CustodyCount,
			ApplicantWitnesses: row.ApplicantWitnesses,
			DefendantWitnesses: row.DefendantWitnesses,
		}
		if len(judges) > 0 {
			activity.JudgeID = &judges[0].JudgeID
		}
		if row.ReasonAdj != "" {
			activity.ReasonForAdjourn = &row.ReasonAdj
		}
		if row.OtherDetails != "" {
			activity.Details = &row.OtherDetails
		}
		if row.CustodyCount > 0 {
			activity.CustodyStatus = models.CustodyStatusInCustody
		} else {
			activity.CustodyStatus = models.CustodyStatusNone
		}

		if err := tx.Create(activity).Error; err != nil {
			return fmt.Errorf("case activity: %w", err)
		}
		return nil
	})
}

func (s *CasePersistenceService) getOrCreateCourt(tx *gorm.DB, name, caseidType string) (*models.Court, error) {
	var court models.Court
	err := tx.Where("court_name = ?", name).First(&court).Error
	if err == nil {
		return &court, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	court = models.Court{
		CourtName: name,
		CourtType: DeriveCourtType(caseidType),
		CourtCode: courtCodeFor(name),
		IsActive:  true,
	}
	if err := tx.Create(&court).Error; err != nil {
		return nil, err
	}
	return &court, nil
}

// courtCodeFor builds a stable unique code from the court name.
func courtCodeFor(name string) string {
	code := strings.ToUpper(name)
	code = strings.ReplaceAll(code, " ", "_")
	code = strings.ReplaceAll(code, "'", "")
	return code
}

func (s *CasePersistenceService) getOrCreateJudge(tx *gorm.DB, fullName string) (*models.Judge, error) {
	var judge models.Judge
	err := tx.Where("full_name = ?", fullName).First(&judge).Error
	if err == nil {
		return &judge, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	judge = models.Judge{FullName: fullName, IsActive: true}
	if err := tx.Create(&judge).Error; err != nil {
		return nil, err
	}
	return &judge, nil
}

func (s *CasePersistenceService) upsertCase(tx *gorm.DB, row *CaseReturnRow, court *models.Court) (*models.Case, error) {
	caseNumber := row.CaseNumber()

	caseType, err := s.getOrCreateCaseType(tx, row.CaseType)
	if err != nil {
		return nil, err
	}

	var kase models.Case
	err = tx.Where("case_number = ?", caseNumber).First(&kase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		kase = models.Case{
			CaseNumber:             caseNumber,
			CaseidType:             row.CaseidType,
			CaseidNo:               row.CaseidNo,
			Status:                 models.CaseStatusActive,
			FiledDate:              row.FiledDate,
			CourtID:                court.CourtID,
			MaleApplicant:          row.MaleApplicant,
			FemaleApplicant:        row.FemaleApplicant,
			OrganizationApplicant:  row.OrganizationApplicant,
			MaleDefendant:          row.MaleDefendant,
			FemaleDefendant:        row.FemaleDefendant,
			OrganizationDefendant:  row.OrganizationDefendant,
			HasLegalRepresentation: row.LegalRepresentation,
		}
		if caseType != nil {
			kase.CaseTypeID = &caseType.CaseTypeID
		}
		if err := tx.Create(&kase).Error; err != nil {
			return nil, err
		}
		return &kase, nil
	}
	if err != nil {
		return nil, err
	}

	// Subsequent rows refresh the mutable attributes of an existing case.
	updates := map[string]interface{}{
		"male_applicant":           row.MaleApplicant,
		"female_applicant":         row.FemaleApplicant,
		"organization_applicant":   row.OrganizationApplicant,
		"male_defendant":           row.MaleDefendant,
		"female_defendant":         row.FemaleDefendant,
		"organization_defendant":   row.OrganizationDefendant,
		"has_legal_representation": row.LegalRepresentation,
	}
	if row.FiledDate != nil {
		updates["filed_date"] = row.FiledDate
	}
	if caseType != nil {
		updates["case_type_id"] = caseType.CaseTypeID
	}
	if err := tx.Model(&kase).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &kase, nil
}

func (s *CasePersistenceService) getOrCreateCaseType(tx *gorm.DB, typeName string) (*models.CaseType, error) {
	if strings.TrimSpace(typeName) == "" {
		return nil, nil
	}

	var caseType models.CaseType
	err := tx.Where("type_name = ?", typeName).First(&caseType).Error
	if err == nil {
		return &caseType, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	caseType = models.CaseType{TypeName: typeName}
	if err := tx.Create(&caseType).Error; err != nil {
		return nil, err
	}
	return &caseType, nil
}

func (s *CasePersistenceService) ensureJudgeAssignment(tx *gorm.DB, caseID, judgeID uint) error {
	var existing models.CaseJudgeAssignment
	err := tx.Where("case_id = ? AND judge_id = ?", caseID, judgeID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var count int64
	if err := tx.Model(&models.CaseJudgeAssignment{}).Where("case_id = ?", caseID).Count(&count).Error; err != nil {
		return err
	}

	assignment := models.CaseJudgeAssignment{
		CaseID:    caseID,
		JudgeID:   judgeID,
		IsPrimary: count == 0,
	}
	return tx.Create(&assignment).Error
}
