package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"case-management-api/config"
	"case-management-api/models"
	"case-management-api/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetCases lists cases with pagination and optional status/court/search filters.
func GetCases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := config.DB.Model(&models.Case{}).Preload("Court").Preload("CaseType")

	if status := strings.ToUpper(strings.TrimSpace(c.Query("status"))); status != "" {
		query = query.Where("status = ?", status)
	}
	if courtID, err := strconv.Atoi(c.Query("court_id")); err == nil && courtID > 0 {
		query = query.Where("court_id = ?", courtID)
	}
	if search := utils.SanitizeInput(c.Query("search")); search != "" {
		query = query.Where("case_number LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot count cases"})
		return
	}

	var cases []models.Case
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&cases).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot load cases"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cases": cases,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetCase returns one case with its activity history.
func GetCase(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case id"})
		return
	}

	var kase models.Case
	err = config.DB.Preload("Court").Preload("CaseType").
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("activity_date DESC")
		}).
		Preload("Activities.Judge").
		Where("case_id = ?", id).
		First(&kase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Case not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot load case"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"case": kase})
}

type CaseRequest struct {
	CaseidType             string `json:"caseid_type" binding:"required"`
	CaseidNo               string `json:"caseid_no" binding:"required"`
	CourtID                uint   `json:"court_id" binding:"required"`
	Status                 string `json:"status"`
	CaseTypeID             *uint  `json:"case_type_id"`
	MaleApplicant          int    `json:"male_applicant"`
	FemaleApplicant        int    `json:"female_applicant"`
	OrganizationApplicant  int    `json:"organization_applicant"`
	MaleDefendant          int    `json:"male_defendant"`
	FemaleDefendant        int    `json:"female_defendant"`
	OrganizationDefendant  int    `json:"organization_defendant"`
	HasLegalRepresentation bool   `json:"has_legal_representation"`
}

// CreateCase registers a case manually, outside the import pipeline.
func CreateCase(c *gin.Context) {
	var req CaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := strings.ToUpper(req.Status)
	if status == "" {
		status = models.CaseStatusActive
	}
	switch status {
	case models.CaseStatusActive, models.CaseStatusResolved, models.CaseStatusPending,
		models.CaseStatusTransferred, models.CaseStatusDeleted:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown case status"})
		return
	}

	var court models.Court
	if err := config.DB.Where("court_id = ?", req.CourtID).First(&court).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Court does not exist"})
		return
	}

	kase := models.Case{
		CaseNumber:             models.CaseNumberFor(req.CaseidType, req.CaseidNo),
		CaseidType:             req.CaseidType,
		CaseidNo:               req.CaseidNo,
		Status:                 status,
		CourtID:                req.CourtID,
		CaseTypeID:             req.CaseTypeID,
		MaleApplicant:          req.MaleApplicant,
		FemaleApplicant:        req.FemaleApplicant,
		OrganizationApplicant:  req.OrganizationApplicant,
		MaleDefendant:          req.MaleDefendant,
		FemaleDefendant:        req.FemaleDefendant,
		OrganizationDefendant:  req.OrganizationDefendant,
		HasLegalRepresentation: req.HasLegalRepresentation,
	}

	if err := config.DB.Create(&kase).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Case number already exists"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"case": kase})
}

// UpdateCase modifies the mutable attributes of a case.
func UpdateCase(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case id"})
		return
	}

	var kase models.Case
	if err := config.DB.Where("case_id = ?", id).First(&kase).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Case not found"})
		return
	}

	var req struct {
		Status                 *string `json:"status"`
		CaseTypeID             *uint   `json:"case_type_id"`
		HasLegalRepresentation *bool   `json:"has_legal_representation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		status := strings.ToUpper(*req.Status)
		switch status {
		case models.CaseStatusActive, models.CaseStatusResolved, models.CaseStatusPending,
			models.CaseStatusTransferred, models.CaseStatusDeleted:
			updates["status"] = status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown case status"})
			return
		}
	}
	if req.CaseTypeID != nil {
		updates["case_type_id"] = *req.CaseTypeID
	}
	if req.HasLegalRepresentation != nil {
		updates["has_legal_representation"] = *req.HasLegalRepresentation
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No updatable fields provided"})
		return
	}

	if err := config.DB.Model(&kase).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot update case"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"case": kase})
}

// DeleteCase soft-deletes a case; its activities cascade with it.
func DeleteCase(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case id"})
		return
	}

	res := config.DB.Where("case_id = ?", id).Delete(&models.Case{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot delete case"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Case not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Case deleted"})
}
