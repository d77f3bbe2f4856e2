package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"case-management-api/config"
	"case-management-api/models"
	"case-management-api/utils"

	"github.com/gin-gonic/gin"
)

// GetCourts lists courts, optionally filtered by type.
func GetCourts(c *gin.Context) {
	query := config.DB.Model(&models.Court{}).Where("is_active = ?", true)

	if courtType := strings.ToUpper(strings.TrimSpace(c.Query("type"))); courtType != "" {
		query = query.Where("court_type = ?", courtType)
	}
	if search := utils.SanitizeInput(c.Query("search")); search != "" {
		query = query.Where("court_name LIKE ?", "%"+search+"%")
	}

	var courts []models.Court
	if err := query.Order("court_name ASC").Find(&courts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot load courts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"courts": courts})
}

// GetCourt returns one court and its case count.
func GetCourt(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid court id"})
		return
	}

	var court models.Court
	if err := config.DB.Where("court_id = ?", id).First(&court).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Court not found"})
		return
	}

	var caseCount int64
	config.DB.Model(&models.Case{}).Where("court_id = ?", id).Count(&caseCount)

	c.JSON(http.StatusOK, gin.H{"court": court, "case_count": caseCount})
}

// GetJudges lists judges, optionally filtered by name.
func GetJudges(c *gin.Context) {
	query := config.DB.Model(&models.Judge{}).Where("is_active = ?", true)

	if search := utils.SanitizeInput(c.Query("search")); search != "" {
		query = query.Where("full_name LIKE ?", "%"+search+"%")
	}

	var judges []models.Judge
	if err := query.Order("full_name ASC").Find(&judges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot load judges"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"judges": judges})
}
