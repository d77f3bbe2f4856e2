package controllers

import (
	"net/http"
	"strconv"
	"time"

	"case-management-api/config"
	"case-management-api/models"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats returns dashboard statistics
func GetDashboardStats(c *gin.Context) {
	stats := make(map[string]interface{})

	// Cases by status
	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var byStatus []statusCount
	config.DB.Model(&models.Case{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus)
	stats["cases_by_status"] = byStatus

	var totalCases int64
	config.DB.Model(&models.Case{}).Count(&totalCases)
	stats["total_cases"] = totalCases

	var totalActivities int64
	config.DB.Model(&models.CaseActivity{}).Count(&totalActivities)
	stats["total_activities"] = totalActivities

	var totalCourts int64
	config.DB.Model(&models.Court{}).Where("is_active = ?", true).Count(&totalCourts)
	stats["total_courts"] = totalCourts

	var totalJudges int64
	config.DB.Model(&models.Judge{}).Where("is_active = ?", true).Count(&totalJudges)
	stats["total_judges"] = totalJudges

	// Import activity over the last 30 days
	since := time.Now().AddDate(0, 0, -30)
	var recentBatches int64
	config.DB.Model(&models.DailyImportBatch{}).
		Where("created_at >= ?", since).
		Count(&recentBatches)
	stats["batches_last_30_days"] = recentBatches

	var failedBatches int64
	config.DB.Model(&models.DailyImportBatch{}).
		Where("created_at >= ? AND status = ?", since, models.ImportStatusFailed).
		Count(&failedBatches)
	stats["failed_batches_last_30_days"] = failedBatches

	stats["current_date"] = time.Now().Format("2006-01-02")

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// GetRecentActivity lists the latest case activities for the dashboard feed.
func GetRecentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var activities []models.CaseActivity
	err := config.DB.Preload("Case").Preload("Case.Court").Preload("Judge").
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot load recent activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}
