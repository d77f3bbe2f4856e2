package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"case-management-api/models"
	"case-management-api/services"
	"case-management-api/utils"

	"github.com/gin-gonic/gin"
)

var allowedReturnsMimeTypes = map[string]bool{
	"text/csv":                 true,
	"text/plain":               true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // browsers label .csv this way on Windows
}

func maxUploadBytes() int64 {
	maxMB := int64(10)
	if raw := os.Getenv("MAX_UPLOAD_MB"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			maxMB = parsed
		}
	}
	return maxMB * 1024 * 1024
}

// saveReturnsUpload validates and stores the uploaded CSV, returning the
// stored path and original filename.
func saveReturnsUpload(c *gin.Context) (string, string, int64, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "A returns file is required"})
		return "", "", 0, false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedReturnsMimeTypes[contentType] && !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unsupported file type, please upload a .csv file"})
		return "", "", 0, false
	}
	if header.Size > maxUploadBytes() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false,
			"error": fmt.Sprintf("File exceeds the %dMB limit", maxUploadBytes()/(1024*1024))})
		return "", "", 0, false
	}

	uploadDir := os.Getenv("UPLOAD_PATH")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	uploadDir = filepath.Join(uploadDir, "returns")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Cannot create upload directory"})
		return "", "", 0, false
	}

	dstPath := filepath.Join(uploadDir, utils.GenerateUniqueFilename(header.Filename))
	if err := c.SaveUploadedFile(header, dstPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Cannot store uploaded file"})
		return "", "", 0, false
	}
	return dstPath, header.Filename, header.Size, true
}

// UploadImport receives a returns file and starts the full import.
func UploadImport(c *gin.Context) {
	dstPath, filename, size, ok := saveReturnsUpload(c)
	if !ok {
		return
	}

	var userID uint
	if raw, exists := c.Get("userID"); exists {
		if id, isInt := raw.(int); isInt && id > 0 {
			userID = uint(id)
		}
	}

	svc := services.NewImportService(nil, nil)
	result, err := svc.InitiateImport(c.Request.Context(), dstPath, filename, size, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Import initiation failed"})
		return
	}
	if !result.Success {
		status := http.StatusBadRequest
		if strings.Contains(result.Error, services.ErrDuplicateImport.Error()) {
			status = http.StatusConflict
		}
		c.JSON(status, result)
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// ValidateImport checks a returns file without persisting anything.
func ValidateImport(c *gin.Context) {
	dstPath, _, _, ok := saveReturnsUpload(c)
	if !ok {
		return
	}
	defer os.Remove(dstPath) // validation-only uploads are not kept

	svc := services.NewImportService(nil, nil)
	report, err := svc.ValidateFile(dstPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// GetImportStatus returns the merged cache/database status snapshot.
func GetImportStatus(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}

	svc := services.NewImportService(nil, nil)
	snapshot, err := svc.GetImportStatus(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "status": "NOT_FOUND", "error": "Import batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Cannot load batch status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "batch": snapshot})
}

// GetImportErrors pages through the per-row error log of a batch.
func GetImportErrors(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	batches := services.NewImportBatchService(nil)
	if _, err := batches.GetByID(batchID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Import batch not found"})
		return
	}

	details, total, err := batches.ListErrors(batchID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Cannot load batch errors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"errors":  details,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// CancelImport stops an in-flight batch. Already-committed rows stay.
func CancelImport(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}

	batches := services.NewImportBatchService(nil)
	if err := batches.Cancel(batchID); err != nil {
		switch {
		case errors.Is(err, services.ErrBatchNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Import batch not found"})
		case errors.Is(err, services.ErrBatchNotCancelable):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Batch already finished"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Cannot cancel batch"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Batch cancelled"})
}

// GetImportHistory lists recent batches, most recent first.
func GetImportHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))

	if status != "" {
		switch status {
		case models.ImportStatusPending, models.ImportStatusProcessing,
			models.ImportStatusCompleted, models.ImportStatusFailed:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown status filter"})
			return
		}
	}

	svc := services.NewImportService(nil, nil)
	history, err := svc.GetImportHistory(limit, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Cannot load import history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

func batchIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("batchId"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid batch id"})
		return 0, false
	}
	return uint(id), true
}
