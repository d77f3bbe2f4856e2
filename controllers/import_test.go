package controllers

import (
	"bytes"
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"case-management-api/config"
	"case-management-api/models"
)

var router *gin.Engine

// TestMain sets up the test database and router, runs tests, and tears down.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	err = testDB.AutoMigrate(
		&models.User{},
		&models.Court{},
		&models.Judge{},
		&models.CaseType{},
		&models.Case{},
		&models.CaseActivity{},
		&models.CaseJudgeAssignment{},
		&models.DailyImportBatch{},
		&models.ImportErrorDetail{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate test database schema: %v", err)
	}
	config.DB = testDB

	uploadDir, err := os.MkdirTemp("", "returns-uploads")
	if err != nil {
		log.Fatalf("Failed to create upload dir: %v", err)
	}
	os.Setenv("UPLOAD_PATH", uploadDir)

	// Auth middleware is exercised separately; handlers are mounted bare here.
	router = gin.New()
	v1 := router.Group("/api/v1")
	{
		imports := v1.Group("/import")
		{
			imports.POST("", UploadImport)
			imports.POST("/validate", ValidateImport)
			imports.GET("/history", GetImportHistory)
			imports.GET("/:batchId/status", GetImportStatus)
			imports.GET("/:batchId/errors", GetImportErrors)
			imports.POST("/:batchId/cancel", CancelImport)
		}

		v1.GET("/cases", GetCases)
		v1.GET("/cases/:id", GetCase)
		v1.POST("/cases", CreateCase)
		v1.PUT("/cases/:id", UpdateCase)
		v1.DELETE("/cases/:id", DeleteCase)

		v1.GET("/courts", GetCourts)
		v1.GET("/courts/:id", GetCourt)
		v1.GET("/judges", GetJudges)

		v1.GET("/dashboard/stats", GetDashboardStats)
		v1.GET("/dashboard/recent-activity", GetRecentActivity)
	}

	exitCode := m.Run()
	os.RemoveAll(uploadDir)
	os.Exit(exitCode)
}

const testReturnsHeader = "court,date_dd,date_mon,date_yyyy,caseid_type,caseid_no,case_type,judge_1,comingfor,outcome,legalrep,custody,other_details"

func uploadReturns(t *testing.T, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestUploadImportAndStatus(t *testing.T) {
	content := testReturnsHeader + "\n" +
		`Machakos HC,14,Mar,2024,HCWEB,W101,Civil Suit,"Kendagor, Caroline J",Hearing,Adjourned,yes,0,` + "\n" +
		`Machakos HC,15,Mar,2024,HCWEB,W102,Civil Suit,"Kendagor, Caroline J",Mention,Heard,no,0,` + "\n" +
		`,15,Mar,2024,HCWEB,W103,Civil Suit,,Mention,Heard,no,0,` + "\n"

	w := uploadReturns(t, "/api/v1/import", "daily-returns.csv", content)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, true, result["success"])
	batchID := int(result["batch_id"].(float64))
	require.NotZero(t, batchID)

	// Small uploads process inline, so the batch is already terminal.
	statusW, statusBody := getJSON(t, "/api/v1/import/"+strconv.Itoa(batchID)+"/status")
	require.Equal(t, http.StatusOK, statusW.Code)
	batch := statusBody["batch"].(map[string]interface{})
	assert.Equal(t, models.ImportStatusCompleted, batch["status"])
	assert.EqualValues(t, 3, batch["total_records"])
	assert.EqualValues(t, 2, batch["successful_records"])
	assert.EqualValues(t, 1, batch["failed_records"])
	assert.EqualValues(t, 100, batch["progress_percent"])

	errorsW, errorsBody := getJSON(t, "/api/v1/import/"+strconv.Itoa(batchID)+"/errors?page=1&limit=10")
	require.Equal(t, http.StatusOK, errorsW.Code)
	errorList := errorsBody["errors"].([]interface{})
	require.Len(t, errorList, 1)
	firstErr := errorList[0].(map[string]interface{})
	assert.Equal(t, "court", firstErr["column_name"])

	historyW, historyBody := getJSON(t, "/api/v1/import/history?limit=10")
	require.Equal(t, http.StatusOK, historyW.Code)
	history := historyBody["history"].([]interface{})
	require.NotEmpty(t, history)
	found := false
	for _, entry := range history {
		if int(entry.(map[string]interface{})["batch_id"].(float64)) == batchID {
			found = true
		}
	}
	assert.True(t, found, "uploaded batch appears in history")
}

func TestUploadImportDuplicateConflict(t *testing.T) {
	content := testReturnsHeader + "\n" +
		`Kitale MC,2,Jul,2024,MCDUP,D101,Civil Suit,,Hearing,Heard,no,0,` + "\n"

	first := uploadReturns(t, "/api/v1/import", "dup.csv", content)
	require.Equal(t, http.StatusAccepted, first.Code)

	second := uploadReturns(t, "/api/v1/import", "dup-again.csv", content)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "already holds")
}

func TestUploadImportRejectsNonCSV(t *testing.T) {
	w := uploadReturns(t, "/api/v1/import", "notes.txt", "not a returns file")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImportRequiresFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateImportEndpoint(t *testing.T) {
	content := testReturnsHeader + "\n" +
		`Garissa KC,9,Aug,2024,KCVAL,V101,Succession,,Mention,Heard,no,0,` + "\n" +
		`Garissa KC,41,Aug,2024,KCVAL,V102,Succession,,Mention,Heard,no,0,` + "\n"

	var batchesBefore int64
	config.DB.Model(&models.DailyImportBatch{}).Count(&batchesBefore)

	w := uploadReturns(t, "/api/v1/import/validate", "check.csv", content)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	report := body["report"].(map[string]interface{})
	assert.EqualValues(t, 2, report["total_rows"])
	assert.EqualValues(t, 1, report["valid_rows"])
	assert.EqualValues(t, 1, report["invalid_rows"])

	var batchesAfter int64
	config.DB.Model(&models.DailyImportBatch{}).Count(&batchesAfter)
	assert.Equal(t, batchesBefore, batchesAfter, "validation must not create a batch")
}

func TestImportStatusNotFoundAndBadID(t *testing.T) {
	w, body := getJSON(t, "/api/v1/import/999999/status")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["status"])

	badW, _ := getJSON(t, "/api/v1/import/abc/status")
	assert.Equal(t, http.StatusBadRequest, badW.Code)
}

func TestCancelImport(t *testing.T) {
	batch := models.DailyImportBatch{
		Filename:     "cancel-target.csv",
		FileChecksum: "controller-cancel-checksum",
		Status:       models.ImportStatusProcessing,
		CreatedBy:    1,
	}
	require.NoError(t, config.DB.Create(&batch).Error)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/"+strconv.Itoa(int(batch.BatchID))+"/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.DailyImportBatch
	require.NoError(t, config.DB.Where("batch_id = ?", batch.BatchID).First(&reloaded).Error)
	assert.Equal(t, models.ImportStatusFailed, reloaded.Status)

	// Cancelling again conflicts, cancelling an unknown batch is a 404.
	again := httptest.NewRecorder()
	router.ServeHTTP(again, httptest.NewRequest(http.MethodPost, "/api/v1/import/"+strconv.Itoa(int(batch.BatchID))+"/cancel", nil))
	assert.Equal(t, http.StatusConflict, again.Code)

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodPost, "/api/v1/import/424242/cancel", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestImportHistoryRejectsUnknownStatus(t *testing.T) {
	w, _ := getJSON(t, "/api/v1/import/history?status=BOGUS")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

