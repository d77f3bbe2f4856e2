package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"case-management-api/config"
	"case-management-api/models"
	"case-management-api/utils"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	var err error
	testDB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
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

	os.Exit(m.Run())
}

const returnsHeader = "court,date_dd,date_mon,date_yyyy,caseid_type,caseid_no,case_type,judge_1,comingfor,outcome,legalrep,custody,other_details"

func writeReturnsFile(t *testing.T, rows ...string) (string, int64) {
	t.Helper()
	content := returnsHeader + "\n" + strings.Join(rows, "\n") + "\n"
	path := filepath.Join(t.TempDir(), "returns.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	return path, info.Size()
}

func runImport(t *testing.T, path string, size int64) *ImportResult {
	t.Helper()
	svc := NewImportService(testDB, nil)
	result, err := svc.InitiateImport(context.Background(), path, filepath.Base(path), size, 0)
	require.NoError(t, err)
	return result
}

func TestImportRoundTrip(t *testing.T) {
	// 5 rows, 2 deliberately invalid: one missing court, one with a bad month.
	path, size := writeReturnsFile(t,
		`Milimani HC,14,Mar,2023,HCRT,R101,Civil Suit,"Kendagor, Caroline J",Hearing,Adjourned,yes,0,`,
		`Milimani HC,15,Mar,2023,HCRT,R102,Civil Suit,"Kendagor, Caroline J",Mention,Heard,no,0,`,
		`,15,Mar,2023,HCRT,R103,Civil Suit,,Mention,Heard,no,0,`,
		`Kisumu SCC,16,Mars,2023,SCCRT,R104,Small Claim,,Hearing,Heard,self,0,`,
		`Kisumu SCC,16,Mar,2023,SCCRT,R105,Small Claim,"Omondi, P",Hearing,Heard,none,1,remanded`,
	)

	result := runImport(t, path, size)
	require.True(t, result.Success, "unexpected rejection: %s", result.Error)
	require.NotZero(t, result.BatchID)

	batch, err := NewImportBatchService(testDB).GetByID(result.BatchID)
	require.NoError(t, err)

	assert.Equal(t, models.ImportStatusCompleted, batch.Status)
	assert.Equal(t, 5, batch.TotalRecords)
	assert.Equal(t, 3, batch.SuccessfulRecords)
	assert.Equal(t, 2, batch.FailedRecords)
	assert.NotNil(t, batch.CompletedAt)

	var activityCount int64
	testDB.Model(&models.CaseActivity{}).Where("import_batch_id = ?", batch.BatchID).Count(&activityCount)
	assert.EqualValues(t, 3, activityCount)

	// Each invalid row left an error-log entry naming the offending column.
	details, total, err := NewImportBatchService(testDB).ListErrors(batch.BatchID, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	columns := map[string]bool{}
	for _, d := range details {
		require.NotNil(t, d.ColumnName)
		columns[*d.ColumnName] = true
		assert.Equal(t, models.ImportErrorTypeValidation, d.ErrorType)
	}
	assert.True(t, columns["court"])
	assert.True(t, columns["date_mon"])

	// The custody count on the last row became an in-custody activity.
	var custody models.CaseActivity
	require.NoError(t, testDB.Where("import_batch_id = ? AND custody_count > 0", batch.BatchID).First(&custody).Error)
	assert.Equal(t, models.CustodyStatusInCustody, custody.CustodyStatus)
}

func TestImportDuplicateChecksumRejected(t *testing.T) {
	rows := []string{
		`Nakuru MC,10,Jan,2024,MCCR,D201,Criminal,"Wekesa, T",Hearing,Heard,no,0,`,
	}
	path1, size1 := writeReturnsFile(t, rows...)
	result := runImport(t, path1, size1)
	require.True(t, result.Success)

	checksum, err := utils.FileChecksum(path1)
	require.NoError(t, err)

	// Same content from a different upload path is rejected, naming the
	// prior batch, and no new live batch row appears.
	path2, size2 := writeReturnsFile(t, rows...)
	dup := runImport(t, path2, size2)
	assert.False(t, dup.Success)
	assert.Contains(t, dup.Error, ErrDuplicateImport.Error())
	assert.Contains(t, dup.Error, fmt.Sprintf("batch %d", result.BatchID))

	var liveBatches int64
	testDB.Model(&models.DailyImportBatch{}).
		Where("file_checksum = ? AND status <> ?", checksum, models.ImportStatusFailed).
		Count(&liveBatches)
	assert.EqualValues(t, 1, liveBatches)
}

func TestImportSameCaseTwoJudges(t *testing.T) {
	path, size := writeReturnsFile(t,
		`Eldoret ELC,5,Feb,2024,ELCSUIT,J301,Land Dispute,"Kendagor, Caroline J",Hearing,Adjourned,yes,0,`,
		`Eldoret ELC,12,Feb,2024,ELCSUIT,J301,Land Dispute,"Omondi, P",Hearing,Heard,yes,0,`,
	)

	result := runImport(t, path, size)
	require.True(t, result.Success)

	var cases []models.Case
	require.NoError(t, testDB.Where("case_number = ?", "ELCSUIT/J301").Find(&cases).Error)
	require.Len(t, cases, 1, "second row must upsert, not duplicate")

	var activities []models.CaseActivity
	require.NoError(t, testDB.Where("import_batch_id = ?", result.BatchID).Find(&activities).Error)
	require.Len(t, activities, 2)
	for _, a := range activities {
		assert.Equal(t, cases[0].CaseID, a.CaseID)
	}

	var assignments []models.CaseJudgeAssignment
	require.NoError(t, testDB.Where("case_id = ?", cases[0].CaseID).Order("assignment_id ASC").Find(&assignments).Error)
	require.Len(t, assignments, 2)
	assert.True(t, assignments[0].IsPrimary)
	assert.False(t, assignments[1].IsPrimary)

	// Court master data derived its type from the case-id token.
	var court models.Court
	require.NoError(t, testDB.Where("court_name = ?", "Eldoret ELC").First(&court).Error)
	assert.Equal(t, models.CourtTypeELC, court.CourtType)
}

func TestRetryReplaysBatchWithoutDuplicateActivities(t *testing.T) {
	// A worker died after committing one row; the re-queued job replays the
	// whole file. The replay must not leave the first attempt's activities
	// behind, so the activity count stays equal to successful_records.
	path, _ := writeReturnsFile(t,
		`Kakamega HC,11,Jul,2024,HCRTY,T801,Civil Suit,"Omondi, P",Hearing,Heard,no,0,`,
		`Kakamega HC,12,Jul,2024,HCRTY,T802,Civil Suit,"Omondi, P",Mention,Heard,no,0,`,
	)

	batches := NewImportBatchService(testDB)
	batch, err := batches.Start("retry.csv", 10, "retry-checksum-1", 1)
	require.NoError(t, err)
	require.NoError(t, batches.MarkProcessing(batch.BatchID, 2))

	row, fieldErrs := ValidateRow(RawRow{LineNumber: 2, Fields: map[string]string{
		"court": "Kakamega HC", "date_dd": "11", "date_mon": "Jul", "date_yyyy": "2024",
		"caseid_type": "HCRTY", "caseid_no": "T801", "judge_1": "Omondi, P",
	}})
	require.Empty(t, fieldErrs)
	require.NoError(t, NewCasePersistenceService(testDB).PersistRow(row, batch.BatchID))
	require.NoError(t, batches.AddCounts(batch.BatchID, 1, 0))

	svc := NewImportService(testDB, nil)
	require.NoError(t, svc.ProcessBatch(context.Background(), batch.BatchID, path))

	reloaded, err := batches.GetByID(batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, reloaded.Status)
	assert.Equal(t, 2, reloaded.SuccessfulRecords)
	assert.Equal(t, 0, reloaded.FailedRecords)

	var activityCount int64
	testDB.Model(&models.CaseActivity{}).Where("import_batch_id = ?", batch.BatchID).Count(&activityCount)
	assert.EqualValues(t, reloaded.SuccessfulRecords, activityCount)
}

func TestImportRowAssignsEveryListedJudge(t *testing.T) {
	header := "court,date_dd,date_mon,date_yyyy,caseid_type,caseid_no,judge_1,judge_2"
	content := header + "\n" +
		`Meru HC,20,Sep,2024,HCMJ,M901,"Kendagor, Caroline J","Omondi, P"` + "\n"
	path := filepath.Join(t.TempDir(), "returns.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	result := runImport(t, path, info.Size())
	require.True(t, result.Success, "unexpected rejection: %s", result.Error)

	var kase models.Case
	require.NoError(t, testDB.Where("case_number = ?", "HCMJ/M901").First(&kase).Error)

	var assignments []models.CaseJudgeAssignment
	require.NoError(t, testDB.Where("case_id = ?", kase.CaseID).Order("assignment_id ASC").Find(&assignments).Error)
	require.Len(t, assignments, 2, "both listed judges get assignments")
	assert.True(t, assignments[0].IsPrimary)
	assert.False(t, assignments[1].IsPrimary)

	// The activity names the first listed judge as presiding.
	var activity models.CaseActivity
	require.NoError(t, testDB.Where("import_batch_id = ?", result.BatchID).First(&activity).Error)
	require.NotNil(t, activity.JudgeID)
	var presiding models.Judge
	require.NoError(t, testDB.Where("judge_id = ?", *activity.JudgeID).First(&presiding).Error)
	assert.Equal(t, "Kendagor, Caroline J", presiding.FullName)
}

func TestImportCompletedWhenAllRowsFail(t *testing.T) {
	path, size := writeReturnsFile(t,
		`,1,Jan,2024,MCCR,F401,,,,,,,`,
		`,2,Jan,2024,MCCR,F402,,,,,,,`,
	)

	result := runImport(t, path, size)
	require.True(t, result.Success, "row failures alone do not fail the batch")

	svc := NewImportService(testDB, nil)
	snapshot, err := svc.GetImportStatus(context.Background(), result.BatchID)
	require.NoError(t, err)

	assert.Equal(t, models.ImportStatusCompleted, snapshot.Status)
	assert.True(t, snapshot.AllRowsFailed)
	assert.Equal(t, 2, snapshot.FailedRecords)
	assert.EqualValues(t, 100, snapshot.ProgressPercent)
}

func TestImportStatusNotFound(t *testing.T) {
	svc := NewImportService(testDB, nil)
	_, err := svc.GetImportStatus(context.Background(), 999999)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestImportHistoryOrderingAndDuration(t *testing.T) {
	pathA, sizeA := writeReturnsFile(t,
		`Mombasa KC,3,Apr,2024,KCSUIT,H501,Succession,,Mention,Heard,no,0,`,
	)
	first := runImport(t, pathA, sizeA)
	require.True(t, first.Success)

	pathB, sizeB := writeReturnsFile(t,
		`Mombasa KC,4,Apr,2024,KCSUIT,H502,Succession,,Mention,Heard,no,0,`,
	)
	second := runImport(t, pathB, sizeB)
	require.True(t, second.Success)

	svc := NewImportService(testDB, nil)
	history, err := svc.GetImportHistory(50, "")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(history), 2)

	posFirst, posSecond := -1, -1
	for i, entry := range history {
		if entry.BatchID == first.BatchID {
			posFirst = i
			require.NotNil(t, entry.DurationSeconds)
		}
		if entry.BatchID == second.BatchID {
			posSecond = i
		}
	}
	require.NotEqual(t, -1, posFirst)
	require.NotEqual(t, -1, posSecond)
	assert.Less(t, posSecond, posFirst, "most recent batch comes first")

	filtered, err := svc.GetImportHistory(50, models.ImportStatusFailed)
	require.NoError(t, err)
	for _, entry := range filtered {
		assert.Equal(t, models.ImportStatusFailed, entry.Status)
	}
}

func TestCancelBatch(t *testing.T) {
	batches := NewImportBatchService(testDB)
	batch, err := batches.Start("cancel-me.csv", 10, "cancel-checksum-1", 1)
	require.NoError(t, err)
	require.NoError(t, batches.MarkProcessing(batch.BatchID, 100))

	require.NoError(t, batches.Cancel(batch.BatchID))

	reloaded, err := batches.GetByID(batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.ErrorMessage)
	assert.Contains(t, *reloaded.ErrorMessage, "cancelled")

	// A finished batch cannot be cancelled again.
	assert.ErrorIs(t, batches.Cancel(batch.BatchID), ErrBatchNotCancelable)
	assert.ErrorIs(t, batches.Cancel(999999), ErrBatchNotFound)
}

func TestProcessBatchUnreadableFileFailsBatch(t *testing.T) {
	batches := NewImportBatchService(testDB)
	batch, err := batches.Start("ghost.csv", 10, "ghost-checksum-1", 1)
	require.NoError(t, err)

	svc := NewImportService(testDB, nil)
	err = svc.ProcessBatch(context.Background(), batch.BatchID, filepath.Join(t.TempDir(), "ghost.csv"))
	require.Error(t, err)

	reloaded, getErr := batches.GetByID(batch.BatchID)
	require.NoError(t, getErr)
	assert.Equal(t, models.ImportStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.ErrorMessage)
}

func TestValidateFileDoesNotPersist(t *testing.T) {
	path, _ := writeReturnsFile(t,
		`Thika MC,7,May,2024,MCELC,V601,Civil Suit,,Hearing,Heard,no,0,`,
		`,7,May,2024,MCELC,V602,Civil Suit,,Hearing,Heard,no,0,`,
	)

	var batchesBefore int64
	testDB.Model(&models.DailyImportBatch{}).Count(&batchesBefore)

	svc := NewImportService(testDB, nil)
	report, err := svc.ValidateFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 1, report.ValidRows)
	assert.Equal(t, 1, report.InvalidRows)
	require.Len(t, report.RowErrors, 1)
	assert.Equal(t, 3, report.RowErrors[0].RowNumber)

	var batchesAfter int64
	testDB.Model(&models.DailyImportBatch{}).Count(&batchesAfter)
	assert.Equal(t, batchesBefore, batchesAfter)

	var caseCount int64
	testDB.Model(&models.Case{}).Where("case_number LIKE ?", "MCELC/%").Count(&caseCount)
	assert.Zero(t, caseCount)
}

func TestSystemUserCreatedOnce(t *testing.T) {
	pathA, sizeA := writeReturnsFile(t,
		`Nyeri HC,8,Jun,2024,HCAPP,S701,Appeal,,Mention,Heard,no,0,`,
	)
	require.True(t, runImport(t, pathA, sizeA).Success)

	pathB, sizeB := writeReturnsFile(t,
		`Nyeri HC,9,Jun,2024,HCAPP,S702,Appeal,,Mention,Heard,no,0,`,
	)
	require.True(t, runImport(t, pathB, sizeB).Success)

	var count int64
	testDB.Model(&models.User{}).Where("email = ?", models.SystemUserEmail).Count(&count)
	assert.EqualValues(t, 1, count)
}
