// Command import-csv runs one returns file through the import pipeline from
// the command line, bypassing the HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"case-management-api/config"
	"case-management-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		filePath     string
		validateOnly bool
		userID       uint64
	)

	flag.StringVar(&filePath, "file", "", "path to the returns CSV file (required)")
	flag.BoolVar(&validateOnly, "validate-only", false, "validate the file without writing to the database")
	flag.Uint64Var(&userID, "user-id", 0, "user id to record as the batch creator (0 = system user)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		log.Fatalf("cannot stat %s: %v", filePath, err)
	}

	config.InitDB()

	// CLI imports always run inline; the queue is not consulted.
	importService := services.NewImportService(nil, nil)

	if validateOnly {
		report, err := importService.ValidateFile(filePath)
		if err != nil {
			log.Fatalf("validation failed: %v", err)
		}
		fmt.Printf("rows: %d, valid: %d, invalid: %d\n", report.TotalRows, report.ValidRows, report.InvalidRows)
		for _, rowErr := range report.RowErrors {
			for _, fe := range rowErr.Errors {
				fmt.Printf("  row %d, %s: %s\n", rowErr.RowNumber, fe.Field, fe.Message)
			}
		}
		if report.InvalidRows > 0 {
			os.Exit(1)
		}
		return
	}

	result, err := importService.InitiateImport(context.Background(), filePath, filepath.Base(filePath), info.Size(), uint(userID))
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	if !result.Success {
		log.Fatalf("import rejected: %s", result.Error)
	}

	snapshot, err := importService.GetImportStatus(context.Background(), result.BatchID)
	if err != nil {
		log.Fatalf("import finished but status lookup failed: %v", err)
	}
	fmt.Printf("batch %d %s: total=%d ok=%d failed=%d\n",
		snapshot.BatchID, snapshot.Status, snapshot.TotalRecords,
		snapshot.SuccessfulRecords, snapshot.FailedRecords)
}
