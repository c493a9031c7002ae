package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/models"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

func main() {
	filePath := flag.String("file", "", "Required: path to the .xlsx workbook")
	source := flag.String("source", "", "Required: record source (company or depot)")
	reason := flag.String("reason", "", "Required: audit reason for the import")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		os.Exit(1)
	}
	if strings.TrimSpace(*source) == "" {
		fmt.Fprintln(os.Stderr, "--source is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "ImportDaily")
	ctx = utils.SetUserRoleInContext(ctx, string(models.UserRoleAdmin))

	workbook, err := excelize.OpenFile(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open workbook: %v\n", err)
		os.Exit(1)
	}
	defer workbook.Close()

	result, err := models.ImportDailyRecords(ctx, workbook, *source, *reason)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("imported: created=%d updated=%d skipped=%d\n", result.Created, result.Updated, len(result.Errors))
	for _, rowErr := range result.Errors {
		fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Message)
	}
	if len(result.Errors) > 0 {
		os.Exit(2)
	}
}
