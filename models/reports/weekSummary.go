package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/models"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// WeekSummaryRow is one (date, source) slice of a week: how many records came
// in, the metric sums over the live ones, and how many are approved or voided.
// Feeds the dashboard header and the import progress view.
type WeekSummaryRow struct {
	Date          time.Time           `json:"date"`
	Source        models.RecordSource `json:"source"`
	RecordCount   int                 `json:"record_count"`
	TotalLeads    int                 `json:"total_leads"`
	TotalPayins   int                 `json:"total_payins"`
	TotalSales    decimal.Decimal     `json:"total_sales"`
	ApprovedCount int                 `json:"approved_count"`
	VoidedCount   int                 `json:"voided_count"`
}

func GetWeekSummaryReport(ctx context.Context, weekKey string, source *string) ([]*WeekSummaryRow, error) {

	started := time.Now()

	fromDate, toDate, err := utils.WeekRange(weekKey)
	if err != nil {
		return nil, err
	}
	if source != nil && len(*source) > 0 {
		if _, err := models.ParseRecordSource(*source); err != nil {
			return nil, err
		}
	}

	cacheKey := fmt.Sprintf("report:week-summary:%s:%s", weekKey, utils.DereferencePtr(source))
	if reportCacheEnabled() {
		var cached []*WeekSummaryRow
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	var results []*WeekSummaryRow
	sqlTemplate := `
SELECT
    date,
    source,
    SUM(CASE WHEN voided = false THEN 1 ELSE 0 END) AS record_count,
    SUM(CASE WHEN voided = false THEN leads ELSE 0 END) AS total_leads,
    SUM(CASE WHEN voided = false THEN payins ELSE 0 END) AS total_payins,
    SUM(CASE WHEN voided = false THEN sales ELSE 0 END) AS total_sales,
    SUM(CASE WHEN voided = false AND approved = true THEN 1 ELSE 0 END) AS approved_count,
    SUM(CASE WHEN voided = true THEN 1 ELSE 0 END) AS voided_count
FROM
    daily_records
WHERE
    date BETWEEN @fromDate AND @toDate
    {{- if .source }} AND source = @source {{- end}}
GROUP BY
    date,
    source
ORDER BY
    date,
    source;
`
	sql, err := utils.ExecTemplate(sqlTemplate, map[string]interface{}{
		"source": utils.DereferencePtr(source),
	})
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"fromDate": fromDate,
		"toDate":   toDate,
		"source":   source,
	}).Scan(&results).Error; err != nil {
		return nil, err
	}

	if reportCacheEnabled() {
		if err := cacheSet(cacheKey, results, reportCacheTTL()); err != nil {
			logger := config.GetLogger()
			config.LogError(logger, "weekSummary.go", "GetWeekSummaryReport", "cacheSet", cacheKey, err)
		}
	}

	logSlowReport(ctx, "week-summary", started, map[string]any{"week": weekKey, "rows": len(results)})
	return results, nil
}
