package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

var importValidate = validator.New()

// importRow is one spreadsheet line before resolution. Leader and depot
// columns are free text and get matched to ids in a pre-validation pass.
type importRow struct {
	Date       string `validate:"required"`
	Leader     string `validate:"required"`
	Leads      int    `validate:"gte=0"`
	Payins     int    `validate:"gte=0"`
	Sales      decimal.Decimal
	LeadsDepot string
	SalesDepot string
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors"`
}

// ImportDailyRecords reads daily records from the first sheet of an uploaded
// workbook, one row per (date, leader). Expected columns:
// date | leader | leads | payins | sales | leads depot | sales depot.
// Rows that fail to resolve or validate are reported per-row; the rest are
// upserted. Imports for a source are serialized with a redis lock.
func ImportDailyRecords(ctx context.Context, f *excelize.File, source string, reason string) (*ImportResult, error) {

	if _, err := ParseRecordSource(source); err != nil {
		return nil, err
	}
	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}

	lock, err := utils.ImportLock(ctx, source, "importer.go", "ImportDailyRecords")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, errors.New("workbook has no data rows")
	}

	depots, err := GetDepots(ctx, nil)
	if err != nil {
		return nil, err
	}
	depotByName := make(map[string]int, len(depots))
	for _, d := range depots {
		depotByName[strings.ToLower(strings.TrimSpace(d.Name))] = d.ID
	}

	result := &ImportResult{}
	for i, cells := range rows {
		if i == 0 {
			// header row
			continue
		}
		rowNo := i + 1

		row, err := parseImportRow(cells)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNo, Message: err.Error()})
			continue
		}
		if err := importValidate.Struct(row); err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNo, Message: rowValidationMessage(err)})
			continue
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(row.Date))
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNo, Message: "invalid date: " + row.Date})
			continue
		}

		participantId, err := ResolveParticipantByName(ctx, row.Leader)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNo, Message: err.Error()})
			continue
		}

		leadsDepotId, err := resolveDepotName(depotByName, row.LeadsDepot)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNo, Message: err.Error()})
			continue
		}
		salesDepotId, err := resolveDepotName(depotByName, row.SalesDepot)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNo, Message: err.Error()})
			continue
		}

		created, err := upsertImportedRecord(ctx, &NewDailyRecord{
			ParticipantId: participantId,
			Date:          date,
			Leads:         row.Leads,
			Payins:        row.Payins,
			Sales:         row.Sales,
			LeadsDepotId:  leadsDepotId,
			SalesDepotId:  salesDepotId,
			Source:        source,
		}, reason)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNo, Message: err.Error()})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result, nil
}

// collapse validator output into "Field tag" pairs readable in the row report
func rowValidationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	fields := utils.ProcessValidationErrors(err)
	pairs := make([]string, 0, len(fields))
	for field, tag := range fields {
		pairs = append(pairs, field+" "+tag)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ", ")
}

func parseImportRow(cells []string) (*importRow, error) {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	row := &importRow{
		Date:       cell(0),
		Leader:     cell(1),
		LeadsDepot: cell(5),
		SalesDepot: cell(6),
	}

	var err error
	if v := cell(2); v != "" {
		if row.Leads, err = strconv.Atoi(v); err != nil {
			return nil, errors.New("invalid leads value: " + v)
		}
	}
	if v := cell(3); v != "" {
		if row.Payins, err = strconv.Atoi(v); err != nil {
			return nil, errors.New("invalid payins value: " + v)
		}
	}
	if v := cell(4); v != "" {
		if row.Sales, err = decimal.NewFromString(v); err != nil {
			return nil, errors.New("invalid sales value: " + v)
		}
	}
	if row.Sales.IsNegative() {
		return nil, errors.New("sales cannot be negative")
	}
	return row, nil
}

// empty depot cell means unassigned (id 0)
func resolveDepotName(depotByName map[string]int, name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return 0, nil
	}
	id, ok := depotByName[name]
	if !ok {
		return 0, errors.New("depot not found: " + name)
	}
	return id, nil
}

// returns created=true when a new record was inserted, false when an
// existing non-voided record for the same (date, participant, source) was
// updated through the audited edit path
func upsertImportedRecord(ctx context.Context, input *NewDailyRecord, reason string) (bool, error) {

	db := config.GetDB()
	date := utils.DateOnly(input.Date)

	var existing DailyRecord
	err := db.WithContext(ctx).
		Where("record_key = ? AND source = ? AND voided = false", recordKey(date, input.ParticipantId), input.Source).
		First(&existing).Error
	if err == nil {
		_, err = UpdateDailyRecord(ctx, existing.ID, &EditDailyRecord{
			Leads:        input.Leads,
			Payins:       input.Payins,
			Sales:        input.Sales,
			LeadsDepotId: input.LeadsDepotId,
			SalesDepotId: input.SalesDepotId,
		}, reason)
		if err != nil {
			return false, fmt.Errorf("update record %d: %w", existing.ID, err)
		}
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if _, err := CreateDailyRecord(ctx, input); err != nil {
		return false, err
	}
	return true, nil
}
