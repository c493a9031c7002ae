package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// DailyRecord is one observation of a participant's daily metrics from one
// source. At most one non-voided record may exist per
// (date, participant, source); the record key (date + participant) is shared
// by the company and depot observations of the same day.
type DailyRecord struct {
	ID            int             `gorm:"primary_key" json:"id"`
	RecordKey     string          `gorm:"index;size:40;not null" json:"record_key"`
	ParticipantId int             `gorm:"index;not null" json:"participant_id"`
	Date          time.Time       `gorm:"index;not null" json:"date"`
	Leads         int             `gorm:"not null;default:0" json:"leads"`
	Payins        int             `gorm:"not null;default:0" json:"payins"`
	Sales         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sales"`
	LeadsDepotId  int             `gorm:"index" json:"leads_depot_id"`
	SalesDepotId  int             `gorm:"index" json:"sales_depot_id"`
	Source        RecordSource    `gorm:"size:10;not null;index" json:"source"`
	Voided        *bool           `gorm:"not null;default:false" json:"voided"`
	Approved      *bool           `gorm:"not null;default:false" json:"approved"`

	// Version guards against two edits racing on the same row: the audited
	// update is conditional on the version it read.
	Version int `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func recordKey(date time.Time, participantId int) string {
	return date.Format("2006-01-02") + "#" + fmt.Sprint(participantId)
}

type NewDailyRecord struct {
	ParticipantId int             `json:"participant_id" binding:"required"`
	Date          time.Time       `json:"date" binding:"required"`
	Leads         int             `json:"leads"`
	Payins        int             `json:"payins"`
	Sales         decimal.Decimal `json:"sales"`
	LeadsDepotId  int             `json:"leads_depot_id"`
	SalesDepotId  int             `json:"sales_depot_id"`
	Source        string          `json:"source" binding:"required"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewDailyRecord) validate(ctx context.Context, id int) error {
	if _, err := ParseRecordSource(input.Source); err != nil {
		return err
	}
	if input.Leads < 0 || input.Payins < 0 || input.Sales.IsNegative() {
		return errors.New("metric values cannot be negative")
	}
	if err := utils.ValidateResourceId[Participant](ctx, input.ParticipantId); err != nil {
		return errors.New("participant not found")
	}
	if input.LeadsDepotId > 0 {
		if err := utils.ValidateResourceId[Depot](ctx, input.LeadsDepotId); err != nil {
			return errors.New("leads depot not found")
		}
	}
	if input.SalesDepotId > 0 {
		if err := utils.ValidateResourceId[Depot](ctx, input.SalesDepotId); err != nil {
			return errors.New("sales depot not found")
		}
	}
	if err := ValidateWeekOpen(ctx, input.Date); err != nil {
		return err
	}

	// at most one non-voided record per (date, participant, source)
	date := utils.DateOnly(input.Date)
	cond := "record_key = ? AND source = ? AND voided = false"
	args := []interface{}{recordKey(date, input.ParticipantId), input.Source}
	if id > 0 {
		cond += " AND NOT id = ?"
		args = append(args, id)
	}
	count, err := utils.ResourceCountWhere[DailyRecord](ctx, cond, args...)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("record already exists for this date, participant and source")
	}
	return nil
}

func CreateDailyRecord(ctx context.Context, input *NewDailyRecord) (*DailyRecord, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	date := utils.DateOnly(input.Date)
	record := DailyRecord{
		RecordKey:     recordKey(date, input.ParticipantId),
		ParticipantId: input.ParticipantId,
		Date:          date,
		Leads:         input.Leads,
		Payins:        input.Payins,
		Sales:         input.Sales,
		LeadsDepotId:  input.LeadsDepotId,
		SalesDepotId:  input.SalesDepotId,
		Source:        RecordSource(input.Source),
		Voided:        utils.NewFalse(),
		Approved:      utils.NewFalse(),
		Version:       1,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&record).Error
	if err != nil {
		return nil, err
	}

	clearReportCache()
	return &record, nil
}

type EditDailyRecord struct {
	Leads        int             `json:"leads"`
	Payins       int             `json:"payins"`
	Sales        decimal.Decimal `json:"sales"`
	LeadsDepotId int             `json:"leads_depot_id"`
	SalesDepotId int             `json:"sales_depot_id"`
}

// UpdateDailyRecord applies an audited edit to metric values and depot
// assignments. Date, participant and source are not editable. The update is
// conditional on the version the caller read; a racing writer surfaces
// ErrorEditConflict instead of silently losing the edit.
func UpdateDailyRecord(ctx context.Context, id int, input *EditDailyRecord, reason string) (*DailyRecord, error) {

	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}
	if input.Leads < 0 || input.Payins < 0 || input.Sales.IsNegative() {
		return nil, errors.New("metric values cannot be negative")
	}
	if input.LeadsDepotId > 0 {
		if err := utils.ValidateResourceId[Depot](ctx, input.LeadsDepotId); err != nil {
			return nil, errors.New("leads depot not found")
		}
	}
	if input.SalesDepotId > 0 {
		if err := utils.ValidateResourceId[Depot](ctx, input.SalesDepotId); err != nil {
			return nil, errors.New("sales depot not found")
		}
	}

	record, err := utils.FetchModel[DailyRecord](ctx, id)
	if err != nil {
		return nil, err
	}
	if *record.Voided {
		return nil, errors.New("cannot edit a voided record")
	}
	if err := ValidateWeekOpen(ctx, record.Date); err != nil {
		return nil, err
	}
	before := *record

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	result := tx.Model(&DailyRecord{}).
		Where("id = ? AND version = ?", id, record.Version).
		Updates(map[string]interface{}{
			"Leads":        input.Leads,
			"Payins":       input.Payins,
			"Sales":        input.Sales,
			"LeadsDepotId": input.LeadsDepotId,
			"SalesDepotId": input.SalesDepotId,
			"Version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.ErrorEditConflict
	}

	record.Leads = input.Leads
	record.Payins = input.Payins
	record.Sales = input.Sales
	record.LeadsDepotId = input.LeadsDepotId
	record.SalesDepotId = input.SalesDepotId
	record.Version++

	if err := createHistory(tx, "UPDATE", "daily_records", fmt.Sprint(id), before, record, reason); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	clearReportCache()
	return record, nil
}

// VoidDailyRecord soft-deletes a record. Reversible via UnvoidDailyRecord.
func VoidDailyRecord(ctx context.Context, id int, reason string) (*DailyRecord, error) {
	return setVoided(ctx, id, true, reason)
}

func UnvoidDailyRecord(ctx context.Context, id int, reason string) (*DailyRecord, error) {
	return setVoided(ctx, id, false, reason)
}

func setVoided(ctx context.Context, id int, voided bool, reason string) (*DailyRecord, error) {

	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}

	record, err := utils.FetchModel[DailyRecord](ctx, id)
	if err != nil {
		return nil, err
	}
	if *record.Voided == voided {
		return record, nil
	}
	if err := ValidateWeekOpen(ctx, record.Date); err != nil {
		return nil, err
	}

	actionType := "VOID"
	if !voided {
		actionType = "UNVOID"
		// restoring must not break the one-record-per-source invariant
		count, err := utils.ResourceCountWhere[DailyRecord](ctx,
			"record_key = ? AND source = ? AND voided = false AND NOT id = ?",
			record.RecordKey, record.Source, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, errors.New("another record already exists for this date, participant and source")
		}
	}
	before := *record

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&record).UpdateColumn("Voided", voided).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx, actionType, "daily_records", fmt.Sprint(id), before, record, reason); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	clearReportCache()
	return record, nil
}

// ApproveDailyRecord sets the company record's approved flag. Approval exists
// only on the company side and makes the day's compare row publishable even
// when the depot source disagrees or is missing.
func ApproveDailyRecord(ctx context.Context, id int, approved bool, reason string) (*DailyRecord, error) {

	if err := requireSuperAdmin(ctx); err != nil {
		return nil, err
	}
	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}

	record, err := utils.FetchModel[DailyRecord](ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Source != RecordSourceCompany {
		return nil, errors.New("only company records can be approved")
	}
	if *record.Voided {
		return nil, errors.New("cannot approve a voided record")
	}
	if *record.Approved == approved {
		return record, nil
	}
	if err := ValidateWeekOpen(ctx, record.Date); err != nil {
		return nil, err
	}

	actionType := "APPROVE"
	if !approved {
		actionType = "UNAPPROVE"
	}
	before := *record

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&record).UpdateColumn("Approved", approved).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx, actionType, "daily_records", fmt.Sprint(id), before, record, reason); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	clearReportCache()
	return record, nil
}

func GetDailyRecord(ctx context.Context, id int) (*DailyRecord, error) {
	return utils.FetchModel[DailyRecord](ctx, id)
}

// GetDailyRecords returns non-voided records in a date range, optionally
// filtered by participant and source. Ordered by date then participant then
// id so downstream ranking has a stable insertion order.
func GetDailyRecords(ctx context.Context, fromDate time.Time, toDate time.Time, participantId *int, source *string) ([]*DailyRecord, error) {

	db := config.GetDB()
	var results []*DailyRecord

	dbCtx := db.WithContext(ctx).
		Where("date BETWEEN ? AND ?", utils.DateOnly(fromDate), utils.DateOnly(toDate)).
		Where("voided = false")
	if participantId != nil && *participantId > 0 {
		dbCtx = dbCtx.Where("participant_id = ?", participantId)
	}
	if source != nil && len(*source) > 0 {
		dbCtx = dbCtx.Where("source = ?", source)
	}
	// db query
	err := dbCtx.Order("date, participant_id, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// cached reports are stale after any record mutation
func clearReportCache() {
	if err := config.RemoveRedisKeysByPattern("report:*"); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "dailyRecord.go", "clearReportCache", "RemoveRedisKeysByPattern", nil, err)
	}
}
