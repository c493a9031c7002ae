package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// WeekStatus gates mutation of daily records: once a week is finalized,
// records dated inside it can no longer be edited, voided or approved.
// A missing row means the week is open.
type WeekStatus struct {
	WeekKey   string    `gorm:"primaryKey;size:10" json:"week_key"`
	State     WeekState `gorm:"size:10;not null;default:open" json:"state"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	FinalizedBy    int        `json:"finalized_by"`
	FinalizedAt    *time.Time `json:"finalized_at"`
	FinalizeReason string     `gorm:"type:text" json:"finalize_reason"`
	ReopenedBy     int        `json:"reopened_by"`
	ReopenedAt     *time.Time `json:"reopened_at"`
	ReopenReason   string     `gorm:"type:text" json:"reopen_reason"`
}

// super-admin only actions call this first
func requireSuperAdmin(ctx context.Context) error {
	role, ok := utils.GetUserRoleFromContext(ctx)
	if !ok || UserRole(role) != UserRoleSuperAdmin {
		return errors.New("super admin role is required")
	}
	return nil
}

func GetWeekStatus(ctx context.Context, weekKey string) (*WeekStatus, error) {
	if _, _, err := utils.ParseWeekKey(weekKey); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var result WeekStatus
	err := db.WithContext(ctx).Where("week_key = ?", weekKey).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// weeks default to open until somebody finalizes them
		return &WeekStatus{WeekKey: weekKey, State: WeekStateOpen}, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func GetWeekStatuses(ctx context.Context) ([]*WeekStatus, error) {
	db := config.GetDB()
	var results []*WeekStatus
	if err := db.WithContext(ctx).Order("week_key DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ValidateWeekOpen rejects mutations to records whose date falls in a
// finalized week. Called by every daily record write path.
func ValidateWeekOpen(ctx context.Context, date time.Time) error {
	status, err := GetWeekStatus(ctx, utils.WeekKeyOf(date))
	if err != nil {
		return err
	}
	if status.State == WeekStateFinalized {
		return errors.New("week " + status.WeekKey + " has been finalized")
	}
	return nil
}

func FinalizeWeek(ctx context.Context, weekKey string, reason string) (*WeekStatus, error) {

	if err := requireSuperAdmin(ctx); err != nil {
		return nil, err
	}
	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}
	if _, _, err := utils.ParseWeekKey(weekKey); err != nil {
		return nil, err
	}

	status, err := GetWeekStatus(ctx, weekKey)
	if err != nil {
		return nil, err
	}
	if status.State == WeekStateFinalized {
		return nil, errors.New("week is already finalized")
	}
	before := *status

	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now().UTC()
	status.State = WeekStateFinalized
	status.FinalizedBy = userId
	status.FinalizedAt = &now
	status.FinalizeReason = reason

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Save(status).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx, "FINALIZE", "week_statuses", weekKey, before, status, reason); err != nil {
		tx.Rollback()
		return nil, err
	}
	return status, tx.Commit().Error
}

// ReopenWeek clears the reopen metadata of any previous reopen but keeps the
// finalize fields so the finalize history stays visible.
func ReopenWeek(ctx context.Context, weekKey string, reason string) (*WeekStatus, error) {

	if err := requireSuperAdmin(ctx); err != nil {
		return nil, err
	}
	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}

	status, err := GetWeekStatus(ctx, weekKey)
	if err != nil {
		return nil, err
	}
	if status.State != WeekStateFinalized {
		return nil, errors.New("week is not finalized")
	}
	before := *status

	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now().UTC()
	status.State = WeekStateOpen
	status.ReopenedBy = userId
	status.ReopenedAt = &now
	status.ReopenReason = reason

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Save(status).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx, "REOPEN", "week_statuses", weekKey, before, status, reason); err != nil {
		tx.Rollback()
		return nil, err
	}
	return status, tx.Commit().Error
}
