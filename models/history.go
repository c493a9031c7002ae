package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// History is the append-only audit trail. Every mutation of a DailyRecord,
// ScoringFormula or WeekStatus writes exactly one row inside the same
// transaction as the mutation itself.
type History struct {
	ID         int       `gorm:"primary_key" json:"id"`
	ActionType string    `gorm:"size:20;not null" json:"action_type" binding:"required"`
	EntityType string    `gorm:"size:100;index:idx_history_entity,priority:1" json:"entity_type"`
	EntityId   string    `gorm:"size:100;index:idx_history_entity,priority:2" json:"entity_id"`
	Before     string    `gorm:"type:text" json:"before"`
	After      string    `gorm:"type:text" json:"after"`
	Reason     string    `gorm:"type:text;not null" json:"reason"`
	UserId     int       `gorm:"index;not null" json:"user_id"`
	UserName   string    `gorm:"size:100" json:"user_name"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func createHistory(tx *gorm.DB,
	actionType string,
	entityType string,
	entityId string,
	before interface{},
	after interface{},
	reason string) (err error) {

	var history History

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	// get userId, userName from context
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}

	history.ActionType = actionType
	history.EntityType = entityType
	history.EntityId = entityId
	history.Before = string(b)
	history.After = string(a)
	history.Reason = reason
	history.UserId = userId
	history.UserName = userName

	err = tx.Create(&history).Error
	return err
}

func GetHistory(ctx context.Context, id int) (*History, error) {

	db := config.GetDB()
	var result History

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetHistories(ctx context.Context, entityType *string, entityId *string, userId *int, actionType *string) ([]*History, error) {

	db := config.GetDB()
	var results []*History

	dbCtx := db.WithContext(ctx)
	if entityType != nil && len(*entityType) > 0 {
		dbCtx = dbCtx.Where("entity_type = ?", entityType)
	}
	if entityId != nil && len(*entityId) > 0 {
		dbCtx = dbCtx.Where("entity_id = ?", entityId)
	}
	if userId != nil && *userId > 0 {
		dbCtx = dbCtx.Where("user_id = ?", userId)
	}
	if actionType != nil && len(*actionType) > 0 {
		dbCtx = dbCtx.Where("action_type = ?", actionType)
	}
	err := dbCtx.Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
