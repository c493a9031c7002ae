package utils

import (
	"context"
	"errors"
	"reflect"

	"bitbucket.org/mmdatafocus/battles_backend/config"
)

// check if id exists, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records matching condition
func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// fetch model by primary key (may return RecordNotFound error)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	var result T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	for _, association := range associations {
		dbCtx = dbCtx.Preload(association)
	}
	if err := dbCtx.First(&result, id).Error; err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}
