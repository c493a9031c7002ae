package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// Depot is a channel/location entity. It is independent of the
// company/platoon hierarchy: a daily record assigns a leads depot and a
// sales depot separately.
type Depot struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	PhotoUrl  string    `gorm:"size:255" json:"photo_url"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDepot struct {
	Name     string `json:"name" binding:"required"`
	PhotoUrl string `json:"photo_url"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewDepot) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Depot](ctx, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Depot](ctx, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateDepot(ctx context.Context, input *NewDepot) (*Depot, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	depot := Depot{
		Name:     input.Name,
		PhotoUrl: input.PhotoUrl,
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&depot).Error
	if err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[Depot]()
	return &depot, nil
}

func UpdateDepot(ctx context.Context, id int, input *NewDepot) (*Depot, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	depot, err := utils.FetchModel[Depot](ctx, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&depot).Updates(map[string]interface{}{
		"Name":     input.Name,
		"PhotoUrl": input.PhotoUrl,
	}).Error
	if err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[Depot]()
	_ = utils.RemoveRedisItem[Depot](id)
	return depot, nil
}

func DeleteDepot(ctx context.Context, id int) (*Depot, error) {

	result, err := utils.FetchModel[Depot](ctx, id)
	if err != nil {
		return nil, err
	}

	// check if the depot is referenced by daily records
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&DailyRecord{}).
		Where("leads_depot_id = ? OR sales_depot_id = ?", id, id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("depot has daily records")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[Depot]()
	_ = utils.RemoveRedisItem[Depot](id)
	return result, nil
}

func GetDepot(ctx context.Context, id int) (*Depot, error) {
	if cached, err := utils.RetrieveRedis[Depot](id); err == nil && cached != nil {
		return cached, nil
	}
	depot, err := utils.FetchModel[Depot](ctx, id)
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedis[Depot](depot, id)
	return depot, nil
}

func GetDepots(ctx context.Context, name *string) ([]*Depot, error) {

	filtered := name != nil && len(*name) > 0
	if !filtered {
		if cached, err := utils.RetrieveRedisList[Depot](); err == nil && cached != nil {
			return cached, nil
		}
	}

	db := config.GetDB()
	var results []*Depot

	dbCtx := db.WithContext(ctx)
	if filtered {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	if !filtered {
		_ = utils.StoreRedisList[Depot](results)
	}
	return results, nil
}

// GetDepotMap returns id => depot for the aggregation lookups.
func GetDepotMap(ctx context.Context) (map[int]*Depot, error) {
	depots, err := GetDepots(ctx, nil)
	if err != nil {
		return nil, err
	}
	m := make(map[int]*Depot, len(depots))
	for _, d := range depots {
		m[d.ID] = d
	}
	return m, nil
}
