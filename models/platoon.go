package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// Platoon is the team-level grouping entity of the participant hierarchy.
type Platoon struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	PhotoUrl  string    `gorm:"size:255" json:"photo_url"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPlatoon struct {
	Name     string `json:"name" binding:"required"`
	PhotoUrl string `json:"photo_url"`
}

func CreatePlatoon(ctx context.Context, input *NewPlatoon) (*Platoon, error) {

	if err := utils.ValidateUnique[Platoon](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}

	platoon := Platoon{
		Name:     input.Name,
		PhotoUrl: input.PhotoUrl,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&platoon).Error; err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[Platoon]()
	return &platoon, nil
}

func UpdatePlatoon(ctx context.Context, id int, input *NewPlatoon) (*Platoon, error) {

	if err := utils.ValidateUnique[Platoon](ctx, "name", input.Name, id); err != nil {
		return nil, err
	}

	platoon, err := utils.FetchModel[Platoon](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&platoon).Updates(map[string]interface{}{
		"Name":     input.Name,
		"PhotoUrl": input.PhotoUrl,
	}).Error
	if err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[Platoon]()
	return platoon, nil
}

func DeletePlatoon(ctx context.Context, id int) (*Platoon, error) {

	result, err := utils.FetchModel[Platoon](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Participant{}).
		Where("platoon_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("platoon has participants")
	}

	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[Platoon]()
	return result, nil
}

func GetPlatoon(ctx context.Context, id int) (*Platoon, error) {
	return utils.FetchModel[Platoon](ctx, id)
}

func GetPlatoons(ctx context.Context) ([]*Platoon, error) {
	if cached, err := utils.RetrieveRedisList[Platoon](); err == nil && cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var results []*Platoon
	if err := db.WithContext(ctx).Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[Platoon](results)
	return results, nil
}

func GetPlatoonMap(ctx context.Context) (map[int]*Platoon, error) {
	platoons, err := GetPlatoons(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[int]*Platoon, len(platoons))
	for _, p := range platoons {
		m[p.ID] = p
	}
	return m, nil
}
