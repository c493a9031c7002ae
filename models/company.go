package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// Company is the commander-level grouping entity of the participant hierarchy.
type Company struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	PhotoUrl  string    `gorm:"size:255" json:"photo_url"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCompany struct {
	Name     string `json:"name" binding:"required"`
	PhotoUrl string `json:"photo_url"`
}

func CreateCompany(ctx context.Context, input *NewCompany) (*Company, error) {

	if err := utils.ValidateUnique[Company](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}

	company := Company{
		Name:     input.Name,
		PhotoUrl: input.PhotoUrl,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[Company]()
	return &company, nil
}

func UpdateCompany(ctx context.Context, id int, input *NewCompany) (*Company, error) {

	if err := utils.ValidateUnique[Company](ctx, "name", input.Name, id); err != nil {
		return nil, err
	}

	company, err := utils.FetchModel[Company](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&company).Updates(map[string]interface{}{
		"Name":     input.Name,
		"PhotoUrl": input.PhotoUrl,
	}).Error
	if err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[Company]()
	return company, nil
}

func DeleteCompany(ctx context.Context, id int) (*Company, error) {

	result, err := utils.FetchModel[Company](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Participant{}).
		Where("company_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("company has participants")
	}

	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[Company]()
	return result, nil
}

func GetCompany(ctx context.Context, id int) (*Company, error) {
	return utils.FetchModel[Company](ctx, id)
}

func GetCompanies(ctx context.Context) ([]*Company, error) {
	if cached, err := utils.RetrieveRedisList[Company](); err == nil && cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var results []*Company
	if err := db.WithContext(ctx).Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[Company](results)
	return results, nil
}

func GetCompanyMap(ctx context.Context) (map[int]*Company, error) {
	companies, err := GetCompanies(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[int]*Company, len(companies))
	for _, c := range companies {
		m[c.ID] = c
	}
	return m, nil
}
