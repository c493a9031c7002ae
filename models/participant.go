package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// Participant is a leader/agent. It belongs to exactly one hierarchy chain
// (company -> platoon -> optional upline agent), independent of depots.
type Participant struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	CompanyId     int             `gorm:"index" json:"company_id"`
	PlatoonId     int             `gorm:"index" json:"platoon_id"`
	UplineAgentId *int            `gorm:"index" json:"upline_agent_id"`
	Role          ParticipantRole `gorm:"size:10;not null" json:"role"`
	PhotoUrl      string          `gorm:"size:255" json:"photo_url"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewParticipant struct {
	Name          string `json:"name" binding:"required"`
	CompanyId     int    `json:"company_id" binding:"required"`
	PlatoonId     int    `json:"platoon_id" binding:"required"`
	UplineAgentId *int   `json:"upline_agent_id"`
	Role          string `json:"role" binding:"required"`
	PhotoUrl      string `json:"photo_url"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewParticipant) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Participant](ctx, id); err != nil {
			return err
		}
	}
	if _, err := ParseParticipantRole(input.Role); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Company](ctx, input.CompanyId); err != nil {
		return errors.New("company not found")
	}
	if err := utils.ValidateResourceId[Platoon](ctx, input.PlatoonId); err != nil {
		return errors.New("platoon not found")
	}
	if input.UplineAgentId != nil && *input.UplineAgentId > 0 {
		if id > 0 && *input.UplineAgentId == id {
			return errors.New("participant cannot be its own upline")
		}
		if err := utils.ValidateResourceId[Participant](ctx, *input.UplineAgentId); err != nil {
			return errors.New("upline agent not found")
		}
	}
	return nil
}

func CreateParticipant(ctx context.Context, input *NewParticipant) (*Participant, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	participant := Participant{
		Name:          input.Name,
		CompanyId:     input.CompanyId,
		PlatoonId:     input.PlatoonId,
		UplineAgentId: input.UplineAgentId,
		Role:          ParticipantRole(input.Role),
		PhotoUrl:      input.PhotoUrl,
		IsActive:      utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&participant).Error
	if err != nil {
		return nil, err
	}

	return &participant, nil
}

func UpdateParticipant(ctx context.Context, id int, input *NewParticipant) (*Participant, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	participant, err := utils.FetchModel[Participant](ctx, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&participant).Updates(map[string]interface{}{
		"Name":          input.Name,
		"CompanyId":     input.CompanyId,
		"PlatoonId":     input.PlatoonId,
		"UplineAgentId": input.UplineAgentId,
		"Role":          input.Role,
		"PhotoUrl":      input.PhotoUrl,
	}).Error
	if err != nil {
		return nil, err
	}

	return participant, nil
}

func DeleteParticipant(ctx context.Context, id int) (*Participant, error) {

	result, err := utils.FetchModel[Participant](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&DailyRecord{}).
		Where("participant_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("participant has daily records")
	}
	if err := db.WithContext(ctx).Model(&Participant{}).
		Where("upline_agent_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("participant has downlines")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func GetParticipant(ctx context.Context, id int) (*Participant, error) {
	return utils.FetchModel[Participant](ctx, id)
}

func GetParticipants(ctx context.Context, name *string, role *string) ([]*Participant, error) {

	db := config.GetDB()
	var results []*Participant

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if role != nil && len(*role) > 0 {
		dbCtx = dbCtx.Where("role = ?", role)
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetParticipantMap returns id => participant for the compare and ranking paths.
func GetParticipantMap(ctx context.Context) (map[int]*Participant, error) {
	participants, err := GetParticipants(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	m := make(map[int]*Participant, len(participants))
	for _, p := range participants {
		m[p.ID] = p
	}
	return m, nil
}

// ResolveParticipantByName matches a free-text leader name (as typed in an
// uploaded spreadsheet) to a participant id. Exact matches win; otherwise a
// single case-insensitive match is accepted, and multiple matches are an
// error so the import row can be rejected instead of guessing.
func ResolveParticipantByName(ctx context.Context, name string) (int, error) {

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("participant name is required")
	}

	db := config.GetDB()
	var exact []*Participant
	if err := db.WithContext(ctx).Where("name = ?", name).Find(&exact).Error; err != nil {
		return 0, err
	}
	if len(exact) == 1 {
		return exact[0].ID, nil
	}
	if len(exact) > 1 {
		return 0, errors.New("ambiguous participant name: " + name)
	}

	var loose []*Participant
	if err := db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).Find(&loose).Error; err != nil {
		return 0, err
	}
	switch len(loose) {
	case 0:
		return 0, errors.New("participant not found: " + name)
	case 1:
		return loose[0].ID, nil
	default:
		return 0, errors.New("ambiguous participant name: " + name)
	}
}
