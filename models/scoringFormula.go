package models

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// FormulaMetric is one weighted metric of a scoring formula: the points for
// a metric are min(actual/divisor*maxPoints, maxPoints).
type FormulaMetric struct {
	Key       MetricKey `json:"key"`
	Divisor   float64   `json:"divisor"`
	MaxPoints float64   `json:"maxPoints"`
}

type FormulaConfig struct {
	Metrics []FormulaMetric `json:"metrics"`
}

// ScoringFormula is the versioned, audited per-metric weighting
// configuration, keyed by battle type and effective week range.
type ScoringFormula struct {
	ID                    int           `gorm:"primary_key" json:"id"`
	BattleType            BattleType    `gorm:"size:20;not null;index" json:"battle_type"`
	Status                FormulaStatus `gorm:"size:10;not null;default:draft;index" json:"status"`
	EffectiveStartWeekKey string        `gorm:"size:10;not null" json:"effective_start_week_key"`
	EffectiveEndWeekKey   *string       `gorm:"size:10" json:"effective_end_week_key"`
	Config                FormulaConfig `gorm:"serializer:json" json:"config"`
	Version               int           `gorm:"not null;default:1" json:"version"`
	CreatedAt             time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewScoringFormula struct {
	BattleType            string        `json:"battle_type" binding:"required"`
	EffectiveStartWeekKey string        `json:"effective_start_week_key" binding:"required"`
	EffectiveEndWeekKey   *string       `json:"effective_end_week_key"`
	Config                FormulaConfig `json:"config" binding:"required"`
}

const formulaMaxPointsTotal = 1000

// ValidateFormulaConfig checks a config the way the save/publish screens do:
// positive divisors, non-negative caps, maxPoints summing to exactly 1000,
// and no payins metric for depot battles (depot battles never score pay-ins).
func ValidateFormulaConfig(battleType BattleType, cfg FormulaConfig) error {
	if len(cfg.Metrics) == 0 {
		return errors.New("formula must have at least one metric")
	}
	seen := make(map[MetricKey]bool)
	var total float64
	for _, m := range cfg.Metrics {
		if _, err := ParseMetricKey(string(m.Key)); err != nil {
			return err
		}
		if seen[m.Key] {
			return errors.New("duplicate metric: " + string(m.Key))
		}
		seen[m.Key] = true
		if m.Divisor <= 0 {
			return errors.New("metric divisor must be positive: " + string(m.Key))
		}
		if m.MaxPoints < 0 {
			return errors.New("metric maxPoints cannot be negative: " + string(m.Key))
		}
		if battleType == BattleTypeDepots && m.Key == MetricKeyPayins {
			return errors.New("depot battle formulas cannot include payins")
		}
		total += m.MaxPoints
	}
	if math.Abs(total-formulaMaxPointsTotal) > 1e-9 {
		return errors.New("formula maxPoints must sum to 1000")
	}
	return nil
}

// validate input for both create & update. (id = 0 for create)
func (input *NewScoringFormula) validate(ctx context.Context, id int) error {
	battleType, err := ParseBattleType(input.BattleType)
	if err != nil {
		return err
	}
	if _, _, err := utils.ParseWeekKey(input.EffectiveStartWeekKey); err != nil {
		return err
	}
	if input.EffectiveEndWeekKey != nil {
		if _, _, err := utils.ParseWeekKey(*input.EffectiveEndWeekKey); err != nil {
			return err
		}
		if *input.EffectiveEndWeekKey < input.EffectiveStartWeekKey {
			return errors.New("effective end week cannot be before start week")
		}
	}
	if err := ValidateFormulaConfig(battleType, input.Config); err != nil {
		return err
	}
	if id > 0 {
		if err := utils.ValidateResourceId[ScoringFormula](ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateScoringFormula(ctx context.Context, input *NewScoringFormula, reason string) (*ScoringFormula, error) {

	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	formula := ScoringFormula{
		BattleType:            BattleType(input.BattleType),
		Status:                FormulaStatusDraft,
		EffectiveStartWeekKey: input.EffectiveStartWeekKey,
		EffectiveEndWeekKey:   input.EffectiveEndWeekKey,
		Config:                input.Config,
		Version:               1,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&formula).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx, "CREATE", "scoring_formulas", fmt.Sprint(formula.ID), nil, formula, reason); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &formula, tx.Commit().Error
}

// UpdateScoringFormula edits a draft. Published formulas are immutable.
func UpdateScoringFormula(ctx context.Context, id int, input *NewScoringFormula, reason string) (*ScoringFormula, error) {

	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	formula, err := utils.FetchModel[ScoringFormula](ctx, id)
	if err != nil {
		return nil, err
	}
	if formula.Status != FormulaStatusDraft {
		return nil, errors.New("published formulas cannot be edited")
	}
	before := *formula

	formula.BattleType = BattleType(input.BattleType)
	formula.EffectiveStartWeekKey = input.EffectiveStartWeekKey
	formula.EffectiveEndWeekKey = input.EffectiveEndWeekKey
	formula.Config = input.Config
	formula.Version++

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Save(formula).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx, "UPDATE", "scoring_formulas", fmt.Sprint(id), before, formula, reason); err != nil {
		tx.Rollback()
		return nil, err
	}
	return formula, tx.Commit().Error
}

// PublishScoringFormula transitions draft -> published. Irreversible.
func PublishScoringFormula(ctx context.Context, id int, reason string) (*ScoringFormula, error) {

	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}

	formula, err := utils.FetchModel[ScoringFormula](ctx, id)
	if err != nil {
		return nil, err
	}
	if formula.Status == FormulaStatusPublished {
		return nil, errors.New("formula is already published")
	}
	// re-check before the status flip; drafts may predate a rule change
	if err := ValidateFormulaConfig(formula.BattleType, formula.Config); err != nil {
		return nil, err
	}
	before := *formula

	formula.Status = FormulaStatusPublished
	formula.Version++

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Save(formula).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx, "PUBLISH", "scoring_formulas", fmt.Sprint(id), before, formula, reason); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	clearReportCache()
	return formula, nil
}

func GetScoringFormula(ctx context.Context, id int) (*ScoringFormula, error) {
	return utils.FetchModel[ScoringFormula](ctx, id)
}

func GetScoringFormulas(ctx context.Context, battleType *string, status *string) ([]*ScoringFormula, error) {

	db := config.GetDB()
	var results []*ScoringFormula

	dbCtx := db.WithContext(ctx)
	if battleType != nil && len(*battleType) > 0 {
		dbCtx = dbCtx.Where("battle_type = ?", battleType)
	}
	if status != nil && len(*status) > 0 {
		dbCtx = dbCtx.Where("status = ?", status)
	}
	err := dbCtx.Order("battle_type, effective_start_week_key DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetActiveFormula resolves the published formula whose effective range
// contains the week. The most recently starting match wins. Absence of a
// formula is a normal, displayable state: (nil, nil), never an error.
func GetActiveFormula(ctx context.Context, battleType BattleType, weekKey string) (*ScoringFormula, error) {

	if _, _, err := utils.ParseWeekKey(weekKey); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var result ScoringFormula
	err := db.WithContext(ctx).
		Where("battle_type = ? AND status = ?", battleType, FormulaStatusPublished).
		Where("effective_start_week_key <= ?", weekKey).
		Where("(effective_end_week_key IS NULL OR effective_end_week_key >= ?)", weekKey).
		Order("effective_start_week_key DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
