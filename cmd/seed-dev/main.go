package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/models"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// Seeds the lookup tables and a published baseline formula so a fresh dev
// database can serve reports immediately. Safe to re-run: entities that
// already exist by name are left alone.
func main() {
	withFormulas := flag.Bool("with-formulas", true, "Also seed a published baseline formula per battle type")
	startWeek := flag.String("start-week", "2026-W01", "Effective start week key for seeded formulas")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "SeedDev")
	ctx = utils.SetUserRoleInContext(ctx, string(models.UserRoleSuperAdmin))

	for _, name := range []string{"North Depot", "East Depot", "Central Depot"} {
		if _, err := models.CreateDepot(ctx, &models.NewDepot{Name: name}); err != nil {
			reportSeed("depot", name, err)
		}
	}
	for _, name := range []string{"Alpha Holdings", "Beta Holdings"} {
		if _, err := models.CreateCompany(ctx, &models.NewCompany{Name: name}); err != nil {
			reportSeed("company", name, err)
		}
	}
	for _, name := range []string{"First Platoon", "Second Platoon"} {
		if _, err := models.CreatePlatoon(ctx, &models.NewPlatoon{Name: name}); err != nil {
			reportSeed("platoon", name, err)
		}
	}

	// seeded lookups make any cached lists stale
	defer func() {
		if err := config.ClearRedis(ctx); err != nil {
			reportSeed("redis flush", "all", err)
		}
	}()

	if !*withFormulas {
		fmt.Println("seed complete")
		return
	}

	for _, battleType := range []models.BattleType{
		models.BattleTypeLeaders,
		models.BattleTypePlatoons,
		models.BattleTypeSquads,
		models.BattleTypeTeams,
		models.BattleTypeCommanders,
		models.BattleTypeCompanies,
		models.BattleTypeDepots,
	} {
		cfg := models.FormulaConfig{Metrics: []models.FormulaMetric{
			{Key: models.MetricKeyLeads, Divisor: 500, MaxPoints: 400},
			{Key: models.MetricKeySales, Divisor: 3000000, MaxPoints: 600},
		}}
		if battleType != models.BattleTypeDepots {
			cfg.Metrics = []models.FormulaMetric{
				{Key: models.MetricKeyLeads, Divisor: 500, MaxPoints: 300},
				{Key: models.MetricKeyPayins, Divisor: 50, MaxPoints: 200},
				{Key: models.MetricKeySales, Divisor: 3000000, MaxPoints: 500},
			}
		}
		formula, err := models.CreateScoringFormula(ctx, &models.NewScoringFormula{
			BattleType:            string(battleType),
			EffectiveStartWeekKey: strings.TrimSpace(*startWeek),
			Config:                cfg,
		}, "seed baseline formula")
		if err != nil {
			reportSeed("formula", string(battleType), err)
			continue
		}
		if _, err := models.PublishScoringFormula(ctx, formula.ID, "seed baseline formula"); err != nil {
			reportSeed("formula publish", string(battleType), err)
		}
	}

	fmt.Println("seed complete")
}

func reportSeed(kind string, name string, err error) {
	fmt.Fprintf(os.Stderr, "seed %s %q: %v\n", kind, name, err)
}
