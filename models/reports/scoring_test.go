package reports

import (
	"math"
	"testing"

	"bitbucket.org/mmdatafocus/battles_backend/models"
)

func TestScoreMetric_CapsAtMaxPoints(t *testing.T) {
	cases := []struct {
		name      string
		actual    float64
		divisor   float64
		maxPoints float64
		expected  float64
	}{
		{"below target", 250, 500, 400, 200},
		{"exactly at target", 500, 500, 400, 400},
		{"over target is capped", 900, 500, 400, 400},
		{"zero actual", 0, 500, 400, 0},
		{"zero divisor scores zero", 250, 0, 400, 0},
		{"negative divisor scores zero", 250, -10, 400, 0},
		{"zero max points", 250, 500, 0, 0},
	}
	for _, tc := range cases {
		got := ScoreMetric(tc.actual, tc.divisor, tc.maxPoints)
		if math.Abs(got-tc.expected) > 1e-9 {
			t.Fatalf("%s: ScoreMetric(%v, %v, %v) expected %v, got %v",
				tc.name, tc.actual, tc.divisor, tc.maxPoints, tc.expected, got)
		}
	}
}

func TestScoreMetric_MonotonicBelowCap(t *testing.T) {
	prev := -1.0
	for actual := 0.0; actual <= 500; actual += 25 {
		got := ScoreMetric(actual, 500, 400)
		if got < prev {
			t.Fatalf("score decreased: ScoreMetric(%v)=%v after %v", actual, got, prev)
		}
		prev = got
	}
}

func TestScoreTotal_SumsMetrics(t *testing.T) {
	cfg := &models.FormulaConfig{Metrics: []models.FormulaMetric{
		{Key: models.MetricKeyLeads, Divisor: 500, MaxPoints: 400},
		{Key: models.MetricKeySales, Divisor: 3000000, MaxPoints: 600},
	}}
	totals := MetricTotals{Leads: 250, Sales: 1500000}

	got := ScoreTotal(models.BattleTypeLeaders, totals, cfg)
	// 250/500*400 + 1500000/3000000*600 = 200 + 300
	if math.Abs(got-500) > 1e-9 {
		t.Fatalf("expected 500 points, got %v", got)
	}
}

func TestScoreTotal_NilConfigScoresZero(t *testing.T) {
	totals := MetricTotals{Leads: 1000, Payins: 50, Sales: 9999999}
	if got := ScoreTotal(models.BattleTypeLeaders, totals, nil); got != 0 {
		t.Fatalf("nil config expected 0 points, got %v", got)
	}
	empty := &models.FormulaConfig{}
	if got := ScoreTotal(models.BattleTypeLeaders, totals, empty); got != 0 {
		t.Fatalf("empty config expected 0 points, got %v", got)
	}
}

func TestScoreTotal_DepotBattlesSkipPayins(t *testing.T) {
	cfg := &models.FormulaConfig{Metrics: []models.FormulaMetric{
		{Key: models.MetricKeyLeads, Divisor: 100, MaxPoints: 500},
		{Key: models.MetricKeyPayins, Divisor: 10, MaxPoints: 500},
	}}
	totals := MetricTotals{Leads: 50, Payins: 10}

	depot := ScoreTotal(models.BattleTypeDepots, totals, cfg)
	if math.Abs(depot-250) > 1e-9 {
		t.Fatalf("depot battle should ignore payins metric: expected 250, got %v", depot)
	}

	leaders := ScoreTotal(models.BattleTypeLeaders, totals, cfg)
	if math.Abs(leaders-750) > 1e-9 {
		t.Fatalf("leaders battle scores payins: expected 750, got %v", leaders)
	}
}

func TestMaxAttainablePoints(t *testing.T) {
	cfg := &models.FormulaConfig{Metrics: []models.FormulaMetric{
		{Key: models.MetricKeyLeads, Divisor: 100, MaxPoints: 300},
		{Key: models.MetricKeyPayins, Divisor: 10, MaxPoints: 200},
		{Key: models.MetricKeySales, Divisor: 1000, MaxPoints: 500},
	}}
	if got := MaxAttainablePoints(models.BattleTypeLeaders, cfg); got != 1000 {
		t.Fatalf("expected 1000, got %v", got)
	}
	if got := MaxAttainablePoints(models.BattleTypeDepots, cfg); got != 800 {
		t.Fatalf("depot cap excludes payins: expected 800, got %v", got)
	}
	if got := MaxAttainablePoints(models.BattleTypeDepots, nil); got != 0 {
		t.Fatalf("nil config expected 0, got %v", got)
	}
}
