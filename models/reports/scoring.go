package reports

import (
	"bitbucket.org/mmdatafocus/battles_backend/models"
)

// MetricTotals are accumulated metric sums for one ranked bucket, as plain
// floats for point computation.
type MetricTotals struct {
	Leads  float64
	Payins float64
	Sales  float64
}

func (t MetricTotals) get(key models.MetricKey) float64 {
	switch key {
	case models.MetricKeyLeads:
		return t.Leads
	case models.MetricKeyPayins:
		return t.Payins
	case models.MetricKeySales:
		return t.Sales
	}
	return 0
}

// ScoreMetric returns min(actual/divisor*maxPoints, maxPoints).
// A non-positive divisor scores 0 instead of dividing by zero.
func ScoreMetric(actual float64, divisor float64, maxPoints float64) float64 {
	if divisor <= 0 {
		return 0
	}
	points := actual / divisor * maxPoints
	if points > maxPoints {
		return maxPoints
	}
	return points
}

// ScoreTotal sums ScoreMetric over every metric of the formula config.
// Depot battles never score pay-ins, even when a payins metric slipped into
// the config. A nil or empty config scores 0; absence of a formula is a
// normal state, not an error.
func ScoreTotal(battleType models.BattleType, totals MetricTotals, cfg *models.FormulaConfig) float64 {
	if cfg == nil {
		return 0
	}
	var total float64
	for _, m := range cfg.Metrics {
		if battleType == models.BattleTypeDepots && m.Key == models.MetricKeyPayins {
			continue
		}
		total += ScoreMetric(totals.get(m.Key), m.Divisor, m.MaxPoints)
	}
	return total
}

// MaxAttainablePoints is the cap a bucket can reach under the config
// (1000 for a published formula). Used by the depot ranking tiebreak to
// detect buckets that already maxed out.
func MaxAttainablePoints(battleType models.BattleType, cfg *models.FormulaConfig) float64 {
	if cfg == nil {
		return 0
	}
	var total float64
	for _, m := range cfg.Metrics {
		if battleType == models.BattleTypeDepots && m.Key == models.MetricKeyPayins {
			continue
		}
		total += m.MaxPoints
	}
	return total
}
