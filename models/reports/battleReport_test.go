package reports

import (
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/battles_backend/models"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

func battleRecord(participantId int, leads, payins int, sales string, leadsDepot, salesDepot int) *models.DailyRecord {
	return &models.DailyRecord{
		ParticipantId: participantId,
		Date:          testDate(1),
		Leads:         leads,
		Payins:        payins,
		Sales:         decimal.RequireFromString(sales),
		LeadsDepotId:  leadsDepot,
		SalesDepotId:  salesDepot,
		Source:        models.RecordSourceCompany,
		Voided:        utils.NewFalse(),
		Approved:      utils.NewFalse(),
	}
}

func battleLookups() Lookups {
	upline := 10
	return Lookups{
		Depots: map[int]*models.Depot{
			1: {ID: 1, Name: "North Depot"},
			2: {ID: 2, Name: "East Depot"},
		},
		Companies: map[int]*models.Company{
			1: {ID: 1, Name: "Alpha Holdings"},
		},
		Platoons: map[int]*models.Platoon{
			1: {ID: 1, Name: "First Platoon"},
		},
		Participants: map[int]*models.Participant{
			10: {ID: 10, Name: "Commander Mya", CompanyId: 1, PlatoonId: 1, Role: models.ParticipantRolePlatoon},
			11: {ID: 11, Name: "Aye Aye", CompanyId: 1, PlatoonId: 1, UplineAgentId: &upline, Role: models.ParticipantRoleSquad},
			12: {ID: 12, Name: "Ba Maw", CompanyId: 1, PlatoonId: 1, UplineAgentId: &upline, Role: models.ParticipantRoleTeam},
		},
	}
}

func publishedFormula(battleType models.BattleType, metrics ...models.FormulaMetric) *models.ScoringFormula {
	return &models.ScoringFormula{
		ID:         1,
		BattleType: battleType,
		Status:     models.FormulaStatusPublished,
		Config:     models.FormulaConfig{Metrics: metrics},
	}
}

func TestAggregateRankings_DepotDualKeyFanOut(t *testing.T) {
	// leads credited to depot 1, payins and sales to depot 2
	records := []*models.DailyRecord{
		battleRecord(11, 10, 3, "5000", 1, 2),
	}

	resp := AggregateRankings(records, RankingModeDepots, nil, nil, battleLookups())
	if len(resp.Rows) != 2 {
		t.Fatalf("expected 2 depot buckets, got %d", len(resp.Rows))
	}

	byKey := map[string]*RankedGroup{}
	for _, row := range resp.Rows {
		byKey[row.Key] = row
	}

	north := byKey["1"]
	if north == nil || north.Leads != 10 || north.Payins != 0 || !north.Sales.IsZero() {
		t.Fatalf("leads depot bucket wrong: %+v", north)
	}
	east := byKey["2"]
	if east == nil || east.Leads != 0 || east.Payins != 3 || !east.Sales.Equal(decimal.RequireFromString("5000")) {
		t.Fatalf("sales depot bucket wrong: %+v", east)
	}
}

func TestAggregateRankings_UnassignedDepotBucket(t *testing.T) {
	records := []*models.DailyRecord{
		battleRecord(11, 5, 1, "1000", 0, 0),
	}
	resp := AggregateRankings(records, RankingModeDepots, nil, nil, battleLookups())
	if len(resp.Rows) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(resp.Rows))
	}
	row := resp.Rows[0]
	if row.Key != "unassigned" || row.Name != "Unassigned" {
		t.Fatalf("expected unassigned bucket, got key=%q name=%q", row.Key, row.Name)
	}
	if row.Leads != 5 || row.Payins != 1 {
		t.Fatalf("unassigned bucket totals wrong: %+v", row)
	}
}

func TestAggregateRankings_UplineRollup(t *testing.T) {
	records := []*models.DailyRecord{
		battleRecord(11, 4, 1, "1000", 1, 1),
		battleRecord(12, 3, 2, "2000", 1, 1),
		battleRecord(10, 9, 0, "500", 1, 1), // commander has no upline
	}

	resp := AggregateRankings(records, RankingModePlatoon, nil, nil, battleLookups())
	if len(resp.Rows) != 2 {
		t.Fatalf("expected upline bucket plus no-upline bucket, got %d rows", len(resp.Rows))
	}

	byKey := map[string]*RankedGroup{}
	for _, row := range resp.Rows {
		byKey[row.Key] = row
	}

	uplineBucket := byKey["10"]
	if uplineBucket == nil {
		t.Fatal("missing upline bucket")
	}
	if uplineBucket.Name != "Commander Mya" {
		t.Fatalf("upline bucket named %q", uplineBucket.Name)
	}
	if uplineBucket.Leads != 7 || uplineBucket.Payins != 3 || !uplineBucket.Sales.Equal(decimal.RequireFromString("3000")) {
		t.Fatalf("upline rollup totals wrong: %+v", uplineBucket)
	}

	noUpline := byKey["no-upline"]
	if noUpline == nil || noUpline.Leads != 9 {
		t.Fatalf("no-upline bucket wrong: %+v", noUpline)
	}
}

func TestAggregateRankings_LeadersRoleFilter(t *testing.T) {
	records := []*models.DailyRecord{
		battleRecord(10, 9, 0, "500", 1, 1),  // role platoon
		battleRecord(11, 4, 1, "1000", 1, 1), // role squad
		battleRecord(12, 3, 2, "2000", 1, 1), // role team
	}
	role := models.ParticipantRoleSquad

	resp := AggregateRankings(records, RankingModeLeaders, &role, nil, battleLookups())
	if len(resp.Rows) != 1 {
		t.Fatalf("expected only squad leaders, got %d rows", len(resp.Rows))
	}
	if resp.Rows[0].Name != "Aye Aye" {
		t.Fatalf("expected the squad leader, got %q", resp.Rows[0].Name)
	}
	// records outside the filter still count toward the snapshot KPIs
	if resp.Kpis.RecordCount != 3 {
		t.Fatalf("record count expected 3, got %d", resp.Kpis.RecordCount)
	}
}

func TestAggregateRankings_CommandersDropUnresolved(t *testing.T) {
	records := []*models.DailyRecord{
		battleRecord(11, 4, 1, "1000", 1, 1),
		battleRecord(99, 8, 8, "8000", 1, 1), // unknown participant
	}
	resp := AggregateRankings(records, RankingModeCommanders, nil, nil, battleLookups())
	if len(resp.Rows) != 1 {
		t.Fatalf("unresolved participants must be dropped, got %d rows", len(resp.Rows))
	}
	if resp.Rows[0].Name != "Alpha Holdings" {
		t.Fatalf("expected company bucket, got %q", resp.Rows[0].Name)
	}
}

func TestAggregateRankings_UnknownParticipantPlaceholder(t *testing.T) {
	records := []*models.DailyRecord{
		battleRecord(99, 8, 8, "8000", 1, 1),
	}
	resp := AggregateRankings(records, RankingModeLeaders, nil, nil, battleLookups())
	if len(resp.Rows) != 1 {
		t.Fatalf("leaders mode keeps unresolved participants, got %d rows", len(resp.Rows))
	}
	if resp.Rows[0].Name != "Unknown participant 99" {
		t.Fatalf("expected placeholder name, got %q", resp.Rows[0].Name)
	}
}

func TestAggregateRankings_PointsAndDenseRanks(t *testing.T) {
	formula := publishedFormula(models.BattleTypeLeaders,
		models.FormulaMetric{Key: models.MetricKeyLeads, Divisor: 500, MaxPoints: 400},
		models.FormulaMetric{Key: models.MetricKeySales, Divisor: 3000000, MaxPoints: 600},
	)
	records := []*models.DailyRecord{
		battleRecord(10, 250, 0, "1500000", 1, 1),
		battleRecord(11, 100, 0, "300000", 1, 1),
		battleRecord(12, 500, 0, "3000000", 1, 1),
	}

	resp := AggregateRankings(records, RankingModeLeaders, nil, formula, battleLookups())
	if len(resp.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(resp.Rows))
	}
	for i, row := range resp.Rows {
		if row.Rank != i+1 {
			t.Fatalf("ranks must be dense 1..N: row %d has rank %d", i, row.Rank)
		}
	}
	// 500/500*400 + 3000000/3000000*600 = 1000 at the top
	if resp.Rows[0].Points != 1000 {
		t.Fatalf("top row expected 1000 points, got %v", resp.Rows[0].Points)
	}
	// 250/500*400 + 1500000/3000000*600 = 500
	if resp.Rows[1].Points != 500 {
		t.Fatalf("second row expected 500 points, got %v", resp.Rows[1].Points)
	}
	if resp.Rows[0].Points < resp.Rows[1].Points || resp.Rows[1].Points < resp.Rows[2].Points {
		t.Fatal("rows must be ordered by points descending")
	}
}

func TestAggregateRankings_CappedDepotTiebreakPrefersLowerSales(t *testing.T) {
	formula := publishedFormula(models.BattleTypeDepots,
		models.FormulaMetric{Key: models.MetricKeySales, Divisor: 1000, MaxPoints: 1000},
	)
	// both depots max out the sales metric; the one that hit the cap with
	// less volume ranks first
	records := []*models.DailyRecord{
		battleRecord(11, 0, 0, "5000", 1, 1),
		battleRecord(12, 0, 0, "2000", 2, 2),
	}

	resp := AggregateRankings(records, RankingModeDepots, nil, formula, battleLookups())
	if len(resp.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resp.Rows))
	}
	if resp.Rows[0].Points != 1000 || resp.Rows[1].Points != 1000 {
		t.Fatalf("both depots should be capped at 1000, got %v and %v", resp.Rows[0].Points, resp.Rows[1].Points)
	}
	if resp.Rows[0].Key != "2" {
		t.Fatalf("capped tiebreak must prefer lower sales: expected depot 2 first, got %q", resp.Rows[0].Key)
	}
}

func TestAggregateRankings_UncappedDepotTiebreakPrefersHigherSales(t *testing.T) {
	formula := publishedFormula(models.BattleTypeDepots,
		models.FormulaMetric{Key: models.MetricKeyLeads, Divisor: 100, MaxPoints: 1000},
	)
	// equal points via leads, neither capped; higher sales wins
	records := []*models.DailyRecord{
		battleRecord(11, 10, 0, "2000", 1, 1),
		battleRecord(12, 10, 0, "5000", 2, 2),
	}

	resp := AggregateRankings(records, RankingModeDepots, nil, formula, battleLookups())
	if resp.Rows[0].Key != "2" {
		t.Fatalf("uncapped tiebreak must prefer higher sales: expected depot 2 first, got %q", resp.Rows[0].Key)
	}
}

func TestAggregateRankings_NonDepotTiebreakChain(t *testing.T) {
	// no formula, everyone at 0 points: payins breaks the tie
	records := []*models.DailyRecord{
		battleRecord(10, 9, 1, "500", 1, 1),
		battleRecord(11, 4, 5, "1000", 1, 1),
	}
	resp := AggregateRankings(records, RankingModeLeaders, nil, nil, battleLookups())
	if resp.Rows[0].Name != "Aye Aye" {
		t.Fatalf("payins tiebreak expected Aye Aye first, got %q", resp.Rows[0].Name)
	}
}

func TestAggregateRankings_MissingFormula(t *testing.T) {
	records := []*models.DailyRecord{
		battleRecord(10, 9, 1, "500", 1, 1),
	}
	resp := AggregateRankings(records, RankingModeLeaders, nil, nil, battleLookups())
	if !resp.Formula.Missing {
		t.Fatal("formula info must flag missing formula")
	}
	if resp.Rows[0].Points != 0 {
		t.Fatalf("no formula means 0 points, got %v", resp.Rows[0].Points)
	}
	// metric totals still reported so the board can show raw numbers
	if resp.Rows[0].Leads != 9 {
		t.Fatalf("raw totals must survive a missing formula, got %+v", resp.Rows[0])
	}
}

func TestAggregateRankings_Kpis(t *testing.T) {
	records := []*models.DailyRecord{
		battleRecord(10, 9, 1, "500", 1, 1),
		battleRecord(11, 4, 5, "1000", 1, 1),
		battleRecord(11, 2, 0, "250", 1, 1),
	}
	resp := AggregateRankings(records, RankingModeLeaders, nil, nil, battleLookups())
	kpis := resp.Kpis
	if kpis.TotalLeads != 15 || kpis.TotalPayins != 6 {
		t.Fatalf("kpi totals wrong: %+v", kpis)
	}
	if !kpis.TotalSales.Equal(decimal.RequireFromString("1750")) {
		t.Fatalf("total sales expected 1750, got %s", kpis.TotalSales)
	}
	if kpis.RecordCount != 3 || kpis.GroupCount != 2 || kpis.ParticipantCount != 2 {
		t.Fatalf("kpi counts wrong: %+v", kpis)
	}
}

func TestAggregateRankings_Deterministic(t *testing.T) {
	formula := publishedFormula(models.BattleTypeLeaders,
		models.FormulaMetric{Key: models.MetricKeyLeads, Divisor: 100, MaxPoints: 1000},
	)
	records := []*models.DailyRecord{
		battleRecord(12, 5, 0, "100", 1, 1),
		battleRecord(10, 5, 0, "100", 1, 1),
		battleRecord(11, 5, 0, "100", 1, 1),
	}
	lookups := battleLookups()

	first := AggregateRankings(records, RankingModeLeaders, nil, formula, lookups)
	for i := 0; i < 10; i++ {
		again := AggregateRankings(records, RankingModeLeaders, nil, formula, lookups)
		for j := range first.Rows {
			if first.Rows[j].Key != again.Rows[j].Key || first.Rows[j].Rank != again.Rows[j].Rank {
				t.Fatalf("ordering changed between runs at row %d", j)
			}
		}
	}
	// all ties: insertion order decides
	if first.Rows[0].Key != "12" || first.Rows[1].Key != "10" || first.Rows[2].Key != "11" {
		t.Fatalf("full tie must keep insertion order, got %q %q %q",
			first.Rows[0].Key, first.Rows[1].Key, first.Rows[2].Key)
	}
}

func TestBattleTypeFor(t *testing.T) {
	squad := models.ParticipantRoleSquad
	cases := []struct {
		mode     RankingMode
		role     *models.ParticipantRole
		expected models.BattleType
	}{
		{RankingModeDepots, nil, models.BattleTypeDepots},
		{RankingModeCommanders, nil, models.BattleTypeCommanders},
		{RankingModeTeams, nil, models.BattleTypeCompanies},
		{RankingModePlatoon, nil, models.BattleTypeLeaders},
		{RankingModeLeaders, nil, models.BattleTypeLeaders},
		{RankingModeLeaders, &squad, models.BattleTypeSquads},
	}
	for _, tc := range cases {
		if got := BattleTypeFor(tc.mode, tc.role); got != tc.expected {
			t.Fatalf("BattleTypeFor(%s) expected %s, got %s", tc.mode, tc.expected, got)
		}
	}
}
