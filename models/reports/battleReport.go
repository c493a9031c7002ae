package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/models"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

type RankingMode string

const (
	RankingModeLeaders    RankingMode = "leaders"
	RankingModeDepots     RankingMode = "depots"
	RankingModeCommanders RankingMode = "commanders"
	RankingModeTeams      RankingMode = "teams"
	RankingModePlatoon    RankingMode = "platoon" // upline rollup
)

func ParseRankingMode(s string) (RankingMode, error) {
	switch s {
	case "leaders":
		return RankingModeLeaders, nil
	case "depots":
		return RankingModeDepots, nil
	case "commanders":
		return RankingModeCommanders, nil
	case "teams":
		return RankingModeTeams, nil
	case "platoon":
		return RankingModePlatoon, nil
	default:
		return "", errors.New("invalid ranking mode")
	}
}

const (
	noUplineKey        = "no-upline"
	unassignedDepotKey = "unassigned"
)

// RankedGroup is one ranked bucket of the battle report.
type RankedGroup struct {
	Key    string          `json:"key"`
	Name   string          `json:"name"`
	Leads  int             `json:"leads"`
	Payins int             `json:"payins"`
	Sales  decimal.Decimal `json:"sales"`
	Points float64         `json:"points"`
	Rank   int             `json:"rank"`
}

type BattleKpis struct {
	TotalLeads       int             `json:"total_leads"`
	TotalPayins      int             `json:"total_payins"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	RecordCount      int             `json:"record_count"`
	GroupCount       int             `json:"group_count"`
	ParticipantCount int             `json:"participant_count"`
}

type FormulaInfo struct {
	BattleType models.BattleType     `json:"battle_type"`
	WeekKey    string                `json:"week_key"`
	Missing    bool                  `json:"missing"`
	Config     *models.FormulaConfig `json:"config"`
}

type BattleReportResponse struct {
	Kpis    BattleKpis     `json:"kpis"`
	Rows    []*RankedGroup `json:"rows"`
	Formula FormulaInfo    `json:"formula"`
}

// Lookups are the id indexes the aggregation resolves display names and
// hierarchy through. Fetched once per request.
type Lookups struct {
	Depots       map[int]*models.Depot
	Companies    map[int]*models.Company
	Platoons     map[int]*models.Platoon
	Participants map[int]*models.Participant
}

// BattleTypeFor maps a ranking mode (plus the optional role filter of the
// leaders mode) to the battle type whose formula scores it.
func BattleTypeFor(mode RankingMode, roleFilter *models.ParticipantRole) models.BattleType {
	switch mode {
	case RankingModeDepots:
		return models.BattleTypeDepots
	case RankingModeCommanders:
		return models.BattleTypeCommanders
	case RankingModeTeams:
		return models.BattleTypeCompanies
	case RankingModePlatoon:
		return models.BattleTypeLeaders
	default:
		if roleFilter != nil {
			switch *roleFilter {
			case models.ParticipantRolePlatoon:
				return models.BattleTypePlatoons
			case models.ParticipantRoleSquad:
				return models.BattleTypeSquads
			case models.ParticipantRoleTeam:
				return models.BattleTypeTeams
			}
		}
		return models.BattleTypeLeaders
	}
}

type bucket struct {
	key    string
	name   string
	leads  int
	payins int
	sales  decimal.Decimal
	order  int
}

type bucketSet struct {
	byKey map[string]*bucket
	seq   []*bucket
}

func newBucketSet() *bucketSet {
	return &bucketSet{byKey: make(map[string]*bucket)}
}

func (s *bucketSet) get(key string, name string) *bucket {
	b, ok := s.byKey[key]
	if !ok {
		b = &bucket{key: key, name: name, sales: decimal.Zero, order: len(s.seq)}
		s.byKey[key] = b
		s.seq = append(s.seq, b)
	}
	return b
}

// AggregateRankings groups a snapshot of non-voided records by the mode's
// key, sums metrics per bucket, scores each bucket against the formula and
// ranks deterministically. Pure function: fetching and access filtering
// happen before this is called.
func AggregateRankings(records []*models.DailyRecord, mode RankingMode, roleFilter *models.ParticipantRole,
	formula *models.ScoringFormula, lookups Lookups) *BattleReportResponse {

	buckets := newBucketSet()
	participantsSeen := make(map[int]bool)

	for _, record := range records {
		participantsSeen[record.ParticipantId] = true
		participant := lookups.Participants[record.ParticipantId]

		switch mode {
		case RankingModeLeaders:
			if roleFilter != nil && (participant == nil || participant.Role != *roleFilter) {
				continue
			}
			name := "Unknown participant " + fmt.Sprint(record.ParticipantId)
			if participant != nil {
				name = participant.Name
			}
			addRecord(buckets.get(fmt.Sprint(record.ParticipantId), name), record)

		case RankingModePlatoon:
			// every downline's metrics roll into its upline's bucket
			key, name := noUplineKey, "No upline"
			if participant != nil && participant.UplineAgentId != nil && *participant.UplineAgentId > 0 {
				uplineId := *participant.UplineAgentId
				key = fmt.Sprint(uplineId)
				if upline := lookups.Participants[uplineId]; upline != nil {
					name = upline.Name
				} else {
					name = "Unknown participant " + fmt.Sprint(uplineId)
				}
			}
			addRecord(buckets.get(key, name), record)

		case RankingModeDepots:
			// dual-key fan-out: leads go to the leads depot's bucket,
			// payins and sales to the sales depot's bucket. One record can
			// touch two buckets, and a depot's leads total and sales total
			// come from disjoint contributions.
			leadsBucket := buckets.get(depotKey(record.LeadsDepotId), depotName(lookups.Depots, record.LeadsDepotId))
			leadsBucket.leads += record.Leads

			salesBucket := buckets.get(depotKey(record.SalesDepotId), depotName(lookups.Depots, record.SalesDepotId))
			salesBucket.payins += record.Payins
			salesBucket.sales = salesBucket.sales.Add(record.Sales)

		case RankingModeCommanders:
			// unresolved participants are dropped, no "unassigned" bucket
			if participant == nil || participant.CompanyId == 0 {
				continue
			}
			company := lookups.Companies[participant.CompanyId]
			if company == nil {
				continue
			}
			addRecord(buckets.get(fmt.Sprint(company.ID), company.Name), record)

		case RankingModeTeams:
			if participant == nil || participant.PlatoonId == 0 {
				continue
			}
			platoon := lookups.Platoons[participant.PlatoonId]
			if platoon == nil {
				continue
			}
			addRecord(buckets.get(fmt.Sprint(platoon.ID), platoon.Name), record)
		}
	}

	battleType := BattleTypeFor(mode, roleFilter)
	var cfg *models.FormulaConfig
	if formula != nil {
		cfg = &formula.Config
	}
	maxPoints := MaxAttainablePoints(battleType, cfg)

	rows := make([]*RankedGroup, 0, len(buckets.seq))
	for _, b := range buckets.seq {
		totals := MetricTotals{
			Leads:  float64(b.leads),
			Payins: float64(b.payins),
			Sales:  b.sales.InexactFloat64(),
		}
		rows = append(rows, &RankedGroup{
			Key:    b.key,
			Name:   b.name,
			Leads:  b.leads,
			Payins: b.payins,
			Sales:  b.sales,
			Points: ScoreTotal(battleType, totals, cfg),
		})
	}

	sortRanked(rows, mode, maxPoints)
	for i, row := range rows {
		row.Rank = i + 1
	}

	kpis := BattleKpis{
		TotalSales:       decimal.Zero,
		RecordCount:      len(records),
		GroupCount:       len(rows),
		ParticipantCount: len(participantsSeen),
	}
	for _, row := range rows {
		kpis.TotalLeads += row.Leads
		kpis.TotalPayins += row.Payins
		kpis.TotalSales = kpis.TotalSales.Add(row.Sales)
	}

	return &BattleReportResponse{
		Kpis: kpis,
		Rows: rows,
		Formula: FormulaInfo{
			BattleType: battleType,
			Missing:    formula == nil,
			Config:     cfg,
		},
	}
}

func addRecord(b *bucket, record *models.DailyRecord) {
	b.leads += record.Leads
	b.payins += record.Payins
	b.sales = b.sales.Add(record.Sales)
}

func depotKey(id int) string {
	if id == 0 {
		return unassignedDepotKey
	}
	return fmt.Sprint(id)
}

func depotName(depots map[int]*models.Depot, id int) string {
	if id == 0 {
		return "Unassigned"
	}
	if depot := depots[id]; depot != nil {
		return depot.Name
	}
	return "Unknown depot " + fmt.Sprint(id)
}

// sortRanked orders buckets by points, then the mode's tiebreak chain, then
// insertion order (stable sort). For depots, a bucket that already reached
// the formula's cap ranks ahead on LOWER sales: extra volume past the cap
// must not outrank a depot hitting the same cap with less.
func sortRanked(rows []*RankedGroup, mode RankingMode, maxPoints float64) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if mode == RankingModeDepots {
			if !a.Sales.Equal(b.Sales) {
				if maxPoints > 0 && a.Points >= maxPoints-1e-9 {
					return a.Sales.LessThan(b.Sales)
				}
				return a.Sales.GreaterThan(b.Sales)
			}
			if a.Leads != b.Leads {
				return a.Leads > b.Leads
			}
			if a.Payins != b.Payins {
				return a.Payins > b.Payins
			}
			return false
		}
		if a.Payins != b.Payins {
			return a.Payins > b.Payins
		}
		if !a.Sales.Equal(b.Sales) {
			return a.Sales.GreaterThan(b.Sales)
		}
		if a.Leads != b.Leads {
			return a.Leads > b.Leads
		}
		return false
	})
}

// GetBattleReport fetches the snapshot (company-source records plus the
// lookup tables), resolves the active formula for the requested week and
// runs the aggregation. Results are cached briefly since the public
// leaderboard polls this.
func GetBattleReport(ctx context.Context, mode string, roleFilter *string, fromDate time.Time, toDate time.Time) (*BattleReportResponse, error) {

	started := time.Now()

	rankingMode, err := ParseRankingMode(mode)
	if err != nil {
		return nil, err
	}
	var role *models.ParticipantRole
	if roleFilter != nil && len(*roleFilter) > 0 {
		parsed, err := models.ParseParticipantRole(*roleFilter)
		if err != nil {
			return nil, err
		}
		role = &parsed
	}

	weekKey := utils.WeekKeyOf(fromDate)

	cacheKey := fmt.Sprintf("report:battle:%s:%s:%s:%s",
		rankingMode, utils.DereferencePtr(roleFilter),
		fromDate.Format("2006-01-02"), toDate.Format("2006-01-02"))
	if reportCacheEnabled() {
		var cached BattleReportResponse
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	source := string(models.RecordSourceCompany)
	records, err := models.GetDailyRecords(ctx, fromDate, toDate, nil, &source)
	if err != nil {
		return nil, err
	}

	lookups := Lookups{}
	if lookups.Participants, err = models.GetParticipantMap(ctx); err != nil {
		return nil, err
	}
	if lookups.Depots, err = models.GetDepotMap(ctx); err != nil {
		return nil, err
	}
	if lookups.Companies, err = models.GetCompanyMap(ctx); err != nil {
		return nil, err
	}
	if lookups.Platoons, err = models.GetPlatoonMap(ctx); err != nil {
		return nil, err
	}

	battleType := BattleTypeFor(rankingMode, role)
	formula, err := models.GetActiveFormula(ctx, battleType, weekKey)
	if err != nil {
		return nil, err
	}

	response := AggregateRankings(records, rankingMode, role, formula, lookups)
	response.Formula.WeekKey = weekKey

	if reportCacheEnabled() {
		if err := cacheSet(cacheKey, response, reportCacheTTL()); err != nil {
			logger := config.GetLogger()
			config.LogError(logger, "battleReport.go", "GetBattleReport", "cacheSet", cacheKey, err)
		}
	}

	logSlowReport(ctx, "battle", started, map[string]any{"mode": mode, "rows": len(response.Rows)})
	return response, nil
}
