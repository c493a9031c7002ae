package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/battles_backend/models"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

func testDate(day int) time.Time {
	return time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
}

func compareRecord(participantId int, day int, source models.RecordSource, leads, payins int, sales string) *models.DailyRecord {
	return &models.DailyRecord{
		ParticipantId: participantId,
		Date:          testDate(day),
		Leads:         leads,
		Payins:        payins,
		Sales:         decimal.RequireFromString(sales),
		Source:        source,
		Voided:        utils.NewFalse(),
		Approved:      utils.NewFalse(),
	}
}

func testParticipants() map[int]*models.Participant {
	return map[int]*models.Participant{
		1: {ID: 1, Name: "Aye Aye", CompanyId: 1, PlatoonId: 1, Role: models.ParticipantRolePlatoon},
		2: {ID: 2, Name: "Ba Maw", CompanyId: 1, PlatoonId: 1, Role: models.ParticipantRoleSquad},
	}
}

func TestCompareRows_Classification(t *testing.T) {
	records := []*models.DailyRecord{
		// matched pair
		compareRecord(1, 1, models.RecordSourceCompany, 10, 2, "5000"),
		compareRecord(1, 1, models.RecordSourceDepot, 10, 2, "5000"),
		// mismatched pair
		compareRecord(2, 1, models.RecordSourceCompany, 12, 3, "7000"),
		compareRecord(2, 1, models.RecordSourceDepot, 10, 3, "6500"),
		// company only
		compareRecord(1, 2, models.RecordSourceCompany, 4, 1, "1000"),
		// depot only
		compareRecord(2, 2, models.RecordSourceDepot, 6, 0, "2000"),
	}

	rows := CompareRows(records, testParticipants())
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	expected := []CompareStatus{
		CompareStatusMatched,
		CompareStatusMismatch,
		CompareStatusMissingDepot,
		CompareStatusMissingCompany,
	}
	for i, status := range expected {
		if rows[i].Status != status {
			t.Fatalf("row %d expected status %s, got %s", i, status, rows[i].Status)
		}
	}
}

func TestCompareRows_DeltaIsCompanyMinusDepot(t *testing.T) {
	records := []*models.DailyRecord{
		compareRecord(1, 1, models.RecordSourceCompany, 12, 3, "7000"),
		compareRecord(1, 1, models.RecordSourceDepot, 10, 5, "6500"),
	}

	rows := CompareRows(records, testParticipants())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	delta := rows[0].Delta
	if delta == nil {
		t.Fatal("expected delta on paired row")
	}
	if delta.LeadsDiff != 2 {
		t.Fatalf("leads diff expected 2, got %d", delta.LeadsDiff)
	}
	if delta.PayinsDiff != -2 {
		t.Fatalf("payins diff expected -2, got %d", delta.PayinsDiff)
	}
	if !delta.SalesDiff.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("sales diff expected 500, got %s", delta.SalesDiff)
	}
}

func TestCompareRows_SingleSourceRowHasNoDelta(t *testing.T) {
	records := []*models.DailyRecord{
		compareRecord(1, 1, models.RecordSourceCompany, 4, 1, "1000"),
		compareRecord(2, 1, models.RecordSourceDepot, 6, 0, "2000"),
	}
	rows := CompareRows(records, testParticipants())
	for _, row := range rows {
		if row.Delta != nil {
			t.Fatalf("row %d/%s: delta must be nil when a source is missing", row.ParticipantId, row.Status)
		}
	}
}

func TestCompareRows_Publishability(t *testing.T) {
	approve := func(r *models.DailyRecord) *models.DailyRecord {
		r.Approved = utils.NewTrue()
		return r
	}

	cases := []struct {
		name        string
		records     []*models.DailyRecord
		publishable bool
	}{
		{
			"matched pair publishable",
			[]*models.DailyRecord{
				compareRecord(1, 1, models.RecordSourceCompany, 10, 2, "5000"),
				compareRecord(1, 1, models.RecordSourceDepot, 10, 2, "5000"),
			},
			true,
		},
		{
			"mismatch without approval blocked",
			[]*models.DailyRecord{
				compareRecord(1, 1, models.RecordSourceCompany, 12, 2, "5000"),
				compareRecord(1, 1, models.RecordSourceDepot, 10, 2, "5000"),
			},
			false,
		},
		{
			"mismatch with approval publishable",
			[]*models.DailyRecord{
				approve(compareRecord(1, 1, models.RecordSourceCompany, 12, 2, "5000")),
				compareRecord(1, 1, models.RecordSourceDepot, 10, 2, "5000"),
			},
			true,
		},
		{
			"company only without approval blocked",
			[]*models.DailyRecord{
				compareRecord(1, 1, models.RecordSourceCompany, 12, 2, "5000"),
			},
			false,
		},
		{
			"company only with approval publishable",
			[]*models.DailyRecord{
				approve(compareRecord(1, 1, models.RecordSourceCompany, 12, 2, "5000")),
			},
			true,
		},
		{
			"depot only never publishable",
			[]*models.DailyRecord{
				compareRecord(1, 1, models.RecordSourceDepot, 12, 2, "5000"),
			},
			false,
		},
	}

	for _, tc := range cases {
		rows := CompareRows(tc.records, testParticipants())
		if len(rows) != 1 {
			t.Fatalf("%s: expected 1 row, got %d", tc.name, len(rows))
		}
		if rows[0].Publishable != tc.publishable {
			t.Fatalf("%s: expected publishable=%v, got %v", tc.name, tc.publishable, rows[0].Publishable)
		}
	}
}

func TestCompareRows_UnknownParticipantIsRestrictedNotDropped(t *testing.T) {
	records := []*models.DailyRecord{
		compareRecord(99, 1, models.RecordSourceCompany, 10, 2, "5000"),
	}
	rows := CompareRows(records, testParticipants())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].Restricted {
		t.Fatal("row for unknown participant must be flagged restricted")
	}
	if rows[0].ParticipantName != "" {
		t.Fatalf("restricted row must not carry a name, got %q", rows[0].ParticipantName)
	}
}

func TestCompareRows_DepotAssignmentMismatchFlags(t *testing.T) {
	company := compareRecord(1, 1, models.RecordSourceCompany, 10, 2, "5000")
	company.LeadsDepotId = 1
	company.SalesDepotId = 2
	depot := compareRecord(1, 1, models.RecordSourceDepot, 10, 2, "5000")
	depot.LeadsDepotId = 3
	depot.SalesDepotId = 2

	rows := CompareRows([]*models.DailyRecord{company, depot}, testParticipants())
	row := rows[0]
	if !row.LeadsDepotMismatch {
		t.Fatal("expected leads depot mismatch flag")
	}
	if row.SalesDepotMismatch {
		t.Fatal("sales depots agree, flag must be false")
	}
	// depot assignment disagreement is informational, metrics still match
	if row.Status != CompareStatusMatched {
		t.Fatalf("expected matched, got %s", row.Status)
	}
}

func TestCompareRows_Deterministic(t *testing.T) {
	records := []*models.DailyRecord{
		compareRecord(2, 1, models.RecordSourceDepot, 6, 0, "2000"),
		compareRecord(1, 1, models.RecordSourceCompany, 10, 2, "5000"),
		compareRecord(1, 2, models.RecordSourceCompany, 4, 1, "1000"),
		compareRecord(1, 1, models.RecordSourceDepot, 10, 2, "5000"),
	}
	participants := testParticipants()

	first := CompareRows(records, participants)
	for i := 0; i < 10; i++ {
		again := CompareRows(records, participants)
		if len(again) != len(first) {
			t.Fatalf("row count changed between runs: %d vs %d", len(again), len(first))
		}
		for j := range first {
			if first[j].ParticipantId != again[j].ParticipantId ||
				!first[j].Date.Equal(again[j].Date) ||
				first[j].Status != again[j].Status {
				t.Fatalf("row %d changed between runs", j)
			}
		}
	}
}
