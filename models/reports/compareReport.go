package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/battles_backend/models"
)

type CompareStatus string

const (
	CompareStatusMatched        CompareStatus = "matched"
	CompareStatusMismatch       CompareStatus = "mismatch"
	CompareStatusMissingCompany CompareStatus = "missing_company"
	CompareStatusMissingDepot   CompareStatus = "missing_depot"
)

// CompareDelta is company minus depot, each metric signed.
type CompareDelta struct {
	LeadsDiff  int             `json:"leads_diff"`
	PayinsDiff int             `json:"payins_diff"`
	SalesDiff  decimal.Decimal `json:"sales_diff"`
}

// CompareRow pairs the company and depot observations of one
// (date, participant) and derives the publish gate.
type CompareRow struct {
	Date            time.Time           `json:"date"`
	ParticipantId   int                 `json:"participant_id"`
	ParticipantName string              `json:"participant_name"`
	Restricted      bool                `json:"restricted"`
	Company         *models.DailyRecord `json:"company"`
	Depot           *models.DailyRecord `json:"depot"`
	Status          CompareStatus       `json:"status"`
	Delta           *CompareDelta       `json:"delta"`

	// informational only: the two sources disagree on depot assignment
	LeadsDepotMismatch bool `json:"leads_depot_mismatch"`
	SalesDepotMismatch bool `json:"sales_depot_mismatch"`

	Approved    bool `json:"approved"`
	Publishable bool `json:"publishable"`
}

type compareKey struct {
	date          string
	participantId int
}

// CompareRows groups non-voided records by (date, participant), classifies
// each pair and derives publishability. Pure function over the snapshot:
// no hidden state, same input gives the same rows. A participant missing
// from the index marks the row restricted but never drops it.
func CompareRows(records []*models.DailyRecord, participants map[int]*models.Participant) []*CompareRow {

	groups := make(map[compareKey]*CompareRow)
	var order []compareKey

	for _, record := range records {
		key := compareKey{date: record.Date.Format("2006-01-02"), participantId: record.ParticipantId}
		row, ok := groups[key]
		if !ok {
			row = &CompareRow{
				Date:          record.Date,
				ParticipantId: record.ParticipantId,
			}
			groups[key] = row
			order = append(order, key)
		}
		// uniqueness is enforced upstream; last record wins if it isn't
		switch record.Source {
		case models.RecordSourceCompany:
			row.Company = record
		case models.RecordSourceDepot:
			row.Depot = record
		}
	}

	rows := make([]*CompareRow, 0, len(order))
	for _, key := range order {
		row := groups[key]

		if participant, ok := participants[row.ParticipantId]; ok {
			row.ParticipantName = participant.Name
		} else {
			// owning participant deleted or not visible to the caller
			row.Restricted = true
		}

		switch {
		case row.Company != nil && row.Depot != nil:
			if row.Company.Leads == row.Depot.Leads &&
				row.Company.Payins == row.Depot.Payins &&
				row.Company.Sales.Equal(row.Depot.Sales) {
				row.Status = CompareStatusMatched
			} else {
				row.Status = CompareStatusMismatch
			}
			row.Delta = &CompareDelta{
				LeadsDiff:  row.Company.Leads - row.Depot.Leads,
				PayinsDiff: row.Company.Payins - row.Depot.Payins,
				SalesDiff:  row.Company.Sales.Sub(row.Depot.Sales),
			}
			row.LeadsDepotMismatch = row.Company.LeadsDepotId != row.Depot.LeadsDepotId
			row.SalesDepotMismatch = row.Company.SalesDepotId != row.Depot.SalesDepotId
		case row.Company != nil:
			row.Status = CompareStatusMissingDepot
		default:
			row.Status = CompareStatusMissingCompany
		}

		// depot-side approval does not exist
		if row.Company != nil && row.Company.Approved != nil {
			row.Approved = *row.Company.Approved
		}

		// a depot-only observation can never be published without a
		// corroborating company record
		row.Publishable = row.Company != nil &&
			(row.Status == CompareStatusMatched || row.Approved)

		rows = append(rows, row)
	}

	return rows
}

// GetCompareReport fetches the non-voided records of both sources for the
// range and runs the compare over the snapshot.
func GetCompareReport(ctx context.Context, fromDate time.Time, toDate time.Time, participantId *int) ([]*CompareRow, error) {

	started := time.Now()

	records, err := models.GetDailyRecords(ctx, fromDate, toDate, participantId, nil)
	if err != nil {
		return nil, err
	}
	participants, err := models.GetParticipantMap(ctx)
	if err != nil {
		return nil, err
	}

	rows := CompareRows(records, participants)

	logSlowReport(ctx, "compare", started, map[string]any{"rows": len(rows)})
	return rows, nil
}
