package timeseries

import (
	"sort"

	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/shopspring/decimal"
)

// MissingCell marks a month without readings in a MonthlyTable.
const MissingCell = "-"

// MonthNames are the column headers of a MonthlyTable.
var MonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthlyTable holds one station's monthly means, one row per year.
type MonthlyTable struct {
	StationID string       `json:"station_id"`
	Months    [12]string   `json:"months"`
	Rows      []MonthlyRow `json:"rows"`
}

// MonthlyRow is a year of monthly means formatted with two decimals.
type MonthlyRow struct {
	Year   int        `json:"year"`
	Values [12]string `json:"values"`
}

type monthCell struct {
	sum   decimal.Decimal
	count int64
}

// MonthlyMeans builds the year-by-month table of mean values for stationID.
// Rows are ordered by ascending year; months without data hold MissingCell.
func MonthlyMeans(series []types.Record, stationID string) MonthlyTable {
	cells := make(map[int]*[12]monthCell)
	for _, r := range series {
		if r.StationID != stationID {
			continue
		}
		year := r.Timestamp.Year()
		row, ok := cells[year]
		if !ok {
			row = &[12]monthCell{}
			cells[year] = row
		}
		c := &row[r.Timestamp.Month()-1]
		c.sum = c.sum.Add(decimal.NewFromFloat(r.Value))
		c.count++
	}

	years := make([]int, 0, len(cells))
	for y := range cells {
		years = append(years, y)
	}
	sort.Ints(years)

	table := MonthlyTable{StationID: stationID, Months: MonthNames, Rows: make([]MonthlyRow, 0, len(years))}
	for _, y := range years {
		row := MonthlyRow{Year: y}
		for m, c := range cells[y] {
			if c.count == 0 {
				row.Values[m] = MissingCell
				continue
			}
			row.Values[m] = c.sum.Div(decimal.NewFromInt(c.count)).StringFixed(2)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
