package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/groundwatch/internal/timeseries"
	"github.com/chrissnell/groundwatch/internal/types"
)

// View is everything a dashboard needs to draw for one parameter set.
type View struct {
	Params   Params                     `json:"params"`
	Series   []types.Record             `json:"series"`
	Patterns []timeseries.AnnualPattern `json:"patterns"`
	Warnings []types.Warning            `json:"warnings"`
}

// Recompute derives a View from table and p. It has no side effects: the
// same table and parameters always give the same view.
func Recompute(table *types.Table, p Params) (View, error) {
	if _, err := timeseries.ParseStatistic(string(p.Statistic)); err != nil {
		return View{}, err
	}
	if _, err := timeseries.ParseGranularity(string(p.Granularity)); err != nil {
		return View{}, err
	}

	view := View{Params: p, Warnings: make([]types.Warning, 0)}
	view.Warnings = append(view.Warnings, table.Warnings...)

	start, end := ResolveRange(table, p.Start, p.End)
	view.Params.Start, view.Params.End = start, end

	series, err := timeseries.Filter(table.Records, p.Stations, start, end)
	if err != nil {
		return View{}, err
	}
	if p.Daily {
		series = timeseries.DailyMeans(series)
	}

	patterns, err := timeseries.Aggregate(series, p.Statistic, p.Granularity)
	if err != nil {
		return View{}, err
	}
	view.Series = series
	view.Patterns = patterns

	if missing := missingStations(table.Records, p.Stations); len(missing) > 0 {
		view.Warnings = append(view.Warnings, types.Warning{
			Code:       types.WarnUnknownStations,
			Message:    fmt.Sprintf("no data for station(s) %s", strings.Join(missing, ", ")),
			StationIDs: missing,
		})
	}
	if len(series) == 0 {
		view.Warnings = append(view.Warnings, types.Warning{
			Code:    types.WarnEmptyRange,
			Message: "no records match the selected stations and date range",
		})
	}
	return view, nil
}

// ResolveRange fills a zero start or end from the table's first or last
// timestamp. An open side never ends up beyond the explicit one, so an open
// range over data that lies entirely outside it stays valid and matches
// nothing.
func ResolveRange(table *types.Table, start, end time.Time) (time.Time, time.Time) {
	first, last, ok := table.Span()
	if start.IsZero() {
		start = first
		if !ok || (!end.IsZero() && start.After(end)) {
			start = end
		}
	}
	if end.IsZero() {
		end = last
		if !ok || end.Before(start) {
			end = start
		}
	}
	return start, end
}

func missingStations(records []types.Record, wanted []string) []string {
	if len(wanted) == 0 {
		return nil
	}
	present := make(map[string]struct{})
	for _, r := range records {
		present[r.StationID] = struct{}{}
	}
	var missing []string
	for _, id := range wanted {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
