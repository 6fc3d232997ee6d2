package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chrissnell/groundwatch/internal/catalog"
	"github.com/chrissnell/groundwatch/internal/dashboard"
	"github.com/chrissnell/groundwatch/internal/timeseries"
)

type report struct {
	Title     string
	View      dashboard.View
	Loc       *time.Location
	Catalog   *catalog.Catalog
	Summaries []timeseries.Summary
	Monthly   *timeseries.MonthlyTable
}

func writeReport(out io.Writer, rep report) error {
	if rep.Loc == nil {
		rep.Loc = time.UTC
	}
	p := rep.View.Params

	fmt.Fprintln(out, rep.Title)
	fmt.Fprintf(out, "Dataset %s, %s to %s, %s by %s", p.Dataset,
		p.Start.In(rep.Loc).Format(dashboard.DateLayout), p.End.In(rep.Loc).Format(dashboard.DateLayout),
		p.Statistic, p.Granularity)
	if p.Daily {
		fmt.Fprint(out, ", daily means")
	}
	fmt.Fprintln(out)

	if rep.Catalog != nil {
		fmt.Fprintf(out, "\nStations: %d in catalog, %d excluded\n", rep.Catalog.Len(), len(rep.Catalog.Excluded()))
		for _, ex := range rep.Catalog.Excluded() {
			fmt.Fprintf(out, "  %s  %s\n", ex.StationID, ex.Reason)
		}
	}

	if len(rep.View.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range rep.View.Warnings {
			fmt.Fprintf(out, "  [%s] %s\n", w.Code, w.Message)
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	if len(rep.Summaries) > 0 {
		fmt.Fprintln(tw, "\nSTATION\tNAME\tREADINGS\tYEARS\tMIN\tMAX\tMEAN\tTREND/YR")
		for _, s := range rep.Summaries {
			name := ""
			if rep.Catalog != nil {
				if st, ok := rep.Catalog.Get(s.StationID); ok {
					name = st.DisplayName
				}
			}
			trend := "-"
			if s.TrendPerYear != nil {
				trend = fmt.Sprintf("%+.3f", *s.TrendPerYear)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d-%d\t%.2f\t%.2f\t%.2f\t%s\n",
				s.StationID, name, s.Count, s.FirstYear, s.LastYear, s.MinValue, s.MaxValue, s.Mean, trend)
		}
	}

	if len(rep.View.Patterns) > 0 {
		fmt.Fprintf(tw, "\nAnnual pattern (%s by %s)\n", p.Statistic, p.Granularity)
		writePatternTable(tw, rep.View.Patterns)
	}

	if rep.Monthly != nil {
		fmt.Fprintf(tw, "\nMonthly means for station %s\n", rep.Monthly.StationID)
		fmt.Fprintf(tw, "YEAR\t%s\n", strings.Join(rep.Monthly.Months[:], "\t"))
		for _, row := range rep.Monthly.Rows {
			fmt.Fprintf(tw, "%d\t%s\n", row.Year, strings.Join(row.Values[:], "\t"))
		}
	}

	return tw.Flush()
}

// writePatternTable pivots patterns into one row per calendar key and one
// column per station.
func writePatternTable(w io.Writer, patterns []timeseries.AnnualPattern) {
	type row struct {
		label  string
		values map[string]float64
	}

	rows := make(map[int]*row)
	stations := make(map[string]struct{})
	for _, pt := range patterns {
		r, ok := rows[pt.CalendarKey.Ordinal]
		if !ok {
			r = &row{label: pt.Label, values: make(map[string]float64)}
			rows[pt.CalendarKey.Ordinal] = r
		}
		r.values[pt.StationID] = pt.Value
		stations[pt.StationID] = struct{}{}
	}

	ids := make([]string, 0, len(stations))
	for id := range stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ordinals := make([]int, 0, len(rows))
	for o := range rows {
		ordinals = append(ordinals, o)
	}
	sort.Ints(ordinals)

	fmt.Fprintf(w, "KEY\t%s\n", strings.Join(ids, "\t"))
	for _, o := range ordinals {
		r := rows[o]
		cells := make([]string, len(ids))
		for i, id := range ids {
			if v, ok := r.values[id]; ok {
				cells[i] = fmt.Sprintf("%.2f", v)
			} else {
				cells[i] = timeseries.MissingCell
			}
		}
		fmt.Fprintf(w, "%s\t%s\n", r.label, strings.Join(cells, "\t"))
	}
}
