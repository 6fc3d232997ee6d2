package timeseries

import (
	"time"

	"github.com/chrissnell/groundwatch/internal/types"
)

type dayKey struct {
	stationID string
	year      int
	month     time.Month
	day       int
}

// DailyMeans collapses the readings of each station into one record per
// calendar day. The day is taken in each record's own location and the
// resulting timestamp is local midnight of that day.
func DailyMeans(series []types.Record) []types.Record {
	groups := make(map[dayKey][]float64)
	first := make(map[dayKey]types.Record)
	for _, r := range series {
		y, m, d := r.Timestamp.Date()
		k := dayKey{stationID: r.StationID, year: y, month: m, day: d}
		if _, ok := first[k]; !ok {
			first[k] = r
		}
		groups[k] = append(groups[k], r.Value)
	}

	out := make([]types.Record, 0, len(groups))
	for k, values := range groups {
		ref := first[k]
		out = append(out, types.Record{
			StationID: k.stationID,
			Timestamp: time.Date(k.year, k.month, k.day, 0, 0, 0, 0, ref.Timestamp.Location()),
			Value:     reduce(values, Mean),
			Kind:      ref.Kind,
		})
	}
	SortSeries(out)
	return out
}
