package timeseries

import (
	"fmt"
	"sort"
	"time"

	"github.com/chrissnell/groundwatch/internal/types"
)

// Filter returns the records that belong to one of stationIDs and whose
// timestamp lies within [start, end], both bounds inclusive. An empty
// stationIDs selects every station. The result is ordered by timestamp and
// then by station id; the input slice is left untouched.
func Filter(records []types.Record, stationIDs []string, start, end time.Time) ([]types.Record, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	var wanted map[string]struct{}
	if len(stationIDs) > 0 {
		wanted = make(map[string]struct{}, len(stationIDs))
		for _, id := range stationIDs {
			wanted[id] = struct{}{}
		}
	}

	out := make([]types.Record, 0)
	for _, r := range records {
		if wanted != nil {
			if _, ok := wanted[r.StationID]; !ok {
				continue
			}
		}
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}

	SortSeries(out)
	return out, nil
}

// SortSeries orders records in place by timestamp, then station id. Records
// with equal keys keep their relative order.
func SortSeries(records []types.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.StationID < b.StationID
	})
}

// StationIDs returns the distinct station ids found in records, sorted.
func StationIDs(records []types.Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.StationID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
