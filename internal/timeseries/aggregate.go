package timeseries

import (
	"fmt"
	"sort"

	"github.com/chrissnell/groundwatch/internal/types"
)

// Statistic names the reduction applied to each calendar group.
type Statistic string

const (
	Mean   Statistic = "mean"
	Min    Statistic = "min"
	Max    Statistic = "max"
	Median Statistic = "median"
)

// ParseStatistic validates a statistic name.
func ParseStatistic(s string) (Statistic, error) {
	switch Statistic(s) {
	case Mean, Min, Max, Median:
		return Statistic(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedStatistic, s)
}

// AnnualPattern is the statistic of one station's values that share a
// calendar key across all years of the input.
type AnnualPattern struct {
	StationID   string      `json:"station_id"`
	CalendarKey CalendarKey `json:"calendar_key"`
	Label       string      `json:"label"`
	Value       float64     `json:"value"`
	Count       int         `json:"count"`
}

type groupKey struct {
	stationID string
	ordinal   int
}

// Aggregate groups series by station and calendar key at granularity g and
// reduces every group with stat. Groups without values never appear in the
// output. The output is ordered by station id, then calendar ordinal, and is
// identical for any permutation of series.
func Aggregate(series []types.Record, stat Statistic, g Granularity) ([]AnnualPattern, error) {
	if _, err := ParseStatistic(string(stat)); err != nil {
		return nil, err
	}
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, err
	}

	groups := make(map[groupKey][]float64)
	for _, r := range series {
		key, err := KeyFor(r.Timestamp, g)
		if err != nil {
			return nil, err
		}
		gk := groupKey{stationID: r.StationID, ordinal: key.Ordinal}
		groups[gk] = append(groups[gk], r.Value)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].stationID != keys[j].stationID {
			return keys[i].stationID < keys[j].stationID
		}
		return keys[i].ordinal < keys[j].ordinal
	})

	patterns := make([]AnnualPattern, 0, len(keys))
	for _, k := range keys {
		values := groups[k]
		ck := CalendarKey{Granularity: g, Ordinal: k.ordinal}
		patterns = append(patterns, AnnualPattern{
			StationID:   k.stationID,
			CalendarKey: ck,
			Label:       ck.Label(),
			Value:       reduce(values, stat),
			Count:       len(values),
		})
	}
	return patterns, nil
}

// reduce applies stat to a non-empty group. The values are sorted first so
// that floating-point summation happens in the same order regardless of how
// the records arrived.
func reduce(values []float64, stat Statistic) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	switch stat {
	case Min:
		return sorted[0]
	case Max:
		return sorted[len(sorted)-1]
	case Median:
		return median(sorted)
	default:
		return sequentialSum(sorted) / float64(len(sorted))
	}
}

// sequentialSum adds values strictly left to right. Vectorised sums reorder
// the additions on some architectures and change the last bits of the result.
func sequentialSum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
