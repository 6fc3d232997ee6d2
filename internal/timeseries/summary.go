package timeseries

import (
	"sort"

	"github.com/chrissnell/groundwatch/internal/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the extent and spread of one station's series, or of
// all stations when StationID is empty.
type Summary struct {
	StationID string  `json:"station_id,omitempty"`
	Count     int     `json:"count"`
	Years     []int   `json:"years"`
	FirstYear int     `json:"first_year"`
	LastYear  int     `json:"last_year"`
	MinValue  float64 `json:"min_value"`
	MaxValue  float64 `json:"max_value"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	// TrendPerYear is the least-squares slope of the annual means. It is nil
	// when fewer than two years have data.
	TrendPerYear *float64 `json:"trend_per_year,omitempty"`
}

// Summarize computes a Summary over the records of stationID. An empty
// stationID summarises every record. ok is false when nothing matched.
func Summarize(series []types.Record, stationID string) (s Summary, ok bool) {
	var values []float64
	byYear := make(map[int][]float64)
	for _, r := range series {
		if stationID != "" && r.StationID != stationID {
			continue
		}
		values = append(values, r.Value)
		y := r.Timestamp.Year()
		byYear[y] = append(byYear[y], r.Value)
	}
	if len(values) == 0 {
		return Summary{StationID: stationID, Years: []int{}}, false
	}

	sort.Float64s(values)
	s = Summary{
		StationID: stationID,
		Count:     len(values),
		MinValue:  floats.Min(values),
		MaxValue:  floats.Max(values),
	}
	s.Mean = reduce(values, Mean)
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	s.FirstYear, s.LastYear = years[0], years[len(years)-1]

	if len(years) > 1 {
		xs := make([]float64, len(years))
		ys := make([]float64, len(years))
		for i, y := range years {
			xs[i] = float64(y)
			ys[i] = reduce(byYear[y], Mean)
		}
		_, slope := stat.LinearRegression(xs, ys, nil, false)
		s.TrendPerYear = &slope
	}

	s.Years = make([]int, len(years))
	for i, y := range years {
		s.Years[len(years)-1-i] = y
	}
	return s, true
}

// Years returns the years with at least one record for stationID, newest first.
func Years(series []types.Record, stationID string) []int {
	s, _ := Summarize(series, stationID)
	return s.Years
}
