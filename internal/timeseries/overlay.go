package timeseries

import (
	"sort"

	"github.com/chrissnell/groundwatch/internal/types"
)

// OverlayPoint places a reading on a shared day-of-year axis so that
// several years of one station can be drawn on top of each other.
type OverlayPoint struct {
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	Date      string  `json:"date"`
	DayInYear int     `json:"day_in_year"`
	Value     float64 `json:"value"`
}

// YearOverlay returns the points of stationID that fall in one of years,
// ordered by year and day. An empty years selects all years.
func YearOverlay(series []types.Record, stationID string, years []int) []OverlayPoint {
	var wanted map[int]struct{}
	if len(years) > 0 {
		wanted = make(map[int]struct{}, len(years))
		for _, y := range years {
			wanted[y] = struct{}{}
		}
	}

	points := make([]OverlayPoint, 0)
	for _, r := range series {
		if r.StationID != stationID {
			continue
		}
		y := r.Timestamp.Year()
		if wanted != nil {
			if _, ok := wanted[y]; !ok {
				continue
			}
		}
		points = append(points, OverlayPoint{
			Year:      y,
			Month:     int(r.Timestamp.Month()),
			Date:      r.Timestamp.Format("2006-01-02"),
			DayInYear: r.Timestamp.YearDay(),
			Value:     r.Value,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Year != points[j].Year {
			return points[i].Year < points[j].Year
		}
		return points[i].DayInYear < points[j].DayInYear
	})
	return points
}

// ValueDomain returns [min-pad, max+pad] over the points, or nil when empty.
func ValueDomain(points []OverlayPoint, pad float64) []float64 {
	if len(points) == 0 {
		return nil
	}
	lo, hi := points[0].Value, points[0].Value
	for _, p := range points[1:] {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}
	return []float64{lo - pad, hi + pad}
}
