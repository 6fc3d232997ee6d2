// Package dashboard ties the user-facing parameters to recomputed views.
// A view is always computed from a complete parameter set; observers are
// told about every new view after the parameters that produced it are
// committed.
package dashboard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/groundwatch/internal/opendata"
	"github.com/chrissnell/groundwatch/internal/timeseries"
	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/chrissnell/groundwatch/pkg/config"
)

// DateLayout is the format of start and end dates in parameter events.
const DateLayout = "2006-01-02"

// ParamName identifies one dashboard parameter.
type ParamName string

const (
	ParamDataset     ParamName = "dataset"
	ParamStations    ParamName = "stations"
	ParamStart       ParamName = "start"
	ParamEnd         ParamName = "end"
	ParamStatistic   ParamName = "statistic"
	ParamGranularity ParamName = "granularity"
	ParamDaily       ParamName = "daily"
)

// ParamEvent carries a single parameter change as text, the way it arrives
// from a query string or a command line flag.
type ParamEvent struct {
	Name  ParamName `json:"name"`
	Value string    `json:"value"`
}

// Params is the full set of inputs to a view. A zero Start or End means the
// range is open on that side and is resolved against the data.
type Params struct {
	Dataset     types.DatasetKind      `json:"dataset"`
	Stations    []string               `json:"stations"`
	Start       time.Time              `json:"start"`
	End         time.Time              `json:"end"`
	Statistic   timeseries.Statistic   `json:"statistic"`
	Granularity timeseries.Granularity `json:"granularity"`
	Daily       bool                   `json:"daily"`
}

// DefaultParams builds the initial parameters from the dashboard settings.
func DefaultParams(d config.DashboardData) Params {
	return Params{
		Dataset:     types.GroundwaterLevel,
		Stations:    append([]string(nil), d.DefaultStations...),
		Statistic:   timeseries.Statistic(d.DefaultStatistic),
		Granularity: timeseries.Granularity(d.DefaultGranularity),
		Daily:       true,
	}
}

// Input says how the text of a ParamEvent is read.
type Input struct {
	// Location dates are interpreted in. Nil means UTC.
	Location *time.Location
	// StationIDWidth zero-pads station ids the way the fetch layer pads
	// them in records. Zero leaves ids as given.
	StationIDWidth int
}

func (in Input) location() *time.Location {
	if in.Location == nil {
		return time.UTC
	}
	return in.Location
}

// Apply returns a copy of p with ev applied. p itself is never changed.
// An end date covers that whole day.
func (p Params) Apply(ev ParamEvent, in Input) (Params, error) {
	loc := in.location()
	next := p
	next.Stations = append([]string(nil), p.Stations...)
	value := strings.TrimSpace(ev.Value)

	switch ev.Name {
	case ParamDataset:
		kind, err := types.ParseDatasetKind(value)
		if err != nil {
			return p, err
		}
		if !kind.IsTimeSeries() {
			return p, fmt.Errorf("dataset %s has no time series", kind)
		}
		next.Dataset = kind
	case ParamStations:
		next.Stations = in.Stations(strings.Split(value, ","))
	case ParamStart:
		t, err := ParseDate(value, loc, false)
		if err != nil {
			return p, err
		}
		next.Start = t
	case ParamEnd:
		t, err := ParseDate(value, loc, true)
		if err != nil {
			return p, err
		}
		next.End = t
	case ParamStatistic:
		s, err := timeseries.ParseStatistic(value)
		if err != nil {
			return p, err
		}
		next.Statistic = s
	case ParamGranularity:
		g, err := timeseries.ParseGranularity(value)
		if err != nil {
			return p, err
		}
		next.Granularity = g
	case ParamDaily:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return p, fmt.Errorf("invalid daily flag %q", value)
		}
		next.Daily = b
	default:
		return p, fmt.Errorf("unknown parameter %q", ev.Name)
	}
	return next, nil
}

// ParseDate parses a YYYY-MM-DD date in loc. With endOfDay the result is the
// last instant of that day so that an inclusive range covers it fully. An
// empty string yields the zero time.
func ParseDate(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

// Stations pads every id before dropping blanks and duplicates, so "10" and
// "0000000010" name one station.
func (in Input) Stations(ids []string) []string {
	padded := make([]string, len(ids))
	for i, id := range ids {
		padded[i] = opendata.PadStationID(id, in.StationIDWidth)
	}
	return SplitList(strings.Join(padded, ","))
}

// SplitList splits a comma-separated list, dropping blanks and duplicates.
// The result is sorted so equal selections compare equal.
func SplitList(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	sort.Strings(out)
	return out
}
