// Package catalog builds the read-only station lookup from location records.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/chrissnell/groundwatch/internal/types"
)

// Exclusion names a station left out of the catalog and why.
type Exclusion struct {
	StationID string `json:"station_id"`
	Reason    string `json:"reason"`
}

// Catalog maps station ids to stations. It is never modified after Build;
// a newer dataset produces a new Catalog.
type Catalog struct {
	stations map[string]types.Station
	ids      []string

	excluded []Exclusion
	warnings []types.Warning
}

// Build creates a Catalog from records. When a station id occurs more than
// once the last record in input order wins, including when that record's
// coordinates are unusable. Stations whose coordinates are missing,
// non-numeric or outside the valid range are excluded and reported.
func Build(records []types.LocationRecord) *Catalog {
	latest := make(map[string]types.LocationRecord, len(records))
	blank := 0
	for _, r := range records {
		id := strings.TrimSpace(r.StationID)
		if id == "" {
			blank++
			continue
		}
		r.StationID = id
		latest[id] = r
	}

	c := &Catalog{
		stations: make(map[string]types.Station, len(latest)),
		excluded: make([]Exclusion, 0),
		warnings: make([]types.Warning, 0),
	}

	for id, r := range latest {
		st, err := toStation(r)
		if err != nil {
			c.excluded = append(c.excluded, Exclusion{StationID: id, Reason: err.Error()})
			continue
		}
		c.stations[id] = st
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)
	sort.Slice(c.excluded, func(i, j int) bool {
		return c.excluded[i].StationID < c.excluded[j].StationID
	})

	if len(c.excluded) > 0 {
		ids := make([]string, len(c.excluded))
		for i, e := range c.excluded {
			ids[i] = e.StationID
		}
		c.warnings = append(c.warnings, types.Warning{
			Code:       types.WarnExcludedStations,
			Message:    fmt.Sprintf("%d station(s) excluded because of missing or invalid coordinates", len(ids)),
			StationIDs: ids,
		})
	}
	if blank > 0 {
		c.warnings = append(c.warnings, types.Warning{
			Code:    types.WarnSkippedRows,
			Message: fmt.Sprintf("%d location row(s) without a station id were ignored", blank),
		})
	}

	return c
}

func toStation(r types.LocationRecord) (types.Station, error) {
	lat, err := parseCoordinate("latitude", r.Latitude, 90)
	if err != nil {
		return types.Station{}, err
	}
	lon, err := parseCoordinate("longitude", r.Longitude, 180)
	if err != nil {
		return types.Station{}, err
	}

	st := types.Station{
		StationID:   r.StationID,
		DisplayName: strings.TrimSpace(r.DisplayName),
		Latitude:    lat,
		Longitude:   lon,
	}
	if st.DisplayName == "" {
		st.DisplayName = r.StationID
	}
	if e, err := strconv.ParseFloat(strings.TrimSpace(r.Elevation), 64); err == nil && !math.IsNaN(e) && !math.IsInf(e, 0) {
		st.Elevation = &e
	}
	return st, nil
}

func parseCoordinate(name, raw string, limit float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-numeric %s %q", name, raw)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%s %v out of range", name, v)
	}
	return v, nil
}

// Get looks up a station by id.
func (c *Catalog) Get(id string) (types.Station, bool) {
	st, ok := c.stations[id]
	return st, ok
}

// Len returns the number of stations in the catalog.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// IDs returns the station ids in ascending order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Stations returns every station ordered by id.
func (c *Catalog) Stations() []types.Station {
	out := make([]types.Station, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.stations[id])
	}
	return out
}

// Excluded lists the stations left out of the catalog, ordered by id.
func (c *Catalog) Excluded() []Exclusion {
	out := make([]Exclusion, len(c.excluded))
	copy(out, c.excluded)
	return out
}

// Warnings returns the data quality warnings raised while building.
func (c *Catalog) Warnings() []types.Warning {
	out := make([]types.Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}
