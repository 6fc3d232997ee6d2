package types

import (
	"fmt"
	"time"
)

// DatasetKind identifies which of the open datasets a record came from.
type DatasetKind string

const (
	GroundwaterLevel DatasetKind = "groundwater_level"
	Precipitation    DatasetKind = "precipitation"
	Borehole         DatasetKind = "borehole"
)

// DatasetKinds lists every supported kind in a stable order.
var DatasetKinds = []DatasetKind{GroundwaterLevel, Precipitation, Borehole}

// ParseDatasetKind converts a configuration or query value into a DatasetKind
func ParseDatasetKind(s string) (DatasetKind, error) {
	for _, k := range DatasetKinds {
		if DatasetKind(s) == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown dataset kind %q, expected one of %v", s, DatasetKinds)
}

// IsTimeSeries reports whether records of this kind carry timestamped values.
// Borehole datasets only describe station locations.
func (k DatasetKind) IsTimeSeries() bool {
	return k == GroundwaterLevel || k == Precipitation
}

// Record is a single timestamped measurement. Records are never modified
// after the fetch layer produces them.
type Record struct {
	StationID string      `json:"station_id"`
	Timestamp time.Time   `json:"timestamp"`
	Value     float64     `json:"value"`
	Kind      DatasetKind `json:"kind"`
}

// LocationRecord carries a station's descriptive columns exactly as the
// portal delivered them. Coordinates stay as text so that the catalog can
// tell a missing value from a malformed one.
type LocationRecord struct {
	StationID   string
	DisplayName string
	Latitude    string
	Longitude   string
	Elevation   string
}

// Table is the parsed content of one dataset fetch.
type Table struct {
	Kind      DatasetKind
	DatasetID string
	Records   []Record
	Locations []LocationRecord
	Warnings  []Warning
}

// Span returns the earliest and latest timestamps in the table. ok is false
// when the table holds no records.
func (t *Table) Span() (first, last time.Time, ok bool) {
	for i, r := range t.Records {
		if i == 0 || r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if i == 0 || r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return first, last, len(t.Records) > 0
}
