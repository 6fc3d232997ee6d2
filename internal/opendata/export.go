package opendata

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/chrissnell/groundwatch/pkg/config"
)

// timestamp layouts accepted in exports, tried in order
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parser turns semicolon-separated exports into records and locations. A
// single parser is reused across the yearly chunks of one dataset.
type parser struct {
	kind    types.DatasetKind
	cols    config.ColumnData
	loc     *time.Location
	width   int
	skipped int

	// locations already added to the table, by station id
	seen map[string]int
}

func newParser(kind types.DatasetKind, cols config.ColumnData, loc *time.Location, width int) *parser {
	return &parser{
		kind:  kind,
		cols:  cols,
		loc:   loc,
		width: width,
		seen:  make(map[string]int),
	}
}

func (p *parser) selectClause() string {
	var fields []string
	for _, f := range []string{p.cols.Timestamp, p.cols.StationID, p.cols.StationName, p.cols.Value, p.cols.Latitude, p.cols.Longitude, p.cols.Elevation} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return strings.Join(fields, ",")
}

func (p *parser) parse(body []byte, table *types.Table) error {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	col := func(name string) int {
		if name == "" {
			return -1
		}
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}

	iStation := col(p.cols.StationID)
	iTime := col(p.cols.Timestamp)
	iValue := col(p.cols.Value)
	iName := col(p.cols.StationName)
	iLat := col(p.cols.Latitude)
	iLon := col(p.cols.Longitude)
	iElev := col(p.cols.Elevation)

	if iStation < 0 {
		return fmt.Errorf("export has no %q column", p.cols.StationID)
	}
	if p.kind.IsTimeSeries() && (iTime < 0 || iValue < 0) {
		return fmt.Errorf("export lacks %q or %q column", p.cols.Timestamp, p.cols.Value)
	}

	field := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				p.skipped++
				continue
			}
			return err
		}

		id := PadStationID(field(row, iStation), p.width)
		if id == "" {
			p.skipped++
			continue
		}

		if iLat >= 0 || iLon >= 0 {
			p.addLocation(table, types.LocationRecord{
				StationID:   id,
				DisplayName: field(row, iName),
				Latitude:    field(row, iLat),
				Longitude:   field(row, iLon),
				Elevation:   field(row, iElev),
			})
		}

		if !p.kind.IsTimeSeries() {
			continue
		}

		ts, err := p.parseTimestamp(field(row, iTime))
		if err != nil {
			p.skipped++
			continue
		}
		v, err := strconv.ParseFloat(field(row, iValue), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			p.skipped++
			continue
		}

		table.Records = append(table.Records, types.Record{
			StationID: id,
			Timestamp: ts,
			Value:     v,
			Kind:      p.kind,
		})
	}
	return nil
}

// addLocation keeps every row of location-only datasets so the catalog sees
// duplicates in order. Time-series exports repeat the location on every
// reading; those collapse to the most recent row per station, which is the
// row the catalog would keep anyway.
func (p *parser) addLocation(table *types.Table, lr types.LocationRecord) {
	if !p.kind.IsTimeSeries() {
		table.Locations = append(table.Locations, lr)
		return
	}
	if i, ok := p.seen[lr.StationID]; ok {
		table.Locations[i] = lr
		return
	}
	p.seen[lr.StationID] = len(table.Locations)
	table.Locations = append(table.Locations, lr)
}

func (p *parser) parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, p.loc)
		}
		if err == nil {
			return t.In(p.loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

// PadStationID left-pads a station id with zeros to width.
// Ids already at least width long are returned trimmed but unchanged.
func PadStationID(id string, width int) string {
	id = strings.TrimSpace(id)
	if id == "" || width <= 0 || len(id) >= width {
		return id
	}
	return strings.Repeat("0", width-len(id)) + id
}
