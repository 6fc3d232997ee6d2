// Package charts renders dashboard data as Vega-Lite specifications and
// GeoJSON documents that a browser front end can draw directly.
package charts

import (
	"fmt"

	"github.com/chrissnell/groundwatch/internal/timeseries"
)

const vegaLiteSchema = "https://vega.github.io/schema/vega-lite/v5.json"

// VegaSpecResponse wraps a chart specification for the API.
type VegaSpecResponse struct {
	VegaSpec map[string]any `json:"vega_spec"`
}

// OverlaySettings controls the year overlay chart.
type OverlaySettings struct {
	Title  string
	YTitle string
	// YDomain fixes the value axis. When nil the axis spans the data with
	// one unit of padding on each side.
	YDomain []float64
	Width   int
	Height  int
}

// YearOverlay draws one line per year against the day of the year.
func YearOverlay(points []timeseries.OverlayPoint, s OverlaySettings) map[string]any {
	if s.YDomain == nil {
		s.YDomain = timeseries.ValueDomain(points, 1)
	}
	if s.YTitle == "" {
		s.YTitle = "Grundwasserstand m ü. NN"
	}

	tickValues := make([]int, 0, 13)
	for d := 1; d < 366; d += 30 {
		tickValues = append(tickValues, d)
	}

	y := map[string]any{
		"field": "value",
		"type":  "quantitative",
		"title": s.YTitle,
	}
	if s.YDomain != nil {
		y["scale"] = map[string]any{"domain": s.YDomain}
	}

	return map[string]any{
		"$schema": vegaLiteSchema,
		"title":   s.Title,
		"width":   orDefault(s.Width, 1600),
		"height":  orDefault(s.Height, 400),
		"data":    map[string]any{"values": points},
		"mark":    "line",
		"encoding": map[string]any{
			"x": map[string]any{
				"field": "day_in_year",
				"type":  "quantitative",
				"title": "",
				"axis":  map[string]any{"values": tickValues, "labelAngle": 0},
			},
			"y": y,
			"color": map[string]any{
				"field": "year",
				"type":  "nominal",
				"title": "Jahr",
			},
			"tooltip": []map[string]any{
				{"field": "date", "type": "temporal", "title": "Datum"},
				{"field": "value", "type": "quantitative", "title": "Messwert", "format": ".2f"},
			},
		},
	}
}

// AnnualPatterns draws one line per station across the calendar keys.
func AnnualPatterns(patterns []timeseries.AnnualPattern, stat timeseries.Statistic, title string) map[string]any {
	labels := make([]string, 0)
	seen := make(map[string]bool)
	for _, p := range patterns {
		if !seen[p.Label] {
			seen[p.Label] = true
			labels = append(labels, p.Label)
		}
	}

	return map[string]any{
		"$schema": vegaLiteSchema,
		"title":   title,
		"width":   1600,
		"height":  400,
		"data":    map[string]any{"values": patterns},
		"mark":    map[string]any{"type": "line", "point": len(labels) <= 53},
		"encoding": map[string]any{
			"x": map[string]any{
				"field": "calendar_key.ordinal",
				"type":  "ordinal",
				"title": "",
				"axis":  map[string]any{"labelExpr": "datum.label"},
			},
			"y": map[string]any{
				"field": "value",
				"type":  "quantitative",
				"title": fmt.Sprintf("%s value", stat),
				"scale": map[string]any{"zero": false},
			},
			"color": map[string]any{
				"field": "station_id",
				"type":  "nominal",
				"title": "Station",
			},
			"tooltip": []map[string]any{
				{"field": "label", "type": "nominal", "title": "Key"},
				{"field": "value", "type": "quantitative", "format": ".2f"},
				{"field": "count", "type": "quantitative", "title": "Readings"},
			},
		},
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
