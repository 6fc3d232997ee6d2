package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/groundwatch/internal/catalog"
	"github.com/chrissnell/groundwatch/internal/charts"
	"github.com/chrissnell/groundwatch/internal/dashboard"
	"github.com/chrissnell/groundwatch/internal/datasource"
	"github.com/chrissnell/groundwatch/internal/observability"
	"github.com/chrissnell/groundwatch/internal/opendata"
	"github.com/chrissnell/groundwatch/internal/timeseries"
	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/chrissnell/groundwatch/pkg/responseformat"
	"github.com/gorilla/mux"
	"github.com/gosimple/slug"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

func badRequest(err error) error {
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

// queryParams are the dashboard parameters accepted as single query values.
// Stations are collected separately from repeated station= values.
var queryParams = []dashboard.ParamName{
	dashboard.ParamDataset,
	dashboard.ParamStart,
	dashboard.ParamEnd,
	dashboard.ParamStatistic,
	dashboard.ParamGranularity,
	dashboard.ParamDaily,
}

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	ctx       context.Context
	deps      Deps
	defaults  dashboard.Params
	formatter *responseformat.Formatter
	logger    *zap.SugaredLogger
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctx context.Context, deps Deps, logger *zap.SugaredLogger) *Handlers {
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	defaults := dashboard.DefaultParams(deps.Dashboard)
	defaults.Stations = deps.Binding.Input().Stations(defaults.Stations)
	return &Handlers{
		ctx:       ctx,
		deps:      deps,
		defaults:  defaults,
		formatter: responseformat.NewFormatter(),
		logger:    logger,
	}
}

type datasetStatus struct {
	Kind      types.DatasetKind     `json:"kind"`
	DatasetID string                `json:"dataset_id"`
	StartYear int                   `json:"start_year,omitempty"`
	Catalog   bool                  `json:"catalog"`
	Loaded    bool                  `json:"loaded"`
	Records   int                   `json:"records"`
	Locations int                   `json:"locations"`
	FetchedAt *time.Time            `json:"fetched_at,omitempty"`
	Warnings  []types.Warning       `json:"warnings,omitempty"`
	Info      *opendata.DatasetInfo `json:"info,omitempty"`
}

type seriesResponse struct {
	Params   dashboard.Params `json:"params"`
	Series   []types.Record   `json:"series"`
	Warnings []types.Warning  `json:"warnings"`
}

type patternsResponse struct {
	Params   dashboard.Params           `json:"params"`
	Patterns []timeseries.AnnualPattern `json:"patterns"`
	Warnings []types.Warning            `json:"warnings"`
}

type stationsResponse struct {
	Stations []types.Station     `json:"stations"`
	Excluded []catalog.Exclusion `json:"excluded"`
	Warnings []types.Warning     `json:"warnings"`
}

type stationResponse struct {
	Station  *types.Station      `json:"station,omitempty"`
	Dataset  types.DatasetKind   `json:"dataset"`
	Summary  *timeseries.Summary `json:"summary,omitempty"`
	Warnings []types.Warning     `json:"warnings"`
}

type dashboardRequest struct {
	Events []dashboard.ParamEvent `json:"events"`
}

// Health reports liveness
func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, map[string]string{"status": "ok"}, nil)
}

// GetDatasets lists the configured datasets and what is currently loaded.
// With info=true the portal metadata of each dataset is included.
func (h *Handlers) GetDatasets(w http.ResponseWriter, req *http.Request) {
	kinds := h.deps.Registry.Kinds()
	out := make([]datasetStatus, len(kinds))
	for i, kind := range kinds {
		out[i] = h.datasetStatus(kind)
	}

	withInfo, _ := strconv.ParseBool(req.URL.Query().Get("info"))
	if withInfo && h.deps.Portal != nil {
		eg, ctx := errgroup.WithContext(req.Context())
		for i := range out {
			i := i
			eg.Go(func() error {
				info, err := h.deps.Portal.DatasetInfo(ctx, out[i].DatasetID)
				if err != nil {
					return err
				}
				out[i].Info = info
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			h.writeError(w, req, err)
			return
		}
	}

	h.formatter.WriteResponse(w, req, out, nil)
}

// RefreshDataset re-fetches a dataset and replaces the loaded snapshot
func (h *Handlers) RefreshDataset(w http.ResponseWriter, req *http.Request) {
	kind, err := types.ParseDatasetKind(mux.Vars(req)["dataset"])
	if err != nil {
		h.writeError(w, req, fmt.Errorf("%w: %w", errNotFound, err))
		return
	}

	if _, err := h.deps.Registry.Refresh(req.Context(), kind); err != nil {
		h.writeError(w, req, err)
		return
	}

	if h.deps.Binding.Params().Dataset == kind {
		if _, err := h.deps.Binding.Reload(req.Context()); err != nil {
			h.logger.Warnw("dashboard reload after refresh failed", "dataset", kind, "error", err)
		}
	}

	h.formatter.WriteResponse(w, req, h.datasetStatus(kind), nil)
}

// GetStations returns the station catalog and the stations it had to leave out
func (h *Handlers) GetStations(w http.ResponseWriter, req *http.Request) {
	cat, err := h.deps.Registry.Catalog(req.Context())
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	h.formatter.WriteResponse(w, req, stationsResponse{
		Stations: cat.Stations(),
		Excluded: cat.Excluded(),
		Warnings: cat.Warnings(),
	}, nil)
}

// GetStation returns a station and a summary of its readings in the
// selected dataset and range
func (h *Handlers) GetStation(w http.ResponseWriter, req *http.Request) {
	station, view, err := h.stationView(req, "station")
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	id := h.stationID(req)
	resp := stationResponse{Station: station, Dataset: view.Params.Dataset, Warnings: view.Warnings}
	if s, ok := timeseries.Summarize(view.Series, id); ok {
		resp.Summary = &s
	}
	h.formatter.WriteResponse(w, req, resp, nil)
}

// GetStationMonthly returns the year by month table of mean values
func (h *Handlers) GetStationMonthly(w http.ResponseWriter, req *http.Request) {
	_, view, err := h.stationView(req, "monthly")
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.formatter.WriteResponse(w, req, timeseries.MonthlyMeans(view.Series, h.stationID(req)), nil)
}

// GetSeries returns the filtered series. format=csv downloads it as a file.
func (h *Handlers) GetSeries(w http.ResponseWriter, req *http.Request) {
	p, err := h.paramsFromQuery(req.URL.Query())
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	view, err := h.computeView(req.Context(), "series", p)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	if req.URL.Query().Get("format") == "csv" {
		h.writeSeriesCSV(w, view)
		return
	}

	h.formatter.WriteResponse(w, req, seriesResponse{
		Params:   view.Params,
		Series:   view.Series,
		Warnings: view.Warnings,
	}, nil)
}

// GetPatterns returns the annual patterns for the selected stations
func (h *Handlers) GetPatterns(w http.ResponseWriter, req *http.Request) {
	p, err := h.paramsFromQuery(req.URL.Query())
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	view, err := h.computeView(req.Context(), "patterns", p)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	h.formatter.WriteResponse(w, req, patternsResponse{
		Params:   view.Params,
		Patterns: view.Patterns,
		Warnings: view.Warnings,
	}, nil)
}

// GetOverlayChart returns a Vega-Lite spec that draws each year of one
// station on a shared day of year axis
func (h *Handlers) GetOverlayChart(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	p, err := h.paramsFromQuery(q)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	if len(p.Stations) != 1 {
		h.writeError(w, req, badRequest(errors.New("exactly one station is required")))
		return
	}
	id := p.Stations[0]

	years, err := parseYears(q.Get("years"))
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	domain, err := parseDomain(q.Get("ymin"), q.Get("ymax"))
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	view, err := h.computeView(req.Context(), "overlay", p)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	title := id
	if station, ok := h.lookupStation(req.Context(), id); ok {
		title = station.DisplayName
	}

	spec := charts.YearOverlay(timeseries.YearOverlay(view.Series, id, years), charts.OverlaySettings{
		Title:   title,
		YDomain: domain,
	})
	h.formatter.WriteResponse(w, req, charts.VegaSpecResponse{VegaSpec: spec}, nil)
}

// GetPatternChart returns a Vega-Lite spec for the annual patterns
func (h *Handlers) GetPatternChart(w http.ResponseWriter, req *http.Request) {
	p, err := h.paramsFromQuery(req.URL.Query())
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	view, err := h.computeView(req.Context(), "patterns", p)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	spec := charts.AnnualPatterns(view.Patterns, view.Params.Statistic, h.deps.Dashboard.Title)
	h.formatter.WriteResponse(w, req, charts.VegaSpecResponse{VegaSpec: spec}, nil)
}

// GetMap returns the station catalog as GeoJSON
func (h *Handlers) GetMap(w http.ResponseWriter, req *http.Request) {
	cat, err := h.deps.Registry.Catalog(req.Context())
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	body, err := charts.StationMap(cat.Stations(), req.URL.Query().Get("selected")).MarshalJSON()
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(body)
}

// paramsFromQuery applies the query values on top of the configured defaults
func (h *Handlers) paramsFromQuery(q url.Values) (dashboard.Params, error) {
	events := make([]dashboard.ParamEvent, 0, len(queryParams)+1)
	for _, name := range queryParams {
		if v, ok := q[string(name)]; ok && len(v) > 0 {
			events = append(events, dashboard.ParamEvent{Name: name, Value: v[0]})
		}
	}
	stations := append(append([]string(nil), q["station"]...), q[string(dashboard.ParamStations)]...)
	if joined := strings.Join(stations, ","); strings.TrimSpace(joined) != "" {
		events = append(events, dashboard.ParamEvent{Name: dashboard.ParamStations, Value: joined})
	}

	p := h.defaults
	for _, ev := range events {
		var err error
		p, err = p.Apply(ev, h.deps.Binding.Input())
		if err != nil {
			return dashboard.Params{}, badRequest(err)
		}
	}
	return p, nil
}

// computeView recomputes a view from the current snapshot and records how
// long that took under the given view label
func (h *Handlers) computeView(ctx context.Context, name string, p dashboard.Params) (dashboard.View, error) {
	snap, err := h.deps.Registry.Get(ctx, p.Dataset)
	if err != nil {
		return dashboard.View{}, err
	}

	timer := prometheus.NewTimer(h.deps.Metrics.RecomputeDuration.WithLabelValues(name))
	view, err := dashboard.Recompute(snap.Table, p)
	timer.ObserveDuration()
	if err != nil {
		h.deps.Metrics.RecomputeErrors.WithLabelValues(name).Inc()
		return dashboard.View{}, err
	}
	return view, nil
}

// stationView computes the view of the station named in the path. A station
// that is neither in the catalog nor in the dataset is not found.
func (h *Handlers) stationView(req *http.Request, name string) (*types.Station, dashboard.View, error) {
	id := h.stationID(req)
	p, err := h.paramsFromQuery(req.URL.Query())
	if err != nil {
		return nil, dashboard.View{}, err
	}
	p.Stations = []string{id}

	view, err := h.computeView(req.Context(), name, p)
	if err != nil {
		return nil, dashboard.View{}, err
	}

	var station *types.Station
	if st, ok := h.lookupStation(req.Context(), id); ok {
		station = &st
	}
	if station == nil && hasWarning(view.Warnings, types.WarnUnknownStations) {
		return nil, dashboard.View{}, fmt.Errorf("%w: station %s", errNotFound, id)
	}
	return station, view, nil
}

// stationID returns the station id in the path, padded like the ids in
// the records.
func (h *Handlers) stationID(req *http.Request) string {
	return opendata.PadStationID(mux.Vars(req)["id"], h.deps.Binding.Input().StationIDWidth)
}

// lookupStation finds id in the catalog. A catalog that cannot be loaded is
// treated as not containing the station.
func (h *Handlers) lookupStation(ctx context.Context, id string) (types.Station, bool) {
	cat, err := h.deps.Registry.Catalog(ctx)
	if err != nil {
		h.logger.Warnw("station catalog unavailable", "error", err)
		return types.Station{}, false
	}
	return cat.Get(id)
}

func (h *Handlers) datasetStatus(kind types.DatasetKind) datasetStatus {
	ds, _ := h.deps.Registry.Dataset(kind)
	st := datasetStatus{
		Kind:      kind,
		DatasetID: ds.ID,
		StartYear: ds.StartYear,
		Catalog:   kind == h.deps.Registry.CatalogKind(),
	}
	if snap := h.deps.Registry.Peek(kind); snap != nil {
		fetched := snap.FetchedAt
		st.Loaded = true
		st.FetchedAt = &fetched
		st.Records = len(snap.Table.Records)
		st.Locations = len(snap.Table.Locations)
		st.Warnings = snap.Table.Warnings
	}
	return st
}

func (h *Handlers) writeSeriesCSV(w http.ResponseWriter, view dashboard.View) {
	rows := make([][]string, len(view.Series))
	for i, r := range view.Series {
		rows[i] = []string{
			r.StationID,
			r.Timestamp.In(h.deps.Location).Format(time.RFC3339),
			strconv.FormatFloat(r.Value, 'f', -1, 64),
		}
	}

	name := slug.Make(fmt.Sprintf("%s %s %s",
		view.Params.Dataset,
		view.Params.Start.In(h.deps.Location).Format(dashboard.DateLayout),
		view.Params.End.In(h.deps.Location).Format(dashboard.DateLayout)))

	if err := h.formatter.WriteCSV(w, name+".csv", []string{"station_id", "timestamp", "value"}, rows); err != nil {
		h.logger.Errorw("error writing CSV export", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("request failed", "request_id", requestID(req), "path", req.URL.Path, "error", err)
	}
	h.formatter.WriteError(w, req, status, err)
}

// statusFor maps an error onto the HTTP status returned to the caller.
// Anything not caused by the request itself is an upstream portal failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, timeseries.ErrInvalidRange),
		errors.Is(err, timeseries.ErrUnsupportedStatistic),
		errors.Is(err, timeseries.ErrUnsupportedGranularity):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound),
		errors.Is(err, datasource.ErrUnknownDataset),
		opendata.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func hasWarning(warnings []types.Warning, code types.WarningCode) bool {
	for _, w := range warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func parseYears(s string) ([]int, error) {
	var years []int
	for _, part := range dashboard.SplitList(s) {
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, badRequest(fmt.Errorf("invalid year %q", part))
		}
		years = append(years, y)
	}
	return years, nil
}

// parseDomain reads an explicit value axis. Both bounds must be given.
func parseDomain(minRaw, maxRaw string) ([]float64, error) {
	if minRaw == "" && maxRaw == "" {
		return nil, nil
	}
	lo, errLo := strconv.ParseFloat(minRaw, 64)
	hi, errHi := strconv.ParseFloat(maxRaw, 64)
	if errLo != nil || errHi != nil || lo >= hi {
		return nil, badRequest(fmt.Errorf("invalid value axis %q to %q", minRaw, maxRaw))
	}
	return []float64{lo, hi}, nil
}
