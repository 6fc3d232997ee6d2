package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrissnell/groundwatch/internal/datasource"
	"github.com/chrissnell/groundwatch/internal/timeseries"
	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/chrissnell/groundwatch/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	tables map[types.DatasetKind]*types.Table
}

func (s *staticSource) Get(_ context.Context, kind types.DatasetKind) (*datasource.Snapshot, error) {
	t, ok := s.tables[kind]
	if !ok {
		return nil, datasource.ErrUnknownDataset
	}
	return &datasource.Snapshot{Table: t}, nil
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func sampleTable() *types.Table {
	r := func(id string, ts time.Time, v float64) types.Record {
		return types.Record{StationID: id, Timestamp: ts, Value: v, Kind: types.GroundwaterLevel}
	}
	return &types.Table{
		Kind: types.GroundwaterLevel,
		Records: []types.Record{
			r("A", at(2019, 3, 1, 6), 1),
			r("A", at(2019, 3, 1, 18), 3),
			r("A", at(2020, 3, 1, 12), 6),
			r("B", at(2020, 3, 1, 12), 10),
			r("B", at(2020, 7, 1, 12), 12),
		},
	}
}

var utc = Input{Location: time.UTC}

type gatedSource struct {
	gate    chan struct{}
	started chan struct{}
	table   *types.Table
}

func (s *gatedSource) Get(ctx context.Context, _ types.DatasetKind) (*datasource.Snapshot, error) {
	close(s.started)
	select {
	case <-s.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &datasource.Snapshot{Table: s.table}, nil
}

func baseParams() Params {
	return DefaultParams(config.DashboardData{DefaultStatistic: "mean", DefaultGranularity: "month_day"})
}

func TestParamsApply(t *testing.T) {
	p := baseParams()

	next, err := p.Apply(ParamEvent{Name: ParamStations, Value: "B, A,,A"}, utc)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, next.Stations)
	assert.Empty(t, p.Stations)

	next, err = next.Apply(ParamEvent{Name: ParamEnd, Value: "2020-03-01"}, utc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 3, 1, 23, 59, 59, 999999999, time.UTC), next.End)

	next, err = next.Apply(ParamEvent{Name: ParamStart, Value: "2019-01-01"}, utc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), next.Start)

	next, err = next.Apply(ParamEvent{Name: ParamGranularity, Value: "month"}, utc)
	require.NoError(t, err)
	assert.Equal(t, timeseries.Month, next.Granularity)

	next, err = next.Apply(ParamEvent{Name: ParamDaily, Value: "false"}, utc)
	require.NoError(t, err)
	assert.False(t, next.Daily)
}

func TestParamsApplyRejects(t *testing.T) {
	tests := []struct {
		name string
		ev   ParamEvent
	}{
		{"unknown parameter", ParamEvent{Name: "colour", Value: "red"}},
		{"bad statistic", ParamEvent{Name: ParamStatistic, Value: "mode"}},
		{"bad granularity", ParamEvent{Name: ParamGranularity, Value: "season"}},
		{"bad date", ParamEvent{Name: ParamStart, Value: "01.03.2020"}},
		{"borehole dataset", ParamEvent{Name: ParamDataset, Value: "borehole"}},
		{"bad flag", ParamEvent{Name: ParamDaily, Value: "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			got, err := p.Apply(tt.ev, utc)
			assert.Error(t, err)
			assert.Equal(t, p, got)
		})
	}
}

func TestRecompute(t *testing.T) {
	p := baseParams()
	p.Stations = []string{"A"}

	view, err := Recompute(sampleTable(), p)
	require.NoError(t, err)

	require.Len(t, view.Series, 2)
	assert.Equal(t, 2.0, view.Series[0].Value)
	assert.Equal(t, 6.0, view.Series[1].Value)

	require.Len(t, view.Patterns, 1)
	assert.Equal(t, "03-01", view.Patterns[0].Label)
	assert.Equal(t, 4.0, view.Patterns[0].Value)
	assert.Empty(t, view.Warnings)

	assert.Equal(t, at(2019, 3, 1, 6), view.Params.Start)
	assert.Equal(t, at(2020, 7, 1, 12), view.Params.End)
}

func TestRecomputeWarnings(t *testing.T) {
	p := baseParams()
	p.Stations = []string{"Z"}

	view, err := Recompute(sampleTable(), p)
	require.NoError(t, err)
	assert.Empty(t, view.Series)
	assert.Empty(t, view.Patterns)

	codes := make([]types.WarningCode, 0, len(view.Warnings))
	for _, w := range view.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []types.WarningCode{types.WarnUnknownStations, types.WarnEmptyRange}, codes)
}

func TestRecomputeOpenRangeOutsideData(t *testing.T) {
	p := baseParams()
	p.Start = at(2030, 1, 1, 0)

	view, err := Recompute(sampleTable(), p)
	require.NoError(t, err)
	assert.Empty(t, view.Series)
	assert.Equal(t, p.Start, view.Params.End)
}

func TestRecomputeErrors(t *testing.T) {
	p := baseParams()
	p.Start = at(2021, 1, 1, 0)
	p.End = at(2020, 1, 1, 0)
	_, err := Recompute(sampleTable(), p)
	assert.ErrorIs(t, err, timeseries.ErrInvalidRange)

	p = baseParams()
	p.Statistic = "mode"
	_, err = Recompute(sampleTable(), p)
	assert.ErrorIs(t, err, timeseries.ErrUnsupportedStatistic)
}

func TestRecomputeEmptyTable(t *testing.T) {
	view, err := Recompute(&types.Table{Kind: types.GroundwaterLevel}, baseParams())
	require.NoError(t, err)
	assert.Empty(t, view.Series)
	require.NotEmpty(t, view.Warnings)
	assert.Equal(t, types.WarnEmptyRange, view.Warnings[len(view.Warnings)-1].Code)
}

func TestBindingDispatchNotifiesObservers(t *testing.T) {
	src := &staticSource{tables: map[types.DatasetKind]*types.Table{types.GroundwaterLevel: sampleTable()}}
	b := NewBinding(baseParams(), src, utc)

	var seen []View
	unsubscribe := b.Subscribe(func(v View) { seen = append(seen, v) })

	view, err := b.Dispatch(context.Background(), ParamEvent{Name: ParamStations, Value: "B"})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, view, seen[0])
	assert.Equal(t, []string{"B"}, b.Params().Stations)

	current, ok := b.View()
	require.True(t, ok)
	assert.Equal(t, view, current)

	unsubscribe()
	_, err = b.Dispatch(context.Background(), ParamEvent{Name: ParamStatistic, Value: "max"})
	require.NoError(t, err)
	assert.Len(t, seen, 1)
}

func TestBindingRejectedChangeLeavesStateUntouched(t *testing.T) {
	src := &staticSource{tables: map[types.DatasetKind]*types.Table{types.GroundwaterLevel: sampleTable()}}
	b := NewBinding(baseParams(), src, utc)

	notified := 0
	b.Subscribe(func(View) { notified++ })

	_, err := b.Dispatch(context.Background(),
		ParamEvent{Name: ParamStations, Value: "A"},
		ParamEvent{Name: ParamStart, Value: "2021-01-01"},
		ParamEvent{Name: ParamEnd, Value: "2020-01-01"},
	)
	assert.True(t, errors.Is(err, timeseries.ErrInvalidRange))
	assert.Equal(t, 0, notified)
	assert.Empty(t, b.Params().Stations)

	_, ok := b.View()
	assert.False(t, ok)
}

func TestBindingMultiEventDispatchIsAtomic(t *testing.T) {
	src := &staticSource{tables: map[types.DatasetKind]*types.Table{types.GroundwaterLevel: sampleTable()}}
	b := NewBinding(baseParams(), src, utc)

	_, err := b.Dispatch(context.Background(),
		ParamEvent{Name: ParamStart, Value: "2019-01-01"},
		ParamEvent{Name: ParamEnd, Value: "2019-12-31"},
	)
	require.NoError(t, err)

	var views []View
	b.Subscribe(func(v View) { views = append(views, v) })

	// Moving a window forward: start alone would pass the current end.
	view, err := b.Dispatch(context.Background(),
		ParamEvent{Name: ParamStart, Value: "2020-06-01"},
		ParamEvent{Name: ParamEnd, Value: "2020-12-31"},
	)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, view.Series, 1)
	assert.Equal(t, "B", view.Series[0].StationID)
}

func TestBindingReload(t *testing.T) {
	table := sampleTable()
	src := &staticSource{tables: map[types.DatasetKind]*types.Table{types.GroundwaterLevel: table}}
	b := NewBinding(baseParams(), src, utc)

	first, err := b.Reload(context.Background())
	require.NoError(t, err)

	src.tables[types.GroundwaterLevel] = &types.Table{Kind: types.GroundwaterLevel, Records: table.Records[:1]}
	second, err := b.Reload(context.Background())
	require.NoError(t, err)
	assert.Greater(t, len(first.Series), len(second.Series))
}

func TestParamsApplyPadsStationIDs(t *testing.T) {
	in := Input{Location: time.UTC, StationIDWidth: 10}

	next, err := baseParams().Apply(ParamEvent{Name: ParamStations, Value: "10, 0000000010,2145"}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"0000000010", "0000002145"}, next.Stations)

	next, err = baseParams().Apply(ParamEvent{Name: ParamStations, Value: "10"}, utc)
	require.NoError(t, err)
	assert.Equal(t, []string{"10"}, next.Stations)
}

func TestBindingReadsDoNotWaitForFetch(t *testing.T) {
	src := &gatedSource{gate: make(chan struct{}), started: make(chan struct{}), table: sampleTable()}
	b := NewBinding(baseParams(), src, utc)

	done := make(chan error, 1)
	go func() {
		_, err := b.Dispatch(context.Background(), ParamEvent{Name: ParamStations, Value: "A"})
		done <- err
	}()
	<-src.started

	params := make(chan Params, 1)
	go func() {
		_, _ = b.View()
		params <- b.Params()
	}()
	select {
	case p := <-params:
		assert.Empty(t, p.Stations)
	case <-time.After(time.Second):
		t.Fatal("reading the binding blocked on a fetch in progress")
	}

	close(src.gate)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"A"}, b.Params().Stations)
}

func TestBindingUnknownDataset(t *testing.T) {
	b := NewBinding(baseParams(), &staticSource{}, utc)
	_, err := b.Dispatch(context.Background(), ParamEvent{Name: ParamDataset, Value: "precipitation"})
	assert.ErrorIs(t, err, datasource.ErrUnknownDataset)
	assert.Equal(t, types.GroundwaterLevel, b.Params().Dataset)
}
