package opendata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chrissnell/groundwatch/internal/observability"
	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/chrissnell/groundwatch/pkg/config"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const exportPath = "/api/explore/v2.1/catalog/datasets/100164/exports/csv"

var groundwaterColumns = config.ColumnData{
	Timestamp:   "timestamp",
	StationID:   "stationnr",
	StationName: "stationname",
	Value:       "value",
	Latitude:    "lat",
	Longitude:   "lon",
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(config.PortalData{
		BaseURL:        baseURL,
		Timezone:       "Europe/Zurich",
		Lang:           "de",
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		StationIDWidth: 10,
	}, observability.NewMetricsForTesting(), zap.NewNop().Sugar())
	require.NoError(t, err)
	c.retryInterval = time.Millisecond
	c.SetClock(clockwork.NewFakeClockAt(time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)))
	return c
}

func TestFetchDatasetByYear(t *testing.T) {
	var (
		mu     sync.Mutex
		wheres []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, exportPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "de", q.Get("lang"))
		assert.Equal(t, "Europe/Zurich", q.Get("timezone"))
		assert.Equal(t, "false", q.Get("use_labels"))
		assert.Equal(t, ";", q.Get("delimiter"))
		assert.Equal(t, "timestamp,stationnr,stationname,value,lat,lon", q.Get("select"))
		mu.Lock()
		wheres = append(wheres, q.Get("where"))
		mu.Unlock()

		switch {
		case strings.Contains(q.Get("where"), "'2020-01-01'"):
			fmt.Fprint(w, "\xef\xbb\xbftimestamp;stationnr;stationname;value;lat;lon\n"+
				"2020-03-01T10:00:00+01:00;1234;Kleinhüningen;254.31;47.586;7.593\n"+
				"2020-03-01T22:00:00+01:00;1234;Kleinhüningen;254.35;47.586;7.593\n"+
				"2020-03-02T10:00:00+01:00;55;Lange Erlen;not-a-number;47.58;7.62\n")
		case strings.Contains(q.Get("where"), "'2021-01-01'"):
			fmt.Fprint(w, "timestamp;stationnr;stationname;value;lat;lon\n"+
				"2021-01-01T00:30:00+01:00;55;Lange Erlen;260.0;47.59;7.63\n")
		default:
			fmt.Fprint(w, "timestamp;stationnr;stationname;value;lat;lon\n")
		}
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	table, err := c.FetchDataset(context.Background(), config.DatasetData{
		Kind:      "groundwater_level",
		ID:        "100164",
		StartYear: 2019,
		Columns:   groundwaterColumns,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"timestamp >= '2019-01-01' and timestamp < '2020-01-01'",
		"timestamp >= '2020-01-01' and timestamp < '2021-01-01'",
		"timestamp >= '2021-01-01' and timestamp < '2022-01-01'",
	}, wheres)

	assert.Equal(t, types.GroundwaterLevel, table.Kind)
	require.Len(t, table.Records, 3)
	assert.Equal(t, "0000001234", table.Records[0].StationID)
	assert.Equal(t, 254.31, table.Records[0].Value)
	assert.Equal(t, "Europe/Zurich", table.Records[0].Timestamp.Location().String())
	assert.Equal(t, 1, table.Records[2].Timestamp.Day())
	assert.Equal(t, 2021, table.Records[2].Timestamp.Year())

	require.Len(t, table.Locations, 2)
	assert.Equal(t, "0000000055", table.Locations[1].StationID)
	assert.Equal(t, "47.59", table.Locations[1].Latitude)

	require.Len(t, table.Warnings, 1)
	assert.Equal(t, types.WarnSkippedRows, table.Warnings[0].Code)
}

func TestFetchDatasetEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "timestamp;stationnr;stationname;value;lat;lon\n")
	}))
	defer srv.Close()

	table, err := testClient(t, srv.URL).FetchDataset(context.Background(), config.DatasetData{
		Kind: "groundwater_level", ID: "100164", StartYear: 2021, Columns: groundwaterColumns,
	})
	require.NoError(t, err)
	assert.Empty(t, table.Records)
	require.Len(t, table.Warnings, 1)
	assert.Equal(t, types.WarnEmptyDataset, table.Warnings[0].Code)
}

func TestFetchBoreholeDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("where"))
		fmt.Fprint(w, "bohrung;name;lat;lon\n7;Alpha;47.5;7.6\n7;Alpha neu;47.51;7.61\n8;Beta;;7.6\n")
	}))
	defer srv.Close()

	table, err := testClient(t, srv.URL).FetchDataset(context.Background(), config.DatasetData{
		Kind: "borehole",
		ID:   "100182",
		Columns: config.ColumnData{
			StationID: "bohrung", StationName: "name", Latitude: "lat", Longitude: "lon",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, table.Records)
	require.Len(t, table.Locations, 3)
	assert.Equal(t, "Alpha neu", table.Locations[1].DisplayName)
	assert.Equal(t, "0000000008", table.Locations[2].StationID)
	assert.Empty(t, table.Locations[2].Latitude)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "timestamp;stationnr;value\n2021-02-01T00:00:00+01:00;1;1.5\n")
	}))
	defer srv.Close()

	table, err := testClient(t, srv.URL).FetchDataset(context.Background(), config.DatasetData{
		Kind: "groundwater_level", ID: "100164", StartYear: 2021, Columns: groundwaterColumns,
	})
	require.NoError(t, err)
	assert.Len(t, table.Records, 1)
	assert.Empty(t, table.Locations)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unknown dataset", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchDataset(context.Background(), config.DatasetData{
		Kind: "groundwater_level", ID: "100164", StartYear: 2021, Columns: groundwaterColumns,
	})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "year 2021")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchDataset(context.Background(), config.DatasetData{
		Kind: "groundwater_level", ID: "100164", StartYear: 2021, Columns: groundwaterColumns,
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchMissingColumns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "timestamp;value\n2021-01-01;1\n")
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchDataset(context.Background(), config.DatasetData{
		Kind: "groundwater_level", ID: "100164", StartYear: 2021, Columns: groundwaterColumns,
	})
	assert.ErrorContains(t, err, `"stationnr"`)
}

func TestDatasetInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/explore/v2.1/catalog/datasets/100164", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"dataset_id": "100164",
			"metas": {"default": {"title": "Grundwasserstände", "modified": "2024-05-01T08:00:00+00:00", "records_count": 123456, "publisher": "AUE"}},
			"fields": [{"name": "timestamp", "type": "datetime", "label": "Zeitstempel"}, {"name": "value", "type": "double"}]
		}`)
	}))
	defer srv.Close()

	info, err := testClient(t, srv.URL).DatasetInfo(context.Background(), "100164")
	require.NoError(t, err)
	assert.Equal(t, "100164", info.DatasetID)
	assert.Equal(t, "Grundwasserstände", info.Title)
	assert.Equal(t, int64(123456), info.RecordsCount)
	assert.Equal(t, "AUE", info.Publisher)
	require.Len(t, info.Fields, 2)
	assert.Equal(t, "double", info.Fields[1].Type)
}

func TestPadStationID(t *testing.T) {
	tests := []struct {
		in       string
		width    int
		expected string
	}{
		{"123", 10, "0000000123"},
		{" 123 ", 5, "00123"},
		{"12345678901", 10, "12345678901"},
		{"", 10, ""},
		{"7", 0, "7"},
	}

	for _, tt := range tests {
		if got := PadStationID(tt.in, tt.width); got != tt.expected {
			t.Errorf("PadStationID(%q, %d) = %q, expected %q", tt.in, tt.width, got, tt.expected)
		}
	}
}
