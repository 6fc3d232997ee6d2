// Package opendata fetches dataset exports from an Opendatasoft explore v2.1
// portal such as data.bs.ch.
package opendata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cenkalti/backoff/v4"
	"github.com/chrissnell/groundwatch/internal/constants"
	"github.com/chrissnell/groundwatch/internal/observability"
	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/chrissnell/groundwatch/pkg/config"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const apiPrefix = "/api/explore/v2.1/catalog/datasets/"

// Client downloads dataset exports and dataset metadata.
type Client struct {
	baseURL        string
	lang           string
	timezone       string
	loc            *time.Location
	stationIDWidth int
	maxRetries     int
	retryInterval  time.Duration
	httpClient     *http.Client
	clock          clockwork.Clock
	metrics        *observability.Metrics
	logger         *zap.SugaredLogger
}

// NewClient creates a portal client from the portal configuration.
func NewClient(portal config.PortalData, metrics *observability.Metrics, logger *zap.SugaredLogger) (*Client, error) {
	loc, err := time.LoadLocation(portal.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", portal.Timezone, err)
	}

	return &Client{
		baseURL:        strings.TrimRight(portal.BaseURL, "/"),
		lang:           portal.Lang,
		timezone:       portal.Timezone,
		loc:            loc,
		stationIDWidth: portal.StationIDWidth,
		maxRetries:     portal.MaxRetries,
		retryInterval:  500 * time.Millisecond,
		httpClient: &http.Client{
			Timeout: portal.Timeout,
		},
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}, nil
}

// SetClock replaces the clock used to decide which years to fetch.
func (c *Client) SetClock(clock clockwork.Clock) {
	c.clock = clock
}

// Location returns the portal timezone that fetched timestamps are placed in.
func (c *Client) Location() *time.Location {
	return c.loc
}

// FetchDataset downloads the complete dataset described by ds. Time-series
// datasets are requested one calendar year at a time, from ds.StartYear up
// to the current year.
func (c *Client) FetchDataset(ctx context.Context, ds config.DatasetData) (*types.Table, error) {
	kind, err := types.ParseDatasetKind(ds.Kind)
	if err != nil {
		return nil, err
	}

	start := c.clock.Now()
	defer func() {
		c.metrics.FetchDuration.WithLabelValues(ds.ID).Observe(c.clock.Since(start).Seconds())
	}()

	table := &types.Table{Kind: kind, DatasetID: ds.ID}
	p := newParser(kind, ds.Columns, c.loc, c.stationIDWidth)

	if !kind.IsTimeSeries() {
		body, err := c.export(ctx, ds.ID, p.selectClause(), "")
		if err != nil {
			return nil, fmt.Errorf("fetch dataset %s: %w", ds.ID, err)
		}
		if err := p.parse(body, table); err != nil {
			return nil, fmt.Errorf("parse dataset %s: %w", ds.ID, err)
		}
	} else {
		currentYear := c.clock.Now().In(c.loc).Year()
		for year := ds.StartYear; year <= currentYear; year++ {
			where := fmt.Sprintf("%s >= '%d-01-01' and %s < '%d-01-01'",
				ds.Columns.Timestamp, year, ds.Columns.Timestamp, year+1)

			c.logger.Debugf("fetching dataset %s year %d", ds.ID, year)
			body, err := c.export(ctx, ds.ID, p.selectClause(), where)
			if err != nil {
				return nil, fmt.Errorf("fetch dataset %s year %d: %w", ds.ID, year, err)
			}
			if err := p.parse(body, table); err != nil {
				return nil, fmt.Errorf("parse dataset %s year %d: %w", ds.ID, year, err)
			}
		}
	}

	if p.skipped > 0 {
		c.metrics.RowsSkipped.WithLabelValues(ds.ID).Add(float64(p.skipped))
		table.Warnings = append(table.Warnings, types.Warning{
			Code:    types.WarnSkippedRows,
			Message: fmt.Sprintf("%d row(s) of dataset %s skipped because of unparsable timestamps or values", p.skipped, ds.ID),
		})
	}
	if (kind.IsTimeSeries() && len(table.Records) == 0) || (!kind.IsTimeSeries() && len(table.Locations) == 0) {
		table.Warnings = append(table.Warnings, types.Warning{
			Code:    types.WarnEmptyDataset,
			Message: fmt.Sprintf("dataset %s (%s) returned no records", ds.ID, kind),
		})
	}

	c.logger.Infof("fetched dataset %s (%s): %d records, %d locations, %d skipped rows",
		ds.ID, kind, len(table.Records), len(table.Locations), p.skipped)
	return table, nil
}

func (c *Client) export(ctx context.Context, datasetID, selectClause, where string) ([]byte, error) {
	params := url.Values{
		"lang":       {c.lang},
		"timezone":   {c.timezone},
		"use_labels": {"false"},
		"delimiter":  {";"},
		"select":     {selectClause},
	}
	if where != "" {
		params.Set("where", where)
	}
	u := c.baseURL + apiPrefix + url.PathEscape(datasetID) + "/exports/csv?" + params.Encode()
	return c.get(ctx, datasetID, u)
}

// errStatus is returned for non-200 portal responses.
type errStatus struct {
	code int
	body string
}

func (e *errStatus) Error() string {
	return fmt.Sprintf("portal returned status %d: %s", e.code, e.body)
}

// IsNotFound reports whether err is a 404 response from the portal.
func IsNotFound(err error) bool {
	var se *errStatus
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// get performs a GET with retries. Client errors other than 429 are not retried.
func (c *Client) get(ctx context.Context, datasetID, fullURL string) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("User-Agent", constants.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			se := &errStatus{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(se)
			}
			return se
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	eb.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		c.metrics.FetchRequests.WithLabelValues(datasetID, "retry").Inc()
		c.logger.Warnf("portal request for dataset %s failed, retrying in %v: %v", datasetID, wait, err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		c.metrics.FetchRequests.WithLabelValues(datasetID, "error").Inc()
		return nil, err
	}
	c.metrics.FetchRequests.WithLabelValues(datasetID, "success").Inc()
	return body, nil
}
