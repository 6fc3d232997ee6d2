// Package timeseries restricts, summarises and groups station measurement
// series. Every function in this package is pure: inputs are never modified
// and results depend only on the arguments.
package timeseries

import "errors"

var (
	// ErrInvalidRange is returned when a range starts after it ends.
	ErrInvalidRange = errors.New("invalid range")

	// ErrUnsupportedStatistic is returned for a statistic outside mean, min, max and median.
	ErrUnsupportedStatistic = errors.New("unsupported statistic")

	// ErrUnsupportedGranularity is returned for an unknown calendar granularity.
	ErrUnsupportedGranularity = errors.New("unsupported granularity")
)
