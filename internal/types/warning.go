package types

// WarningCode classifies a data-quality warning.
type WarningCode string

const (
	WarnExcludedStations WarningCode = "excluded_stations"
	WarnEmptyDataset     WarningCode = "empty_dataset"
	WarnSkippedRows      WarningCode = "skipped_rows"
	WarnEmptyRange       WarningCode = "empty_range"
	WarnUnknownStations  WarningCode = "unknown_stations"
)

// Warning reports a non-fatal data-quality problem. It is attached to a
// result and never aborts the computation that produced it.
type Warning struct {
	Code       WarningCode `json:"code"`
	Message    string      `json:"message"`
	StationIDs []string    `json:"station_ids,omitempty"`
}
