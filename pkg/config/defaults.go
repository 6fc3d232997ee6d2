package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultBaseURL        = "https://data.bs.ch"
	DefaultTimezone       = "Europe/Zurich"
	DefaultLang           = "de"
	DefaultTimeout        = 60 * time.Second
	DefaultMaxRetries     = 3
	DefaultStationIDWidth = 10
	DefaultStartYear      = 1976

	// DefaultGroundwaterDataset is the Basel-Stadt groundwater level dataset.
	DefaultGroundwaterDataset = "100164"
)

var validate = validator.New()

// ApplyDefaults fills unset fields with their defaults
func ApplyDefaults(cfg *ConfigData) {
	if cfg.Portal.BaseURL == "" {
		cfg.Portal.BaseURL = DefaultBaseURL
	}
	if cfg.Portal.Timezone == "" {
		cfg.Portal.Timezone = DefaultTimezone
	}
	if cfg.Portal.Lang == "" {
		cfg.Portal.Lang = DefaultLang
	}
	if cfg.Portal.Timeout == 0 {
		cfg.Portal.Timeout = DefaultTimeout
	}
	if cfg.Portal.MaxRetries == 0 {
		cfg.Portal.MaxRetries = DefaultMaxRetries
	}
	if cfg.Portal.StationIDWidth == 0 {
		cfg.Portal.StationIDWidth = DefaultStationIDWidth
	}

	for i := range cfg.Datasets {
		ds := &cfg.Datasets[i]
		if ds.ID == "" && ds.Kind == "groundwater_level" {
			ds.ID = DefaultGroundwaterDataset
		}
		if ds.StartYear == 0 && ds.Kind != "borehole" {
			ds.StartYear = DefaultStartYear
		}
		applyColumnDefaults(&ds.Columns, ds.Kind)
	}

	if cfg.CatalogDataset == "" {
		cfg.CatalogDataset = "groundwater_level"
		if _, ok := cfg.Dataset("borehole"); ok {
			cfg.CatalogDataset = "borehole"
		}
	}

	if cfg.Dashboard.DefaultStatistic == "" {
		cfg.Dashboard.DefaultStatistic = "mean"
	}
	if cfg.Dashboard.DefaultGranularity == "" {
		cfg.Dashboard.DefaultGranularity = "day_of_year"
	}
	if cfg.Dashboard.Title == "" {
		cfg.Dashboard.Title = "Grundwassermonitoring Basel-Stadt"
	}
}

func applyColumnDefaults(c *ColumnData, kind string) {
	if c.StationID == "" {
		c.StationID = "stationnr"
	}
	if c.StationName == "" {
		c.StationName = "stationname"
	}
	if c.Latitude == "" {
		c.Latitude = "lat"
	}
	if c.Longitude == "" {
		c.Longitude = "lon"
	}
	if kind == "borehole" {
		return
	}
	if c.Timestamp == "" {
		c.Timestamp = "timestamp"
	}
	if c.Value == "" {
		c.Value = "value"
	}
}

// Validate checks field constraints and the relations between sections
func Validate(cfg *ConfigData) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Portal.Timezone); err != nil {
		return fmt.Errorf("invalid portal timezone %q: %w", cfg.Portal.Timezone, err)
	}

	seen := make(map[string]bool)
	for _, ds := range cfg.Datasets {
		if seen[ds.Kind] {
			return fmt.Errorf("dataset kind %s configured more than once", ds.Kind)
		}
		seen[ds.Kind] = true
		if ds.Kind != "borehole" && (ds.Columns.Timestamp == "" || ds.Columns.Value == "") {
			return fmt.Errorf("dataset %s (%s) needs timestamp and value columns", ds.ID, ds.Kind)
		}
	}

	if !seen[cfg.CatalogDataset] {
		return fmt.Errorf("catalog_dataset %s is not a configured dataset", cfg.CatalogDataset)
	}

	for _, cc := range cfg.Controllers {
		if cc.Type == "refresh" && cc.Refresh == nil {
			return fmt.Errorf("refresh controller requires a refresh section")
		}
		if cc.Refresh == nil {
			continue
		}
		for _, kind := range cc.Refresh.Datasets {
			if !seen[kind] {
				return fmt.Errorf("refresh controller names unconfigured dataset %s", kind)
			}
		}
	}
	return nil
}
