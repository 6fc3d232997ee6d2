package config

import "time"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration, with defaults applied and validated
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetPortal() (*PortalData, error)
	GetDatasets() ([]DatasetData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Portal         PortalData       `json:"portal" yaml:"portal" mapstructure:"portal"`
	Datasets       []DatasetData    `json:"datasets" yaml:"datasets" mapstructure:"datasets" validate:"required,min=1,dive"`
	CatalogDataset string           `json:"catalog_dataset,omitempty" yaml:"catalog_dataset,omitempty" mapstructure:"catalog_dataset" validate:"omitempty,oneof=groundwater_level precipitation borehole"`
	Preload        bool             `json:"preload,omitempty" yaml:"preload,omitempty" mapstructure:"preload"`
	Dashboard      DashboardData    `json:"dashboard,omitempty" yaml:"dashboard,omitempty" mapstructure:"dashboard"`
	Controllers    []ControllerData `json:"controllers,omitempty" yaml:"controllers,omitempty" mapstructure:"controllers" validate:"dive"`
}

// PortalData describes the open-data portal the datasets are exported from
type PortalData struct {
	BaseURL        string        `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Timezone       string        `json:"timezone" yaml:"timezone" mapstructure:"timezone" validate:"required"`
	Lang           string        `json:"lang,omitempty" yaml:"lang,omitempty" mapstructure:"lang"`
	Timeout        time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
	MaxRetries     int           `json:"max_retries,omitempty" yaml:"max_retries,omitempty" mapstructure:"max_retries" validate:"gte=0,lte=20"`
	StationIDWidth int           `json:"station_id_width,omitempty" yaml:"station_id_width,omitempty" mapstructure:"station_id_width" validate:"gte=0,lte=32"`
}

// DatasetData binds a dataset kind to a portal dataset id and its columns
type DatasetData struct {
	Kind      string     `json:"kind" yaml:"kind" mapstructure:"kind" validate:"required,oneof=groundwater_level precipitation borehole"`
	ID        string     `json:"id" yaml:"id" mapstructure:"id" validate:"required"`
	StartYear int        `json:"start_year,omitempty" yaml:"start_year,omitempty" mapstructure:"start_year" validate:"omitempty,gte=1800,lte=2200"`
	Columns   ColumnData `json:"columns,omitempty" yaml:"columns,omitempty" mapstructure:"columns"`
}

// ColumnData maps portal column names onto record fields
type ColumnData struct {
	Timestamp   string `json:"timestamp,omitempty" yaml:"timestamp,omitempty" mapstructure:"timestamp"`
	StationID   string `json:"station_id,omitempty" yaml:"station_id,omitempty" mapstructure:"station_id" validate:"required"`
	StationName string `json:"station_name,omitempty" yaml:"station_name,omitempty" mapstructure:"station_name"`
	Value       string `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Latitude    string `json:"latitude,omitempty" yaml:"latitude,omitempty" mapstructure:"latitude"`
	Longitude   string `json:"longitude,omitempty" yaml:"longitude,omitempty" mapstructure:"longitude"`
	Elevation   string `json:"elevation,omitempty" yaml:"elevation,omitempty" mapstructure:"elevation"`
}

// DashboardData holds the initial dashboard parameters
type DashboardData struct {
	DefaultStatistic   string   `json:"default_statistic,omitempty" yaml:"default_statistic,omitempty" mapstructure:"default_statistic" validate:"omitempty,oneof=mean min max median"`
	DefaultGranularity string   `json:"default_granularity,omitempty" yaml:"default_granularity,omitempty" mapstructure:"default_granularity" validate:"omitempty,oneof=day_of_year month_day month iso_week"`
	DefaultStations    []string `json:"default_stations,omitempty" yaml:"default_stations,omitempty" mapstructure:"default_stations"`
	Title              string   `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
}

// ControllerData holds the configuration for various controller backends
type ControllerData struct {
	Type       string          `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type" validate:"required,oneof=rest restserver refresh"`
	RESTServer *RESTServerData `json:"rest,omitempty" yaml:"rest,omitempty" mapstructure:"rest"`
	Refresh    *RefreshData    `json:"refresh,omitempty" yaml:"refresh,omitempty" mapstructure:"refresh"`
}

// RESTServerData holds the REST API listener settings
type RESTServerData struct {
	DefaultListenAddr string `json:"default_listen_addr,omitempty" yaml:"default_listen_addr,omitempty" mapstructure:"default_listen_addr"`
	HTTPPort          int    `json:"http_port,omitempty" yaml:"http_port,omitempty" mapstructure:"http_port" validate:"gte=0,lte=65535"`
	TLSCertPath       string `json:"tls_cert_path,omitempty" yaml:"tls_cert_path,omitempty" mapstructure:"tls_cert_path"`
	TLSKeyPath        string `json:"tls_key_path,omitempty" yaml:"tls_key_path,omitempty" mapstructure:"tls_key_path"`
}

// RefreshData schedules periodic full re-fetches of datasets
type RefreshData struct {
	Schedule string   `json:"schedule" yaml:"schedule" mapstructure:"schedule" validate:"required"`
	Datasets []string `json:"datasets,omitempty" yaml:"datasets,omitempty" mapstructure:"datasets" validate:"dive,oneof=groundwater_level precipitation borehole"`
}

// Dataset returns the configuration of the dataset with the given kind
func (c *ConfigData) Dataset(kind string) (DatasetData, bool) {
	for _, ds := range c.Datasets {
		if ds.Kind == kind {
			return ds, true
		}
	}
	return DatasetData{}, false
}
