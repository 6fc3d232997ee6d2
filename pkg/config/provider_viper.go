package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable overrides, e.g.
// GROUNDWATCH_PORTAL_BASE_URL overrides portal.base_url.
const EnvPrefix = "GROUNDWATCH"

// envKeys are the scalar settings that can be overridden from the environment
var envKeys = []string{
	"portal.base_url",
	"portal.timezone",
	"portal.lang",
	"portal.timeout",
	"portal.max_retries",
	"portal.station_id_width",
	"catalog_dataset",
	"preload",
	"dashboard.default_statistic",
	"dashboard.default_granularity",
	"dashboard.title",
}

// ViperProvider implements ConfigProvider for a YAML file layered with
// environment overrides
type ViperProvider struct {
	filename string
	v        *viper.Viper
	config   *ConfigData
}

// NewViperProvider creates a provider reading filename. An empty filename
// configures everything from defaults and the environment.
func NewViperProvider(filename string) *ViperProvider {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	return &ViperProvider{
		filename: filename,
		v:        v,
	}
}

// LoadConfig reads the file, applies environment overrides and defaults
func (p *ViperProvider) LoadConfig() (*ConfigData, error) {
	if p.filename != "" {
		p.v.SetConfigFile(p.filename)
		p.v.SetConfigType("yaml")
		if err := p.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", p.filename, err)
		}
	}

	var cfg ConfigData
	if err := p.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding configuration: %w", err)
	}

	if len(cfg.Datasets) == 0 {
		cfg.Datasets = []DatasetData{{Kind: "groundwater_level"}}
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	p.config = &cfg
	return &cfg, nil
}

// GetPortal returns the portal configuration
func (p *ViperProvider) GetPortal() (*PortalData, error) {
	if p.config == nil {
		if _, err := p.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return &p.config.Portal, nil
}

// GetDatasets returns dataset configurations
func (p *ViperProvider) GetDatasets() ([]DatasetData, error) {
	if p.config == nil {
		if _, err := p.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return p.config.Datasets, nil
}

// GetControllers returns controller configurations
func (p *ViperProvider) GetControllers() ([]ControllerData, error) {
	if p.config == nil {
		if _, err := p.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return p.config.Controllers, nil
}

// IsReadOnly returns true; environment overrides are never written back
func (p *ViperProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for the viper provider
func (p *ViperProvider) Close() error {
	return nil
}
