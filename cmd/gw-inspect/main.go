// gw-inspect fetches a dataset once and prints the station catalog, station
// summaries and the annual pattern table for the selected parameters.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chrissnell/groundwatch/internal/dashboard"
	"github.com/chrissnell/groundwatch/internal/datasource"
	"github.com/chrissnell/groundwatch/internal/log"
	"github.com/chrissnell/groundwatch/internal/observability"
	"github.com/chrissnell/groundwatch/internal/opendata"
	"github.com/chrissnell/groundwatch/internal/timeseries"
	"github.com/chrissnell/groundwatch/pkg/config"
)

// paramFlags are the flags that map one to one onto dashboard parameters
var paramFlags = map[string]dashboard.ParamName{
	"dataset":     dashboard.ParamDataset,
	"stations":    dashboard.ParamStations,
	"start":       dashboard.ParamStart,
	"end":         dashboard.ParamEnd,
	"statistic":   dashboard.ParamStatistic,
	"granularity": dashboard.ParamGranularity,
	"daily":       dashboard.ParamDaily,
}

func main() {
	cfgFile := flag.String("config", "", "Optional YAML configuration file; GROUNDWATCH_* environment variables override it")
	flag.String("dataset", "groundwater_level", "Time series dataset: groundwater_level or precipitation")
	flag.String("stations", "", "Comma-separated station ids (default: all stations)")
	flag.String("start", "", "First day to include, YYYY-MM-DD (default: start of data)")
	flag.String("end", "", "Last day to include, YYYY-MM-DD (default: end of data)")
	flag.String("statistic", "mean", "Annual pattern statistic: mean, min, max or median")
	flag.String("granularity", "day_of_year", "Annual pattern key: day_of_year, month_day, month or iso_week")
	flag.Bool("daily", true, "Reduce readings to daily means before aggregating")
	monthly := flag.String("monthly", "", "Also print the year by month table for this station")
	timeout := flag.Duration("timeout", 5*time.Minute, "Give up fetching after this long")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var events []dashboard.ParamEvent
	flag.Visit(func(f *flag.Flag) {
		if name, ok := paramFlags[f.Name]; ok {
			events = append(events, dashboard.ParamEvent{Name: name, Value: f.Value.String()})
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *cfgFile, events, *monthly); err != nil {
		log.Errorf("gw-inspect: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgFile string, events []dashboard.ParamEvent, monthlyStation string) error {
	if cfgFile != "" {
		cfgFile, _ = filepath.Abs(cfgFile)
	}
	provider := config.NewViperProvider(cfgFile)
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		return err
	}

	logger := log.GetSugaredLogger()
	metrics := observability.NewMetrics()

	client, err := opendata.NewClient(cfg.Portal, metrics, logger)
	if err != nil {
		return err
	}
	registry, err := datasource.NewRegistry(cfg, client, metrics, logger)
	if err != nil {
		return err
	}

	binding := dashboard.NewBinding(dashboard.DefaultParams(cfg.Dashboard), registry, dashboard.Input{
		Location:       client.Location(),
		StationIDWidth: cfg.Portal.StationIDWidth,
	})
	var view dashboard.View
	if len(events) > 0 {
		view, err = binding.Dispatch(ctx, events...)
	} else {
		view, err = binding.Reload(ctx)
	}
	if err != nil {
		return err
	}

	rep := report{
		Title: cfg.Dashboard.Title,
		View:  view,
		Loc:   client.Location(),
	}

	cat, err := registry.Catalog(ctx)
	if err != nil {
		logger.Warnf("station catalog unavailable: %v", err)
	} else {
		rep.Catalog = cat
	}

	for _, id := range timeseries.StationIDs(view.Series) {
		if s, ok := timeseries.Summarize(view.Series, id); ok {
			rep.Summaries = append(rep.Summaries, s)
		}
	}
	if monthlyStation != "" {
		table := timeseries.MonthlyMeans(view.Series, opendata.PadStationID(monthlyStation, cfg.Portal.StationIDWidth))
		rep.Monthly = &table
	}

	return writeReport(os.Stdout, rep)
}
