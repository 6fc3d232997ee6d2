package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/groundwatch/internal/app"
	"github.com/chrissnell/groundwatch/internal/constants"
	"github.com/chrissnell/groundwatch/internal/log"
	"github.com/chrissnell/groundwatch/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to the YAML configuration file. With -config-backend=env it is optional\n\t\t\t  and GROUNDWATCH_* environment variables override its values")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'env' for YAML plus environment overrides")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("groundwatch %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	provider, err := newProvider(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	// Create and run the application
	application := app.New(provider, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func newProvider(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	filename := ""
	if cfgFile != "" {
		filename, _ = filepath.Abs(cfgFile)
	}

	switch cfgBackend {
	case "yaml":
		return config.NewYAMLProvider(filename), nil
	case "env":
		if _, err := os.Stat(filename); err != nil {
			filename = ""
		}
		return config.NewViperProvider(filename), nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'env'", cfgBackend)
	}
}
