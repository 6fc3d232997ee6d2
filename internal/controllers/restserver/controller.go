package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/groundwatch/internal/dashboard"
	"github.com/chrissnell/groundwatch/internal/datasource"
	"github.com/chrissnell/groundwatch/internal/log"
	"github.com/chrissnell/groundwatch/internal/observability"
	"github.com/chrissnell/groundwatch/internal/opendata"
	"github.com/chrissnell/groundwatch/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DatasetDescriber looks up portal metadata for a dataset
type DatasetDescriber interface {
	DatasetInfo(ctx context.Context, datasetID string) (*opendata.DatasetInfo, error)
}

// Deps are the shared services the REST API reads from
type Deps struct {
	Registry  *datasource.Registry
	Binding   *dashboard.Binding
	Portal    DatasetDescriber // optional
	Metrics   *observability.Metrics
	Location  *time.Location
	Dashboard config.DashboardData
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, deps Deps, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Registry == nil || deps.Binding == nil {
		return nil, fmt.Errorf("REST server needs a dataset registry and a dashboard binding")
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	// If a DefaultListenAddr was not provided, listen on all interfaces
	if rc.DefaultListenAddr == "" {
		logger.Info("rest.default_listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.DefaultListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if rc.HTTPPort == 0 {
		logger.Info("rest.http_port not provided; defaulting to 8080")
		rc.HTTPPort = 8080
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		logger:     logger,
		handlers:   NewHandlers(ctx, deps, logger),
	}

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.DefaultListenAddr, rc.HTTPPort)
	ctrl.Server.Handler = newRouter(ctrl.handlers, logger)
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server controller on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.TLSCertPath != "" && c.restConfig.TLSKeyPath != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.TLSCertPath, c.restConfig.TLSKeyPath); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// newRouter configures the HTTP router with all endpoints
func newRouter(h *Handlers, logger *zap.SugaredLogger) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, accessLogMiddleware(logger))

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/datasets", h.GetDatasets).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{dataset}/refresh", h.RefreshDataset).Methods(http.MethodPost)

	api.HandleFunc("/stations", h.GetStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}", h.GetStation).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/monthly", h.GetStationMonthly).Methods(http.MethodGet)

	api.HandleFunc("/series", h.GetSeries).Methods(http.MethodGet)
	api.HandleFunc("/patterns", h.GetPatterns).Methods(http.MethodGet)

	api.HandleFunc("/charts/overlay", h.GetOverlayChart).Methods(http.MethodGet)
	api.HandleFunc("/charts/patterns", h.GetPatternChart).Methods(http.MethodGet)
	api.HandleFunc("/map", h.GetMap).Methods(http.MethodGet)

	api.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", h.PostDashboard).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/events", h.StreamDashboard).Methods(http.MethodGet)

	return router
}
