// Package refresher re-fetches datasets from the portal on a cron schedule.
package refresher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chrissnell/groundwatch/internal/dashboard"
	"github.com/chrissnell/groundwatch/internal/datasource"
	"github.com/chrissnell/groundwatch/internal/log"
	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/chrissnell/groundwatch/pkg/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Registry is the part of the dataset registry the refresher drives
type Registry interface {
	Kinds() []types.DatasetKind
	Refresh(ctx context.Context, kind types.DatasetKind) (*datasource.Snapshot, error)
}

// Reloader recomputes the dashboard after new data arrived
type Reloader interface {
	Reload(ctx context.Context) (dashboard.View, error)
}

// Controller replaces the configured datasets wholesale on every tick
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	schedule string
	kinds    []types.DatasetKind
	registry Registry
	reloader Reloader
	cron     *cron.Cron
	logger   *zap.SugaredLogger
}

// NewController creates a refresh controller. With no datasets listed in rc
// every configured dataset is refreshed.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RefreshData, registry Registry, reloader Reloader, logger *zap.SugaredLogger) (*Controller, error) {
	if _, err := cron.ParseStandard(rc.Schedule); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %v", rc.Schedule, err)
	}

	kinds := registry.Kinds()
	if len(rc.Datasets) > 0 {
		kinds = kinds[:0]
		for _, name := range rc.Datasets {
			kind, err := types.ParseDatasetKind(name)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, kind)
		}
	}

	c := &Controller{
		ctx:      ctx,
		wg:       wg,
		schedule: rc.Schedule,
		kinds:    kinds,
		registry: registry,
		reloader: reloader,
		cron:     cron.New(),
		logger:   logger,
	}

	if _, err := c.cron.AddFunc(rc.Schedule, func() {
		if err := c.RunOnce(c.ctx); err != nil {
			c.logger.Errorf("scheduled dataset refresh failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to set up refresh job: %v", err)
	}

	return c, nil
}

// StartController starts the cron scheduler and stops it when the context ends
func (c *Controller) StartController() error {
	log.Infof("Starting dataset refresh controller (schedule %q)...", c.schedule)
	c.cron.Start()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		log.Info("Stopping dataset refresh controller...")
		<-c.cron.Stop().Done()
	}()
	return nil
}

// RunOnce refreshes every dataset in turn. A failed dataset keeps its
// previous snapshot and does not stop the others. The dashboard is
// recomputed when at least one dataset was replaced.
func (c *Controller) RunOnce(ctx context.Context) error {
	var errs []error
	refreshed := 0
	for _, kind := range c.kinds {
		snap, err := c.registry.Refresh(ctx, kind)
		if err != nil {
			c.logger.Warnw("dataset refresh failed, keeping previous snapshot", "dataset", kind, "error", err)
			errs = append(errs, fmt.Errorf("refresh %s: %w", kind, err))
			continue
		}
		refreshed++
		c.logger.Infow("dataset refreshed", "dataset", kind, "records", len(snap.Table.Records))
	}

	if refreshed > 0 && c.reloader != nil {
		if _, err := c.reloader.Reload(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reload dashboard: %w", err))
		}
	}
	return errors.Join(errs...)
}
