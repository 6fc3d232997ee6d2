// Package datasource keeps the most recent fetch of every configured dataset
// in memory and hands out immutable snapshots of it.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chrissnell/groundwatch/internal/catalog"
	"github.com/chrissnell/groundwatch/internal/observability"
	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/chrissnell/groundwatch/pkg/config"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownDataset is returned for a dataset kind that is not configured.
var ErrUnknownDataset = errors.New("dataset not configured")

// maxLoadTime bounds a shared fetch once it no longer follows any single
// caller's context.
const maxLoadTime = 10 * time.Minute

// Fetcher downloads one dataset.
type Fetcher interface {
	FetchDataset(ctx context.Context, ds config.DatasetData) (*types.Table, error)
}

// Snapshot is one complete fetch of a dataset. Snapshots are shared between
// requests and must not be modified.
type Snapshot struct {
	Table     *types.Table
	FetchedAt time.Time
}

type catalogEntry struct {
	source  *Snapshot
	catalog *catalog.Catalog
}

// Registry loads datasets on first use and replaces them wholesale on refresh.
type Registry struct {
	fetcher     Fetcher
	datasets    map[types.DatasetKind]config.DatasetData
	kinds       []types.DatasetKind
	catalogKind types.DatasetKind

	snapshots map[types.DatasetKind]*atomic.Pointer[Snapshot]
	catalog   atomic.Pointer[catalogEntry]
	group     singleflight.Group

	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *zap.SugaredLogger
}

// NewRegistry creates a registry for the datasets in cfg.
func NewRegistry(cfg *config.ConfigData, fetcher Fetcher, metrics *observability.Metrics, logger *zap.SugaredLogger) (*Registry, error) {
	catalogKind, err := types.ParseDatasetKind(cfg.CatalogDataset)
	if err != nil {
		return nil, fmt.Errorf("catalog dataset: %w", err)
	}

	r := &Registry{
		fetcher:     fetcher,
		datasets:    make(map[types.DatasetKind]config.DatasetData),
		catalogKind: catalogKind,
		snapshots:   make(map[types.DatasetKind]*atomic.Pointer[Snapshot]),
		clock:       clockwork.NewRealClock(),
		metrics:     metrics,
		logger:      logger,
	}

	for _, ds := range cfg.Datasets {
		kind, err := types.ParseDatasetKind(ds.Kind)
		if err != nil {
			return nil, err
		}
		r.datasets[kind] = ds
		r.kinds = append(r.kinds, kind)
		r.snapshots[kind] = &atomic.Pointer[Snapshot]{}
	}

	if _, ok := r.datasets[catalogKind]; !ok {
		return nil, fmt.Errorf("catalog dataset %s: %w", catalogKind, ErrUnknownDataset)
	}
	return r, nil
}

// SetClock replaces the clock used to stamp snapshots.
func (r *Registry) SetClock(clock clockwork.Clock) {
	r.clock = clock
}

// Kinds returns the configured dataset kinds in configuration order.
func (r *Registry) Kinds() []types.DatasetKind {
	out := make([]types.DatasetKind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Dataset returns the configuration of kind.
func (r *Registry) Dataset(kind types.DatasetKind) (config.DatasetData, bool) {
	ds, ok := r.datasets[kind]
	return ds, ok
}

// CatalogKind returns the dataset the station catalog is built from.
func (r *Registry) CatalogKind() types.DatasetKind {
	return r.catalogKind
}

// Peek returns the current snapshot of kind without fetching. It returns
// nil when the dataset has not been loaded yet.
func (r *Registry) Peek(kind types.DatasetKind) *Snapshot {
	p, ok := r.snapshots[kind]
	if !ok {
		return nil
	}
	return p.Load()
}

// Get returns the current snapshot of kind, fetching it first if needed.
// Concurrent first loads of the same dataset share one fetch. A caller whose
// ctx ends stops waiting but the fetch carries on for the others.
func (r *Registry) Get(ctx context.Context, kind types.DatasetKind) (*Snapshot, error) {
	p, ok := r.snapshots[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", kind, ErrUnknownDataset)
	}
	if snap := p.Load(); snap != nil {
		return snap, nil
	}
	return r.load(ctx, kind, "load/")
}

// Refresh fetches kind again and replaces the whole snapshot. Readers
// holding the previous snapshot keep a consistent view of it. A refresh
// never joins a first load that is already in flight.
func (r *Registry) Refresh(ctx context.Context, kind types.DatasetKind) (*Snapshot, error) {
	if _, ok := r.snapshots[kind]; !ok {
		return nil, fmt.Errorf("%s: %w", kind, ErrUnknownDataset)
	}
	return r.load(ctx, kind, "refresh/")
}

// Preload fetches every configured dataset concurrently.
func (r *Registry) Preload(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)
	for _, kind := range r.kinds {
		kind := kind
		eg.Go(func() error {
			_, err := r.Get(egCtx, kind)
			return err
		})
	}
	return eg.Wait()
}

func (r *Registry) load(ctx context.Context, kind types.DatasetKind, prefix string) (*Snapshot, error) {
	ch := r.group.DoChan(prefix+string(kind), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), maxLoadTime)
		defer cancel()

		ds := r.datasets[kind]
		table, err := r.fetcher.FetchDataset(fetchCtx, ds)
		if err != nil {
			return nil, err
		}

		snap := &Snapshot{Table: table, FetchedAt: r.clock.Now()}
		r.snapshots[kind].Store(snap)

		r.metrics.RecordsLoaded.WithLabelValues(string(kind)).Set(float64(len(table.Records)))
		r.metrics.LastRefresh.WithLabelValues(string(kind)).Set(float64(snap.FetchedAt.Unix()))
		for _, w := range table.Warnings {
			r.logger.Warnw("data quality warning", "dataset", ds.ID, "kind", kind, "code", w.Code, "message", w.Message)
		}
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Catalog returns the station catalog built from the catalog dataset. The
// catalog is rebuilt only when that dataset's snapshot has changed.
func (r *Registry) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	snap, err := r.Get(ctx, r.catalogKind)
	if err != nil {
		return nil, err
	}

	if entry := r.catalog.Load(); entry != nil && entry.source == snap {
		return entry.catalog, nil
	}

	cat := catalog.Build(snap.Table.Locations)
	r.catalog.Store(&catalogEntry{source: snap, catalog: cat})

	r.metrics.CatalogStations.Set(float64(cat.Len()))
	r.metrics.CatalogExcluded.Set(float64(len(cat.Excluded())))
	if len(cat.Excluded()) > 0 {
		r.logger.Warnf("station catalog excludes %d station(s) with invalid coordinates", len(cat.Excluded()))
	}
	return cat, nil
}
