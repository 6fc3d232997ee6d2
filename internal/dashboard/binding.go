package dashboard

import (
	"context"
	"sort"
	"sync"

	"github.com/chrissnell/groundwatch/internal/datasource"
	"github.com/chrissnell/groundwatch/internal/types"
)

// Source supplies the current snapshot of a dataset.
type Source interface {
	Get(ctx context.Context, kind types.DatasetKind) (*datasource.Snapshot, error)
}

// Observer receives every view produced by a Binding.
type Observer func(View)

// Binding owns the current dashboard parameters. Each dispatched change is
// applied to a copy of the parameters, the view is recomputed from that
// complete set and only then are parameters committed and observers
// notified. A rejected change leaves the binding untouched.
//
// Changes are serialised on update. mu only guards the committed state and
// is never held while a dataset is fetched.
type Binding struct {
	update sync.Mutex

	mu        sync.Mutex
	source    Source
	input     Input
	params    Params
	view      *View
	observers map[int]Observer
	nextID    int
}

// NewBinding creates a binding starting from initial.
func NewBinding(initial Params, source Source, in Input) *Binding {
	initial.Stations = in.Stations(initial.Stations)
	return &Binding{
		source:    source,
		input:     in,
		params:    initial,
		observers: make(map[int]Observer),
	}
}

// Subscribe registers o and returns a function that removes it. Observers
// are called with the binding locked, in the order views are produced, and
// must not call back into the binding.
func (b *Binding) Subscribe(o Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.observers[id] = o
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.observers, id)
	}
}

// Params returns the committed parameters.
func (b *Binding) Params() Params {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params
}

// View returns the last committed view, if any.
func (b *Binding) View() (View, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.view == nil {
		return View{}, false
	}
	return *b.view, true
}

// Dispatch applies events in order as one change and recomputes the view.
func (b *Binding) Dispatch(ctx context.Context, events ...ParamEvent) (View, error) {
	b.update.Lock()
	defer b.update.Unlock()

	next := b.Params()
	for _, ev := range events {
		var err error
		next, err = next.Apply(ev, b.input)
		if err != nil {
			return View{}, err
		}
	}
	return b.commit(ctx, next)
}

// Input returns how the binding reads parameter events.
func (b *Binding) Input() Input {
	return b.input
}

// Reload recomputes the view for the current parameters, for example after
// the underlying dataset was refreshed.
func (b *Binding) Reload(ctx context.Context) (View, error) {
	b.update.Lock()
	defer b.update.Unlock()
	return b.commit(ctx, b.Params())
}

// commit expects b.update to be held.
func (b *Binding) commit(ctx context.Context, next Params) (View, error) {
	snap, err := b.source.Get(ctx, next.Dataset)
	if err != nil {
		return View{}, err
	}
	view, err := Recompute(snap.Table, next)
	if err != nil {
		return View{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.params = next
	b.view = &view
	for _, id := range b.sortedObserverIDs() {
		b.observers[id](view)
	}
	return view, nil
}

func (b *Binding) sortedObserverIDs() []int {
	ids := make([]int, 0, len(b.observers))
	for id := range b.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
