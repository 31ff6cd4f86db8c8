// Package view binds the notification store to a paged, filtered list with
// selection and bulk actions.
package view

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/store"
	"github.com/adamavenir/socialdash/internal/types"
)

var (
	// ErrLoadInFlight is returned by LoadMore while a page request is pending.
	ErrLoadInFlight = errors.New("a page is already loading")
	// ErrNoMorePages is returned by LoadMore once the backend reported the last page.
	ErrNoMorePages = errors.New("no more pages")
	// ErrNoSelection is returned by bulk actions when nothing is selected.
	ErrNoSelection = errors.New("no notifications selected")
)

// Fetcher is the subset of the REST client the view needs.
type Fetcher interface {
	ListNotifications(ctx context.Context, params api.ListParams) (types.Page, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	BulkMarkRead(ctx context.Context, ids []string) error
	BulkDelete(ctx context.Context, ids []string) error
}

// Options configure a View.
type Options struct {
	PageSize int
	Logger   *log.Logger
}

// State is the paging state of the active filter.
type State struct {
	Filter  types.Filter
	Page    int
	HasMore bool
	Loading bool
	// Err is the last page load failure. Loaded records are kept and the
	// load can be retried.
	Err error
}

// View is the list binding for one session. Store subscribers must not
// call View methods that load or mutate.
type View struct {
	store    *store.Store
	fetcher  Fetcher
	pageSize int
	logger   *log.Logger

	// applyMu serializes generation changes with page application, so a
	// response that passed the generation check lands before any newer
	// filter takes effect.
	applyMu sync.Mutex

	mu         sync.Mutex
	filter     types.Filter
	page       int
	nextPage   int
	hasMore    bool
	inflight   bool
	generation uint64
	err        error
	selected   map[string]struct{}
}

// New creates a view over s using fetcher for pages and confirmations.
func New(s *store.Store, fetcher Fetcher, opts Options) *View {
	if opts.PageSize <= 0 {
		opts.PageSize = api.DefaultPageSize
	}
	return &View{
		store:    s,
		fetcher:  fetcher,
		pageSize: opts.PageSize,
		logger:   opts.Logger,
		filter:   types.FilterAll,
		selected: make(map[string]struct{}),
	}
}

// State returns a copy of the paging state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{
		Filter:  v.filter,
		Page:    v.page,
		HasMore: v.hasMore,
		Loading: v.inflight,
		Err:     v.err,
	}
}

// Filter returns the active filter.
func (v *View) Filter() types.Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Items returns the projection of the active filter.
func (v *View) Items() []types.Notification {
	return slices.Collect(v.store.Projection(v.Filter()))
}

// SetFilter switches the active filter and loads its first page, replacing
// the store contents. Any response still pending for an earlier filter is
// discarded when it arrives.
func (v *View) SetFilter(ctx context.Context, f types.Filter) error {
	v.applyMu.Lock()
	v.mu.Lock()
	v.filter = f
	v.generation++
	gen := v.generation
	v.page = 0
	v.nextPage = 1
	v.hasMore = false
	v.inflight = true
	v.err = nil
	clear(v.selected)
	v.mu.Unlock()
	v.applyMu.Unlock()

	return v.load(ctx, gen, f, 1, true)
}

// Reload refetches the first page of the active filter.
func (v *View) Reload(ctx context.Context) error {
	return v.SetFilter(ctx, v.Filter())
}

// LoadMore fetches the next page of the active filter and merges it.
func (v *View) LoadMore(ctx context.Context) error {
	v.mu.Lock()
	if v.inflight {
		v.mu.Unlock()
		return ErrLoadInFlight
	}
	if !v.hasMore {
		v.mu.Unlock()
		return ErrNoMorePages
	}
	v.inflight = true
	gen := v.generation
	f := v.filter
	page := v.nextPage
	v.mu.Unlock()

	return v.load(ctx, gen, f, page, false)
}

func (v *View) load(ctx context.Context, gen uint64, f types.Filter, page int, replace bool) error {
	params := api.ListParams{Page: page, Limit: v.pageSize}
	if serverType, ok := f.ServerType(); ok {
		params.Type = serverType
	}
	res, err := v.fetcher.ListNotifications(ctx, params)

	v.applyMu.Lock()
	defer v.applyMu.Unlock()

	v.mu.Lock()
	if gen != v.generation {
		v.mu.Unlock()
		v.logf("discarding stale page %d for filter %s", page, f)
		return nil
	}
	v.inflight = false
	if err != nil {
		v.err = err
		v.mu.Unlock()
		return fmt.Errorf("load page %d: %w", page, err)
	}
	v.err = nil
	v.page = res.Page
	if v.page == 0 {
		v.page = page
	}
	v.hasMore = res.HasMore
	v.nextPage = res.NextPage
	if v.nextPage == 0 {
		v.nextPage = v.page + 1
	}
	v.mu.Unlock()

	v.store.IngestPage(res.Notifications, replace)
	return nil
}

// Select adds id to the selection.
func (v *View) Select(id string) {
	v.mu.Lock()
	v.selected[id] = struct{}{}
	v.mu.Unlock()
}

// Deselect removes id from the selection.
func (v *View) Deselect(id string) {
	v.mu.Lock()
	delete(v.selected, id)
	v.mu.Unlock()
}

// Toggle flips the selection of id and reports whether it is now selected.
func (v *View) Toggle(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.selected[id]; ok {
		delete(v.selected, id)
		return false
	}
	v.selected[id] = struct{}{}
	return true
}

// IsSelected reports whether id is selected.
func (v *View) IsSelected(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.selected[id]
	return ok
}

// SelectAll selects every record in the active projection.
func (v *View) SelectAll() {
	items := v.Items()
	v.mu.Lock()
	for _, rec := range items {
		v.selected[rec.ID] = struct{}{}
	}
	v.mu.Unlock()
}

// DeselectAll clears the selection.
func (v *View) DeselectAll() {
	v.mu.Lock()
	clear(v.selected)
	v.mu.Unlock()
}

// Selected returns the selected ids that are still present, in projection
// order.
func (v *View) Selected() []string {
	v.mu.Lock()
	if len(v.selected) == 0 {
		v.mu.Unlock()
		return nil
	}
	selected := make(map[string]struct{}, len(v.selected))
	for id := range v.selected {
		selected[id] = struct{}{}
	}
	v.mu.Unlock()

	var ids []string
	for rec := range v.store.Projection(types.FilterAll) {
		if _, ok := selected[rec.ID]; ok {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}

// MarkRead marks id read locally and confirms with the backend, rolling
// back on failure.
func (v *View) MarkRead(ctx context.Context, id string) error {
	m, err := v.store.MarkRead(id)
	if err != nil {
		return err
	}
	return store.Apply(ctx, m, func(ctx context.Context) error {
		return v.fetcher.MarkRead(ctx, id)
	})
}

// MarkAllRead marks every record read locally and confirms with the backend.
func (v *View) MarkAllRead(ctx context.Context) error {
	m := v.store.MarkAllRead()
	return store.Apply(ctx, m, v.fetcher.MarkAllRead)
}

// Delete removes id locally and confirms with the backend.
func (v *View) Delete(ctx context.Context, id string) error {
	m, err := v.store.Remove(id)
	if err != nil {
		return err
	}
	if err := store.Apply(ctx, m, func(ctx context.Context) error {
		return v.fetcher.Delete(ctx, id)
	}); err != nil {
		return err
	}
	v.Deselect(id)
	return nil
}

// BulkMarkRead marks the selection read. The selection is cleared once the
// backend confirms.
func (v *View) BulkMarkRead(ctx context.Context) error {
	ids := v.Selected()
	if len(ids) == 0 {
		return ErrNoSelection
	}
	m := v.store.MarkReadMany(ids)
	if err := store.Apply(ctx, m, func(ctx context.Context) error {
		return v.fetcher.BulkMarkRead(ctx, ids)
	}); err != nil {
		return err
	}
	v.DeselectAll()
	return nil
}

// BulkDelete removes the selection. The selection is cleared once the
// backend confirms.
func (v *View) BulkDelete(ctx context.Context) error {
	ids := v.Selected()
	if len(ids) == 0 {
		return ErrNoSelection
	}
	m := v.store.RemoveMany(ids)
	if err := store.Apply(ctx, m, func(ctx context.Context) error {
		return v.fetcher.BulkDelete(ctx, ids)
	}); err != nil {
		return err
	}
	v.DeselectAll()
	return nil
}

func (v *View) logf(format string, args ...any) {
	if v.logger == nil {
		return
	}
	v.logger.Printf(format, args...)
}
