package grid

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dot5enko/virtual-grid/columns"
	"github.com/dot5enko/virtual-grid/debounce"
	"github.com/dot5enko/virtual-grid/edit"
	"github.com/dot5enko/virtual-grid/schema"
	"github.com/dot5enko/virtual-grid/store"
	"github.com/dot5enko/virtual-grid/window"
	"golang.org/x/sync/errgroup"
)

// Table is the context object of one grid instance. It owns the row store,
// the column model, the scroll coordinator and the edit controller, all of
// which share a single debounce group.
type Table struct {
	deps Deps
	cfg  Config

	rows      *store.RowStore
	columns   *columns.Model
	window    *window.Coordinator
	editor    *edit.Controller
	debouncer *debounce.Group
	logger    *slog.Logger

	query       schema.Query
	savedOffset float64

	changes chan struct{}
	closed  bool

	lock sync.RWMutex
}

// Open loads the column configuration, row count and saved scroll offset of
// query.ParentID concurrently and assembles a table around them.
func Open(ctx context.Context, deps Deps, query schema.Query, cfg Config) (*Table, error) {

	if err := deps.validate(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()
	logger := cfg.Logger.With("parent_id", query.ParentID)

	var (
		cols   []schema.Column
		total  int
		offset float64
	)

	g, gctx := errgroup.WithContext(ctx)

	if deps.Columns != nil {
		g.Go(func() error {
			loaded, err := deps.Columns.Load(gctx, query.ParentID)
			if err != nil {
				return fmt.Errorf("unable to load columns: %w", err)
			}
			cols = loaded
			return nil
		})
	}

	g.Go(func() error {
		n, err := deps.Counter.Count(gctx, query)
		if err != nil {
			return fmt.Errorf("unable to count rows: %w", err)
		}
		total = n
		return nil
	})

	if deps.Offsets != nil {
		g.Go(func() error {
			saved, err := deps.Offsets.LoadOffset(gctx, query.ParentID)
			if err != nil {
				// a lost scroll position is not worth failing the table
				logger.Warn("scroll offset not loaded", "err", err)
				return nil
			}
			offset = saved
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(cols) == 0 {
		cols = cfg.DefaultColumns
	}

	debouncer := debounce.NewGroup()

	model, err := columns.New(query.ParentID, cols, deps.Columns, debouncer, columns.Options{
		MinWidth:     cfg.MinColumnWidth,
		MaxWidth:     cfg.MaxColumnWidth,
		PersistDelay: cfg.PersistDelay,
		SaveTimeout:  cfg.SaveTimeout,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to build column model: %w", err)
	}

	rows := store.New()
	rows.Reset(total, nil)

	t := &Table{
		deps:        deps,
		cfg:         cfg,
		rows:        rows,
		columns:     model,
		debouncer:   debouncer,
		logger:      logger,
		query:       query,
		savedOffset: max(offset, 0),
		changes:     make(chan struct{}, 1),
	}

	t.window = window.NewCoordinator(query, rows, model, deps.Rows, debouncer, cfg.window())
	t.editor = edit.NewController(rows, model, deps.Cells, debouncer, logger)

	t.window.OnChange(t.notify)
	model.OnLayoutChange(t.onLayoutChange)

	logger.Info("table opened", "total", total, "columns", len(cols), "offset", t.savedOffset)

	return t, nil
}

func (t *Table) Query() schema.Query {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.query
}

func (t *Table) Config() Config {
	return t.cfg
}

func (t *Table) Rows() *store.RowStore {
	return t.rows
}

func (t *Table) Columns() *columns.Model {
	return t.columns
}

func (t *Table) Editor() *edit.Controller {
	return t.editor
}

func (t *Table) Coordinator() *window.Coordinator {
	return t.window
}

// SavedOffset is the scroll position persisted by a previous session.
func (t *Table) SavedOffset() float64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.savedOffset
}

// Changes delivers a signal whenever rendered state may have changed. Signals
// coalesce; the channel is closed by Close.
func (t *Table) Changes() <-chan struct{} {
	return t.changes
}

func (t *Table) notify() {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.closed {
		return
	}

	select {
	case t.changes <- struct{}{}:
	default:
	}
}

// Scroll feeds a viewport change. Fetching happens once per frame and the
// offset is persisted after PersistDelay of quiet.
func (t *Table) Scroll(vp window.Viewport) {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return
	}
	t.savedOffset = vp.ScrollTop
	t.lock.Unlock()

	t.window.OnScroll(vp)
	t.scheduleOffsetSave(vp.ScrollTop)
}

// ScrollNow scans vp immediately, used for the first paint.
func (t *Table) ScrollNow(vp window.Viewport) []schema.FetchRange {
	if t.isClosed() {
		return nil
	}
	return t.window.Scan(vp)
}

func (t *Table) offsetKey() string {
	return "offset:" + t.columns.ParentID()
}

func (t *Table) scheduleOffsetSave(offset float64) {
	if t.deps.Offsets == nil {
		return
	}

	parentID := t.columns.ParentID()

	t.debouncer.Trigger(t.offsetKey(), t.cfg.PersistDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.SaveTimeout)
		defer cancel()

		if err := t.deps.Offsets.SaveOffset(ctx, parentID, offset); err != nil {
			t.logger.Warn("scroll offset not saved", "offset", offset, "err", err)
		}
	})
}

// SetSort switches the sort of the child collection. The store is reset with
// a new token, so responses still in flight for the old order are dropped.
func (t *Table) SetSort(ctx context.Context, key string, order schema.SortOrder) error {
	q := t.Query()
	q.SortKey = key
	q.SortOrder = order

	return t.requery(ctx, q)
}

// Refresh recounts and reloads the current query from scratch.
func (t *Table) Refresh(ctx context.Context) error {
	return t.requery(ctx, t.Query())
}

func (t *Table) requery(ctx context.Context, q schema.Query) error {

	if t.isClosed() {
		return ErrClosed
	}

	total, err := t.deps.Counter.Count(ctx, q)
	if err != nil {
		return fmt.Errorf("unable to count rows: %w", err)
	}

	t.lock.Lock()
	t.query = q
	t.lock.Unlock()

	t.editor.Cancel()

	token := t.rows.Reset(total, nil)
	t.window.Reset(q)
	t.window.Rescan()

	t.logger.Info("requery", "query", q.String(), "total", total, "token", token)

	t.notify()
	return nil
}

// onLayoutChange drops every loaded row. Records hold values positionally by
// the visible column order at fetch time, so they cannot survive a reorder or
// a visibility toggle.
func (t *Table) onLayoutChange(version uint64) {

	if t.isClosed() {
		return
	}

	q := t.Query()

	token := t.rows.Reset(t.rows.Len(), nil)
	t.window.Reset(q)
	t.window.Rescan()

	t.logger.Debug("layout changed, rows invalidated", "layout", version, "token", token)

	t.notify()
}

func (t *Table) Banner() *window.Banner {
	return t.window.Banner()
}

// Retry dismisses the fetch failure banner and scans the last viewport again.
func (t *Table) Retry() []schema.FetchRange {
	t.window.DismissBanner()
	issued := t.window.Rescan()
	t.notify()
	return issued
}

// HandleKey forwards a key press to the edit controller.
func (t *Table) HandleKey(ctx context.Context, key edit.Key) (edit.Outcome, error) {
	outcome, err := t.editor.HandleKey(ctx, key)
	if outcome != edit.Nothing {
		t.notify()
	}
	return outcome, err
}

func (t *Table) isClosed() bool {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.closed
}

// Close flushes pending column and scroll offset saves, stops fetching and
// closes the Changes channel.
func (t *Table) Close() error {

	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return nil
	}
	t.closed = true
	close(t.changes)
	t.lock.Unlock()

	t.window.Close()

	flushed := t.debouncer.FlushAll()
	t.debouncer.Stop()

	t.logger.Info("table closed", "flushed", flushed)

	if st := t.columns.Status(); st.Unsaved && st.LastErr != nil {
		return fmt.Errorf("unable to persist column layout: %w", st.LastErr)
	}

	return nil
}
