package window

import (
	"context"
	"sync"

	"github.com/dot5enko/virtual-grid/debounce"
	"github.com/dot5enko/virtual-grid/ranges"
	"github.com/dot5enko/virtual-grid/schema"
	"github.com/google/uuid"
)

type inflightRequest struct {
	Range schema.FetchRange
	Token uint64
}

// Coordinator turns viewport changes into the minimal set of row fetches.
// Planning and claiming (MarkPending) happen under one lock, so two scans
// never request the same slot; responses from superseded queries are dropped
// by the store token check.
type Coordinator struct {
	slots     Slots
	layout    Layout
	fetcher   Fetcher
	debouncer *debounce.Group
	cfg       Config

	query    schema.Query
	viewport Viewport
	scrolled bool

	inflight map[uuid.UUID]inflightRequest
	failures map[schema.FetchRange]int
	banner   *Banner

	onChange func()
	id       uuid.UUID

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lock sync.Mutex
}

func NewCoordinator(query schema.Query, slots Slots, layout Layout, fetcher Fetcher, debouncer *debounce.Group, cfg Config) *Coordinator {

	if debouncer == nil {
		debouncer = debounce.NewGroup()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		slots:     slots,
		layout:    layout,
		fetcher:   fetcher,
		debouncer: debouncer,
		cfg:       cfg.WithDefaults(),
		query:     query,
		inflight:  map[uuid.UUID]inflightRequest{},
		failures:  map[schema.FetchRange]int{},
		ctx:       ctx,
		cancel:    cancel,
		id:        uuid.New(),
	}
}

// OnChange registers fn to be called after fetched rows were applied.
func (c *Coordinator) OnChange(fn func()) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.onChange = fn
}

func (c *Coordinator) Config() Config {
	return c.cfg
}

func (c *Coordinator) Viewport() Viewport {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.viewport
}

// VisibleSpan is the row span the viewport currently shows.
func (c *Coordinator) VisibleSpan() ranges.Span {
	vp := c.Viewport()
	return ranges.VisibleSpan(vp.ScrollTop, vp.Height, c.cfg.RowHeight, c.slots.Len())
}

// Plan computes the fetch batches the viewport needs, without claiming them.
func (c *Coordinator) Plan(vp Viewport) []schema.FetchRange {

	total := c.slots.Len()
	if total == 0 {
		return nil
	}

	visible := ranges.VisibleSpan(vp.ScrollTop, vp.Height, c.cfg.RowHeight, total)
	window := ranges.Expand(visible, c.cfg.Threshold, total)
	if window.Empty() {
		return nil
	}

	states := c.slots.States(window.From, window.To)
	runs := ranges.Runs(states, window.From, schema.Unloaded)

	return ranges.Coalesce(runs, c.cfg.MinBatchSize, total, c.slots.State)
}

// Scan plans for vp, claims the planned slots and starts the fetches.
// Returns the ranges that were requested.
func (c *Coordinator) Scan(vp Viewport) []schema.FetchRange {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.viewport = vp
	c.scrolled = true

	return c.scanLocked()
}

func (c *Coordinator) scanLocked() []schema.FetchRange {

	if c.ctx.Err() != nil {
		return nil
	}

	planned := c.Plan(c.viewport)
	if len(planned) == 0 {
		return nil
	}

	cols, version := c.layout.VisibleWithVersion()
	keys := schema.ColumnKeys(cols)
	token := c.slots.Token()

	issued := make([]schema.FetchRange, 0, len(planned))

	for _, r := range planned {
		if c.slots.MarkPending(r.Skip, r.Take) == 0 {
			continue
		}

		req := FetchRequest{
			Query:   c.query,
			Range:   r,
			Columns: keys,
			Layout:  version,
		}

		c.startLocked(req, token)
		issued = append(issued, r)
	}

	return issued
}

// OnScroll records the viewport and schedules one scan per frame, however many
// scroll events arrive in between.
func (c *Coordinator) OnScroll(vp Viewport) {
	c.lock.Lock()
	c.viewport = vp
	c.scrolled = true
	c.lock.Unlock()

	c.debouncer.Coalesce(c.scanKey(), c.cfg.FrameDelay, c.rescan)
}

// Flush runs a scheduled scan right away.
func (c *Coordinator) Flush() bool {
	return c.debouncer.Flush(c.scanKey())
}

func (c *Coordinator) scanKey() string {
	return "scan:" + c.id.String()
}

func (c *Coordinator) rescan() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.scrolled {
		c.scanLocked()
	}
}

// Rescan repeats the last scan, used after a requery.
func (c *Coordinator) Rescan() []schema.FetchRange {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.scrolled {
		return nil
	}
	return c.scanLocked()
}

// Reset forgets in-flight requests and failure counters. Call it after the
// store was reset for a new query; late responses are discarded either way.
// Slots claimed under the current token by a forgotten request go back to
// Unloaded, otherwise nothing would ever fetch them.
func (c *Coordinator) Reset(query schema.Query) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.debouncer.Cancel(c.scanKey())

	for id, req := range c.inflight {
		if n := c.slots.RevertPending(req.Token, req.Range.Skip, req.Range.Take); n > 0 {
			c.cfg.Logger.Debug("forgotten claim reverted", "request_id", id.String(), "range", req.Range.String(), "slots", n)
		}
	}

	c.query = query
	c.inflight = map[uuid.UUID]inflightRequest{}
	c.failures = map[schema.FetchRange]int{}
	c.banner = nil
}

func (c *Coordinator) InFlight() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.inflight)
}

func (c *Coordinator) Banner() *Banner {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.banner == nil {
		return nil
	}
	b := *c.banner
	return &b
}

func (c *Coordinator) DismissBanner() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.banner = nil
}

// Wait blocks until every started fetch has completed or timed out.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close stops scheduling and cancels running fetches.
func (c *Coordinator) Close() {
	c.debouncer.Cancel(c.scanKey())
	c.cancel()
	c.wg.Wait()
}
