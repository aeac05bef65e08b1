package columns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dot5enko/virtual-grid/debounce"
	"github.com/dot5enko/virtual-grid/ranges"
	"github.com/dot5enko/virtual-grid/schema"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrDuplicateColumn = errors.New("duplicate column id")
)

// Persistence stores the full column configuration of a parent entity.
// Save must be idempotent, the last write wins.
type Persistence interface {
	Save(ctx context.Context, parentID string, cols []schema.Column) error
}

type Options struct {
	MinWidth int
	MaxWidth int

	PersistDelay time.Duration
	SaveTimeout  time.Duration

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MinWidth <= 0 {
		o.MinWidth = schema.DefaultMinColumnWidth
	}
	if o.MaxWidth < o.MinWidth {
		o.MaxWidth = max(schema.DefaultMaxColumnWidth, o.MinWidth)
	}
	if o.PersistDelay <= 0 {
		o.PersistDelay = 500 * time.Millisecond
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type Status struct {
	Unsaved bool
	LastErr error

	Saves    int
	Failures int
}

// Model owns the column descriptors of one table. Local state is the source
// of truth for rendering; the backing store catches up through debounced saves.
type Model struct {
	parentID string
	cols     []schema.Column

	// bumped whenever the visible order or set changes
	version uint64
	// bumped on every mutation, used to tell whether a save is still current
	gen uint64

	persistence Persistence
	debouncer   *debounce.Group
	opts        Options

	status   Status
	onLayout []func(version uint64)

	lock sync.RWMutex
}

func New(parentID string, cols []schema.Column, persistence Persistence, debouncer *debounce.Group, opts Options) (*Model, error) {

	opts = opts.withDefaults()

	if debouncer == nil {
		debouncer = debounce.NewGroup()
	}

	seen := map[string]bool{}
	normalized := schema.CloneColumns(cols)

	for i := range normalized {
		col := &normalized[i]

		if seen[col.ID] {
			return nil, fmt.Errorf("%w: `%s`", ErrDuplicateColumn, col.ID)
		}
		seen[col.ID] = true

		if col.Width == 0 {
			col.Width = schema.DefaultColumnWidth
		}
		col.Width = ranges.Clamp(col.Width, opts.MinWidth, opts.MaxWidth)
	}

	sortByPriority(normalized)

	return &Model{
		parentID:    parentID,
		cols:        normalized,
		version:     1,
		persistence: persistence,
		debouncer:   debouncer,
		opts:        opts,
	}, nil
}

func sortByPriority(cols []schema.Column) {
	slices.SortStableFunc(cols, func(a, b schema.Column) int {
		return a.OrderPriority - b.OrderPriority
	})
}

func (m *Model) ParentID() string {
	return m.parentID
}

func (m *Model) Version() uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.version
}

// OnLayoutChange registers fn to be called after the visible order or set of
// columns changed. fn runs outside the model lock.
func (m *Model) OnLayoutChange(fn func(version uint64)) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.onLayout = append(m.onLayout, fn)
}

func (m *Model) All() []schema.Column {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return schema.CloneColumns(m.cols)
}

func (m *Model) Visible() []schema.Column {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.visibleLocked()
}

// VisibleWithVersion returns the visible columns together with the layout
// version they belong to.
func (m *Model) VisibleWithVersion() ([]schema.Column, uint64) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.visibleLocked(), m.version
}

func (m *Model) visibleLocked() []schema.Column {
	out := make([]schema.Column, 0, len(m.cols))
	for _, c := range m.cols {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}

func (m *Model) indexOf(id string) int {
	for i := range m.cols {
		if m.cols[i].ID == id {
			return i
		}
	}
	return -1
}

// Reorder applies a new relative order to the listed columns. The listed
// columns take over the positions they occupied before, so columns absent from
// ids (usually hidden ones) keep their place. Returns the visible order to
// render right away.
func (m *Model) Reorder(ids []string) ([]schema.Column, error) {

	m.lock.Lock()

	positions := make([]int, 0, len(ids))
	picked := make([]schema.Column, 0, len(ids))
	seen := map[string]bool{}

	for _, id := range ids {
		if seen[id] {
			m.lock.Unlock()
			return nil, fmt.Errorf("%w: `%s`", ErrDuplicateColumn, id)
		}
		seen[id] = true

		idx := m.indexOf(id)
		if idx < 0 {
			m.lock.Unlock()
			return nil, fmt.Errorf("%w: `%s`", ErrUnknownColumn, id)
		}

		positions = append(positions, idx)
		picked = append(picked, m.cols[idx])
	}

	slices.Sort(positions)

	next := schema.CloneColumns(m.cols)
	for i, pos := range positions {
		next[pos] = picked[i]
	}

	changed := false
	for i := range next {
		if next[i].ID != m.cols[i].ID {
			changed = true
			break
		}
	}

	if !changed {
		visible := m.visibleLocked()
		m.lock.Unlock()
		return visible, nil
	}

	for i := range next {
		next[i].OrderPriority = i
	}

	m.cols = next
	m.version++
	m.gen++

	visible := m.visibleLocked()
	callbacks, version := m.onLayout, m.version

	m.lock.Unlock()

	m.scheduleSave()
	notify(callbacks, version)

	return visible, nil
}

// Resize clamps width into [MinWidth, MaxWidth] and applies it locally. The
// save is debounced so a drag gesture persists only its final width.
func (m *Model) Resize(id string, width int) (int, error) {

	m.lock.Lock()

	idx := m.indexOf(id)
	if idx < 0 {
		m.lock.Unlock()
		return 0, fmt.Errorf("%w: `%s`", ErrUnknownColumn, id)
	}

	clamped := ranges.Clamp(width, m.opts.MinWidth, m.opts.MaxWidth)

	if m.cols[idx].Width == clamped {
		m.lock.Unlock()
		return clamped, nil
	}

	m.cols[idx].Width = clamped
	m.gen++

	m.lock.Unlock()

	m.scheduleSave()

	return clamped, nil
}

// ToggleVisibility flips the hidden flag and returns the new value.
func (m *Model) ToggleVisibility(id string) (bool, error) {

	m.lock.Lock()

	idx := m.indexOf(id)
	if idx < 0 {
		m.lock.Unlock()
		return false, fmt.Errorf("%w: `%s`", ErrUnknownColumn, id)
	}

	m.cols[idx].Hidden = !m.cols[idx].Hidden
	hidden := m.cols[idx].Hidden

	m.version++
	m.gen++

	callbacks, version := m.onLayout, m.version

	m.lock.Unlock()

	m.scheduleSave()
	notify(callbacks, version)

	return hidden, nil
}

func notify(callbacks []func(uint64), version uint64) {
	for _, fn := range callbacks {
		fn(version)
	}
}
