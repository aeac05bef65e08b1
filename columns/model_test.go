package columns

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dot5enko/virtual-grid/debounce"
	"github.com/dot5enko/virtual-grid/schema"
)

type recordingPersistence struct {
	lock  sync.Mutex
	saves [][]schema.Column
	fail  error
}

func (p *recordingPersistence) Save(ctx context.Context, parentID string, cols []schema.Column) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.saves = append(p.saves, schema.CloneColumns(cols))
	return p.fail
}

func (p *recordingPersistence) count() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.saves)
}

func (p *recordingPersistence) last() []schema.Column {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.saves[len(p.saves)-1]
}

func testColumns() []schema.Column {
	return []schema.Column{
		{ID: "col_1", Key: "name", Label: "Name", Width: 120, OrderPriority: 0},
		{ID: "col_2", Key: "qty", Label: "Qty", Type: schema.IntegerColumn, Width: 80, OrderPriority: 1},
		{ID: "col_3", Key: "owner", Label: "Owner", Type: schema.UserRefColumn, Width: 120, OrderPriority: 2},
		{ID: "col_4", Key: "due", Label: "Due", Type: schema.DateColumn, Width: 100, OrderPriority: 3, Hidden: true},
		{ID: "col_5", Key: "price", Label: "Price", Type: schema.DecimalColumn, Width: 90, OrderPriority: 4},
	}
}

func newTestModel(t *testing.T, p Persistence) (*Model, *debounce.Group) {
	g := debounce.NewGroup()
	m, err := New("parent-1", testColumns(), p, g, Options{PersistDelay: time.Hour})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	return m, g
}

func priorities(cols []schema.Column) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.OrderPriority
	}
	return out
}

func TestVisibleOrdered(t *testing.T) {

	cols := testColumns()
	cols[0].OrderPriority = 10

	m, err := New("p", cols, nil, nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	ids := schema.ColumnIDs(m.Visible())
	expected := []string{"col_2", "col_3", "col_5", "col_1"}

	if !slices.Equal(ids, expected) {
		t.Errorf("expected %v, got %v", expected, ids)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {

	cols := testColumns()
	cols[1].ID = "col_1"

	if _, err := New("p", cols, nil, nil, Options{}); !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("expected ErrDuplicateColumn, got %v", err)
	}
}

func TestReorderIdempotent(t *testing.T) {

	p := &recordingPersistence{}
	m, g := newTestModel(t, p)

	before := priorities(m.All())
	version := m.Version()

	visible, err := m.Reorder(schema.ColumnIDs(m.Visible()))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if !slices.Equal(priorities(m.All()), before) {
		t.Errorf("priorities changed: %v -> %v", before, priorities(m.All()))
	}
	if m.Version() != version {
		t.Errorf("version bumped on no-op reorder")
	}
	if len(visible) != 4 {
		t.Errorf("expected 4 visible columns, got %d", len(visible))
	}

	g.FlushAll()

	if p.count() != 0 {
		t.Errorf("no-op reorder must not be persisted")
	}
}

func TestReorderKeepsHiddenInPlace(t *testing.T) {

	p := &recordingPersistence{}
	m, g := newTestModel(t, p)

	var notified uint64
	m.OnLayoutChange(func(v uint64) { notified = v })

	visible, err := m.Reorder([]string{"col_5", "col_1", "col_2", "col_3"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if ids := schema.ColumnIDs(visible); !slices.Equal(ids, []string{"col_5", "col_1", "col_2", "col_3"}) {
		t.Errorf("unexpected visible order %v", ids)
	}

	all := schema.ColumnIDs(m.All())
	if all[3] != "col_4" {
		t.Errorf("hidden column moved: %v", all)
	}
	if !slices.Equal(priorities(m.All()), []int{0, 1, 2, 3, 4}) {
		t.Errorf("priorities not recomputed: %v", priorities(m.All()))
	}
	if notified != m.Version() {
		t.Errorf("layout observer not notified, got %d want %d", notified, m.Version())
	}

	g.FlushAll()

	if p.count() != 1 {
		t.Errorf("expected 1 save, got %d", p.count())
	}
}

func TestReorderUnknownColumn(t *testing.T) {

	m, _ := newTestModel(t, nil)

	if _, err := m.Reorder([]string{"col_1", "nope"}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
	if _, err := m.Reorder([]string{"col_1", "col_1"}); !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("expected ErrDuplicateColumn, got %v", err)
	}
}

func TestResizeDragSavesOnce(t *testing.T) {

	p := &recordingPersistence{}
	m, g := newTestModel(t, p)

	version := m.Version()

	// one drag gesture on col_3 from 120 to 340
	for w := 121; w <= 340; w++ {
		if _, err := m.Resize("col_3", w); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	}

	if p.count() != 0 {
		t.Fatalf("saves must wait for the drag to settle, got %d", p.count())
	}

	g.FlushAll()

	if p.count() != 1 {
		t.Fatalf("expected exactly one save, got %d", p.count())
	}

	for _, c := range p.last() {
		if c.ID == "col_3" && c.Width != 340 {
			t.Errorf("expected final width 340, got %d", c.Width)
		}
	}

	if m.Version() != version {
		t.Errorf("resize must not change layout version")
	}
	if m.Status().Unsaved {
		t.Errorf("layout should be saved")
	}
}

func TestResizeClamps(t *testing.T) {

	m, _ := newTestModel(t, nil)

	if w, _ := m.Resize("col_1", 10); w != schema.DefaultMinColumnWidth {
		t.Errorf("expected min width, got %d", w)
	}
	if w, _ := m.Resize("col_1", 5000); w != schema.DefaultMaxColumnWidth {
		t.Errorf("expected max width, got %d", w)
	}
	if _, err := m.Resize("missing", 100); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestPersistenceFailureKeepsLocalState(t *testing.T) {

	p := &recordingPersistence{fail: errors.New("backend down")}
	m, g := newTestModel(t, p)

	m.Resize("col_2", 200)
	g.FlushAll()

	st := m.Status()
	if !st.Unsaved || st.LastErr == nil || st.Failures != 1 {
		t.Errorf("expected unsaved status with error, got %+v", st)
	}

	for _, c := range m.All() {
		if c.ID == "col_2" && c.Width != 200 {
			t.Errorf("local width rolled back to %d", c.Width)
		}
	}

	p.fail = nil

	if !m.RetrySave() {
		t.Fatalf("expected retry")
	}

	if st := m.Status(); st.Unsaved || st.LastErr != nil {
		t.Errorf("expected saved status after retry, got %+v", st)
	}
}

func TestToggleVisibility(t *testing.T) {

	m, _ := newTestModel(t, nil)

	version := m.Version()

	hidden, err := m.ToggleVisibility("col_4")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	} else if hidden {
		t.Errorf("expected col_4 visible")
	}

	if len(m.Visible()) != 5 {
		t.Errorf("expected 5 visible columns, got %d", len(m.Visible()))
	}
	if m.Version() == version {
		t.Errorf("visibility change must bump layout version")
	}
}
