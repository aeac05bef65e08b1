package edit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dot5enko/virtual-grid/schema"
	"github.com/dot5enko/virtual-grid/store"
)

type staticColumns []schema.Column

func (s staticColumns) Visible() []schema.Column {
	return s
}

type call struct {
	rowID string
	key   string
	value any
}

type fakeCommitter struct {
	lock  sync.Mutex
	calls []call
	fail  error
}

func (f *fakeCommitter) Save(ctx context.Context, rowID, columnKey string, value any) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.calls = append(f.calls, call{rowID, columnKey, value})
	return f.fail
}

func (f *fakeCommitter) count() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.calls)
}

var testCols = staticColumns{
	{ID: "c1", Key: "name", Type: schema.TextColumn},
	{ID: "c2", Key: "qty", Type: schema.IntegerColumn},
	{ID: "c3", Key: "note", Type: schema.TextColumn},
}

// rows 0..4 loaded, 5..9 unloaded
func setup(t *testing.T) (*Controller, *store.RowStore, *fakeCommitter) {
	rows := store.New()
	token := rows.Reset(10, nil)

	recs := []schema.RowRecord{}
	for i := 0; i < 5; i++ {
		recs = append(recs, schema.RowRecord{ID: string(rune('a' + i)), Values: []any{"A", int64(i), ""}})
	}
	rows.ApplyLoaded(token, 0, recs)

	committer := &fakeCommitter{}
	return NewController(rows, testCols, committer, nil, nil), rows, committer
}

func value(t *testing.T, rows *store.RowStore, row, col int) any {
	slot, err := rows.Get(row)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	return slot.Record.Values[col]
}

func TestCommitRoundTrip(t *testing.T) {

	c, rows, committer := setup(t)
	ctx := context.Background()

	if err := c.Activate(DoubleClick, 0); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if c.Phase() != Editing {
		t.Fatalf("expected editing phase, got %s", c.Phase().String())
	}

	c.Input("  B ")

	outcome, err := c.Commit(ctx)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	} else if outcome != Committed {
		t.Errorf("expected Committed, got %d", outcome)
	}

	if v := value(t, rows, 0, 0); v != "B" {
		t.Errorf("expected B, got %v", v)
	}
	if committer.count() != 1 || committer.calls[0] != (call{"a", "name", "B"}) {
		t.Errorf("unexpected committer calls %+v", committer.calls)
	}
	if c.Phase() != Idle {
		t.Errorf("expected idle after commit")
	}
}

func TestUnchangedShortCircuits(t *testing.T) {

	c, _, committer := setup(t)

	c.Activate(EnterKey, 0)
	c.Input("A ")

	outcome, err := c.Commit(context.Background())
	if err != nil || outcome != Unchanged {
		t.Errorf("expected Unchanged, got %d %v", outcome, err)
	}
	if committer.count() != 0 {
		t.Errorf("unchanged value must not reach the committer")
	}
}

func TestCommitFailureReverts(t *testing.T) {

	c, rows, committer := setup(t)
	committer.fail = errors.New("conflict")

	c.Activate(DoubleClick, 0)
	c.Input("B")

	outcome, err := c.Commit(context.Background())
	if !errors.Is(err, ErrCommitFailed) || outcome != Failed {
		t.Fatalf("expected commit failure, got %d %v", outcome, err)
	}

	if v := value(t, rows, 0, 0); v != "A" {
		t.Errorf("expected original value A, got %v", v)
	}
	if cellErr := c.CellError(Addr{0, 0}); cellErr == nil {
		t.Errorf("expected inline error on the cell")
	}
	if cellErr := c.CellError(Addr{1, 0}); cellErr != nil {
		t.Errorf("other cells must not carry the error")
	}

	// editing the cell again clears the inline error
	committer.fail = nil
	c.Activate(DoubleClick, 0)

	if cellErr := c.CellError(Addr{0, 0}); cellErr != nil {
		t.Errorf("error should be cleared on re-activation")
	}
}

func TestParseErrorStaysLocal(t *testing.T) {

	c, rows, committer := setup(t)

	c.SetFocus(Addr{Row: 2, Col: 1})
	c.Activate(DoubleClick, 0)
	c.Input("many")

	if _, err := c.Commit(context.Background()); !errors.Is(err, ErrCommitFailed) {
		t.Errorf("expected commit failure, got %v", err)
	}
	if committer.count() != 0 {
		t.Errorf("invalid input must not reach the committer")
	}
	if v := value(t, rows, 2, 1); v != int64(2) {
		t.Errorf("expected original 2, got %v", v)
	}
}

func TestEscapeCancels(t *testing.T) {

	c, rows, committer := setup(t)
	ctx := context.Background()

	c.HandleKey(ctx, RuneKey('z'))

	if s := c.Session(); s == nil || s.Pending != "z" {
		t.Fatalf("printable key should start editing with seed, got %+v", s)
	}

	outcome, _ := c.HandleKey(ctx, Key{Kind: KeyEscape})
	if outcome != Cancelled || c.Phase() != Idle {
		t.Errorf("expected cancel, got %d", outcome)
	}
	if committer.count() != 0 || value(t, rows, 0, 0) != "A" {
		t.Errorf("cancel must not commit")
	}
}

func TestActivateRejectsUnloadedRow(t *testing.T) {

	rows := store.New()
	rows.Reset(10, nil)

	c := NewController(rows, testCols, &fakeCommitter{}, nil, nil)

	if err := c.Activate(DoubleClick, 0); !errors.Is(err, ErrRowNotLoaded) {
		t.Errorf("expected ErrRowNotLoaded, got %v", err)
	}
}

func TestNavigation(t *testing.T) {

	c, _, _ := setup(t)
	ctx := context.Background()

	c.HandleKey(ctx, Key{Kind: KeyRight})
	c.HandleKey(ctx, Key{Kind: KeyDown})

	if f := c.Focus(); f != (Addr{Row: 1, Col: 1}) {
		t.Errorf("expected 1,1 got %+v", f)
	}

	// wrap to next row
	c.HandleKey(ctx, Key{Kind: KeyTab})
	c.HandleKey(ctx, Key{Kind: KeyTab})

	if f := c.Focus(); f != (Addr{Row: 2, Col: 0}) {
		t.Errorf("expected 2,0 got %+v", f)
	}

	c.HandleKey(ctx, Key{Kind: KeyShiftTab})
	if f := c.Focus(); f != (Addr{Row: 1, Col: 2}) {
		t.Errorf("expected 1,2 got %+v", f)
	}

	c.HandleKey(ctx, Key{Kind: KeyUp})
	c.HandleKey(ctx, Key{Kind: KeyUp})
	if f := c.Focus(); f != (Addr{Row: 0, Col: 2}) {
		t.Errorf("focus must stop at the top, got %+v", f)
	}
}

func TestNavigationStopsAtUnloadedRow(t *testing.T) {

	c, _, _ := setup(t)
	ctx := context.Background()

	c.SetFocus(Addr{Row: 4, Col: 0})

	if outcome, _ := c.HandleKey(ctx, Key{Kind: KeyDown}); outcome != Nothing {
		t.Errorf("moving onto an unloaded row must be a no-op")
	}
	if f := c.Focus(); f.Row != 4 {
		t.Errorf("focus moved to %+v", f)
	}
	if c.SetFocus(Addr{Row: 7, Col: 0}) {
		t.Errorf("click on unloaded row must be ignored")
	}
}

func TestEnterCommitsAndMovesDown(t *testing.T) {

	c, rows, _ := setup(t)
	ctx := context.Background()

	c.HandleKey(ctx, Key{Kind: KeyEnter})
	c.Input("B")

	outcome, err := c.HandleKey(ctx, Key{Kind: KeyEnter})
	if err != nil || outcome != Committed {
		t.Fatalf("expected commit, got %d %v", outcome, err)
	}

	if f := c.Focus(); f != (Addr{Row: 1, Col: 0}) {
		t.Errorf("expected focus on 1,0 got %+v", f)
	}
	if v := value(t, rows, 0, 0); v != "B" {
		t.Errorf("expected B, got %v", v)
	}
}

func TestTabCommitsAndMovesRight(t *testing.T) {

	c, rows, _ := setup(t)
	ctx := context.Background()

	c.SetFocus(Addr{Row: 3, Col: 1})
	c.HandleKey(ctx, RuneKey('9'))
	c.HandleKey(ctx, RuneKey('1'))
	c.HandleKey(ctx, Key{Kind: KeyBackspace})

	outcome, err := c.HandleKey(ctx, Key{Kind: KeyTab})
	if err != nil || outcome != Committed {
		t.Fatalf("expected commit, got %d %v", outcome, err)
	}

	if v := value(t, rows, 3, 1); v != int64(9) {
		t.Errorf("expected 9, got %#v", v)
	}
	if f := c.Focus(); f != (Addr{Row: 3, Col: 2}) {
		t.Errorf("expected focus on 3,2 got %+v", f)
	}
}

func TestFailedCommitKeepsFocus(t *testing.T) {

	c, _, committer := setup(t)
	committer.fail = errors.New("offline")
	ctx := context.Background()

	c.HandleKey(ctx, Key{Kind: KeyEnter})
	c.Input("B")

	if _, err := c.HandleKey(ctx, Key{Kind: KeyEnter}); err == nil {
		t.Fatalf("expected error")
	}
	if f := c.Focus(); f != (Addr{}) {
		t.Errorf("focus must stay on the failed cell, got %+v", f)
	}
}

func TestCommitAfterRequerySkipsOptimisticWrite(t *testing.T) {

	c, rows, committer := setup(t)

	c.Activate(DoubleClick, 0)
	c.Input("B")

	// sort change while editing
	token := rows.Reset(10, nil)
	rows.ApplyLoaded(token, 0, []schema.RowRecord{{ID: "z", Values: []any{"Z", int64(0), ""}}})

	if _, err := c.Commit(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if committer.count() != 1 {
		t.Errorf("commit should still reach the committer")
	}
	if v := value(t, rows, 0, 0); v != "Z" {
		t.Errorf("row of the new query was overwritten: %v", v)
	}
}

func TestFocusColumnIgnoresRowState(t *testing.T) {

	c, rows, _ := setup(t)

	c.SetFocus(Addr{Row: 2, Col: 2})

	// a layout change resets the store, focus must still follow the column
	rows.Reset(10, nil)

	if col := c.FocusColumn(1); col != 1 {
		t.Errorf("expected column 1, got %d", col)
	} else if c.Focus() != (Addr{Row: 2, Col: 1}) {
		t.Errorf("row must not change, got %+v", c.Focus())
	}

	if col := c.FocusColumn(99); col != 2 {
		t.Errorf("expected clamp to last column, got %d", col)
	}
}
