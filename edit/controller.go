package edit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dot5enko/virtual-grid/debounce"
	"github.com/dot5enko/virtual-grid/render"
	"github.com/dot5enko/virtual-grid/schema"
)

// Controller drives cell editing and focus traversal for one table.
//
//	Idle --activate--> Editing --blur/Enter/Tab--> Committing --> Idle
//	Editing --Escape--> Idle
//
// Only one cell edits at a time. Commit errors stay attached to their cell
// until the cell is edited again.
type Controller struct {
	rows      Rows
	cols      Columns
	committer Committer
	debouncer *debounce.Group
	logger    *slog.Logger

	focus   Addr
	session *Session
	errs    map[cellKey]error

	lock sync.Mutex
}

func NewController(rows Rows, cols Columns, committer Committer, debouncer *debounce.Group, logger *slog.Logger) *Controller {
	if debouncer == nil {
		debouncer = debounce.NewGroup()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		rows:      rows,
		cols:      cols,
		committer: committer,
		debouncer: debouncer,
		logger:    logger,
		errs:      map[cellKey]error{},
	}
}

func (c *Controller) Focus() Addr {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.focus
}

// Session returns a copy of the active session, nil when idle.
func (c *Controller) Session() *Session {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Controller) Phase() Phase {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session == nil {
		return Idle
	}
	return c.session.Phase
}

func (c *Controller) loaded(row int) (schema.RowSlot, bool) {
	slot, err := c.rows.Get(row)
	if err != nil || !slot.Loaded() {
		return slot, false
	}
	return slot, true
}

// SetFocus moves focus to addr (mouse click). Unloaded rows and cells
// outside the grid are ignored. Editing sessions are not committed here,
// call Blur first.
func (c *Controller) SetFocus(addr Addr) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.moveToLocked(addr)
}

// FocusColumn keeps the focused row and moves to col, clamped to the visible
// columns. Used after the column layout changed under the focus.
func (c *Controller) FocusColumn(col int) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	cols := len(c.cols.Visible())
	c.focus.Col = min(max(col, 0), max(cols-1, 0))

	return c.focus.Col
}

func (c *Controller) moveToLocked(addr Addr) bool {
	cols := len(c.cols.Visible())

	if addr.Row < 0 || addr.Row >= c.rows.Len() || addr.Col < 0 || addr.Col >= cols {
		return false
	}
	if _, ok := c.loaded(addr.Row); !ok {
		return false
	}

	c.focus = addr
	return true
}

func (c *Controller) cellKeyAt(addr Addr) (cellKey, bool) {
	slot, ok := c.loaded(addr.Row)
	if !ok {
		return cellKey{}, false
	}

	cols := c.cols.Visible()
	if addr.Col < 0 || addr.Col >= len(cols) {
		return cellKey{}, false
	}

	return cellKey{rowID: slot.Record.ID, columnKey: cols[addr.Col].Key}, true
}

// CellError returns the inline error of the last failed commit for the cell.
func (c *Controller) CellError(addr Addr) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	key, ok := c.cellKeyAt(addr)
	if !ok {
		return nil
	}
	return c.errs[key]
}

func (c *Controller) ClearError(addr Addr) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if key, ok := c.cellKeyAt(addr); ok {
		delete(c.errs, key)
	}
}

// Activate starts editing the focused cell. PrintableKey replaces the cell
// text with seed, other triggers start from the current value.
func (c *Controller) Activate(trigger Trigger, seed rune) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.activateLocked(trigger, seed)
}

func (c *Controller) activateLocked(trigger Trigger, seed rune) error {

	if c.session != nil {
		return ErrAlreadyEditing
	}

	slot, ok := c.loaded(c.focus.Row)
	if !ok {
		return fmt.Errorf("%w: %d", ErrRowNotLoaded, c.focus.Row)
	}

	cols := c.cols.Visible()
	if c.focus.Col < 0 || c.focus.Col >= len(cols) || c.focus.Col >= len(slot.Record.Values) {
		return fmt.Errorf("%w: %d,%d", ErrNoCell, c.focus.Row, c.focus.Col)
	}

	col := cols[c.focus.Col]
	value := slot.Record.Values[c.focus.Col]
	text := render.Format(col.Type, value)

	s := &Session{
		Addr:          c.focus,
		RowID:         slot.Record.ID,
		ColumnKey:     col.Key,
		Type:          col.Type,
		OriginalValue: value,
		Original:      text,
		Pending:       text,
		Phase:         Editing,
		Token:         c.rows.Token(),
	}

	if trigger == PrintableKey {
		s.Pending = string(seed)
	}

	delete(c.errs, cellKey{rowID: s.RowID, columnKey: s.ColumnKey})
	c.session = s

	return nil
}

// Input replaces the pending text of the active session.
func (c *Controller) Input(text string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session == nil || c.session.Phase != Editing {
		return ErrNotEditing
	}
	c.session.Pending = text
	return nil
}

// Cancel drops the pending value without calling the committer.
func (c *Controller) Cancel() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session == nil || c.session.Phase != Editing {
		return false
	}
	c.session = nil
	return true
}

// Blur commits the active session without moving focus.
func (c *Controller) Blur(ctx context.Context) (Outcome, error) {
	return c.Commit(ctx)
}

// Commit finishes the active session. Unchanged text short-circuits to Idle
// without a committer call. On success the loaded record is updated in place
// so the grid shows the new value before any refetch.
func (c *Controller) Commit(ctx context.Context) (Outcome, error) {

	c.lock.Lock()

	s := c.session
	if s == nil {
		c.lock.Unlock()
		return Nothing, ErrNotEditing
	}
	if s.Phase == Committing {
		c.lock.Unlock()
		return Nothing, ErrCommitInProgress
	}

	pending := strings.TrimSpace(s.Pending)

	if pending == strings.TrimSpace(s.Original) {
		c.session = nil
		c.lock.Unlock()
		return Unchanged, nil
	}

	key := cellKey{rowID: s.RowID, columnKey: s.ColumnKey}

	value, parseErr := render.Parse(s.Type, pending)
	if parseErr != nil {
		c.errs[key] = parseErr
		c.session = nil
		c.lock.Unlock()
		return Failed, fmt.Errorf("%w: %w", ErrCommitFailed, parseErr)
	}

	s.Phase = Committing
	sess := *s

	c.lock.Unlock()

	var saveErr error
	c.debouncer.Now("cell:"+sess.RowID+":"+sess.ColumnKey, func() {
		if c.committer != nil {
			saveErr = c.committer.Save(ctx, sess.RowID, sess.ColumnKey, value)
		}
	})

	c.lock.Lock()
	defer c.lock.Unlock()

	c.session = nil

	if saveErr != nil {
		c.errs[key] = saveErr
		c.logger.Warn("cell commit failed", "row_id", sess.RowID, "column", sess.ColumnKey, "err", saveErr)
		return Failed, fmt.Errorf("%w: %w", ErrCommitFailed, saveErr)
	}

	delete(c.errs, key)

	// a requery in the meantime means the slot no longer holds this row
	if c.rows.Token() == sess.Token {
		if err := c.rows.SetValue(sess.Row, sess.Col, value); err != nil {
			c.logger.Debug("optimistic update skipped", "row", sess.Row, "col", sess.Col, "err", err)
		}
	}

	return Committed, nil
}
