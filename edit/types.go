package edit

import (
	"context"
	"errors"

	"github.com/dot5enko/virtual-grid/schema"
)

type Phase uint8

const (
	Idle Phase = iota
	Editing
	Committing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Committing:
		return "committing"
	default:
		return ""
	}
}

type Trigger uint8

const (
	DoubleClick Trigger = iota
	EnterKey
	PrintableKey
)

type KeyKind uint8

const (
	KeyUp KeyKind = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyTab
	KeyShiftTab
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyRune
)

type Key struct {
	Kind KeyKind
	Rune rune
}

func RuneKey(r rune) Key {
	return Key{Kind: KeyRune, Rune: r}
}

// Outcome tells the renderer what a key or event did.
type Outcome uint8

const (
	Nothing Outcome = iota
	Moved
	Activated
	Typed
	Committed
	Unchanged
	Cancelled
	Failed
)

type Addr struct {
	Row int
	Col int
}

type cellKey struct {
	rowID     string
	columnKey string
}

// Session is the ephemeral state of the cell being edited.
type Session struct {
	Addr

	RowID     string
	ColumnKey string
	Type      schema.ColumnType

	OriginalValue any
	Original      string
	Pending       string

	Phase Phase
	Token uint64
}

var (
	ErrRowNotLoaded     = errors.New("row is not loaded")
	ErrNotEditing       = errors.New("no cell is being edited")
	ErrAlreadyEditing   = errors.New("a cell is already being edited")
	ErrCommitInProgress = errors.New("commit in progress")
	ErrCommitFailed     = errors.New("cell commit failed")
	ErrNoCell           = errors.New("no such cell")
)

// Rows is the slice of the row store the controller needs.
type Rows interface {
	Get(index int) (schema.RowSlot, error)
	Len() int
	Token() uint64
	SetValue(index, col int, value any) error
}

type Columns interface {
	Visible() []schema.Column
}

// Committer persists a single cell edit.
type Committer interface {
	Save(ctx context.Context, rowID, columnKey string, value any) error
}
