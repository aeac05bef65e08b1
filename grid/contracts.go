package grid

import (
	"context"
	"errors"
	"fmt"

	"github.com/dot5enko/virtual-grid/columns"
	"github.com/dot5enko/virtual-grid/edit"
	"github.com/dot5enko/virtual-grid/schema"
	"github.com/dot5enko/virtual-grid/window"
)

var (
	ErrMissingDependency = errors.New("missing dependency")
	ErrClosed            = errors.New("table is closed")
)

type (
	RowFetcher   = window.Fetcher
	FetchRequest = window.FetchRequest
	CellCommit   = edit.Committer
)

// RowCounter reports how many child rows a query matches.
type RowCounter interface {
	Count(ctx context.Context, q schema.Query) (int, error)
}

// ColumnPersistence loads and stores the column configuration of a parent.
// Load returns an empty slice when nothing was saved yet.
type ColumnPersistence interface {
	columns.Persistence
	Load(ctx context.Context, parentID string) ([]schema.Column, error)
}

// ScrollOffsetStore keeps the last scroll position per parent between sessions.
type ScrollOffsetStore interface {
	LoadOffset(ctx context.Context, parentID string) (float64, error)
	SaveOffset(ctx context.Context, parentID string, offset float64) error
}

// Deps are the data layer collaborators of a table. Columns and Offsets are
// optional.
type Deps struct {
	Rows    RowFetcher
	Counter RowCounter
	Cells   CellCommit
	Columns ColumnPersistence
	Offsets ScrollOffsetStore
}

func (d Deps) validate() error {
	switch {
	case d.Rows == nil:
		return fmt.Errorf("%w: row fetcher", ErrMissingDependency)
	case d.Counter == nil:
		return fmt.Errorf("%w: row counter", ErrMissingDependency)
	case d.Cells == nil:
		return fmt.Errorf("%w: cell commit", ErrMissingDependency)
	}
	return nil
}
