package grid

import (
	"github.com/dot5enko/virtual-grid/columns"
	"github.com/dot5enko/virtual-grid/edit"
	"github.com/dot5enko/virtual-grid/schema"
	"github.com/dot5enko/virtual-grid/store"
	"github.com/dot5enko/virtual-grid/window"
)

// View is a snapshot of everything a renderer needs for one frame.
type View struct {
	Query   schema.Query
	Columns []schema.Column
	Layout  columns.Status

	// Rows holds the slots of the visible span, First is the index of Rows[0].
	First int
	Rows  []schema.RowSlot
	Total int

	Focus   edit.Addr
	Session *edit.Session
	Banner  *window.Banner
	Stats   store.Stats
}

// Window materializes the rows the viewport currently shows. Slots are copies;
// the renderer may hold on to them.
func (t *Table) Window() View {

	span := t.window.VisibleSpan()

	v := View{
		Query:   t.Query(),
		Columns: t.columns.Visible(),
		Layout:  t.columns.Status(),
		First:   span.From,
		Total:   t.rows.Len(),
		Focus:   t.editor.Focus(),
		Session: t.editor.Session(),
		Banner:  t.window.Banner(),
		Stats:   t.rows.Stats(),
	}

	if span.Empty() {
		v.First = 0
		return v
	}

	v.Rows = make([]schema.RowSlot, 0, span.Len())

	for i := span.From; i <= span.To; i++ {
		slot, err := t.rows.Get(i)
		if err != nil {
			// the store shrank under a concurrent requery
			break
		}
		v.Rows = append(v.Rows, slot)
	}

	return v
}
