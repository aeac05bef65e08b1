package columns

import (
	"github.com/dot5enko/virtual-grid/ranges"
	"github.com/dot5enko/virtual-grid/schema"
)

// DragState describes an in-progress header drag: column ColumnID moved by
// DeltaX pixels from where the gesture started.
type DragState struct {
	ColumnID string
	DeltaX   int
	Active   bool
}

type Position struct {
	ID       string
	Index    int
	X        int
	Width    int
	Dragging bool
}

// ComputeLayout positions the visible columns for one gesture tick. The
// dragged column follows the pointer, the others slide to open a gap where it
// would land if dropped now. Without an active drag it is the plain layout.
func ComputeLayout(cols []schema.Column, drag DragState) []Position {

	order, draggedX := tentativeOrder(cols, drag)

	out := make([]Position, len(order))
	x := 0

	for i, c := range order {
		p := Position{ID: c.ID, Index: i, X: x, Width: c.Width}

		if drag.Active && c.ID == drag.ColumnID {
			p.X = draggedX
			p.Dragging = true
		}

		out[i] = p
		x += c.Width
	}

	return out
}

// DropOrder is the column id order to hand to Model.Reorder when the drag ends.
func DropOrder(cols []schema.Column, drag DragState) []string {
	order, _ := tentativeOrder(cols, drag)
	return schema.ColumnIDs(order)
}

func tentativeOrder(cols []schema.Column, drag DragState) ([]schema.Column, int) {

	dragged := -1
	if drag.Active {
		for i := range cols {
			if cols[i].ID == drag.ColumnID {
				dragged = i
				break
			}
		}
	}

	if dragged < 0 {
		return cols, 0
	}

	total := 0
	startX := 0
	for i, c := range cols {
		if i == dragged {
			startX = total
		}
		total += c.Width
	}

	width := cols[dragged].Width
	newX := ranges.Clamp(startX+drag.DeltaX, 0, max(total-width, 0))
	center := newX + width/2

	others := make([]schema.Column, 0, len(cols)-1)
	others = append(others, cols[:dragged]...)
	others = append(others, cols[dragged+1:]...)

	target := 0
	x := 0
	for _, c := range others {
		if x+c.Width/2 < center {
			target++
		}
		x += c.Width
	}

	order := make([]schema.Column, 0, len(cols))
	order = append(order, others[:target]...)
	order = append(order, cols[dragged])
	order = append(order, others[target:]...)

	return order, newX
}
