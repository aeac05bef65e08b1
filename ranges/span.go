package ranges

import (
	"math"

	"github.com/dot5enko/virtual-grid/schema"
	"golang.org/x/exp/constraints"
)

func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Span is an inclusive index interval. To < From means empty.
type Span struct {
	From int
	To   int
}

var EmptySpan = Span{From: 0, To: -1}

func (s Span) Empty() bool {
	return s.To < s.From
}

func (s Span) Len() int {
	if s.Empty() {
		return 0
	}
	return s.To - s.From + 1
}

func (s Span) Range() schema.FetchRange {
	return schema.FetchRange{Skip: s.From, Take: s.Len()}
}

// VisibleSpan maps viewport geometry to the rows it touches:
// [floor(scrollTop/rowHeight), ceil((scrollTop+viewportHeight)/rowHeight)]
// clamped to [0, total).
func VisibleSpan(scrollTop, viewportHeight, rowHeight float64, total int) Span {
	if total <= 0 || rowHeight <= 0 {
		return EmptySpan
	}

	scrollTop = math.Max(scrollTop, 0)
	viewportHeight = math.Max(viewportHeight, 0)

	from := int(math.Floor(scrollTop / rowHeight))
	to := int(math.Ceil((scrollTop + viewportHeight) / rowHeight))

	if from > total-1 {
		from = total - 1
	}

	return Span{
		From: from,
		To:   Clamp(to, from, total-1),
	}
}

func Expand(s Span, threshold, total int) Span {
	if s.Empty() || total <= 0 {
		return EmptySpan
	}

	return Span{
		From: Clamp(s.From-threshold, 0, total-1),
		To:   Clamp(s.To+threshold, 0, total-1),
	}
}
