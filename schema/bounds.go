package schema

import "fmt"

// FetchRange is a half-open slice [Skip, Skip+Take) of the row sequence.
type FetchRange struct {
	Skip int
	Take int
}

func (r FetchRange) End() int {
	return r.Skip + r.Take
}

func (r FetchRange) Valid() bool {
	return r.Skip >= 0 && r.Take > 0
}

func (r FetchRange) Contains(index int) bool {
	return index >= r.Skip && index < r.End()
}

func (r FetchRange) Overlaps(other FetchRange) bool {
	return r.Skip < other.End() && other.Skip < r.End()
}

// Clamp cuts the range to [0, total). The result may be empty (Take == 0).
func (r FetchRange) Clamp(total int) FetchRange {
	if r.Skip < 0 {
		r.Take += r.Skip
		r.Skip = 0
	}
	if r.End() > total {
		r.Take = total - r.Skip
	}
	if r.Take < 0 {
		r.Take = 0
	}
	return r
}

func (r FetchRange) String() string {
	return fmt.Sprintf("skip=%d,take=%d", r.Skip, r.Take)
}
