package schema

import "fmt"

type SortOrder uint8

const (
	Asc SortOrder = iota
	Desc
)

func (s SortOrder) String() string {
	if s == Desc {
		return "desc"
	}
	return "asc"
}

func (s SortOrder) Toggle() SortOrder {
	if s == Desc {
		return Asc
	}
	return Desc
}

// Query identifies one logical row sequence: rows of a parent entity in a
// given sort. Changing any part of it invalidates every loaded slot.
type Query struct {
	ParentID  string
	SortKey   string
	SortOrder SortOrder
}

func (q Query) String() string {
	return fmt.Sprintf("%s[%s %s]", q.ParentID, q.SortKey, q.SortOrder.String())
}
