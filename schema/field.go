package schema

// Column describes one configurable grid column of a parent entity.
// Removing a column from the grid is modelled as Hidden, the descriptor itself
// is never dropped because stored rows may still reference its key.
type Column struct {
	ID    string     `json:"id"`
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Type  ColumnType `json:"type"`

	Width         int  `json:"width"`
	OrderPriority int  `json:"order_priority"`
	Hidden        bool `json:"hidden"`
}

const (
	DefaultMinColumnWidth = 50
	DefaultMaxColumnWidth = 800
	DefaultColumnWidth    = 120
)

func CloneColumns(cols []Column) []Column {
	if cols == nil {
		return nil
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}

func ColumnKeys(cols []Column) []string {
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.Key
	}
	return keys
}

func ColumnIDs(cols []Column) []string {
	ids := make([]string, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	return ids
}
