package schema

type SlotState uint8

const (
	Unloaded SlotState = iota
	Pending
	Loaded
)

func (s SlotState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	default:
		return ""
	}
}

// RowRecord holds one resolved row. Values are positional, in the visible
// column order of layout version Layout.
type RowRecord struct {
	ID     string
	Values []any

	Layout uint64
}

func (r RowRecord) Clone() RowRecord {
	values := make([]any, len(r.Values))
	copy(values, r.Values)
	r.Values = values
	return r
}

type RowSlot struct {
	Index  int
	State  SlotState
	Record *RowRecord
}

func (s RowSlot) Loaded() bool {
	return s.State == Loaded && s.Record != nil
}
