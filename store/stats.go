package store

import "github.com/dot5enko/virtual-grid/schema"

type Stats struct {
	Total    int
	Unloaded int
	Pending  int
	Loaded   int

	Token uint64
}

func (s *RowStore) Stats() Stats {
	s.lock.RLock()
	defer s.lock.RUnlock()

	st := Stats{Total: len(s.slots), Token: s.token}

	for _, sl := range s.slots {
		switch sl.state {
		case schema.Unloaded:
			st.Unloaded++
		case schema.Pending:
			st.Pending++
		case schema.Loaded:
			st.Loaded++
		}
	}

	return st
}
