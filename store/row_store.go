package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dot5enko/virtual-grid/schema"
)

var (
	ErrIndexOutOfRange  = errors.New("row index out of range")
	ErrColumnOutOfRange = errors.New("column index out of range")
	ErrRowNotLoaded     = errors.New("row is not loaded")
)

type slot struct {
	state  schema.SlotState
	record *schema.RowRecord
}

// RowStore is a fixed-length sequence of row slots for one query. Slots only
// move Unloaded -> Pending -> Loaded, except through Reset (new query token)
// and RevertPending (failed or timed out fetch).
type RowStore struct {
	slots []slot
	token uint64

	lock sync.RWMutex
}

func New() *RowStore {
	return &RowStore{}
}

// Reset allocates totalCount unloaded slots, marks prefilled entries loaded
// and advances the query token. Responses tagged with older tokens are
// discarded from now on.
func (s *RowStore) Reset(totalCount int, prefilled map[int]schema.RowRecord) uint64 {

	if totalCount < 0 {
		totalCount = 0
	}

	slots := make([]slot, totalCount)

	for idx, rec := range prefilled {
		if idx < 0 || idx >= totalCount {
			continue
		}
		r := rec.Clone()
		slots[idx] = slot{state: schema.Loaded, record: &r}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.slots = slots
	s.token++

	return s.token
}

func (s *RowStore) Token() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.token
}

func (s *RowStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.slots)
}

// MarkPending claims Unloaded slots in [skip, skip+take). Pending and Loaded
// slots are left alone. Returns the number of slots claimed.
func (s *RowStore) MarkPending(skip, take int) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	r := schema.FetchRange{Skip: skip, Take: take}.Clamp(len(s.slots))

	claimed := 0
	for i := r.Skip; i < r.End(); i++ {
		if s.slots[i].state == schema.Unloaded {
			s.slots[i].state = schema.Pending
			claimed++
		}
	}

	return claimed
}

// RevertPending puts Pending slots of the range back to Unloaded so they can be
// scheduled again. Loaded slots are untouched.
func (s *RowStore) RevertPending(token uint64, skip, take int) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	if token != s.token {
		return 0
	}

	r := schema.FetchRange{Skip: skip, Take: take}.Clamp(len(s.slots))

	reverted := 0
	for i := r.Skip; i < r.End(); i++ {
		if s.slots[i].state == schema.Pending {
			s.slots[i].state = schema.Unloaded
			reverted++
		}
	}

	return reverted
}

// ApplyLoaded writes records into [skip, skip+len(records)). It is the only
// way a slot becomes Loaded. A stale token makes it a no-op.
func (s *RowStore) ApplyLoaded(token uint64, skip int, records []schema.RowRecord) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if token != s.token {
		return false
	}

	if skip < 0 || skip > len(s.slots) {
		return false
	}

	for i := range records {
		idx := skip + i
		if idx >= len(s.slots) {
			break
		}
		rec := records[i].Clone()
		s.slots[idx] = slot{state: schema.Loaded, record: &rec}
	}

	return true
}

func (s *RowStore) Get(index int) (schema.RowSlot, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if index < 0 || index >= len(s.slots) {
		return schema.RowSlot{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(s.slots))
	}

	sl := s.slots[index]
	out := schema.RowSlot{Index: index, State: sl.state}

	if sl.record != nil {
		rec := sl.record.Clone()
		out.Record = &rec
	}

	return out, nil
}

func (s *RowStore) State(index int) schema.SlotState {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if index < 0 || index >= len(s.slots) {
		return schema.Unloaded
	}
	return s.slots[index].state
}

// States copies slot states for the inclusive interval [from, to].
func (s *RowStore) States(from, to int) []schema.SlotState {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if from < 0 {
		from = 0
	}
	if to >= len(s.slots) {
		to = len(s.slots) - 1
	}
	if to < from {
		return nil
	}

	out := make([]schema.SlotState, to-from+1)
	for i := range out {
		out[i] = s.slots[from+i].state
	}
	return out
}

// SetValue replaces one value of a loaded record in place (optimistic edit).
func (s *RowStore) SetValue(index, col int, value any) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if index < 0 || index >= len(s.slots) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	sl := &s.slots[index]
	if sl.state != schema.Loaded || sl.record == nil {
		return fmt.Errorf("%w: %d", ErrRowNotLoaded, index)
	}

	if col < 0 || col >= len(sl.record.Values) {
		return fmt.Errorf("%w: %d", ErrColumnOutOfRange, col)
	}

	sl.record.Values[col] = value
	return nil
}
