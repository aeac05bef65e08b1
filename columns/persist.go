package columns

import (
	"context"

	"github.com/dot5enko/virtual-grid/schema"
)

func (m *Model) persistKey() string {
	return "layout:" + m.parentID
}

func (m *Model) scheduleSave() {
	if m.persistence == nil {
		return
	}

	m.lock.Lock()
	m.status.Unsaved = true
	m.lock.Unlock()

	m.debouncer.Trigger(m.persistKey(), m.opts.PersistDelay, m.save)
}

func (m *Model) save() {

	m.lock.RLock()
	snapshot := schema.CloneColumns(m.cols)
	gen := m.gen
	m.lock.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.SaveTimeout)
	defer cancel()

	err := m.persistence.Save(ctx, m.parentID, snapshot)

	m.lock.Lock()
	defer m.lock.Unlock()

	if err != nil {
		m.status.Failures++
		m.status.LastErr = err
		m.opts.Logger.Warn("column layout not saved", "parent_id", m.parentID, "err", err)
		return
	}

	m.status.Saves++
	m.status.LastErr = nil

	if gen == m.gen {
		m.status.Unsaved = false
	}
}

// Status reports whether local edits are still waiting for the backing store.
func (m *Model) Status() Status {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.status
}

// RetrySave persists the current layout right away when it is unsaved.
func (m *Model) RetrySave() bool {
	if m.persistence == nil || !m.Status().Unsaved {
		return false
	}

	m.debouncer.Now(m.persistKey(), m.save)
	return true
}

// Flush runs a pending debounced save immediately.
func (m *Model) Flush() bool {
	return m.debouncer.Flush(m.persistKey())
}
