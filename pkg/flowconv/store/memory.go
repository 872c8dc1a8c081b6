package store

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]stored
	next    int
	closed  bool
}

type stored struct {
	rec Record
	seq int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]stored)}
}

// Save implements Store.
func (m *MemoryStore) Save(r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.Data = append([]byte(nil), r.Data...)

	seq := m.records[r.FlowID].seq
	if seq == 0 {
		m.next++
		seq = m.next
	}
	m.records[r.FlowID] = stored{rec: r, seq: seq}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(flowID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Record{}, ErrStoreClosed
	}

	s, ok := m.records[flowID]
	if !ok {
		return Record{}, ErrNotFound
	}
	r := s.rec
	r.Data = append([]byte(nil), r.Data...)
	return r, nil
}

// List implements Store.
func (m *MemoryStore) List() ([]Info, error) {
	return m.filter(func(Record) bool { return true })
}

// FindByFingerprint implements Store.
func (m *MemoryStore) FindByFingerprint(fingerprint string) ([]Info, error) {
	return m.filter(func(r Record) bool { return r.Fingerprint == fingerprint })
}

func (m *MemoryStore) filter(keep func(Record) bool) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.records))
	for _, s := range m.records {
		if !keep(s.rec) {
			continue
		}
		infos = append(infos, Info{
			FlowID:      s.rec.FlowID,
			Name:        s.rec.Name,
			Mode:        s.rec.Mode,
			Fingerprint: s.rec.Fingerprint,
			Sequence:    s.seq,
			CreatedAt:   s.rec.CreatedAt,
			Size:        int64(len(s.rec.Data)),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Sequence < infos[j].Sequence })
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.records, flowID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
