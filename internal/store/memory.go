package store

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/property-cli/internal/model"
)

type cachedRecord struct {
	rec     model.AnalysisRecord
	expires time.Time
}

// MemoryStore is an in-process Store. Nothing survives the process.
type MemoryStore struct {
	mu      sync.Mutex
	state   map[string]string
	records map[string]cachedRecord
	now     func() time.Time
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		state:   make(map[string]string),
		records: make(map[string]cachedRecord),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

func recordKey(owner, id string) string {
	return owner + "\x00" + id
}

func (m *MemoryStore) GetCachedRecord(_ context.Context, owner, id string) (*model.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.records[recordKey(owner, id)]
	if !ok || !m.now().Before(c.expires) {
		return nil, ErrNotFound
	}
	rec := c.rec
	return &rec, nil
}

func (m *MemoryStore) SetCachedRecord(_ context.Context, owner string, rec *model.AnalysisRecord, ttl time.Duration) error {
	if rec == nil || rec.ID == "" {
		return eris.New("memory: cache record: missing id")
	}
	if owner == "" {
		return eris.New("memory: cache record: missing owner")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey(owner, rec.ID)] = cachedRecord{rec: *rec, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) DeleteCachedRecord(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, recordKey(owner, id))
	return nil
}

func (m *MemoryStore) DeleteExpiredRecords(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	now := m.now()
	for k, c := range m.records {
		if !now.Before(c.expires) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ClearCachedRecords(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records)
	clear(m.records)
	return n, nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
