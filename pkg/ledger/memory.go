package ledger

import (
	"context"
	"sync"

	"github.com/yurifrl/compta/pkg/models"
)

// MemoryStore is a map-backed Store for tests and the "memory" backend.
type MemoryStore struct {
	mu   sync.Mutex
	days map[string]models.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{days: make(map[string]models.Record)}
}

func (m *MemoryStore) ReadDay(_ context.Context, date string) (*models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.days[date]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) WriteDay(_ context.Context, date string, r models.Record) error {
	if _, err := models.MonthOfDate(date); err != nil {
		return storeErr("write", date, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[date] = prepare(date, r)
	return nil
}

func (m *MemoryStore) ReadMonth(_ context.Context, month models.Month) ([]models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Record
	for date, r := range m.days {
		if month.Contains(date) {
			out = append(out, r)
		}
	}
	models.SortByDate(out)
	return out, nil
}

func (m *MemoryStore) DeleteDay(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.days[date]; !ok {
		return storeErr("delete", date, ErrNoEntry)
	}
	delete(m.days, date)
	return nil
}
