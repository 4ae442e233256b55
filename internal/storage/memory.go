package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scrapbook/internal/domain"
)

// Memory is an in-process PageStore for development and tests.
// Failures can be injected per operation.
type Memory struct {
	mu      sync.Mutex
	pages   map[domain.PageKey]domain.Collection
	saved   map[domain.PageKey]time.Time
	upserts []domain.Collection
	updates []domain.Collection

	getErr    error
	upsertErr error
	updateErr error
}

func NewMemory() *Memory {
	return &Memory{
		pages: make(map[domain.PageKey]domain.Collection),
		saved: make(map[domain.PageKey]time.Time),
	}
}

func (m *Memory) Get(_ context.Context, key domain.PageKey) (domain.Collection, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	blocks, ok := m.pages[key]
	if !ok {
		return nil, false, nil
	}
	return blocks.Clone(), true, nil
}

func (m *Memory) Upsert(_ context.Context, key domain.PageKey, blocks domain.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, blocks.Clone())
	if m.upsertErr != nil {
		err := m.upsertErr
		m.upsertErr = nil
		return err
	}
	m.store(key, blocks)
	return nil
}

func (m *Memory) Update(_ context.Context, key domain.PageKey, blocks domain.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, blocks.Clone())
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.pages[key]; !ok {
		return domain.ErrNotFound
	}
	m.store(key, blocks)
	return nil
}

func (m *Memory) List(_ context.Context, userID string) ([]domain.PageSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages := []domain.PageSummary{}
	for key, blocks := range m.pages {
		if key.UserID == userID {
			pages = append(pages, domain.PageSummary{Slug: key.Slug, Blocks: len(blocks), UpdatedAt: m.saved[key]})
		}
	}
	domain.SortSummaries(pages)
	return pages, nil
}

func (m *Memory) Delete(_ context.Context, key domain.PageKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[key]; !ok {
		return fmt.Errorf("delete page %s: %w", key, domain.ErrNotFound)
	}
	delete(m.pages, key)
	delete(m.saved, key)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) store(key domain.PageKey, blocks domain.Collection) {
	m.pages[key] = blocks.Clone()
	m.saved[key] = time.Now().UTC()
}

// Put seeds a page without counting as a save.
func (m *Memory) Put(key domain.PageKey, blocks domain.Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(key, blocks)
}

// FailGet makes every Get return err until cleared with nil.
func (m *Memory) FailGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailNextUpsert makes the next Upsert return err without storing anything.
func (m *Memory) FailNextUpsert(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertErr = err
}

// FailUpdate makes every Update return err until cleared with nil.
func (m *Memory) FailUpdate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateErr = err
}

// Upserts returns the snapshots passed to Upsert, in call order.
func (m *Memory) Upserts() []domain.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Collection(nil), m.upserts...)
}

// Updates returns the snapshots passed to Update, in call order.
func (m *Memory) Updates() []domain.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Collection(nil), m.updates...)
}
