package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryDocuments is a process-local Documents backend for development and tests.
type MemoryDocuments struct {
	mu   sync.Mutex
	docs map[string]map[string]*Document
	now  func() time.Time
}

// NewMemoryDocuments creates an empty store.
func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{
		docs: make(map[string]map[string]*Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryDocuments) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
	}
	return copyDocument(doc), nil
}

func (m *MemoryDocuments) Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
	}
	for k, v := range data {
		doc.Data[k] = v
	}
	doc.UpdatedAt = m.now()
	return copyDocument(doc), nil
}

func (m *MemoryDocuments) Create(ctx context.Context, collection, id string, data map[string]any, permissions []string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[collection][id]; ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentExists)
	}
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]*Document)
	}
	now := m.now()
	doc := &Document{
		ID:          id,
		Collection:  collection,
		Data:        cloneData(data),
		Permissions: append([]string(nil), permissions...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.docs[collection][id] = doc
	return copyDocument(doc), nil
}

func (m *MemoryDocuments) ListByField(ctx context.Context, collection, field, value string) ([]*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Document
	for _, doc := range m.docs[collection] {
		if v, ok := doc.Data[field].(string); ok && v == value {
			out = append(out, copyDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Count returns the number of documents in collection.
func (m *MemoryDocuments) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}

func copyDocument(doc *Document) *Document {
	c := *doc
	c.Data = cloneData(doc.Data)
	c.Permissions = append([]string(nil), doc.Permissions...)
	return &c
}
