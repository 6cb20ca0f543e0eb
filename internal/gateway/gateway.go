// Package gateway reads and writes the single ChoreQuest document.
package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/dukerupert/chorequest/internal/model"
)

// Key is the record the whole document lives under.
const Key = "chorequest-data"

// Store is a key-value backend. Get returns nil, nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type Gateway struct {
	store Store
}

func New(store Store) *Gateway {
	return &Gateway{store: store}
}

// Load returns the stored document, or nil when none has been written yet.
func (g *Gateway) Load(ctx context.Context) (*model.Document, error) {
	raw, err := g.store.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	return Decode(raw)
}

// Save replaces the stored document wholesale.
func (g *Gateway) Save(ctx context.Context, doc model.Document) error {
	raw, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Decode parses a stored document. A JSON null decodes to nil.
func Decode(raw []byte) (*model.Document, error) {
	var doc *model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func Encode(doc model.Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// MemoryStore keeps records in a map. It backs tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = append([]byte(nil), value...)
	return nil
}
