package store

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Memory is an in-process Store. Documents are held in their JSON form so
// reads never alias caller memory.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]map[string]any)}
}

func (m *Memory) FindOne(_ context.Context, collection string, filter Filter, out any) error {
	want, err := normalizeFilter(filter)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, doc := range m.collections[collection] {
		if matches(doc, want) {
			return decodeInto(doc, out)
		}
	}
	return ErrNotFound
}

func (m *Memory) FindMany(_ context.Context, collection string, filter Filter, out any) error {
	want, err := normalizeFilter(filter)
	if err != nil {
		return err
	}

	m.mu.RLock()
	found := make([]map[string]any, 0)
	for _, doc := range m.collections[collection] {
		if matches(doc, want) {
			found = append(found, doc)
		}
	}
	err = decodeInto(found, out)
	m.mu.RUnlock()
	return err
}

func (m *Memory) InsertOne(_ context.Context, collection string, doc any) (string, error) {
	d, id, err := toDocument(doc)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.collections[collection] {
		if existing["_id"] == id {
			return "", fmt.Errorf("%w: %s/%s", ErrDuplicateID, collection, id)
		}
	}
	m.collections[collection] = append(m.collections[collection], d)
	return id, nil
}

func (m *Memory) UpdateOne(_ context.Context, collection string, filter Filter, update Update) (bool, error) {
	want, err := normalizeFilter(filter)
	if err != nil {
		return false, err
	}
	set, err := normalizeMap(update.Set)
	if err != nil {
		return false, err
	}
	push := make(map[string][]any, len(update.Push))
	for field, values := range update.Push {
		n, err := normalize(values)
		if err != nil {
			return false, err
		}
		push[field], _ = n.([]any)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.collections[collection] {
		if !matches(doc, want) {
			continue
		}
		for field, value := range set {
			if field == "_id" {
				continue
			}
			doc[field] = value
		}
		for field, values := range push {
			existing, _ := doc[field].([]any)
			doc[field] = append(existing, values...)
		}
		return true, nil
	}
	return false, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }

// Count returns how many documents collection holds.
func (m *Memory) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func normalizeFilter(filter Filter) (map[string]any, error) {
	want, err := normalizeMap(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return want, nil
}

func normalizeMap[M ~map[string]any](in M) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		n, err := normalize(v)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}

// matches treats a missing field as null.
func matches(doc, want map[string]any) bool {
	for field, value := range want {
		if !reflect.DeepEqual(doc[field], value) {
			return false
		}
	}
	return true
}

var _ Store = (*Memory)(nil)
