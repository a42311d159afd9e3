package docstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps documents in process. It backs local play, tests and a
// single relay node.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]Document
	hub   *hub
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]Document),
		hub:   newHub(),
	}
}

func (m *MemoryStore) Create(ctx context.Context, roomId string, doc Document) error {
	norm, err := Normalize(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.rooms[roomId]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, roomId)
	}
	m.rooms[roomId] = norm
	m.hub.publish(roomId, norm)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, roomId string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.rooms[roomId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, roomId)
	}
	return Clone(doc), nil
}

func (m *MemoryStore) Patch(ctx context.Context, roomId, path string, fields map[string]any) error {
	norm, err := Normalize(fields)
	if err != nil {
		return err
	}
	m.mu.Lock()
	doc, ok := m.rooms[roomId]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, roomId)
	}
	next := ApplyPatch(doc, path, norm)
	m.rooms[roomId] = next
	// publish under the lock so subscribers see writes in order
	m.hub.publish(roomId, next)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, roomId string, onChange func(Document)) (func(), error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.rooms[roomId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, roomId)
	}
	return m.hub.add(roomId, Clone(doc), onChange), nil
}

func (m *MemoryStore) Delete(ctx context.Context, roomId string) error {
	m.mu.Lock()
	if _, ok := m.rooms[roomId]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, roomId)
	}
	delete(m.rooms, roomId)
	m.hub.publish(roomId, nil)
	m.mu.Unlock()
	return nil
}
