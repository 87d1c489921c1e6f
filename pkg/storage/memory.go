package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sunnyrelay/sunnyrelay/pkg/types"
)

// Memory keeps objects and states in process memory. Everything is lost on
// restart, which is fine when the states are only read through the status
// server.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]types.StateObject
	states  map[string]types.State
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]types.StateObject),
		states:  make(map[string]types.State),
	}
}

// EnsureObject implements Database.
func (m *Memory) EnsureObject(ctx context.Context, obj types.StateObject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[obj.ID]; !ok {
		m.objects[obj.ID] = obj
	}
	return nil
}

// GetObject returns the object registered for id.
func (m *Memory) GetObject(id string) (types.StateObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	return obj, ok
}

// SetState implements Database.
func (m *Memory) SetState(ctx context.Context, id string, state types.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = state
	return nil
}

// GetState implements Database.
func (m *Memory) GetState(ctx context.Context, id string) (types.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[id]
	if !ok {
		return types.State{}, ErrStateNotFound
	}
	return s, nil
}

// ListStates implements Database.
func (m *Memory) ListStates(ctx context.Context, prefix string) ([]types.StateEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []types.StateEntry
	for id, s := range m.states {
		if strings.HasPrefix(id, prefix) {
			entries = append(entries, types.StateEntry{ID: id, State: s})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Close implements Database.
func (m *Memory) Close() error {
	return nil
}
