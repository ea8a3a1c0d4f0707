package store

import (
	"context"
	"sync"

	"puzzled/internal/types"
)

// Memory is a process-local Sessions implementation.
type Memory struct {
	mu        sync.RWMutex
	instances map[string]*types.Instance
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{instances: make(map[string]*types.Instance)}
}

// Get implements Sessions.
func (m *Memory) Get(ctx context.Context, session string) (*types.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instances[session]
	if !ok {
		return nil, notFound(session)
	}
	return inst.Clone(), nil
}

// Put implements Sessions.
func (m *Memory) Put(ctx context.Context, inst *types.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.instances[inst.Session] = inst.Clone()
	return nil
}

// Delete implements Sessions.
func (m *Memory) Delete(ctx context.Context, session string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.instances, session)
	return nil
}

// Close implements Sessions.
func (m *Memory) Close() error { return nil }

// Len returns the number of live sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}
