package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"puzzled/internal/types"
)

// Memory keeps encoded fragments in a map. Used by tests and the offline CLI.
type Memory struct {
	mu    sync.RWMutex
	codec Codec
	data  map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory(codec Codec) *Memory {
	return &Memory{codec: codec, data: make(map[string][]byte)}
}

// ContentType implements Store.
func (m *Memory) ContentType() string { return m.codec.ContentType }

// Put implements Store.
func (m *Memory) Put(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	data, err := m.codec.EncodeBytes(img)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", types.ErrStorage, name, err)
	}

	m.mu.Lock()
	m.data[clean] = data
	m.mu.Unlock()
	return nil
}

// Raw implements Store.
func (m *Memory) Raw(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.data[clean]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("image %s: %w", name, types.ErrNotFound)
	}
	return data, nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, name string) (image.Image, error) {
	data, err := m.Raw(ctx, name)
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrStorage, name, err)
	}
	return img, nil
}

// DeleteTree implements Store.
func (m *Memory) DeleteTree(ctx context.Context, session string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sess, err := cleanSession(session)
	if err != nil {
		return err
	}
	prefix := sess + "/"

	m.mu.Lock()
	defer m.mu.Unlock()
	for name := range m.data {
		if strings.HasPrefix(name, prefix) {
			delete(m.data, name)
		}
	}
	return nil
}

// Len reports how many images are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
