// Package storagetest provides an in-memory storage.Storage for tests.
package storagetest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alpacapps/spaces/internal/storage"
)

type Stored struct {
	Data []byte
	Meta storage.Meta
}

type Memory struct {
	mu      sync.Mutex
	objects map[string]Stored

	// SaveErr, when set, is returned from every Save.
	SaveErr error
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Stored)}
}

func (m *Memory) Save(_ context.Context, path string, body io.Reader, meta storage.Meta) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = Stored{Data: buf.Bytes(), Meta: meta}
	return nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *Memory) URL(path string) string {
	return "https://storage.test/" + path
}

func (m *Memory) List(_ context.Context, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.Object
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.Object{Key: key, Size: int64(len(obj.Data)), LastModified: time.Now()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get returns the stored object at path.
func (m *Memory) Get(path string) (Stored, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[path]
	return obj, ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
