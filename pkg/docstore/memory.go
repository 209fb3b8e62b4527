package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Compile-time interface checks.
var (
	_ Versioned = (*Memory)(nil)
	_ Pinger    = (*Memory)(nil)
)

type memDoc struct {
	body    []byte
	version uint64
}

// Memory is an in-process [Versioned] store. Documents are copied on the way
// in and out, so callers may reuse their buffers.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]memDoc
}

// NewMemory returns an empty [Memory] store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memDoc)}
}

// ReadCollection implements [Store].
func (m *Memory) ReadCollection(ctx context.Context, path string) (json.RawMessage, error) {
	doc, _, err := m.ReadVersioned(ctx, path)
	return doc, err
}

// ReadVersioned implements [Versioned].
func (m *Memory) ReadVersioned(_ context.Context, path string) (json.RawMessage, Version, error) {
	if err := ValidatePath(path); err != nil {
		return nil, "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[path]
	if !ok {
		return nil, "", fmt.Errorf("memory: read %s: %w", path, ErrNotFound)
	}
	return bytes.Clone(d.body), memVersion(d.version), nil
}

// WriteCollection implements [Store].
func (m *Memory) WriteCollection(_ context.Context, path string, doc json.RawMessage) error {
	if err := CheckWrite(path, doc); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(path, doc)
	return nil
}

// WriteIfVersion implements [Versioned].
func (m *Memory) WriteIfVersion(_ context.Context, path string, doc json.RawMessage, expected Version) error {
	if err := CheckWrite(path, doc); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var current Version
	if d, ok := m.docs[path]; ok {
		current = memVersion(d.version)
	}
	if current != expected {
		return fmt.Errorf("memory: write %s: %w", path, ErrConflict)
	}
	m.put(path, doc)
	return nil
}

// Ping implements [Pinger]. It always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *Memory) put(path string, doc json.RawMessage) {
	next := m.docs[path].version + 1
	m.docs[path] = memDoc{body: bytes.Clone(doc), version: next}
}

func memVersion(v uint64) Version {
	return Version(strconv.FormatUint(v, 10))
}

// CheckWrite validates path and doc before a backend stores them.
func CheckWrite(path string, doc json.RawMessage) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return fmt.Errorf("docstore: write %s: document is not valid JSON", path)
	}
	return nil
}
