// Package mock provides a recording test double for [docstore.Store].
//
// Store keeps documents in a [docstore.Memory] so reads observe earlier
// writes, records every call, and lets tests inject failures per method.
//
//	store := mock.New()
//	store.Seed("categories/anonymous", `{"cat_1":{"name":"Food"}}`)
//	store.WriteErr = docstore.ErrUnavailable
//
//	// exercise the code under test …
//
//	if got := store.CallCount("WriteCollection"); got != 1 { … }
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/MrWong99/wordwise/pkg/docstore"
)

var _ docstore.Versioned = (*Store)(nil)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Path is the document path argument.
	Path string

	// Doc holds the document for write calls.
	Doc json.RawMessage
}

// Store is a configurable test double for [docstore.Versioned]. All *Err
// fields default to nil (success).
type Store struct {
	mem *docstore.Memory

	mu    sync.Mutex
	calls []Call

	// ReadErr is returned by ReadCollection and ReadVersioned when non-nil.
	ReadErr error

	// WriteErr is returned by WriteCollection and WriteIfVersion when non-nil.
	WriteErr error

	// PingErr is returned by Ping when non-nil.
	PingErr error
}

// New returns an empty Store.
func New() *Store {
	return &Store{mem: docstore.NewMemory()}
}

// Seed stores doc at path without recording a call. It panics on invalid
// input, which is a test bug.
func (s *Store) Seed(path, doc string) {
	if err := s.mem.WriteCollection(context.Background(), path, json.RawMessage(doc)); err != nil {
		panic(err)
	}
}

// Doc returns the current document at path, or nil when absent.
func (s *Store) Doc(path string) json.RawMessage {
	doc, err := s.mem.ReadCollection(context.Background(), path)
	if err != nil {
		return nil
	}
	return doc
}

// ReadCollection implements [docstore.Store].
func (s *Store) ReadCollection(ctx context.Context, path string) (json.RawMessage, error) {
	s.record(Call{Method: "ReadCollection", Path: path})
	if err := s.err(&s.ReadErr); err != nil {
		return nil, err
	}
	return s.mem.ReadCollection(ctx, path)
}

// WriteCollection implements [docstore.Store].
func (s *Store) WriteCollection(ctx context.Context, path string, doc json.RawMessage) error {
	s.record(Call{Method: "WriteCollection", Path: path, Doc: doc})
	if err := s.err(&s.WriteErr); err != nil {
		return err
	}
	return s.mem.WriteCollection(ctx, path, doc)
}

// ReadVersioned implements [docstore.Versioned].
func (s *Store) ReadVersioned(ctx context.Context, path string) (json.RawMessage, docstore.Version, error) {
	s.record(Call{Method: "ReadVersioned", Path: path})
	if err := s.err(&s.ReadErr); err != nil {
		return nil, "", err
	}
	return s.mem.ReadVersioned(ctx, path)
}

// WriteIfVersion implements [docstore.Versioned].
func (s *Store) WriteIfVersion(ctx context.Context, path string, doc json.RawMessage, expected docstore.Version) error {
	s.record(Call{Method: "WriteIfVersion", Path: path, Doc: doc})
	if err := s.err(&s.WriteErr); err != nil {
		return err
	}
	return s.mem.WriteIfVersion(ctx, path, doc, expected)
}

// Ping implements [docstore.Pinger].
func (s *Store) Ping(context.Context) error {
	s.record(Call{Method: "Ping"})
	return s.err(&s.PingErr)
}

// Calls returns a copy of all recorded method invocations.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears recorded calls. Stored documents are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Store) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *Store) err(field *error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *field
}
