package docstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/MrWong99/wordwise/pkg/docstore"
)

func TestPath(t *testing.T) {
	t.Parallel()

	if got := docstore.Path(docstore.Vocabulary, "u1"); got != "vocabularyWords/u1" {
		t.Errorf("Path = %q", got)
	}
	if got := docstore.Path(docstore.Categories, " "); got != "categories/anonymous" {
		t.Errorf("Path with blank user = %q, want default user", got)
	}
}

func TestValidatePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		ok   bool
	}{
		{"categories/anonymous", true},
		{"a/b/c", true},
		{"", false},
		{"/categories", false},
		{"categories/", false},
		{"categories/../secrets", false},
		{"categories/./x", false},
		{"categories/a?auth=x", false},
		{"categories/a#frag", false},
	}
	for _, tt := range tests {
		err := docstore.ValidatePath(tt.path)
		if (err == nil) != tt.ok {
			t.Errorf("ValidatePath(%q) = %v, want ok=%v", tt.path, err, tt.ok)
		}
		if err != nil && !errors.Is(err, docstore.ErrInvalidPath) {
			t.Errorf("ValidatePath(%q) error %v does not wrap ErrInvalidPath", tt.path, err)
		}
	}
}

func TestMemory_ReadMissing(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemory()
	_, err := m.ReadCollection(context.Background(), "categories/u")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemory_WriteThenRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := docstore.NewMemory()
	doc := json.RawMessage(`{"b":1,"a":2}`)
	if err := m.WriteCollection(ctx, "c/u", doc); err != nil {
		t.Fatalf("WriteCollection: %v", err)
	}
	doc[2] = 'x' // the store must hold its own copy

	got, err := m.ReadCollection(ctx, "c/u")
	if err != nil {
		t.Fatalf("ReadCollection: %v", err)
	}
	if string(got) != `{"b":1,"a":2}` {
		t.Errorf("ReadCollection = %s, want bytes preserved", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestMemory_RejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemory()
	if err := m.WriteCollection(context.Background(), "c/u", json.RawMessage(`{`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestMemory_WriteIfVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := docstore.NewMemory()

	_, v0, err := m.ReadVersioned(ctx, "c/u")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("ReadVersioned missing: err = %v", err)
	}
	if err := m.WriteIfVersion(ctx, "c/u", json.RawMessage(`{}`), v0); err != nil {
		t.Fatalf("conditional create: %v", err)
	}
	// A second create with the stale token must fail.
	if err := m.WriteIfVersion(ctx, "c/u", json.RawMessage(`{"x":1}`), v0); !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("stale create: err = %v, want ErrConflict", err)
	}

	_, v1, err := m.ReadVersioned(ctx, "c/u")
	if err != nil {
		t.Fatalf("ReadVersioned: %v", err)
	}
	if err := m.WriteCollection(ctx, "c/u", json.RawMessage(`{"y":2}`)); err != nil {
		t.Fatalf("WriteCollection: %v", err)
	}
	if err := m.WriteIfVersion(ctx, "c/u", json.RawMessage(`{"z":3}`), v1); !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("stale update: err = %v, want ErrConflict", err)
	}

	got, _ := m.ReadCollection(ctx, "c/u")
	if string(got) != `{"y":2}` {
		t.Errorf("document = %s, want the unconditional write to survive", got)
	}
}
