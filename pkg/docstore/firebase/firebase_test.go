package firebase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrWong99/wordwise/pkg/docstore"
	"github.com/MrWong99/wordwise/pkg/docstore/firebase"
)

// fakeDB is a minimal Realtime Database: one document per path with a
// monotonically increasing ETag.
type fakeDB struct {
	mu       sync.Mutex
	docs     map[string]string
	etags    map[string]string
	lastAuth string
	puts     int
}

func newFakeDB() *fakeDB {
	return &fakeDB{docs: map[string]string{}, etags: map[string]string{}}
}

func (f *fakeDB) etag(path string) string {
	if e, ok := f.etags[path]; ok {
		return e
	}
	return "null_etag"
}

func (f *fakeDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = r.URL.Query().Get("auth")
	path := r.URL.Path

	switch r.Method {
	case http.MethodGet:
		if r.Header.Get("X-Firebase-ETag") == "true" {
			w.Header().Set("ETag", f.etag(path))
		}
		doc, ok := f.docs[path]
		if !ok {
			doc = "null"
		}
		_, _ = io.WriteString(w, doc)
	case http.MethodPut:
		if m := r.Header.Get("If-Match"); m != "" && m != f.etag(path) {
			w.WriteHeader(http.StatusPreconditionFailed)
			_, _ = io.WriteString(w, `{"error": "etag mismatch"}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.docs[path] = string(body)
		f.puts++
		f.etags[path] = "etag-" + string(rune('a'+f.puts))
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newStore(t *testing.T, h http.Handler, opts ...firebase.Option) *firebase.Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := firebase.New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := firebase.New(""); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := firebase.New("ftp://example.com"); err == nil {
		t.Error("expected error for non-http scheme")
	}
}

func TestStore_ReadMissingIsNotFound(t *testing.T) {
	t.Parallel()

	s := newStore(t, newFakeDB())
	_, err := s.ReadCollection(context.Background(), "categories/anonymous")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_WriteThenRead(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	s := newStore(t, db, firebase.WithAuth("s3cret"))
	ctx := context.Background()

	doc := json.RawMessage(`{"cat_1":{"name":"Food"}}`)
	if err := s.WriteCollection(ctx, "categories/u1", doc); err != nil {
		t.Fatalf("WriteCollection: %v", err)
	}
	got, err := s.ReadCollection(ctx, "categories/u1")
	if err != nil {
		t.Fatalf("ReadCollection: %v", err)
	}
	if string(got) != string(doc) {
		t.Errorf("ReadCollection = %s, want %s", got, doc)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.lastAuth != "s3cret" {
		t.Errorf("auth query = %q, want s3cret", db.lastAuth)
	}
	if _, ok := db.docs["/categories/u1.json"]; !ok {
		t.Errorf("document stored under unexpected path: %v", db.docs)
	}
}

func TestStore_ConditionalWrite(t *testing.T) {
	t.Parallel()

	s := newStore(t, newFakeDB())
	ctx := context.Background()
	const path = "vocabularyWords/u"

	_, v0, err := s.ReadVersioned(ctx, path)
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("ReadVersioned: err = %v", err)
	}
	if v0 == "" {
		t.Fatal("expected an ETag for the absent document")
	}
	if err := s.WriteIfVersion(ctx, path, json.RawMessage(`{"a":1}`), v0); err != nil {
		t.Fatalf("WriteIfVersion: %v", err)
	}
	err = s.WriteIfVersion(ctx, path, json.RawMessage(`{"a":2}`), v0)
	if !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("stale WriteIfVersion: err = %v, want ErrConflict", err)
	}
}

func TestStore_ServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": "Permission denied"}`)
	}))
	ctx := context.Background()

	_, err := s.ReadCollection(ctx, "categories/u")
	if !errors.Is(err, docstore.ErrUnavailable) {
		t.Errorf("read err = %v, want ErrUnavailable", err)
	}
	err = s.WriteCollection(ctx, "categories/u", json.RawMessage(`{}`))
	if !errors.Is(err, docstore.ErrUnavailable) {
		t.Errorf("write err = %v, want ErrUnavailable", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, docstore.ErrUnavailable) {
		t.Errorf("ping err = %v, want ErrUnavailable", err)
	}
}

func TestStore_RejectsBadPaths(t *testing.T) {
	t.Parallel()

	var hits int
	var mu sync.Mutex
	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
	}))
	if _, err := s.ReadCollection(context.Background(), "../root"); !errors.Is(err, docstore.ErrInvalidPath) {
		t.Errorf("err = %v, want ErrInvalidPath", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if hits != 0 {
		t.Errorf("server hit %d times for an invalid path", hits)
	}
}

func TestStore_Ping(t *testing.T) {
	t.Parallel()

	s := newStore(t, newFakeDB())
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
