// Package firebase provides a [docstore.Store] backed by the Firebase Realtime
// Database REST API.
//
// Each document path maps to <baseURL>/<path>.json. Reads are GETs, writes are
// PUTs of the whole document; the auth token, if any, travels as the "auth"
// query parameter. The database answers JSON null for absent paths, which is
// reported as [docstore.ErrNotFound].
//
// Conditional writes use the database's ETag support: ReadVersioned asks for
// the ETag of the document and WriteIfVersion sends it back in If-Match, which
// the server rejects with 412 when the document has changed.
//
// Usage:
//
//	s, err := firebase.New("https://my-app.firebaseio.com", firebase.WithAuth(secret))
//	doc, err := s.ReadCollection(ctx, "vocabularyWords/anonymous")
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/wordwise/pkg/docstore"
)

var (
	_ docstore.Versioned = (*Store)(nil)
	_ docstore.Pinger    = (*Store)(nil)
)

const (
	defaultTimeout = 15 * time.Second

	// maxBodyBytes caps how much of a document is read into memory.
	maxBodyBytes = 32 << 20
)

// Option is a functional option for configuring a [Store].
type Option func(*Store)

// WithAuth sets the database secret or ID token sent as the auth query
// parameter.
func WithAuth(token string) Option {
	return func(s *Store) {
		s.auth = token
	}
}

// WithHTTPClient replaces the default HTTP client (15 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) {
		s.client = c
	}
}

// Store implements [docstore.Versioned] over the Realtime Database REST API.
// It is safe for concurrent use.
type Store struct {
	base   *url.URL
	auth   string
	client *http.Client
}

// New creates a Store for the database at baseURL, for example
// "https://my-app-default-rtdb.firebaseio.com".
func New(baseURL string, opts ...Option) (*Store, error) {
	if baseURL == "" {
		return nil, errors.New("firebase: base URL must not be empty")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("firebase: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("firebase: base URL %q must be http or https", baseURL)
	}
	s := &Store{
		base:   u,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// ReadCollection implements [docstore.Store].
func (s *Store) ReadCollection(ctx context.Context, path string) (json.RawMessage, error) {
	doc, _, err := s.read(ctx, path, false)
	return doc, err
}

// ReadVersioned implements [docstore.Versioned].
func (s *Store) ReadVersioned(ctx context.Context, path string) (json.RawMessage, docstore.Version, error) {
	return s.read(ctx, path, true)
}

// WriteCollection implements [docstore.Store].
func (s *Store) WriteCollection(ctx context.Context, path string, doc json.RawMessage) error {
	return s.write(ctx, path, doc, "")
}

// WriteIfVersion implements [docstore.Versioned].
func (s *Store) WriteIfVersion(ctx context.Context, path string, doc json.RawMessage, expected docstore.Version) error {
	if expected == "" {
		return fmt.Errorf("firebase: write %s: empty version token", path)
	}
	return s.write(ctx, path, doc, expected)
}

// Ping reads the shallow root of the database.
func (s *Store) Ping(ctx context.Context) error {
	u := s.url(".json")
	q := u.Query()
	q.Set("shallow", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("firebase: ping: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("firebase: ping: %w: %w", docstore.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("firebase: ping: %w: HTTP %d", docstore.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (s *Store) read(ctx context.Context, path string, withETag bool) (json.RawMessage, docstore.Version, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url(path+".json").String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("firebase: read %s: %w", path, err)
	}
	if withETag {
		req.Header.Set("X-Firebase-ETag", "true")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("firebase: read %s: %w: %w", path, docstore.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("firebase: read %s: body: %w: %w", path, docstore.ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("firebase: read %s: %w: %s", path, docstore.ErrUnavailable, statusError(resp.StatusCode, body))
	}

	version := docstore.Version(resp.Header.Get("ETag"))
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, version, fmt.Errorf("firebase: read %s: %w", path, docstore.ErrNotFound)
	}
	if !json.Valid(body) {
		return nil, "", fmt.Errorf("firebase: read %s: %w: response is not JSON", path, docstore.ErrUnavailable)
	}
	return json.RawMessage(body), version, nil
}

func (s *Store) write(ctx context.Context, path string, doc json.RawMessage, ifMatch docstore.Version) error {
	if err := docstore.CheckWrite(path, doc); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url(path+".json").String(), bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("firebase: write %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ifMatch != "" {
		req.Header.Set("If-Match", string(ifMatch))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("firebase: write %s: %w: %w", path, docstore.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("firebase: write %s: %w", path, docstore.ErrConflict)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("firebase: write %s: %w: %s", path, docstore.ErrUnavailable, statusError(resp.StatusCode, body))
	}
	return nil
}

// url returns base/rel with the auth parameter attached.
func (s *Store) url(rel string) *url.URL {
	u := s.base.JoinPath(rel)
	if s.auth != "" {
		q := u.Query()
		q.Set("auth", s.auth)
		u.RawQuery = q.Encode()
	}
	return u
}

// statusError formats a non-success response. The database reports errors as
// {"error": "..."}.
func statusError(code int, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Sprintf("HTTP %d: %s", code, e.Error)
	}
	return fmt.Sprintf("HTTP %d", code)
}
