// Package resolve implements find-or-create and the other read-modify-write
// operations on whole-document collections.
//
// Every operation reads the full document at <collection>/<userID>, changes
// an in-memory copy and writes the full document back. Nothing makes that
// sequence atomic: two concurrent find-or-create calls for the same name can
// both miss and both create, leaving two entries with one identity. With
// [WithOptimistic] the write is conditional on the revision read, so the
// second writer fails with [docstore.ErrConflict] instead of overwriting the
// first writer's document; it is still never retried here.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/MrWong99/wordwise/internal/observe"
	"github.com/MrWong99/wordwise/internal/textnorm"
	"github.com/MrWong99/wordwise/pkg/docstore"
)

var (
	// ErrNotFound is returned when an update targets an id that is not in
	// the collection.
	ErrNotFound = errors.New("resolve: entity not found")

	// ErrEmptyName is returned by find-or-create for a blank candidate name.
	ErrEmptyName = errors.New("resolve: empty name")

	// ErrDuplicate is returned by Rename when another entry already has
	// the requested identity.
	ErrDuplicate = errors.New("resolve: name already taken")

	// ErrNotVersioned is returned by [New] when optimistic writes are
	// requested from a store that cannot provide them.
	ErrNotVersioned = errors.New("resolve: store does not support conditional writes")
)

// Entity describes one kind of collection.
type Entity[V any] struct {
	// Name labels the entity in logs and metrics.
	Name string

	// Collection is the first path segment of the documents.
	Collection string

	// Prefix starts every generated id.
	Prefix string

	// Key returns the identity field. Identities are compared in their
	// [textnorm.Key] form.
	Key func(V) string

	// New builds the value stored for a candidate name that was not found.
	New func(name string, now time.Time) V

	// SetKey stores name as the identity field of v, normalised the same
	// way New does.
	SetKey func(v *V, name string)
}

// Resolver holds the store and settings shared by every [Repo].
type Resolver struct {
	store      docstore.Store
	versioned  docstore.Versioned
	optimistic bool
	metrics    *observe.Metrics
	now        func() time.Time
	newID      func(prefix string, now time.Time) string
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithOptimistic makes every write conditional on the revision that was
// read. The store must implement [docstore.Versioned].
func WithOptimistic() Option {
	return func(r *Resolver) { r.optimistic = true }
}

// WithMetrics sets the metrics used to count resolutions. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithIDs overrides id generation.
func WithIDs(newID func(prefix string, now time.Time) string) Option {
	return func(r *Resolver) { r.newID = newID }
}

// New creates a Resolver on top of store.
func New(store docstore.Store, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("resolve: store must not be nil")
	}
	r := &Resolver{
		store: store,
		now:   time.Now,
		newID: NewID,
	}
	for _, o := range opts {
		o(r)
	}
	if r.optimistic {
		v, ok := store.(docstore.Versioned)
		if !ok || !supportsVersions(store) {
			return nil, ErrNotVersioned
		}
		r.versioned = v
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r, nil
}

// supportsVersions honours wrappers that implement the Versioned methods but
// can only forward them to some inner stores.
func supportsVersions(s docstore.Store) bool {
	if w, ok := s.(interface{ Versioned() bool }); ok {
		return w.Versioned()
	}
	return true
}

// Optimistic reports whether writes are conditional.
func (r *Resolver) Optimistic() bool { return r.versioned != nil }

// NewID returns "<prefix>_<unix-ms>_<base36 random>". Uniqueness is
// probabilistic.
func NewID(prefix string, now time.Time) string {
	return prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" +
		strconv.FormatUint(uint64(rand.Uint32()), 36)
}

// Resolved is the outcome of a find-or-create.
type Resolved[V any] struct {
	ID    string `json:"id"`
	Value V      `json:"value"`
	IsNew bool   `json:"isNew"`
}

// Repo runs the collection operations for one entity kind.
type Repo[V any] struct {
	r *Resolver
	e Entity[V]
}

// For binds an entity description to r.
func For[V any](r *Resolver, e Entity[V]) *Repo[V] {
	return &Repo[V]{r: r, e: e}
}

// New constructs a value for name with the entity's constructor and the
// resolver's clock. Nothing is stored.
func (p *Repo[V]) New(name string) V {
	return p.e.New(name, p.r.now())
}

// snapshot is one read of a document.
type snapshot[V any] struct {
	path    string
	coll    *Collection[V]
	version docstore.Version
}

func (p *Repo[V]) load(ctx context.Context, userID string) (*snapshot[V], error) {
	s := &snapshot[V]{path: docstore.Path(p.e.Collection, userID)}

	var (
		doc json.RawMessage
		err error
	)
	if p.r.versioned != nil {
		doc, s.version, err = p.r.versioned.ReadVersioned(ctx, s.path)
	} else {
		doc, err = p.r.store.ReadCollection(ctx, s.path)
	}
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		s.coll = NewCollection[V]()
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("resolve: read %s: %w", s.path, err)
	}

	s.coll = NewCollection[V]()
	if err := s.coll.UnmarshalJSON(doc); err != nil {
		return nil, fmt.Errorf("resolve: read %s: %w", s.path, err)
	}
	return s, nil
}

func (p *Repo[V]) save(ctx context.Context, s *snapshot[V]) error {
	doc, err := s.coll.MarshalJSON()
	if err != nil {
		return fmt.Errorf("resolve: encode %s: %w", s.path, err)
	}
	if p.r.versioned != nil {
		err = p.r.versioned.WriteIfVersion(ctx, s.path, doc, s.version)
	} else {
		err = p.r.store.WriteCollection(ctx, s.path, doc)
	}
	if err != nil {
		return fmt.Errorf("resolve: write %s: %w", s.path, err)
	}
	return nil
}

// FindOrCreate returns the entry whose identity matches name, creating it
// with the entity's constructor when there is none.
func (p *Repo[V]) FindOrCreate(ctx context.Context, userID, name string) (Resolved[V], error) {
	return p.FindOrCreateWith(ctx, userID, name, nil)
}

// FindOrCreateWith is FindOrCreate with build adjusting a newly constructed
// value before it is stored. build is not called when name already exists.
func (p *Repo[V]) FindOrCreateWith(ctx context.Context, userID, name string, build func(*V)) (Resolved[V], error) {
	key := textnorm.Key(name)
	if key == "" {
		return Resolved[V]{}, ErrEmptyName
	}
	s, err := p.load(ctx, userID)
	if err != nil {
		return Resolved[V]{}, err
	}

	id, v, found := s.coll.Find(func(_ string, v V) bool {
		return textnorm.Key(p.e.Key(v)) == key
	})
	if found {
		p.r.metrics.RecordResolution(ctx, p.e.Name, false)
		return Resolved[V]{ID: id, Value: v}, nil
	}

	now := p.r.now()
	v = p.e.New(name, now)
	if build != nil {
		build(&v)
	}
	id = p.r.newID(p.e.Prefix, now)
	s.coll.Set(id, v)
	if err := p.save(ctx, s); err != nil {
		return Resolved[V]{}, err
	}

	p.r.metrics.RecordResolution(ctx, p.e.Name, true)
	observe.Logger(ctx).Debug("entity created",
		"entity", p.e.Name, "id", id, "path", s.path)
	return Resolved[V]{ID: id, Value: v, IsNew: true}, nil
}

// Find returns the entry whose identity matches name. found is false when
// there is none; nothing is written either way.
func (p *Repo[V]) Find(ctx context.Context, userID, name string) (res Resolved[V], found bool, err error) {
	key := textnorm.Key(name)
	if key == "" {
		return Resolved[V]{}, false, ErrEmptyName
	}
	s, err := p.load(ctx, userID)
	if err != nil {
		return Resolved[V]{}, false, err
	}
	id, v, found := s.coll.Find(func(_ string, v V) bool {
		return textnorm.Key(p.e.Key(v)) == key
	})
	if !found {
		return Resolved[V]{}, false, nil
	}
	return Resolved[V]{ID: id, Value: v}, true, nil
}

// Create stores v under a fresh id without looking for an existing match.
func (p *Repo[V]) Create(ctx context.Context, userID string, v V) (string, error) {
	s, err := p.load(ctx, userID)
	if err != nil {
		return "", err
	}
	id := p.r.newID(p.e.Prefix, p.r.now())
	s.coll.Set(id, v)
	if err := p.save(ctx, s); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the entry with the given id, or [ErrNotFound].
func (p *Repo[V]) Get(ctx context.Context, userID, id string) (V, error) {
	s, err := p.load(ctx, userID)
	if err != nil {
		var zero V
		return zero, err
	}
	v, ok := s.coll.Get(id)
	if !ok {
		return v, fmt.Errorf("%s %q: %w", p.e.Name, id, ErrNotFound)
	}
	return v, nil
}

// Update applies mutate to the entry with the given id and stores the result.
// An absent id yields [ErrNotFound] and nothing is written. An error from
// mutate aborts the update.
func (p *Repo[V]) Update(ctx context.Context, userID, id string, mutate func(*V) error) (V, error) {
	var zero V
	s, err := p.load(ctx, userID)
	if err != nil {
		return zero, err
	}
	v, ok := s.coll.Get(id)
	if !ok {
		return zero, fmt.Errorf("%s %q: %w", p.e.Name, id, ErrNotFound)
	}
	if err := mutate(&v); err != nil {
		return zero, err
	}
	s.coll.Set(id, v)
	if err := p.save(ctx, s); err != nil {
		return zero, err
	}
	return v, nil
}

// Rename changes the identity of the entry with the given id to name and then
// applies mutate, which may be nil. Renaming to the entry's own identity is
// allowed; any other entry holding that identity yields [ErrDuplicate].
func (p *Repo[V]) Rename(ctx context.Context, userID, id, name string, mutate func(*V) error) (V, error) {
	var zero V
	key := textnorm.Key(name)
	if key == "" {
		return zero, ErrEmptyName
	}
	s, err := p.load(ctx, userID)
	if err != nil {
		return zero, err
	}
	v, ok := s.coll.Get(id)
	if !ok {
		return zero, fmt.Errorf("%s %q: %w", p.e.Name, id, ErrNotFound)
	}
	other, _, taken := s.coll.Find(func(oid string, ov V) bool {
		return oid != id && textnorm.Key(p.e.Key(ov)) == key
	})
	if taken {
		return zero, fmt.Errorf("%s %q: %w by %q", p.e.Name, name, ErrDuplicate, other)
	}
	p.e.SetKey(&v, name)
	if mutate != nil {
		if err := mutate(&v); err != nil {
			return zero, err
		}
	}
	s.coll.Set(id, v)
	if err := p.save(ctx, s); err != nil {
		return zero, err
	}
	return v, nil
}

// UpdateWhere applies mutate to every entry matching pred with a single read
// and at most one write. It returns the number of updated entries.
func (p *Repo[V]) UpdateWhere(ctx context.Context, userID string, pred func(id string, v V) bool, mutate func(*V)) (int, error) {
	s, err := p.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range s.coll.IDs() {
		v, _ := s.coll.Get(id)
		if !pred(id, v) {
			continue
		}
		mutate(&v)
		s.coll.Set(id, v)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if err := p.save(ctx, s); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes the entry with the given id. Deleting an absent id is not an
// error: it is logged and nothing is written. The result reports whether an
// entry was removed.
func (p *Repo[V]) Delete(ctx context.Context, userID, id string) (bool, error) {
	s, err := p.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if !s.coll.Delete(id) {
		observe.Logger(ctx).Debug("delete of unknown entity ignored",
			"entity", p.e.Name, "id", id, "path", s.path)
		return false, nil
	}
	if err := p.save(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteWhere removes every entry matching pred with a single read and at
// most one write. It returns the number of removed entries.
func (p *Repo[V]) DeleteWhere(ctx context.Context, userID string, pred func(id string, v V) bool) (int, error) {
	s, err := p.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	var doomed []string
	for id, v := range s.coll.All() {
		if pred(id, v) {
			doomed = append(doomed, id)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	for _, id := range doomed {
		s.coll.Delete(id)
	}
	if err := p.save(ctx, s); err != nil {
		return 0, err
	}
	return len(doomed), nil
}

// List returns the whole collection.
func (p *Repo[V]) List(ctx context.Context, userID string) (*Collection[V], error) {
	s, err := p.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.coll, nil
}

// Identity returns the lookup key of name for this entity kind.
func Identity(name string) string {
	return textnorm.Key(name)
}
