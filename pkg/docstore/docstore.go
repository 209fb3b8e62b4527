// Package docstore defines the whole-document store the vocabulary data lives
// in.
//
// A document is one JSON object addressed by a slash-separated path such as
// "vocabularyWords/anonymous". The only primitives are reading a whole
// document and overwriting a whole document: there are no queries, partial
// updates or transactions. Backends that can detect concurrent overwrites
// additionally implement [Versioned].
//
// Implementations live in sub-packages (firebase, postgres, sqlite); an
// in-memory [Memory] store is provided here for offline use and tests.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by reads of a path that holds no document.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrUnavailable wraps transport and backend failures. It is terminal:
	// callers report it rather than retry.
	ErrUnavailable = errors.New("docstore: store unavailable")

	// ErrConflict is returned by [Versioned.WriteIfVersion] when the document
	// changed since it was read.
	ErrConflict = errors.New("docstore: document changed since read")

	// ErrInvalidPath is returned for empty paths and paths with empty or
	// relative segments.
	ErrInvalidPath = errors.New("docstore: invalid path")
)

// Store reads and overwrites whole documents. Implementations must be safe for
// concurrent use.
type Store interface {
	// ReadCollection returns the document at path, or [ErrNotFound] when
	// there is none.
	ReadCollection(ctx context.Context, path string) (json.RawMessage, error)

	// WriteCollection replaces the document at path with doc.
	WriteCollection(ctx context.Context, path string, doc json.RawMessage) error
}

// Version is an opaque token identifying one revision of a document. The zero
// value stands for "no document".
type Version string

// Versioned is implemented by stores that can make a write conditional on the
// revision previously read.
type Versioned interface {
	Store

	// ReadVersioned is ReadCollection plus the revision token. An absent
	// document yields [ErrNotFound] together with the token a conditional
	// create must present.
	ReadVersioned(ctx context.Context, path string) (json.RawMessage, Version, error)

	// WriteIfVersion replaces the document only if its revision still equals
	// expected, returning [ErrConflict] otherwise.
	WriteIfVersion(ctx context.Context, path string, doc json.RawMessage, expected Version) error
}

// Pinger is implemented by stores that can report their health cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultUser owns documents when the caller supplies no user ID.
const DefaultUser = "anonymous"

// Well-known collections.
const (
	Vocabulary = "vocabularyWords"
	Categories = "categories"
	Topics     = "topics"
)

// Path joins a collection name and a user ID, substituting [DefaultUser] for
// an empty user.
func Path(collection, userID string) string {
	if strings.TrimSpace(userID) == "" {
		userID = DefaultUser
	}
	return collection + "/" + userID
}

// ValidatePath rejects paths that could escape their collection when mapped
// onto URLs or keys.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for seg := range strings.SplitSeq(path, "/") {
		switch {
		case seg == "", seg == ".", seg == "..":
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		case strings.ContainsAny(seg, "?#$[]"):
			return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidPath, path)
		}
	}
	return nil
}
