package resolve

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
)

// ErrCorrupt is returned when a stored document is neither an object, an
// array nor null, or holds an entry that does not decode.
var ErrCorrupt = errors.New("resolve: corrupt collection document")

type entry[V any] struct {
	id    string
	value V

	// raw is the entry exactly as it was read. It is written back verbatim
	// unless the entry was replaced.
	raw   json.RawMessage
	dirty bool
}

// Collection is an ordered id → V mapping holding one whole document.
//
// Decoding keeps the order of the stored members and their original bytes,
// so unchanged entries are written back byte for byte and replaced entries
// keep members V does not know about. Only direct calls to MarshalJSON keep
// the bytes; json.Marshal compacts them.
type Collection[V any] struct {
	entries []entry[V]
	index   map[string]int
}

// NewCollection returns an empty collection.
func NewCollection[V any]() *Collection[V] {
	return &Collection[V]{index: make(map[string]int)}
}

// Len returns the number of entries.
func (c *Collection[V]) Len() int { return len(c.entries) }

// Get returns the entry with the given id.
func (c *Collection[V]) Get(id string) (V, bool) {
	i, ok := c.index[id]
	if !ok {
		var zero V
		return zero, false
	}
	return c.entries[i].value, true
}

// Set replaces the entry with the given id in place, or appends it.
func (c *Collection[V]) Set(id string, v V) {
	if i, ok := c.index[id]; ok {
		c.entries[i].value = v
		c.entries[i].dirty = true
		return
	}
	c.index[id] = len(c.entries)
	c.entries = append(c.entries, entry[V]{id: id, value: v, dirty: true})
}

// Delete removes the entry with the given id and reports whether it existed.
func (c *Collection[V]) Delete(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.entries); j++ {
		c.index[c.entries[j].id] = j
	}
	return true
}

// Find returns the first entry, in document order, for which match is true.
func (c *Collection[V]) Find(match func(id string, v V) bool) (string, V, bool) {
	for _, e := range c.entries {
		if match(e.id, e.value) {
			return e.id, e.value, true
		}
	}
	var zero V
	return "", zero, false
}

// All iterates over the entries in document order.
func (c *Collection[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, e := range c.entries {
			if !yield(e.id, e.value) {
				return
			}
		}
	}
}

// IDs returns the entry ids in document order.
func (c *Collection[V]) IDs() []string {
	ids := make([]string, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.id
	}
	return ids
}

// UnmarshalJSON decodes a stored document.
//
// An object maps ids to entries. An array, which is how the store hands back
// documents whose keys are all small integers, uses the element index as the
// id. JSON null, both for the whole document and for single entries, means
// "absent".
func (c *Collection[V]) UnmarshalJSON(data []byte) error {
	*c = Collection[V]{index: make(map[string]int)}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	switch tok {
	case nil:
		return nil
	case json.Delim('{'):
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			id, ok := tok.(string)
			if !ok {
				return fmt.Errorf("%w: non-string key %v", ErrCorrupt, tok)
			}
			if err := c.decodeEntry(dec, id); err != nil {
				return err
			}
		}
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			if err := c.decodeEntry(dec, strconv.Itoa(i)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: want object, array or null, got %v", ErrCorrupt, tok)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

func (c *Collection[V]) decodeEntry(dec *json.Decoder, id string) error {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: entry %q: %v", ErrCorrupt, id, err)
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: entry %q: %v", ErrCorrupt, id, err)
	}
	if i, ok := c.index[id]; ok {
		c.entries[i] = entry[V]{id: id, value: v, raw: raw}
		return nil
	}
	c.index[id] = len(c.entries)
	c.entries = append(c.entries, entry[V]{id: id, value: v, raw: raw})
	return nil
}

// MarshalJSON encodes the collection as an object in document order.
func (c *Collection[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		body := e.raw
		if e.dirty || body == nil {
			if body, err = overlay(e.raw, e.value); err != nil {
				return nil, fmt.Errorf("resolve: encode entry %q: %w", e.id, err)
			}
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// overlay encodes v on top of the members of raw. Members of raw that v does
// not produce survive.
func overlay[V any](raw json.RawMessage, v V) (json.RawMessage, error) {
	body, err := json.Marshal(v)
	if err != nil || raw == nil {
		return body, err
	}
	var base, top map[string]json.RawMessage
	if json.Unmarshal(raw, &base) != nil || json.Unmarshal(body, &top) != nil {
		return body, nil
	}
	for k, val := range top {
		base[k] = val
	}
	return json.Marshal(base)
}
