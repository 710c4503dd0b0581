package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/nerrad567/gray-logic-ir/internal/kvstore"
)

// Location of the command document in the key-value backend.
const (
	Namespace   = "ir"
	DocumentKey = "codes.json"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type document = orderedmap.OrderedMap[string, []uint32]

// Store is the durable name -> timing sequence mapping.
//
// The whole document lives in memory and is rewritten to the key-value
// backend on every mutation. A mutation is applied to a copy, the copy is
// persisted, and only then does it replace the live document, so a failed
// write leaves the store as it was.
//
// All public methods are thread-safe.
type Store struct {
	kv     kvstore.Store
	mu     sync.RWMutex
	doc    *document
	logger Logger
}

// NewStore creates an empty store over kv. Call Load before use.
func NewStore(kv kvstore.Store) *Store {
	return &Store{
		kv:     kv,
		doc:    orderedmap.New[string, []uint32](),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load reads the stored document.
//
// A missing document yields an empty store. An unparsable document also
// yields an empty store and a store_corrupt warning; it is not an error.
// Entries with an empty or zero-valued sequence are dropped.
//
// Returns:
//   - error: Only if the backend itself fails
func (s *Store) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, Namespace, DocumentKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		s.swap(orderedmap.New[string, []uint32]())
		s.logger.Info("command store initialised empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading command document: %w", err)
	}

	doc, dropped, err := decode(data)
	if err != nil {
		s.logger.Warn("command document unreadable, starting empty",
			"reason", "store_corrupt", "error", err, "bytes", len(data))
		doc = orderedmap.New[string, []uint32]()
	}
	for _, name := range dropped {
		s.logger.Warn("dropping invalid stored command", "name", name)
	}

	s.swap(doc)
	s.logger.Info("command store loaded", "count", doc.Len())
	return nil
}

// Get returns a copy of the named command's timings or ErrNotFound.
func (s *Store) Get(name string) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.doc.Get(name)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTimings(t), nil
}

// Put stores timings under name, replacing any previous value in place.
func (s *Store) Put(ctx context.Context, name string, timings []uint32) error {
	n, err := ValidateName(name)
	if err != nil {
		return err
	}
	if err := ValidateTimings(timings); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *document) (*document, error) {
		doc.Set(n, cloneTimings(timings))
		return doc, nil
	})
}

// Delete removes the named command or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.mutate(ctx, func(doc *document) (*document, error) {
		if _, ok := doc.Delete(name); !ok {
			return nil, ErrNotFound
		}
		return doc, nil
	})
}

// Rename moves old's timings to newName, keeping old's position.
//
// An existing newName is overwritten (last write wins). Renaming a command
// to its own name succeeds without a write.
func (s *Store) Rename(ctx context.Context, old, newName string) error {
	n, err := ValidateName(newName)
	if err != nil {
		return err
	}

	s.mu.RLock()
	_, exists := s.doc.Get(old)
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, old)
	}
	if old == n {
		return nil
	}

	return s.mutate(ctx, func(doc *document) (*document, error) {
		if _, ok := doc.Get(old); !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, old)
		}
		renamed := orderedmap.New[string, []uint32]()
		for p := doc.Oldest(); p != nil; p = p.Next() {
			switch p.Key {
			case n:
				continue
			case old:
				renamed.Set(n, p.Value)
			default:
				renamed.Set(p.Key, p.Value)
			}
		}
		return renamed, nil
	})
}

// EraseAll removes every command. Erasing an empty store succeeds.
func (s *Store) EraseAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, Namespace, DocumentKey); err != nil {
		return fmt.Errorf("erasing command document: %w", err)
	}
	s.doc = orderedmap.New[string, []uint32]()
	return nil
}

// List returns every command in document order.
func (s *Store) List() []Command {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Command, 0, s.doc.Len())
	for p := s.doc.Oldest(); p != nil; p = p.Next() {
		out = append(out, Command{Name: p.Key, Timings: cloneTimings(p.Value)})
	}
	return out
}

// Len returns the number of stored commands.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Len()
}

// Document returns the serialized {"name": [µs, ...]} object in document order.
func (s *Store) Document() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return encode(s.doc)
}

// Import merges every valid entry of a serialized document into the store
// with a single write. Invalid entries are skipped and named in the result.
//
// Returns:
//   - imported: Number of entries written
//   - skipped: Names whose sequences were empty or unreadable
//   - error: ErrInvalidDocument if data is not a JSON object, or a backend error
func (s *Store) Import(ctx context.Context, data []byte) (imported int, skipped []string, err error) {
	in, dropped, err := decode(data)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	err = s.mutate(ctx, func(doc *document) (*document, error) {
		for p := in.Oldest(); p != nil; p = p.Next() {
			n, nameErr := ValidateName(p.Key)
			if nameErr != nil {
				dropped = append(dropped, p.Key)
				continue
			}
			doc.Set(n, p.Value)
			imported++
		}
		return doc, nil
	})
	if err != nil {
		return 0, nil, err
	}
	return imported, dropped, nil
}

// mutate hands fn a copy of the document, persists whatever fn returns and
// then makes it live.
func (s *Store) mutate(ctx context.Context, fn func(*document) (*document, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(copyDocument(s.doc))
	if err != nil {
		return err
	}

	data, err := encode(next)
	if err != nil {
		return fmt.Errorf("encoding command document: %w", err)
	}
	if err := s.kv.Put(ctx, Namespace, DocumentKey, data); err != nil {
		return fmt.Errorf("writing command document: %w", err)
	}
	s.doc = next
	return nil
}

func (s *Store) swap(doc *document) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

func copyDocument(doc *document) *document {
	out := orderedmap.New[string, []uint32]()
	for p := doc.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, p.Value)
	}
	return out
}

func encode(doc *document) ([]byte, error) {
	if doc.Len() == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}

// decode parses a stored document. Entries whose value is not a non-empty
// array of positive integers are left out and reported by name.
func decode(data []byte) (*document, []string, error) {
	doc := orderedmap.New[string, []uint32]()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return doc, nil, nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, nil, errors.New("document is not a JSON object")
	}

	raw := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(trimmed, raw); err != nil {
		return nil, nil, err
	}

	var dropped []string
	for p := raw.Oldest(); p != nil; p = p.Next() {
		var timings []uint32
		if err := json.Unmarshal(p.Value, &timings); err != nil || ValidateTimings(timings) != nil {
			dropped = append(dropped, p.Key)
			continue
		}
		doc.Set(p.Key, timings)
	}
	return doc, dropped, nil
}
