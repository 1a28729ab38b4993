// Package annotations holds the in-memory annotation store. Positions
// are intrinsic document coordinates (scale 1.0, top-left origin), so
// an annotation placed at one zoom level stays put at every other.
package annotations

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// Annotation is one piece of text anchored to a page.
type Annotation struct {
	ID   string
	Page int // 1-based page number
	X    float64
	Y    float64
	Text string
	// Width is the display width in intrinsic units; zero means the
	// overlay measures the text itself.
	Width float64
}

// EventKind classifies a store notification.
type EventKind int

const (
	EventAdded EventKind = iota
	EventUpdated
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event describes one store mutation.
type Event struct {
	Kind       EventKind
	Annotation Annotation
}

// Listener receives store events synchronously, in mutation order.
type Listener func(Event)

// ErrDuplicateID is returned by Add when the id is already present.
var ErrDuplicateID = errors.New("annotation id already exists")

// NewID returns a random annotation identifier.
func NewID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("annotation id: %v", err))
	}
	return hex.EncodeToString(b[:])
}

// Store keeps annotations in insertion order. All methods are safe for
// concurrent use.
type Store struct {
	mu        sync.RWMutex
	order     []string
	byID      map[string]*Annotation
	listeners []Listener
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Annotation)}
}

// Subscribe registers a listener for subsequent mutations.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Add inserts a new annotation. An empty ID gets a generated one; a
// duplicate ID is rejected with ErrDuplicateID.
func (s *Store) Add(a Annotation) (Annotation, error) {
	s.mu.Lock()
	if a.ID == "" {
		a.ID = NewID()
	}
	if _, exists := s.byID[a.ID]; exists {
		s.mu.Unlock()
		return Annotation{}, fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}
	stored := a
	s.byID[a.ID] = &stored
	s.order = append(s.order, a.ID)
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, Event{Kind: EventAdded, Annotation: a})
	return a, nil
}

// UpdateText replaces an annotation's text. Updating an absent id is a
// no-op and reports false.
func (s *Store) UpdateText(id, text string) bool {
	s.mu.Lock()
	a, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	a.Text = text
	updated := *a
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, Event{Kind: EventUpdated, Annotation: updated})
	return true
}

// Remove deletes an annotation. Removing an absent id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	a, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	removed := *a
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, Event{Kind: EventRemoved, Annotation: removed})
}

// Get returns the annotation with the given id.
func (s *Store) Get(id string) (Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return Annotation{}, false
	}
	return *a, true
}

// ByPage returns the page's annotations in insertion order.
func (s *Store) ByPage(page int) []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Annotation
	for _, id := range s.order {
		if a := s.byID[id]; a.Page == page {
			out = append(out, *a)
		}
	}
	return out
}

// All returns every annotation in insertion order.
func (s *Store) All() []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Annotation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Len returns the number of annotations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Clear removes everything without emitting events. Session reset
// hooks use it when the underlying document changes identity.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = make(map[string]*Annotation)
}

func notify(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l(ev)
	}
}
