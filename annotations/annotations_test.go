package annotations

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStore_AddAssignsID(t *testing.T) {
	s := NewStore()
	a, err := s.Add(Annotation{Page: 1, X: 10, Y: 20, Text: "note"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.ID == "" {
		t.Fatalf("expected generated id")
	}
	got, ok := s.Get(a.ID)
	if !ok {
		t.Fatalf("annotation not found after add")
	}
	if diff := cmp.Diff(a, got); diff != "" {
		t.Fatalf("stored annotation differs (-want +got):\n%s", diff)
	}
}

func TestStore_DuplicateIDRejected(t *testing.T) {
	s := NewStore()
	if _, err := s.Add(Annotation{ID: "dup", Page: 1}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := s.Add(Annotation{ID: "dup", Page: 2})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("rejected add changed the store: len = %d", s.Len())
	}
}

func TestStore_InsertionOrderPerPage(t *testing.T) {
	s := NewStore()
	for _, text := range []string{"first", "second", "third"} {
		if _, err := s.Add(Annotation{Page: 1, Text: text}); err != nil {
			t.Fatalf("add %s: %v", text, err)
		}
	}
	if _, err := s.Add(Annotation{Page: 2, Text: "other page"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	got := s.ByPage(1)
	if len(got) != 3 {
		t.Fatalf("ByPage(1) len = %d", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Text != want {
			t.Fatalf("ByPage(1)[%d].Text = %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestStore_UpdateText(t *testing.T) {
	s := NewStore()
	a, _ := s.Add(Annotation{Page: 1, Text: "draft"})

	if !s.UpdateText(a.ID, "final") {
		t.Fatalf("update reported missing id")
	}
	got, _ := s.Get(a.ID)
	if got.Text != "final" {
		t.Fatalf("text = %q after update", got.Text)
	}
	if s.UpdateText("missing", "x") {
		t.Fatalf("update of absent id reported success")
	}
}

func TestStore_RemoveIdempotent(t *testing.T) {
	s := NewStore()
	a, _ := s.Add(Annotation{Page: 1})
	s.Remove(a.ID)
	if s.Len() != 0 {
		t.Fatalf("len = %d after remove", s.Len())
	}
	// Removing again must be a no-op.
	s.Remove(a.ID)
	if s.Len() != 0 {
		t.Fatalf("len = %d after second remove", s.Len())
	}
}

func TestStore_RemovePreservesOrder(t *testing.T) {
	s := NewStore()
	a, _ := s.Add(Annotation{Page: 1, Text: "a"})
	s.Add(Annotation{Page: 1, Text: "b"})
	s.Add(Annotation{Page: 1, Text: "c"})
	s.Remove(a.ID)

	got := s.All()
	if len(got) != 2 || got[0].Text != "b" || got[1].Text != "c" {
		t.Fatalf("order after remove = %+v", got)
	}
}

func TestStore_Events(t *testing.T) {
	s := NewStore()
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	a, _ := s.Add(Annotation{Page: 1, Text: "hello"})
	s.UpdateText(a.ID, "world")
	s.Remove(a.ID)
	s.Remove(a.ID) // no event for absent id

	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	want := []EventKind{EventAdded, EventUpdated, EventRemoved}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("event kinds differ (-want +got):\n%s", diff)
	}
	if events[1].Annotation.Text != "world" {
		t.Fatalf("update event text = %q", events[1].Annotation.Text)
	}
}

func TestStore_ClearEmitsNothing(t *testing.T) {
	s := NewStore()
	s.Add(Annotation{Page: 1})
	var events int
	s.Subscribe(func(Event) { events++ })
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("len = %d after clear", s.Len())
	}
	if events != 0 {
		t.Fatalf("clear emitted %d events", events)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 16 {
			t.Fatalf("id %q has unexpected length", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
