package document

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

type fakeDoc struct {
	data   []byte
	closed bool
}

func (f *fakeDoc) PageCount() int { return 1 }
func (f *fakeDoc) Page(int) (PageHandle, error) {
	return nil, errors.New("no pages in fake")
}
func (f *fakeDoc) Close() error {
	f.closed = true
	return nil
}

func fakeOpener(docs *[]*fakeDoc, fail error) Opener {
	return func(ctx context.Context, data []byte) (Document, error) {
		if fail != nil {
			return nil, fail
		}
		d := &fakeDoc{data: data}
		*docs = append(*docs, d)
		return d, nil
	}
}

func TestSession_LoadTransitions(t *testing.T) {
	var docs []*fakeDoc
	s := NewSession(fakeOpener(&docs, nil))

	if s.State() != StateUnloaded {
		t.Fatalf("initial state = %v", s.State())
	}
	if _, err := s.Document(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}

	if err := s.Load(context.Background(), []byte("pdf bytes")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.State() != StateLoaded {
		t.Fatalf("state after load = %v", s.State())
	}
	if _, err := s.Document(); err != nil {
		t.Fatalf("document after load: %v", err)
	}
}

func TestSession_LoadCopiesBuffer(t *testing.T) {
	var docs []*fakeDoc
	s := NewSession(fakeOpener(&docs, nil))

	input := []byte("original bytes")
	if err := s.Load(context.Background(), input); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := range input {
		input[i] = 0
	}

	held, err := s.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if !bytes.Equal(held, []byte("original bytes")) {
		t.Fatalf("session bytes were mutated through the caller's buffer: %q", held)
	}
	if !bytes.Equal(docs[0].data, []byte("original bytes")) {
		t.Fatalf("opener saw mutated bytes: %q", docs[0].data)
	}
}

func TestSession_LoadFailureLeavesUnloaded(t *testing.T) {
	var docs []*fakeDoc
	s := NewSession(fakeOpener(&docs, errors.New("bad file")))

	if err := s.Load(context.Background(), []byte("x")); err == nil {
		t.Fatalf("expected load failure")
	}
	if s.State() != StateUnloaded {
		t.Fatalf("state after failed load = %v", s.State())
	}
	if _, err := s.Bytes(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestSession_ReloadRunsResetHooksAndClosesOldDoc(t *testing.T) {
	var docs []*fakeDoc
	s := NewSession(fakeOpener(&docs, nil))

	resets := 0
	s.OnReset(func() { resets++ })

	if err := s.Load(context.Background(), []byte("first")); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if resets != 0 {
		t.Fatalf("reset hooks ran on first load into an empty session")
	}

	if err := s.Load(context.Background(), []byte("second")); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if resets != 1 {
		t.Fatalf("reset hooks ran %d times, want 1", resets)
	}
	if !docs[0].closed {
		t.Fatalf("previous document was not closed")
	}
	if docs[1].closed {
		t.Fatalf("current document was closed")
	}
}

func TestSession_Reset(t *testing.T) {
	var docs []*fakeDoc
	s := NewSession(fakeOpener(&docs, nil))

	resets := 0
	s.OnReset(func() { resets++ })

	// Reset of an unloaded session is a no-op.
	s.Reset()
	if resets != 0 {
		t.Fatalf("reset hooks ran on empty session")
	}

	if err := s.Load(context.Background(), []byte("x")); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.Reset()
	if resets != 1 {
		t.Fatalf("reset hooks ran %d times", resets)
	}
	if s.State() != StateUnloaded {
		t.Fatalf("state after reset = %v", s.State())
	}
	if !docs[0].closed {
		t.Fatalf("document not closed on reset")
	}
}

func TestSessionState_String(t *testing.T) {
	cases := map[SessionState]string{
		StateUnloaded: "unloaded",
		StateLoading:  "loading",
		StateLoaded:   "loaded",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
