package document

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annotview/annotview/observability"
)

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	StateUnloaded SessionState = iota
	StateLoading
	StateLoaded
)

func (s SessionState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrBusy is returned by Load while another load is in flight.
var ErrBusy = errors.New("session: load already in progress")

// ErrNotLoaded is returned when the session holds no document.
var ErrNotLoaded = errors.New("session: no document loaded")

// Session owns one document at a time. Loading a new document first
// resets the previous one: reset hooks run, the old document is
// closed, and only then does the new open begin. The hooks give
// dependent state (annotation stores, render views) a single place to
// clear themselves before pages change identity.
type Session struct {
	opener Opener
	logger observability.Logger

	mu      sync.Mutex
	state   SessionState
	doc     Document
	buf     []byte
	onReset []func()
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger. The default discards everything.
func WithSessionLogger(l observability.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession returns a session that opens documents with opener.
func NewSession(opener Opener, opts ...SessionOption) *Session {
	s := &Session{opener: opener, logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnReset registers fn to run whenever the current document is about
// to be discarded, both on Reset and at the start of a new Load.
func (s *Session) OnReset(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReset = append(s.onReset, fn)
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Document returns the loaded document, or ErrNotLoaded.
func (s *Session) Document() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoaded {
		return nil, ErrNotLoaded
	}
	return s.doc, nil
}

// Load resets any current document and opens a new one from data. The
// bytes are copied before the opener sees them, so callers may reuse
// their buffer. On failure the session ends up unloaded.
func (s *Session) Load(ctx context.Context, data []byte) error {
	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return ErrBusy
	}
	hadDoc := s.state == StateLoaded
	hooks := append([]func(){}, s.onReset...)
	s.mu.Unlock()

	if hadDoc {
		for _, fn := range hooks {
			fn()
		}
	}

	s.mu.Lock()
	s.resetLocked()
	s.state = StateLoading
	s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)

	start := time.Now()
	doc, err := s.opener(ctx, buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateUnloaded
		s.logger.Warn("document load failed", observability.Error("error", err))
		return err
	}
	s.state = StateLoaded
	s.doc = doc
	s.buf = buf
	s.logger.Info("document loaded",
		observability.Int("pages", doc.PageCount()),
		observability.Duration(observability.MetricParseTime, time.Since(start)))
	return nil
}

// Bytes returns the session's private copy of the loaded document.
// The exporter reads from this so later edits to the caller's buffer
// cannot leak into output.
func (s *Session) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoaded {
		return nil, ErrNotLoaded
	}
	return s.buf, nil
}

// Reset discards the current document, running reset hooks first.
// Resetting an unloaded session is a no-op.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.state == StateUnloaded {
		s.mu.Unlock()
		return
	}
	hooks := append([]func(){}, s.onReset...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	if s.doc != nil {
		if err := s.doc.Close(); err != nil {
			s.logger.Warn("closing document", observability.Error("error", err))
		}
		s.doc = nil
	}
	s.buf = nil
	s.state = StateUnloaded
}
