package session

import (
	"context"
	"sync"
	"time"

	"github.com/denismitr/heroic/internal/media"
	"github.com/denismitr/heroic/internal/media/manipulator"
	"github.com/pkg/errors"
)

var ErrNoSource = errors.New("session has no image loaded")
var ErrApplyInProgress = errors.New("session apply already in progress")
var ErrSourceChanged = errors.New("session source changed while applying")

// local previews of an undo are dropped after this long
const previewTimeout = 30 * time.Second

type Status int

const (
	Idle Status = iota
	Editing
	Applying
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Applying:
		return "applying"
	default:
		return "unknown"
	}
}

// Renderer turns a source and an edit state into png bytes.
// The remote editor client and the in-process manipulator both satisfy it.
type Renderer interface {
	Render(ctx context.Context, source media.Source, s manipulator.EditState) ([]byte, error)
}

// Session is the edit state of one image as the user works on it:
// the live parameters, the undo history and the latest preview.
// It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	renderer     Renderer
	previewer    Renderer
	historyLimit int

	source     *media.Source
	generation uint64
	state      manipulator.EditState
	history    []manipulator.EditState
	status     Status
	preview    []byte
	exact      bool
	// bumped on every preview change so a late undo render cannot overwrite a newer one
	previewVersion uint64
	err            error
}

type Option func(*Session)

// WithHistoryLimit bounds the undo history, the oldest entries are dropped first
func WithHistoryLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithPreviewer renders undo previews locally instead of showing the original
func WithPreviewer(r Renderer) Option {
	return func(s *Session) { s.previewer = r }
}

func New(renderer Renderer, opts ...Option) *Session {
	s := &Session{
		renderer: renderer,
		state:    manipulator.Defaults(),
		status:   Idle,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load starts editing a new image. The state goes back to defaults and the history is cleared.
// An apply still in flight for the previous image is discarded when it completes.
func (s *Session) Load(src media.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := src.Clone()
	s.source = &c
	s.generation++
	s.state = manipulator.Defaults()
	s.history = nil
	s.setPreview(c.Content, true)
	s.err = nil
	s.status = Editing
}

// SetField replaces the live state with one carrying the new field value
func (s *Session) SetField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return ErrNoSource
	}

	next, err := s.state.With(field, value)
	if err != nil {
		return err
	}

	s.state = next

	return nil
}

// ApplyPreset merges a preset into the live state, the history is not touched
func (s *Session) ApplyPreset(name string) error {
	p, err := manipulator.LookupPreset(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return ErrNoSource
	}

	s.state = p.Merge(s.state)

	return nil
}

// Apply renders the live state. On success the rendered state goes onto the history
// and the output becomes the preview. On failure state and history stay as they were.
// The lock is not held while rendering, so the state may be edited meanwhile.
func (s *Session) Apply(ctx context.Context) error {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return ErrNoSource
	}

	if s.status == Applying {
		s.mu.Unlock()
		return ErrApplyInProgress
	}

	snapshot := s.state
	source := *s.source
	generation := s.generation
	s.status = Applying
	s.mu.Unlock()

	out, err := s.renderer.Render(ctx, source, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return ErrSourceChanged
	}

	s.status = Editing

	if err != nil {
		s.err = errors.Wrap(err, "apply failed")
		return s.err
	}

	s.pushHistory(snapshot)
	s.setPreview(out, true)
	s.err = nil

	return nil
}

func (s *Session) pushHistory(state manipulator.EditState) {
	s.history = append(s.history, state)
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		s.history = append([]manipulator.EditState(nil), s.history[len(s.history)-s.historyLimit:]...)
	}
}

// Undo pops the most recent history entry and makes it the live state.
// It never calls the remote renderer and is refused while an apply is in flight.
// A local preview of the restored state is rendered without holding the lock;
// until it is ready the preview is the original and reported as not exact.
func (s *Session) Undo() (manipulator.EditState, bool) {
	s.mu.Lock()

	if len(s.history) == 0 || s.status == Applying {
		defer s.mu.Unlock()
		return s.state, false
	}

	last := len(s.history) - 1
	s.state = s.history[last]
	s.history = s.history[:last]
	restored := s.state

	if s.previewer == nil || restored.IsIdentity() {
		s.setPreview(s.source.Content, restored.IsIdentity())
		s.mu.Unlock()
		return restored, true
	}

	s.setPreview(s.source.Content, false)
	version := s.previewVersion
	source := *s.source
	previewer := s.previewer
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), previewTimeout)
	defer cancel()

	out, err := previewer.Render(ctx, source, restored)
	if err != nil {
		return restored, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.previewVersion == version && s.state == restored {
		s.setPreview(out, true)
	}

	return restored, true
}

func (s *Session) setPreview(p []byte, exact bool) {
	s.preview = p
	s.exact = exact
	s.previewVersion++
}

// Reset restores the default state and keeps the history
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = manipulator.Defaults()
}

func (s *Session) State() manipulator.EditState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// History returns a copy, oldest entry first
func (s *Session) History() []manipulator.EditState {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := make([]manipulator.EditState, len(s.history))
	copy(h, s.history)

	return h
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Preview returns the image to show and whether it is an exact render of the live state
// as of the last apply or undo. Before any apply that is the original upload.
func (s *Session) Preview() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.preview == nil {
		return nil, false
	}

	p := make([]byte, len(s.preview))
	copy(p, s.preview)

	return p, s.exact
}

// Err is the error of the last apply, nil once an apply succeeds
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

func (s *Session) Source() (media.Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return media.Source{}, false
	}

	return s.source.Clone(), true
}
