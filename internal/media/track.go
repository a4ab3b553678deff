package media

import (
	"strconv"
	"sync"

	"capdeck/internal/domain"
	"capdeck/internal/ports"
)

// deviceTrack describes one capture input for the encoder. The device is
// held open by the encode process itself, so Stop is bookkeeping that marks
// the descriptor unusable.
type deviceTrack struct {
	kind        domain.TrackKind
	label       string
	inputFormat string
	inputSpec   string
	frameRate   int

	mu      sync.Mutex
	stopped bool
}

func (t *deviceTrack) Kind() domain.TrackKind { return t.kind }

func (t *deviceTrack) Label() string { return t.label }

func (t *deviceTrack) Stop() error {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	return nil
}

func (t *deviceTrack) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// inputArgs renders the ffmpeg input flags for this track.
func (t *deviceTrack) inputArgs() []string {
	var args []string
	args = append(args, "-f", t.inputFormat)
	if t.kind == domain.TrackKindVideo && t.frameRate > 0 {
		args = append(args, "-framerate", strconv.Itoa(t.frameRate))
	}
	return append(args, "-i", t.inputSpec)
}

// screenCapture is the composer-owned screen-share handle. Release is
// idempotent; end-of-stream observers run once if the platform terminates
// the share outside Release.
type screenCapture struct {
	track *deviceTrack

	mu       sync.Mutex
	released bool
	onEnded  []func()
}

func newScreenCapture(track *deviceTrack) *screenCapture {
	return &screenCapture{track: track}
}

func (s *screenCapture) Track() ports.Track { return s.track }

func (s *screenCapture) OnEnded(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.onEnded = append(s.onEnded, f)
}

func (s *screenCapture) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	s.onEnded = nil
	s.mu.Unlock()
	return s.track.Stop()
}

// ended signals out-of-band termination, treated as equivalent to Release.
func (s *screenCapture) ended() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	observers := s.onEnded
	s.onEnded = nil
	s.mu.Unlock()

	_ = s.track.Stop()
	for _, f := range observers {
		f()
	}
}
