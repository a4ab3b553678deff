package usecase

import (
	"sync"
	"sync/atomic"

	"capdeck/internal/ports"
)

// activeSession holds everything owned by one capture run. Sessions are
// never reused; every start builds a fresh value.
type activeSession struct {
	cancel  func()
	encoder ports.EncoderSession
	set     TrackSet

	encoding string
	chunks   *chunkLog
	elapsed  atomic.Int64

	pumpDone  chan struct{}
	clockStop chan struct{}
	clockOnce sync.Once
}

func newActiveSession(cancel func(), encoder ports.EncoderSession, set TrackSet, encoding string) *activeSession {
	return &activeSession{
		cancel:    cancel,
		encoder:   encoder,
		set:       set,
		encoding:  encoding,
		chunks:    newChunkLog(),
		pumpDone:  make(chan struct{}),
		clockStop: make(chan struct{}),
	}
}

func (s *activeSession) haltClock() {
	s.clockOnce.Do(func() { close(s.clockStop) })
}
