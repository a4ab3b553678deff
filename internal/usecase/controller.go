package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"capdeck/internal/domain"
	"capdeck/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	ErrAlreadyActive   = errors.New("a session is already active")
	ErrScreenStale     = errors.New("screen is enabled but sharing has ended; toggle screen again")
)

// Encoding preference lists, highest fidelity first. The last entry of each
// list is the generic fallback tag used when nothing better is supported.
var (
	videoEncodings = []string{
		"video/webm;codecs=vp9,opus",
		"video/webm;codecs=vp8,opus",
		"video/webm",
	}
	audioEncodings = []string{
		"audio/webm;codecs=opus",
		"audio/webm",
	}
)

// Config controls session behavior.
type Config struct {
	// FlushInterval bounds crash data loss: encoded data lands in the
	// chunk log at least this often. Clamped to one second.
	FlushInterval time.Duration
	// Extension is the artifact container suffix, without the dot.
	Extension string
	// Now is the wall clock used for artifact filenames.
	Now func() time.Time
}

// SessionController is the capture-session state machine:
// idle -(start)-> recording -(stop)-> finalizing -(persist)-> idle.
type SessionController struct {
	composer  *SourceComposer
	encoder   ports.Encoder
	persister *ArtifactPersister
	events    ports.EventSink
	cfg       Config

	mu       sync.Mutex
	state    domain.SessionState
	starting bool
	current  *activeSession
}

func NewSessionController(
	composer *SourceComposer,
	encoder ports.Encoder,
	persister *ArtifactPersister,
	events ports.EventSink,
	cfg Config,
) *SessionController {
	if cfg.FlushInterval <= 0 || cfg.FlushInterval > time.Second {
		cfg.FlushInterval = time.Second
	}
	if cfg.Extension == "" {
		cfg.Extension = "webm"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	controller := &SessionController{
		composer:  composer,
		encoder:   encoder,
		persister: persister,
		events:    events,
		cfg:       cfg,
		state:     domain.SessionStateIdle,
	}
	composer.BindSessionGuard(controller.Busy)
	return controller
}

// Busy reports whether the session is anywhere but idle.
func (c *SessionController) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != domain.SessionStateIdle || c.starting
}

// Status returns the current session snapshot.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.Status{State: c.state}
	if c.current != nil {
		status.ElapsedSeconds = int(c.current.elapsed.Load())
		status.Encoding = c.current.encoding
	}
	return status
}

// Start validates the toggles, builds the track set, opens the encoder, and
// transitions to recording. Validation failures leave state unchanged with
// no partial session running.
func (c *SessionController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.SessionStateIdle || c.starting {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	if !c.composer.AnyEnabled() {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorCodeNoSource, errors.New("enable at least one source before recording"))
	}
	if c.composer.ScreenStale() {
		c.mu.Unlock()
		return domain.NewError(domain.ErrorCodeNoSource, ErrScreenStale)
	}
	c.starting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	set, err := c.composer.BuildTrackSet(ctx)
	if err != nil {
		return err
	}

	encoding := c.pickEncoding(set)
	sessionCtx, cancel := context.WithCancel(context.Background())
	encoderSession, err := c.encoder.Open(sessionCtx, set.Tracks, ports.EncodeOptions{
		Encoding:      encoding,
		FlushInterval: c.cfg.FlushInterval,
	})
	if err != nil {
		cancel()
		stopTracks(set.Tracks, set.ScreenTrack)
		return err
	}

	active := newActiveSession(cancel, encoderSession, set, encoding)

	c.mu.Lock()
	c.current = active
	c.state = domain.SessionStateRecording
	c.mu.Unlock()

	go c.runPump(active)
	go c.runClock(active)

	c.events.SessionStateChanged(domain.SessionStateRecording)
	return nil
}

// Stop finalizes the active session and persists the collected chunks.
// Calling it outside recording returns ErrNoActiveSession (callers treat
// that as a no-op).
func (c *SessionController) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.SessionStateRecording || c.current == nil {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	active := c.current
	c.state = domain.SessionStateFinalizing
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateFinalizing)
	active.haltClock()

	// Session-owned tracks release now; the screen track stays with its
	// handle, whose lifetime belongs to ToggleScreen.
	stopTracks(active.set.Tracks, active.set.ScreenTrack)

	// Finalize always runs to completion once requested.
	stopErr := active.encoder.Stop()
	<-active.pumpDone

	if err := active.encoder.Err(); err != nil {
		c.events.SessionError(domain.ErrorCodeEncoder, err.Error())
	} else if stopErr != nil {
		c.events.SessionError(domain.ErrorCodeEncoder, stopErr.Error())
	}

	// A zero-duration session collects nothing; persistence is skipped.
	if active.chunks.Len() > 0 {
		blob := active.chunks.Bytes()
		filename := c.artifactFilename()
		via, err := c.persister.Persist(ctx, filename, blob)
		if errors.Is(err, domain.ErrCancelled) {
			// The user dismissed the save dialog; the recording is
			// discarded without error state.
		} else if err != nil {
			c.events.SessionError(domain.CodeOf(err), err.Error())
		} else {
			c.events.RecordingSaved(filename, via)
			c.events.CatalogChanged()
		}
	}

	c.finishSession(active)
	return nil
}

// runPump drains encoder chunks into the log. A fatal encoder failure while
// recording forces the session straight to idle; chunks already captured
// are discarded rather than auto-saved.
func (c *SessionController) runPump(active *activeSession) {
	defer close(active.pumpDone)
	for chunk := range active.encoder.Chunks() {
		active.chunks.Append(chunk)
	}

	err := active.encoder.Err()
	if err == nil {
		return
	}

	c.mu.Lock()
	abort := c.state == domain.SessionStateRecording && c.current == active
	if abort {
		// Claim teardown under the lock so a racing Stop sees a
		// non-recording state and backs off.
		c.state = domain.SessionStateFinalizing
	}
	c.mu.Unlock()
	if !abort {
		// Stop owns teardown and reports the error itself.
		return
	}

	c.events.SessionError(domain.ErrorCodeEncoder, err.Error())
	active.haltClock()
	stopTracks(active.set.Tracks, active.set.ScreenTrack)
	c.finishSession(active)
}

// runClock increments the elapsed counter once per second while recording.
func (c *SessionController) runClock(active *activeSession) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.events.ElapsedTick(int(active.elapsed.Add(1)))
		case <-active.clockStop:
			return
		}
	}
}

// finishSession tears down active and reports whether it performed the
// transition to idle; a session already finished by the other teardown path
// is left alone.
func (c *SessionController) finishSession(active *activeSession) bool {
	active.cancel()
	active.chunks.Reset()
	active.elapsed.Store(0)

	c.mu.Lock()
	transitioned := c.current == active
	if transitioned {
		c.current = nil
		c.state = domain.SessionStateIdle
	}
	c.mu.Unlock()

	if transitioned {
		c.events.SessionStateChanged(domain.SessionStateIdle)
	}
	return transitioned
}

// pickEncoding walks the preference list for the track set's shape and
// settles on the first supported identifier. An empty result leaves codec
// choice to the encoder; the artifact still gets the generic container tag.
func (c *SessionController) pickEncoding(set TrackSet) string {
	preferences := audioEncodings
	for _, track := range set.Tracks {
		if track.Kind() == domain.TrackKindVideo {
			preferences = videoEncodings
			break
		}
	}

	for _, encoding := range preferences {
		if c.encoder.Supports(encoding) {
			return encoding
		}
	}
	return ""
}

// artifactFilename derives the name from the wall clock at finalize, second
// resolution. Collisions within one second are last-writer-wins.
func (c *SessionController) artifactFilename() string {
	return fmt.Sprintf("recording-%s.%s", c.cfg.Now().Format("2006-01-02-15-04-05"), c.cfg.Extension)
}
