package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"capdeck/internal/domain"
	"capdeck/internal/ports"
	"capdeck/internal/prefs"
)

// ErrSessionActive rejects source mutations while a session is running;
// toggle changes only take effect on the next session start.
var ErrSessionActive = errors.New("sources cannot change while a session is active")

// SourceComposer owns the three source toggles, the selected device ids,
// and the single live screen-capture handle. It builds the combined track
// set fed to the encoder at session start.
type SourceComposer struct {
	devices ports.MediaDevices
	store   ports.PreferenceStore
	events  ports.EventSink
	busy    func() bool

	mu            sync.Mutex
	micEnabled    bool
	cameraEnabled bool
	screenEnabled bool
	micDevice     string
	cameraDevice  string
	screen        ports.ScreenCapture
}

// NewSourceComposer restores toggle state and device selections from the
// preference store (mic and camera default enabled, screen disabled). A
// restored screen toggle starts without a live handle; session start
// rejects that stale state until the user toggles screen again.
func NewSourceComposer(devices ports.MediaDevices, store ports.PreferenceStore, events ports.EventSink) *SourceComposer {
	return &SourceComposer{
		devices:       devices,
		store:         store,
		events:        events,
		busy:          func() bool { return false },
		micEnabled:    prefBool(store, prefs.KeyMicEnabled, true),
		cameraEnabled: prefBool(store, prefs.KeyCameraEnabled, true),
		screenEnabled: prefBool(store, prefs.KeyScreenEnabled, false),
		micDevice:     store.Get(prefs.KeyMicDevice),
		cameraDevice:  store.Get(prefs.KeyCameraDevice),
	}
}

// BindSessionGuard installs the session-busy check used to reject mic and
// camera toggles mid-recording.
func (s *SourceComposer) BindSessionGuard(busy func() bool) {
	if busy != nil {
		s.busy = busy
	}
}

// State returns the toggle snapshot shown to the UI.
func (s *SourceComposer) State() domain.SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *SourceComposer) stateLocked() domain.SourceState {
	return domain.SourceState{
		MicEnabled:     s.micEnabled,
		CameraEnabled:  s.cameraEnabled,
		ScreenEnabled:  s.screenEnabled,
		MicDeviceID:    s.micDevice,
		CameraDeviceID: s.cameraDevice,
	}
}

// AnyEnabled reports whether at least one source may contribute a track.
func (s *SourceComposer) AnyEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.micEnabled || s.cameraEnabled || s.screenEnabled
}

// ScreenStale reports a screen toggle left enabled after its handle was
// dropped (restart, or external share termination racing a start).
func (s *SourceComposer) ScreenStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenEnabled && s.screen == nil
}

func (s *SourceComposer) ToggleMic() error {
	// busy is sampled outside the composer lock. A Start racing past this
	// check still reads the toggles afterwards, in BuildTrackSet, so a
	// stale answer here cannot leak into a running session.
	if s.busy() {
		return ErrSessionActive
	}
	s.mu.Lock()
	s.micEnabled = !s.micEnabled
	state := s.stateLocked()
	s.mu.Unlock()

	s.persistToggle(prefs.KeyMicEnabled, state.MicEnabled)
	s.events.SourcesChanged(state)
	return nil
}

func (s *SourceComposer) ToggleCamera() error {
	if s.busy() {
		return ErrSessionActive
	}
	s.mu.Lock()
	s.cameraEnabled = !s.cameraEnabled
	state := s.stateLocked()
	s.mu.Unlock()

	s.persistToggle(prefs.KeyCameraEnabled, state.CameraEnabled)
	s.events.SourcesChanged(state)
	return nil
}

// ToggleScreen acquires or releases the screen-capture handle. Unlike mic
// and camera it is allowed mid-session: releasing the handle never stops a
// recording, the session keeps its track until Stop. Picker cancellation is
// benign and leaves screen disabled without an error.
func (s *SourceComposer) ToggleScreen(ctx context.Context) error {
	s.mu.Lock()
	if s.screenEnabled {
		handle := s.screen
		s.screenEnabled = false
		s.screen = nil
		state := s.stateLocked()
		s.mu.Unlock()

		if handle != nil {
			_ = handle.Release()
		}
		s.persistToggle(prefs.KeyScreenEnabled, false)
		s.events.SourcesChanged(state)
		return nil
	}
	s.mu.Unlock()

	handle, err := s.devices.OpenScreen(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return nil
		}
		return err
	}

	handle.OnEnded(func() { s.screenEnded(handle) })

	s.mu.Lock()
	if s.screen != nil || s.screenEnabled {
		// A concurrent enable already installed a handle; at most one
		// may be live, so this one goes straight back.
		s.mu.Unlock()
		_ = handle.Release()
		return nil
	}
	s.screenEnabled = true
	s.screen = handle
	state := s.stateLocked()
	s.mu.Unlock()

	s.persistToggle(prefs.KeyScreenEnabled, true)
	s.events.SourcesChanged(state)
	return nil
}

// screenEnded handles the platform ending the share out-of-band: the toggle
// flips back and the handle is dropped, exactly as an explicit release.
func (s *SourceComposer) screenEnded(handle ports.ScreenCapture) {
	s.mu.Lock()
	if s.screen != handle {
		s.mu.Unlock()
		return
	}
	s.screenEnabled = false
	s.screen = nil
	state := s.stateLocked()
	s.mu.Unlock()

	s.persistToggle(prefs.KeyScreenEnabled, false)
	s.events.SourcesChanged(state)
}

func (s *SourceComposer) SelectMicrophone(deviceID string) error {
	s.mu.Lock()
	s.micDevice = deviceID
	s.mu.Unlock()
	return s.store.Set(prefs.KeyMicDevice, deviceID)
}

func (s *SourceComposer) SelectCamera(deviceID string) error {
	s.mu.Lock()
	s.cameraDevice = deviceID
	s.mu.Unlock()
	return s.store.Set(prefs.KeyCameraDevice, deviceID)
}

// TrackSet is the composed input for one session. ScreenTrack, when
// non-nil, points at the track owned by the live screen handle; session
// stop must leave it alone.
type TrackSet struct {
	Tracks      []ports.Track
	ScreenTrack ports.Track
}

// BuildTrackSet assembles the session inputs. Screen video pre-empts camera
// video; mic contributes the audio track. Returns a NoSource error when
// zero tracks result.
func (s *SourceComposer) BuildTrackSet(ctx context.Context) (TrackSet, error) {
	s.mu.Lock()
	micEnabled := s.micEnabled
	cameraEnabled := s.cameraEnabled
	screenEnabled := s.screenEnabled
	micDevice := s.micDevice
	cameraDevice := s.cameraDevice
	screen := s.screen
	s.mu.Unlock()

	var set TrackSet

	switch {
	case screenEnabled && screen != nil:
		set.ScreenTrack = screen.Track()
		set.Tracks = append(set.Tracks, set.ScreenTrack)
	case cameraEnabled:
		track, err := s.devices.OpenCamera(ctx, cameraDevice)
		if err != nil {
			return TrackSet{}, err
		}
		set.Tracks = append(set.Tracks, track)
	}

	if micEnabled {
		track, err := s.devices.OpenMicrophone(ctx, micDevice)
		if err != nil {
			stopTracks(set.Tracks, set.ScreenTrack)
			return TrackSet{}, err
		}
		set.Tracks = append(set.Tracks, track)
	}

	if len(set.Tracks) == 0 {
		return TrackSet{}, domain.NewError(domain.ErrorCodeNoSource, errors.New("no capture source produced a track"))
	}
	return set, nil
}

// stopTracks stops every acquired track except the screen-owned one, whose
// lifetime belongs to ToggleScreen.
func stopTracks(tracks []ports.Track, screenTrack ports.Track) {
	for _, track := range tracks {
		if track == screenTrack {
			continue
		}
		_ = track.Stop()
	}
}

func (s *SourceComposer) persistToggle(key string, value bool) {
	_ = s.store.Set(key, strconv.FormatBool(value))
}

func prefBool(store ports.PreferenceStore, key string, fallback bool) bool {
	value := store.Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
