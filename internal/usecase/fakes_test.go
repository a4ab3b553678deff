package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"capdeck/internal/domain"
	"capdeck/internal/ports"
)

type fakeTrack struct {
	kind  domain.TrackKind
	label string

	mu      sync.Mutex
	stopped bool
}

func (t *fakeTrack) Kind() domain.TrackKind { return t.kind }
func (t *fakeTrack) Label() string          { return t.label }

func (t *fakeTrack) Stop() error {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTrack) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeScreenCapture struct {
	track *fakeTrack

	mu       sync.Mutex
	released bool
	onEnded  []func()
}

func newFakeScreenCapture() *fakeScreenCapture {
	return &fakeScreenCapture{track: &fakeTrack{kind: domain.TrackKindVideo, label: "screen"}}
}

func (s *fakeScreenCapture) Track() ports.Track { return s.track }

func (s *fakeScreenCapture) OnEnded(f func()) {
	s.mu.Lock()
	s.onEnded = append(s.onEnded, f)
	s.mu.Unlock()
}

func (s *fakeScreenCapture) Release() error {
	s.mu.Lock()
	s.released = true
	s.onEnded = nil
	s.mu.Unlock()
	return nil
}

func (s *fakeScreenCapture) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// endExternally simulates the platform terminating the share out-of-band.
func (s *fakeScreenCapture) endExternally() {
	s.mu.Lock()
	observers := s.onEnded
	s.onEnded = nil
	s.released = true
	s.mu.Unlock()
	for _, f := range observers {
		f()
	}
}

type fakeMediaDevices struct {
	mu sync.Mutex

	micErr    error
	camErr    error
	screenErr error

	// screenGate, when set, holds OpenScreen callers until closed so tests
	// can line up concurrent acquisitions.
	screenGate chan struct{}

	screens     []*fakeScreenCapture
	openedMics  []*fakeTrack
	openedCams  []*fakeTrack
	screenOpens int
}

func (d *fakeMediaDevices) Microphones(context.Context) ([]domain.Device, error) {
	return []domain.Device{{ID: "mic-1", Label: "Mic"}}, nil
}

func (d *fakeMediaDevices) Cameras(context.Context) ([]domain.Device, error) {
	return []domain.Device{{ID: "cam-1", Label: "Cam"}}, nil
}

func (d *fakeMediaDevices) OpenMicrophone(_ context.Context, deviceID string) (ports.Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.micErr != nil {
		return nil, d.micErr
	}
	track := &fakeTrack{kind: domain.TrackKindAudio, label: "mic:" + deviceID}
	d.openedMics = append(d.openedMics, track)
	return track, nil
}

func (d *fakeMediaDevices) OpenCamera(_ context.Context, deviceID string) (ports.Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.camErr != nil {
		return nil, d.camErr
	}
	track := &fakeTrack{kind: domain.TrackKindVideo, label: "cam:" + deviceID}
	d.openedCams = append(d.openedCams, track)
	return track, nil
}

func (d *fakeMediaDevices) OpenScreen(context.Context) (ports.ScreenCapture, error) {
	d.mu.Lock()
	if d.screenErr != nil {
		d.mu.Unlock()
		return nil, d.screenErr
	}
	d.screenOpens++
	screen := newFakeScreenCapture()
	d.screens = append(d.screens, screen)
	gate := d.screenGate
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return screen, nil
}

func (d *fakeMediaDevices) lastScreen() *fakeScreenCapture {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.screens) == 0 {
		return nil
	}
	return d.screens[len(d.screens)-1]
}

type fakeEncoderSession struct {
	chunks    chan []byte
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func newFakeEncoderSession() *fakeEncoderSession {
	return &fakeEncoderSession{chunks: make(chan []byte, 16)}
}

func (s *fakeEncoderSession) Chunks() <-chan []byte { return s.chunks }

func (s *fakeEncoderSession) Stop() error {
	s.closeOnce.Do(func() { close(s.chunks) })
	return nil
}

func (s *fakeEncoderSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// fail simulates a fatal encoder failure mid-recording.
func (s *fakeEncoderSession) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.chunks) })
}

type fakeEncoder struct {
	mu          sync.Mutex
	sessions    []*fakeEncoderSession
	unsupported map[string]bool
	openErr     error

	openedTracks   [][]ports.Track
	openedEncoding []string
}

func (e *fakeEncoder) Supports(encoding string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.unsupported[encoding]
}

func (e *fakeEncoder) Open(_ context.Context, tracks []ports.Track, opts ports.EncodeOptions) (ports.EncoderSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	session := newFakeEncoderSession()
	e.sessions = append(e.sessions, session)
	e.openedTracks = append(e.openedTracks, tracks)
	e.openedEncoding = append(e.openedEncoding, opts.Encoding)
	return session, nil
}

func (e *fakeEncoder) lastSession() *fakeEncoderSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}

type fakePrefs struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{values: map[string]string{}}
}

func (p *fakePrefs) Get(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[key]
}

func (p *fakePrefs) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.values[key] = value
	return nil
}

type stateEvent struct {
	state domain.SessionState
}

type errorEvent struct {
	code   domain.ErrorCode
	detail string
}

type savedEvent struct {
	filename string
	via      domain.PersistPath
}

type fakeEventSink struct {
	mu       sync.Mutex
	states   []stateEvent
	ticks    []int
	sources  []domain.SourceState
	saved    []savedEvent
	catalogs int
	warnings []string
	errors   []errorEvent
}

func (s *fakeEventSink) SessionStateChanged(state domain.SessionState) {
	s.mu.Lock()
	s.states = append(s.states, stateEvent{state: state})
	s.mu.Unlock()
}

func (s *fakeEventSink) ElapsedTick(seconds int) {
	s.mu.Lock()
	s.ticks = append(s.ticks, seconds)
	s.mu.Unlock()
}

func (s *fakeEventSink) SourcesChanged(state domain.SourceState) {
	s.mu.Lock()
	s.sources = append(s.sources, state)
	s.mu.Unlock()
}

func (s *fakeEventSink) RecordingSaved(filename string, via domain.PersistPath) {
	s.mu.Lock()
	s.saved = append(s.saved, savedEvent{filename: filename, via: via})
	s.mu.Unlock()
}

func (s *fakeEventSink) CatalogChanged() {
	s.mu.Lock()
	s.catalogs++
	s.mu.Unlock()
}

func (s *fakeEventSink) CatalogWarning(detail string) {
	s.mu.Lock()
	s.warnings = append(s.warnings, detail)
	s.mu.Unlock()
}

func (s *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	s.mu.Lock()
	s.errors = append(s.errors, errorEvent{code: code, detail: detail})
	s.mu.Unlock()
}

func (s *fakeEventSink) snapshotStates() []stateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stateEvent(nil), s.states...)
}

func (s *fakeEventSink) snapshotSaved() []savedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]savedEvent(nil), s.saved...)
}

func (s *fakeEventSink) snapshotErrors() []errorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]errorEvent(nil), s.errors...)
}

type fakeFolder struct {
	mu       sync.Mutex
	name     string
	files    map[string][]byte
	writeErr error
}

func newFakeFolder(name string) *fakeFolder {
	return &fakeFolder{name: name, files: map[string][]byte{}}
}

func (f *fakeFolder) Name() string { return f.name }
func (f *fakeFolder) Path() string { return "/" + f.name }

func (f *fakeFolder) List(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeFolder) Stat(_ context.Context, name string) (ports.FolderEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return ports.FolderEntry{}, domain.NewError(domain.ErrorCodeReadFailed, errors.New("missing"))
	}
	return ports.FolderEntry{Name: name, Size: int64(len(data)), ModTime: time.Now()}, nil
}

func (f *fakeFolder) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return nil, domain.NewError(domain.ErrorCodeReadFailed, errors.New("not supported in this fake"))
}

func (f *fakeFolder) Write(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.files[name] = append([]byte(nil), data...)
	return nil
}

func (f *fakeFolder) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, name)
	return nil
}

type fakeFolderSource struct {
	mu     sync.Mutex
	folder ports.Folder
	state  domain.FolderState
}

func (s *fakeFolderSource) Current() (ports.Folder, domain.FolderState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.folder == nil {
		return nil, s.state, ""
	}
	return s.folder, s.state, s.folder.Name()
}

type fakeDownload struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newFakeDownload() *fakeDownload {
	return &fakeDownload{files: map[string][]byte{}}
}

func (d *fakeDownload) Download(_ context.Context, filename string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.files[filename] = append([]byte(nil), data...)
	return nil
}
