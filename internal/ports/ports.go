package ports

import (
	"context"
	"io"
	"time"

	"capdeck/internal/domain"
)

// Track is one live capture input feeding the encoder. Stop releases the
// device behind it.
type Track interface {
	Kind() domain.TrackKind
	Label() string
	Stop() error
}

// ScreenCapture is a live screen-share handle. It is singly owned by the
// source composer: created on screen-enable, released on screen-disable or
// when the platform ends the share out-of-band.
type ScreenCapture interface {
	Track() Track
	// OnEnded registers f to run once if the capture terminates outside
	// Release (the user stopping the share via platform chrome).
	OnEnded(f func())
	Release() error
}

// MediaDevices enumerates and opens capture inputs.
type MediaDevices interface {
	Microphones(ctx context.Context) ([]domain.Device, error)
	Cameras(ctx context.Context) ([]domain.Device, error)
	// OpenMicrophone and OpenCamera accept "" for the default device.
	OpenMicrophone(ctx context.Context, deviceID string) (Track, error)
	OpenCamera(ctx context.Context, deviceID string) (Track, error)
	OpenScreen(ctx context.Context) (ScreenCapture, error)
}

// EncodeOptions configure one encode run.
type EncodeOptions struct {
	Encoding      string
	FlushInterval time.Duration
}

// EncoderSession is one live encode of a track set.
type EncoderSession interface {
	// Chunks delivers encoded data at the configured flush interval, in
	// flush order. The channel closes once the trailing chunk after Stop
	// (or a fatal encoder failure) has been delivered.
	Chunks() <-chan []byte
	// Stop finalizes the encode; remaining data is flushed before Chunks
	// closes. Finalization always runs to completion once requested.
	Stop() error
	// Err reports a fatal encoder failure. Valid after Chunks closes.
	Err() error
}

// Encoder opens encode sessions against a combined track set.
type Encoder interface {
	Supports(encoding string) bool
	Open(ctx context.Context, tracks []Track, opts EncodeOptions) (EncoderSession, error)
}

// FolderEntry is one directory entry as seen during a catalog scan.
type FolderEntry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Folder is a live capability-scoped directory handle.
type Folder interface {
	Name() string
	// List enumerates entry names; Stat reads one entry's metadata so the
	// catalog can skip unreadable entries individually.
	List(ctx context.Context) ([]string, error)
	Stat(ctx context.Context, name string) (FolderEntry, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Write creates name if absent and truncates on write.
	Write(ctx context.Context, name string, data []byte) error
	Remove(ctx context.Context, name string) error
	// Path is the folder location, used for change watching.
	Path() string
}

// FolderPicker asks the user for a directory. An empty path with a nil
// error means the picker was dismissed.
type FolderPicker interface {
	Pick(ctx context.Context) (string, error)
}

// DownloadSink delivers a blob straight to the user when the structured
// folder write is unavailable.
type DownloadSink interface {
	Download(ctx context.Context, filename string, data []byte) error
}

// PreferenceStore persists named string slots across restarts.
type PreferenceStore interface {
	Get(key string) string
	Set(key, value string) error
}

// EventSink emits backend state and events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState)
	ElapsedTick(seconds int)
	SourcesChanged(state domain.SourceState)
	RecordingSaved(filename string, via domain.PersistPath)
	CatalogChanged()
	CatalogWarning(detail string)
	SessionError(code domain.ErrorCode, detail string)
}
