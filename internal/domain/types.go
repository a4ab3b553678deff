package domain

import "time"

// SessionState models the capture-session lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateRecording  SessionState = "recording"
	SessionStateFinalizing SessionState = "finalizing"
)

// TrackKind identifies what a track carries.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// Device is one selectable capture input.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// SourceState is the composer's toggle snapshot shown to the UI.
type SourceState struct {
	MicEnabled     bool   `json:"micEnabled"`
	CameraEnabled  bool   `json:"cameraEnabled"`
	ScreenEnabled  bool   `json:"screenEnabled"`
	MicDeviceID    string `json:"micDeviceId"`
	CameraDeviceID string `json:"cameraDeviceId"`
}

// FolderState tells apart the three folder situations: never chosen,
// remembered from a previous run but not re-authorized, and live.
type FolderState string

const (
	FolderStateNone       FolderState = "none"
	FolderStateRemembered FolderState = "remembered"
	FolderStateLive       FolderState = "live"
)

// PersistPath records which persistence route completed.
type PersistPath string

const (
	PersistPathFolder   PersistPath = "folder"
	PersistPathDownload PersistPath = "download"
)

// Artifact is one saved recording as derived from the active folder.
type Artifact struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// Status summarizes the current session for the UI.
type Status struct {
	State          SessionState `json:"state"`
	ElapsedSeconds int          `json:"elapsedSeconds"`
	Encoding       string       `json:"encoding,omitempty"`
}
