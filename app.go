package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"capdeck/internal/bootstrap"
	"capdeck/internal/catalog"
	"capdeck/internal/domain"
	"capdeck/internal/storage"
	"capdeck/internal/usecase"
)

const (
	eventSession = "capdeck:session"
	eventElapsed = "capdeck:elapsed"
	eventSources = "capdeck:sources"
	eventSaved   = "capdeck:saved"
	eventCatalog = "capdeck:catalog"
	eventWarning = "capdeck:warning"
	eventError   = "capdeck:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	composer   *usecase.SourceComposer
	controller *usecase.SessionController
	catalog    *catalog.Catalog
	workspace  *storage.Workspace
	watcher    *catalog.Watcher
	services   bootstrap.Services
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsFolderPicker{}, &wailsDownloadSink{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.composer = services.Composer
	a.controller = services.Controller
	a.catalog = services.Catalog
	a.workspace = services.Workspace
	a.watcher = services.Watcher

	a.SessionStateChanged(domain.SessionStateIdle)
	a.SourcesChanged(a.composer.State())
}

func (a *App) shutdown(ctx context.Context) {
	if a.controller != nil {
		_ = a.controller.Stop(ctx)
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.controller.Status()
}

// GetSources returns the source toggle snapshot.
func (a *App) GetSources() domain.SourceState {
	if a.composer == nil {
		return domain.SourceState{}
	}
	return a.composer.State()
}

// ListMicrophones enumerates selectable audio inputs.
func (a *App) ListMicrophones() ([]domain.Device, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Devices.Microphones(a.ctx)
}

// ListCameras enumerates selectable video inputs.
func (a *App) ListCameras() ([]domain.Device, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Devices.Cameras(a.ctx)
}

// ToggleMic flips the microphone toggle. Rejected while a session runs.
func (a *App) ToggleMic() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.composer.ToggleMic()
}

// ToggleCamera flips the camera toggle. Rejected while a session runs.
func (a *App) ToggleCamera() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.composer.ToggleCamera()
}

// ToggleScreen acquires or releases screen sharing. Cancelling the picker
// is not an error; real acquisition failures surface as session errors.
func (a *App) ToggleScreen() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.composer.ToggleScreen(a.ctx); err != nil {
		a.SessionError(domain.CodeOf(err), err.Error())
		return err
	}
	return nil
}

func (a *App) SelectMicrophone(deviceID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.composer.SelectMicrophone(deviceID)
}

func (a *App) SelectCamera(deviceID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.composer.SelectCamera(deviceID)
}

// StartRecording begins a capture session over the enabled sources.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		if !errors.Is(err, usecase.ErrAlreadyActive) {
			a.SessionError(domain.CodeOf(err), err.Error())
		}
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// StopRecording finalizes and persists the active session. Stopping an
// idle session is a no-op.
func (a *App) StopRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Stop(a.ctx); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// FolderInfo describes the active recordings folder for the UI.
type FolderInfo struct {
	Name  string             `json:"name"`
	State domain.FolderState `json:"state"`
}

// GetFolder reports the active folder and whether it is live, merely
// remembered from a previous run, or absent.
func (a *App) GetFolder() FolderInfo {
	if a.workspace == nil {
		return FolderInfo{State: domain.FolderStateNone}
	}
	_, state, name := a.workspace.Current()
	return FolderInfo{Name: name, State: state}
}

// ChooseFolder runs the directory picker and installs the choice as the
// recordings folder. Cancelling keeps the previous state without an error.
func (a *App) ChooseFolder() (FolderInfo, error) {
	if err := a.requireReady(); err != nil {
		return FolderInfo{}, err
	}

	folder, err := a.workspace.Choose(a.ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return a.GetFolder(), nil
		}
		a.SessionError(domain.CodeOf(err), err.Error())
		return a.GetFolder(), err
	}

	a.watchFolder(folder.Path())
	a.CatalogChanged()
	return a.GetFolder(), nil
}

// ReconnectFolder re-authorizes the folder remembered from a previous run.
func (a *App) ReconnectFolder() (FolderInfo, error) {
	if err := a.requireReady(); err != nil {
		return FolderInfo{}, err
	}

	folder, err := a.workspace.Restore(a.ctx)
	if err != nil {
		a.SessionError(domain.CodeOf(err), err.Error())
		return a.GetFolder(), err
	}

	a.watchFolder(folder.Path())
	a.CatalogChanged()
	return a.GetFolder(), nil
}

// ListRecordings rescans the active folder.
func (a *App) ListRecordings() ([]domain.Artifact, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	artifacts, err := a.catalog.Refresh(a.ctx)
	if err != nil {
		a.SessionError(domain.CodeOf(err), err.Error())
		return nil, err
	}
	return artifacts, nil
}

// PlaybackData carries one artifact's bytes to the player, base64-encoded
// for the webview.
type PlaybackData struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// PlayRecording opens an artifact for playback. The previous playback
// reference, if any, is released first.
func (a *App) PlayRecording(filename string) (PlaybackData, error) {
	if err := a.requireReady(); err != nil {
		return PlaybackData{}, err
	}

	playback, err := a.catalog.Play(a.ctx, filename)
	if err != nil {
		a.SessionError(domain.CodeOf(err), err.Error())
		return PlaybackData{}, err
	}

	data, err := playback.ReadAll()
	if err != nil {
		a.catalog.ReleasePlayback()
		a.SessionError(domain.CodeOf(err), err.Error())
		return PlaybackData{}, err
	}

	return PlaybackData{
		ID:       playback.ID,
		Filename: filename,
		MimeType: "video/webm",
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// StopPlayback releases the current playback reference.
func (a *App) StopPlayback() {
	if a.catalog != nil {
		a.catalog.ReleasePlayback()
	}
}

// DeleteRecording removes an artifact, releasing its playback reference if
// the player is showing it.
func (a *App) DeleteRecording(filename string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.catalog.Delete(a.ctx, filename); err != nil {
		a.SessionError(domain.CodeOf(err), err.Error())
		return err
	}
	return nil
}

func (a *App) watchFolder(path string) {
	if err := a.watcher.Watch(path); err != nil {
		a.CatalogWarning(fmt.Sprintf("folder watch unavailable: %v", err))
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{"state": string(state)})
}

// ElapsedTick emits the once-per-second recording clock.
func (a *App) ElapsedTick(seconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventElapsed, seconds)
}

// SourcesChanged emits the toggle snapshot after any source mutation.
func (a *App) SourcesChanged(state domain.SourceState) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSources, state)
}

// RecordingSaved announces a persisted artifact and which route saved it.
func (a *App) RecordingSaved(filename string, via domain.PersistPath) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSaved, map[string]string{
		"filename": filename,
		"via":      string(via),
		"message":  savedMessage(via),
	})
}

// CatalogChanged tells the frontend to re-list recordings.
func (a *App) CatalogChanged() {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCatalog)
}

// CatalogWarning surfaces non-fatal catalog issues.
func (a *App) CatalogWarning(detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventWarning, detail)
}

// SessionError emits backend errors to the UI. Each new error replaces the
// previous status message; nothing queues or retries.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func savedMessage(via domain.PersistPath) string {
	if via == domain.PersistPathDownload {
		return "Recording saved as a download (folder unavailable)"
	}
	return "Recording saved to your folder"
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermissionDenied:
		return "Device access was denied"
	case domain.ErrorCodeDeviceNotFound:
		return "Device not found"
	case domain.ErrorCodeDeviceBusy:
		return "Device is in use by another application"
	case domain.ErrorCodeNoSource:
		return "Enable a microphone, camera, or screen first"
	case domain.ErrorCodeAccessRevoked:
		return "Folder access lapsed; choose the folder again"
	case domain.ErrorCodeReadFailed:
		return "Could not read the recording"
	case domain.ErrorCodeDeleteFailed:
		return "Could not delete the recording"
	case domain.ErrorCodePersistFailed:
		return "Could not save the recording"
	case domain.ErrorCodeEncoder:
		return "Recording failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsFolderPicker struct{}

func (p *wailsFolderPicker) Pick(ctx context.Context) (string, error) {
	return runtime.OpenDirectoryDialog(ctx, runtime.OpenDialogOptions{
		Title: "Choose a recordings folder",
	})
}

type wailsDownloadSink struct{}

func (s *wailsDownloadSink) Download(ctx context.Context, filename string, data []byte) error {
	path, err := runtime.SaveFileDialog(ctx, runtime.SaveDialogOptions{
		Title:           "Save recording",
		DefaultFilename: filename,
	})
	if err != nil {
		return err
	}
	if path == "" {
		return domain.ErrCancelled
	}
	return os.WriteFile(path, data, 0o644)
}
