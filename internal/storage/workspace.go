package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"capdeck/internal/domain"
	"capdeck/internal/ports"
	"capdeck/internal/prefs"
)

var errNothingRemembered = errors.New("no folder remembered from a previous run")

func displayName(path string) string { return filepath.Base(path) }

// Workspace owns the at-most-one current recordings folder. After a restart
// it starts in the remembered state (display name restored from preferences,
// no live handle) until the user re-authorizes via Restore or Choose.
type Workspace struct {
	picker ports.FolderPicker
	store  ports.PreferenceStore

	mu         sync.Mutex
	folder     ports.Folder
	remembered string
}

func NewWorkspace(picker ports.FolderPicker, store ports.PreferenceStore) *Workspace {
	return &Workspace{
		picker:     picker,
		store:      store,
		remembered: store.Get(prefs.KeyFolderName),
	}
}

// Current returns the live folder (nil unless state is live), the folder
// state, and the display name shown to the user.
func (w *Workspace) Current() (ports.Folder, domain.FolderState, string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.folder != nil {
		return w.folder, domain.FolderStateLive, w.folder.Name()
	}
	if w.remembered != "" {
		return nil, domain.FolderStateRemembered, displayName(w.remembered)
	}
	return nil, domain.FolderStateNone, ""
}

// Choose runs the folder picker and installs the chosen directory as the
// live folder. A dismissed picker returns domain.ErrCancelled and leaves the
// current state untouched.
func (w *Workspace) Choose(ctx context.Context) (ports.Folder, error) {
	path, err := w.picker.Pick(ctx)
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeAccessRevoked, err)
	}
	if path == "" {
		return nil, domain.ErrCancelled
	}
	return w.install(path)
}

// Restore re-authorizes the folder remembered from a previous run. It fails
// with AccessRevoked when the location is no longer reachable, in which case
// the remembered name is kept so the user can Choose again.
func (w *Workspace) Restore(ctx context.Context) (ports.Folder, error) {
	w.mu.Lock()
	remembered := w.remembered
	w.mu.Unlock()

	if remembered == "" {
		return nil, domain.NewError(domain.ErrorCodeAccessRevoked, errNothingRemembered)
	}
	return w.install(remembered)
}

func (w *Workspace) install(path string) (ports.Folder, error) {
	folder, err := OpenFolder(path)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.folder = folder
	w.remembered = path
	w.mu.Unlock()

	if err := w.store.Set(prefs.KeyFolderName, path); err != nil {
		// The folder is usable either way; the name just won't survive
		// the next restart.
		return folder, nil
	}
	return folder, nil
}
