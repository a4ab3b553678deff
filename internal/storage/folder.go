// Package storage owns the active recordings folder: the capability-scoped
// directory handle and the workspace that tracks whether one is chosen,
// merely remembered from a previous run, or live.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"capdeck/internal/domain"
	"capdeck/internal/ports"
)

// LocalFolder is a live directory handle over the OS filesystem.
type LocalFolder struct {
	path string
}

// OpenFolder validates path and returns a live handle. Lapsed permission or
// a missing directory maps to AccessRevoked so callers can invite
// re-authorization.
func OpenFolder(path string) (*LocalFolder, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeAccessRevoked, err)
	}
	if !info.IsDir() {
		return nil, domain.NewError(domain.ErrorCodeAccessRevoked, fmt.Errorf("%s is not a directory", path))
	}
	if _, err := os.ReadDir(path); err != nil {
		return nil, domain.NewError(domain.ErrorCodeAccessRevoked, err)
	}
	return &LocalFolder{path: path}, nil
}

func (f *LocalFolder) Name() string { return filepath.Base(f.path) }

func (f *LocalFolder) Path() string { return f.path }

func (f *LocalFolder) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return nil, classify(err, domain.ErrorCodeReadFailed)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (f *LocalFolder) Stat(ctx context.Context, name string) (ports.FolderEntry, error) {
	full, err := f.resolve(name)
	if err != nil {
		return ports.FolderEntry{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return ports.FolderEntry{}, classify(err, domain.ErrorCodeReadFailed)
	}
	return ports.FolderEntry{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (f *LocalFolder) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	full, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	rc, err := os.Open(full)
	if err != nil {
		return nil, classify(err, domain.ErrorCodeReadFailed)
	}
	return rc, nil
}

func (f *LocalFolder) Write(ctx context.Context, name string, data []byte) error {
	full, err := f.resolve(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return classify(err, domain.ErrorCodePersistFailed)
	}
	return nil
}

func (f *LocalFolder) Remove(ctx context.Context, name string) error {
	full, err := f.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return classify(err, domain.ErrorCodeDeleteFailed)
	}
	return nil
}

func (f *LocalFolder) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", domain.NewError(domain.ErrorCodeReadFailed, fmt.Errorf("invalid artifact name %q", name))
	}
	return filepath.Join(f.path, name), nil
}

func classify(err error, fallback domain.ErrorCode) error {
	if errors.Is(err, os.ErrPermission) {
		return domain.NewError(domain.ErrorCodeAccessRevoked, err)
	}
	return domain.NewError(fallback, err)
}
