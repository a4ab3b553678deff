package usecase

import (
	"context"
	"errors"
	"fmt"

	"capdeck/internal/domain"
	"capdeck/internal/ports"
)

// FolderSource exposes the current recordings folder; satisfied by
// storage.Workspace.
type FolderSource interface {
	Current() (ports.Folder, domain.FolderState, string)
}

// ArtifactPersister writes finished recordings. The structured folder write
// is preferred; on any failure there the blob falls back to a direct
// download with the same filename. Both routes count as success.
type ArtifactPersister struct {
	folders  FolderSource
	download ports.DownloadSink
}

func NewArtifactPersister(folders FolderSource, download ports.DownloadSink) *ArtifactPersister {
	return &ArtifactPersister{folders: folders, download: download}
}

func (p *ArtifactPersister) Persist(ctx context.Context, filename string, data []byte) (domain.PersistPath, error) {
	if folder, state, _ := p.folders.Current(); state == domain.FolderStateLive {
		if err := folder.Write(ctx, filename, data); err == nil {
			return domain.PersistPathFolder, nil
		}
	}

	if err := p.download.Download(ctx, filename, data); err != nil {
		// A dismissed save dialog means the user chose to discard;
		// cancellation must not become persist_failed.
		if errors.Is(err, domain.ErrCancelled) {
			return "", err
		}
		return "", domain.NewError(domain.ErrorCodePersistFailed, fmt.Errorf("folder write and download both failed: %w", err))
	}
	return domain.PersistPathDownload, nil
}
