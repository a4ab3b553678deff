// Package catalog maintains the folder-derived list of saved recordings:
// scanning, timestamp derivation, playback references, and deletion.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"capdeck/internal/domain"
	"capdeck/internal/ports"
)

// FolderSource exposes the current recordings folder; satisfied by
// storage.Workspace.
type FolderSource interface {
	Current() (ports.Folder, domain.FolderState, string)
}

// filenamePattern matches artifact names generated at session finalize:
// recording-YYYY-MM-DD-HH-MM-SS.
var filenamePattern = regexp.MustCompile(`^recording-(\d{4})-(\d{2})-(\d{2})-(\d{2})-(\d{2})-(\d{2})$`)

// Catalog is the in-memory view over the active folder's artifacts. Refresh
// and Delete serialize on one mutex so rapid calls cannot corrupt in-flight
// state; Refresh is idempotent.
type Catalog struct {
	folders FolderSource
	events  ports.EventSink
	ext     string

	mu     sync.Mutex
	player *Playback
}

func New(folders FolderSource, events ports.EventSink, ext string) *Catalog {
	if ext == "" {
		ext = "webm"
	}
	return &Catalog{
		folders: folders,
		events:  events,
		ext:     "." + strings.TrimPrefix(ext, "."),
	}
}

// Refresh rescans the folder. Without a live folder the result is an empty
// list, not an error. Entries carrying the artifact extension are listed
// even when their name does not match the generated pattern; unreadable
// entries are skipped with a warning.
func (c *Catalog) Refresh(ctx context.Context) ([]domain.Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	folder, state, _ := c.folders.Current()
	if state != domain.FolderStateLive {
		return []domain.Artifact{}, nil
	}

	names, err := folder.List(ctx)
	if err != nil {
		return nil, err
	}

	artifacts := make([]domain.Artifact, 0, len(names))
	for _, name := range names {
		if !strings.HasSuffix(name, c.ext) {
			continue
		}
		entry, err := folder.Stat(ctx, name)
		if err != nil {
			c.events.CatalogWarning(fmt.Sprintf("skipping %s: %v", name, err))
			continue
		}

		timestamp, ok := timestampFromName(strings.TrimSuffix(name, c.ext))
		if !ok {
			timestamp = entry.ModTime
		}
		artifacts = append(artifacts, domain.Artifact{
			Filename:  name,
			Timestamp: timestamp,
			Size:      entry.Size,
		})
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].Timestamp.After(artifacts[j].Timestamp)
	})
	return artifacts, nil
}

// Playback is a transient playable reference over one artifact's backing
// file. The catalog owns at most one; requesting another, releasing, or
// deleting the artifact closes it.
type Playback struct {
	ID       string
	Filename string
	reader   io.ReadCloser
}

// ReadAll drains the backing file for the UI.
func (p *Playback) ReadAll() ([]byte, error) {
	data, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeReadFailed, err)
	}
	return data, nil
}

// Play opens the artifact and installs it as the current playback,
// releasing any previous one.
func (c *Catalog) Play(ctx context.Context, filename string) (*Playback, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	folder, state, _ := c.folders.Current()
	if state != domain.FolderStateLive {
		return nil, domain.NewError(domain.ErrorCodeAccessRevoked, errors.New("recordings folder is not connected"))
	}

	reader, err := folder.Open(ctx, filename)
	if err != nil {
		return nil, err
	}

	c.releasePlayerLocked()
	c.player = &Playback{
		ID:       uuid.NewString(),
		Filename: filename,
		reader:   reader,
	}
	return c.player, nil
}

// ReleasePlayback closes the current playback reference, if any.
func (c *Catalog) ReleasePlayback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releasePlayerLocked()
}

// Delete removes the artifact from the folder. A playback reference showing
// this artifact is released as part of the same operation.
func (c *Catalog) Delete(ctx context.Context, filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	folder, state, _ := c.folders.Current()
	if state != domain.FolderStateLive {
		return domain.NewError(domain.ErrorCodeAccessRevoked, errors.New("recordings folder is not connected"))
	}

	if c.player != nil && c.player.Filename == filename {
		c.releasePlayerLocked()
	}

	if err := folder.Remove(ctx, filename); err != nil {
		return err
	}

	c.events.CatalogChanged()
	return nil
}

func (c *Catalog) releasePlayerLocked() {
	if c.player == nil {
		return
	}
	_ = c.player.reader.Close()
	c.player = nil
}

// timestampFromName parses the numeric groups of a generated filename into
// a local-time timestamp.
func timestampFromName(stem string) (time.Time, bool) {
	groups := filenamePattern.FindStringSubmatch(stem)
	if groups == nil {
		return time.Time{}, false
	}

	numbers := make([]int, 6)
	for i := range numbers {
		n, err := strconv.Atoi(groups[i+1])
		if err != nil {
			return time.Time{}, false
		}
		numbers[i] = n
	}

	return time.Date(numbers[0], time.Month(numbers[1]), numbers[2], numbers[3], numbers[4], numbers[5], 0, time.Local), true
}
