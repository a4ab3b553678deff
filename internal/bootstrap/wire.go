package bootstrap

import (
	"capdeck/internal/catalog"
	"capdeck/internal/config"
	"capdeck/internal/media"
	"capdeck/internal/ports"
	"capdeck/internal/prefs"
	"capdeck/internal/storage"
	"capdeck/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Composer   *usecase.SourceComposer
	Controller *usecase.SessionController
	Catalog    *catalog.Catalog
	Workspace  *storage.Workspace
	Watcher    *catalog.Watcher
	Devices    ports.MediaDevices
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(events ports.EventSink, picker ports.FolderPicker, download ports.DownloadSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	store, err := prefs.Open("")
	if err != nil {
		return Services{}, err
	}

	workspace := storage.NewWorkspace(picker, store)
	devices := media.NewDevices(cfg.Capture)
	composer := usecase.NewSourceComposer(devices, store, events)

	controller := usecase.NewSessionController(
		composer,
		media.NewFFmpegEncoder(cfg.Capture.FFmpegCommand),
		usecase.NewArtifactPersister(workspace, download),
		events,
		usecase.Config{
			FlushInterval: cfg.Session.FlushInterval,
			Extension:     cfg.Session.Extension,
		},
	)

	watcher, err := catalog.NewWatcher(events)
	if err != nil {
		return Services{}, err
	}

	return Services{
		Composer:   composer,
		Controller: controller,
		Catalog:    catalog.New(workspace, events, cfg.Session.Extension),
		Workspace:  workspace,
		Watcher:    watcher,
		Devices:    devices,
		Config:     cfg,
	}, nil
}
