// Package media captures microphone, camera, and screen input through
// ffmpeg subprocesses and encodes the combined track set to webm.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"capdeck/internal/config"
	"capdeck/internal/domain"
	"capdeck/internal/ports"
)

// Devices opens capture inputs as track descriptors consumed by the
// ffmpeg encoder. Each open probes the device so acquisition failures are
// classified up front rather than at encode time.
type Devices struct {
	cfg config.CaptureConfig
}

func NewDevices(cfg config.CaptureConfig) *Devices {
	if cfg.FFmpegCommand == "" {
		cfg.FFmpegCommand = "ffmpeg"
	}
	return &Devices{cfg: cfg}
}

func (d *Devices) Microphones(ctx context.Context) ([]domain.Device, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "short", "sources").Output()
	if err != nil {
		// No pactl: expose the configured default so the UI still has a choice.
		return []domain.Device{{ID: d.cfg.AudioDevice, Label: "Default microphone"}}, nil
	}

	var devices []domain.Device
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.HasSuffix(fields[1], ".monitor") {
			continue
		}
		devices = append(devices, domain.Device{ID: fields[1], Label: fields[1]})
	}
	if len(devices) == 0 {
		devices = []domain.Device{{ID: d.cfg.AudioDevice, Label: "Default microphone"}}
	}
	return devices, nil
}

func (d *Devices) Cameras(ctx context.Context) ([]domain.Device, error) {
	nodes, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeUnknown, err)
	}
	sort.Strings(nodes)

	devices := make([]domain.Device, 0, len(nodes))
	for _, node := range nodes {
		devices = append(devices, domain.Device{ID: node, Label: cameraLabel(node)})
	}
	return devices, nil
}

func (d *Devices) OpenMicrophone(ctx context.Context, deviceID string) (ports.Track, error) {
	if deviceID == "" {
		deviceID = d.cfg.AudioDevice
	}
	track := &deviceTrack{
		kind:        domain.TrackKindAudio,
		label:       deviceID,
		inputFormat: d.cfg.AudioInputFormat,
		inputSpec:   deviceID,
	}
	if err := d.probe(ctx, track); err != nil {
		return nil, err
	}
	return track, nil
}

func (d *Devices) OpenCamera(ctx context.Context, deviceID string) (ports.Track, error) {
	if deviceID == "" {
		deviceID = "/dev/video0"
	}
	if _, err := os.Stat(deviceID); err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewError(domain.ErrorCodeDeviceNotFound, err)
		}
		if os.IsPermission(err) {
			return nil, domain.NewError(domain.ErrorCodePermissionDenied, err)
		}
		return nil, domain.NewError(domain.ErrorCodeUnknown, err)
	}

	track := &deviceTrack{
		kind:        domain.TrackKindVideo,
		label:       cameraLabel(deviceID),
		inputFormat: d.cfg.VideoInputFormat,
		inputSpec:   deviceID,
		frameRate:   d.cfg.FrameRate,
	}
	if err := d.probe(ctx, track); err != nil {
		return nil, err
	}
	return track, nil
}

func (d *Devices) OpenScreen(ctx context.Context) (ports.ScreenCapture, error) {
	if d.cfg.Display == "" {
		return nil, domain.NewError(domain.ErrorCodeDeviceNotFound, fmt.Errorf("no display available for screen capture"))
	}
	track := &deviceTrack{
		kind:        domain.TrackKindVideo,
		label:       "screen " + d.cfg.Display,
		inputFormat: "x11grab",
		inputSpec:   d.cfg.Display,
		frameRate:   d.cfg.FrameRate,
	}
	if err := d.probe(ctx, track); err != nil {
		return nil, err
	}
	return newScreenCapture(track), nil
}

// probe runs ffmpeg against the input for a fraction of a second so device
// failures surface here, classified, instead of killing the encode later.
func (d *Devices) probe(ctx context.Context, track *deviceTrack) error {
	probeCtx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	args := append(track.inputArgs(), "-t", "0.1", "-f", "null", "-")
	args = append([]string{"-nostdin", "-hide_banner", "-loglevel", "error"}, args...)

	cmd := exec.CommandContext(probeCtx, d.cfg.FFmpegCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return classifyCaptureError(err, stderr.String())
	}
	return nil
}

func classifyCaptureError(err error, stderr string) error {
	detail := strings.ToLower(stderr)
	wrapped := err
	if strings.TrimSpace(stderr) != "" {
		wrapped = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))
	}

	switch {
	case strings.Contains(detail, "permission denied") || strings.Contains(detail, "not authorized"):
		return domain.NewError(domain.ErrorCodePermissionDenied, wrapped)
	case strings.Contains(detail, "no such") || strings.Contains(detail, "not found") || strings.Contains(detail, "cannot open display"):
		return domain.NewError(domain.ErrorCodeDeviceNotFound, wrapped)
	case strings.Contains(detail, "busy"):
		return domain.NewError(domain.ErrorCodeDeviceBusy, wrapped)
	default:
		return domain.NewError(domain.ErrorCodeUnknown, wrapped)
	}
}

func cameraLabel(node string) string {
	sysName := filepath.Join("/sys/class/video4linux", filepath.Base(node), "name")
	if data, err := os.ReadFile(sysName); err == nil {
		if label := strings.TrimSpace(string(data)); label != "" {
			return label
		}
	}
	return node
}
