package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"capdeck/internal/domain"
	"capdeck/internal/ports"
)

// Encoding identifiers the encoder understands, matching the webm container
// the catalog filters on.
const (
	EncodingVP9Opus   = "video/webm;codecs=vp9,opus"
	EncodingVP8Opus   = "video/webm;codecs=vp8,opus"
	EncodingWebm      = "video/webm"
	EncodingOpus      = "audio/webm;codecs=opus"
	EncodingAudioWebm = "audio/webm"
)

var supportedEncodings = []string{
	EncodingVP9Opus,
	EncodingVP8Opus,
	EncodingWebm,
	EncodingOpus,
	EncodingAudioWebm,
}

// FFmpegEncoder muxes a track set into a single webm stream on stdout.
type FFmpegEncoder struct {
	command string
}

func NewFFmpegEncoder(command string) *FFmpegEncoder {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFmpegEncoder{command: command}
}

func (e *FFmpegEncoder) Supports(encoding string) bool {
	return slices.Contains(supportedEncodings, encoding)
}

func (e *FFmpegEncoder) Open(ctx context.Context, tracks []ports.Track, opts ports.EncodeOptions) (ports.EncoderSession, error) {
	if len(tracks) == 0 {
		return nil, domain.NewError(domain.ErrorCodeNoSource, errors.New("empty track set"))
	}
	if opts.FlushInterval <= 0 || opts.FlushInterval > time.Second {
		opts.FlushInterval = time.Second
	}

	args := []string{"-nostdin", "-hide_banner", "-loglevel", "warning"}
	for _, track := range tracks {
		device, ok := track.(*deviceTrack)
		if !ok {
			return nil, domain.NewError(domain.ErrorCodeEncoder, fmt.Errorf("track %q was not opened by this capture backend", track.Label()))
		}
		args = append(args, device.inputArgs()...)
	}
	args = append(args, codecArgs(opts.Encoding)...)
	args = append(args, "-f", "webm", "pipe:1")

	cmd := exec.CommandContext(ctx, e.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeEncoder, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return nil, domain.NewError(domain.ErrorCodeEncoder, fmt.Errorf("failed to start ffmpeg: %w", err))
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// Give ffmpeg a moment to reject bad inputs before declaring the
	// session live.
	select {
	case err := <-waitErr:
		if err == nil {
			err = errors.New("ffmpeg exited before encoding started")
		}
		return nil, classifyCaptureError(err, stderr.String())
	case <-time.After(250 * time.Millisecond):
	}

	session := &ffmpegSession{
		stdout:   stdout,
		stderr:   &stderr,
		process:  cmd.Process,
		waitErr:  waitErr,
		chunks:   make(chan []byte, 8),
		readDone: make(chan struct{}),
	}
	go session.readLoop()
	go session.flushLoop(opts.FlushInterval)
	return session, nil
}

func codecArgs(encoding string) []string {
	switch encoding {
	case EncodingVP9Opus:
		return []string{"-c:v", "libvpx-vp9", "-deadline", "realtime", "-c:a", "libopus"}
	case EncodingVP8Opus:
		return []string{"-c:v", "libvpx", "-deadline", "realtime", "-c:a", "libopus"}
	case EncodingOpus, EncodingAudioWebm:
		return []string{"-vn", "-c:a", "libopus"}
	default:
		return []string{"-c:v", "libvpx", "-deadline", "realtime", "-c:a", "libopus"}
	}
}

// ffmpegSession pumps encoded bytes off the ffmpeg stdout pipe and delivers
// them as ordered chunks at the flush interval.
type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	chunks   chan []byte
	readDone chan struct{}

	mu      sync.Mutex
	pending []byte

	stopping atomic.Bool
	stopOnce sync.Once
	stopErr  error

	errMu    sync.Mutex
	fatalErr error
}

func (s *ffmpegSession) Chunks() <-chan []byte { return s.chunks }

func (s *ffmpegSession) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.fatalErr
}

func (s *ffmpegSession) readLoop() {
	defer close(s.readDone)

	buf := make([]byte, 32*1024)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.pending = append(s.pending, buf[:n]...)
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (s *ffmpegSession) flushLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(s.chunks)

	for {
		select {
		case <-ticker.C:
			s.flushPending()
		case <-s.readDone:
			// Trailing data emitted after finalize still reaches the
			// chunk sequence.
			s.flushPending()
			s.noteExit()
			return
		}
	}
}

func (s *ffmpegSession) flushPending() {
	s.mu.Lock()
	chunk := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(chunk) > 0 {
		s.chunks <- chunk
	}
}

// noteExit records a fatal failure when the process died without Stop.
func (s *ffmpegSession) noteExit() {
	err, ok := <-s.waitErr
	if !ok || err == nil {
		return
	}
	if s.stopping.Load() {
		// Interrupt-driven finalize; a nonzero exit here is expected.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return
		}
	}

	s.errMu.Lock()
	if s.fatalErr == nil {
		detail := strings.TrimSpace(s.stderr.String())
		if detail != "" {
			s.fatalErr = fmt.Errorf("%w: %s", err, detail)
		} else {
			s.fatalErr = err
		}
	}
	s.errMu.Unlock()
}

func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case <-s.readDone:
		case <-time.After(3 * time.Second):
			if s.process != nil {
				_ = s.process.Kill()
			}
			<-s.readDone
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			s.stopErr = closeErr
		}
	})

	return s.stopErr
}
