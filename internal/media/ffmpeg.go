package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/vrplayer/vrprobe/internal/config"
	"github.com/vrplayer/vrprobe/internal/detection"
)

var (
	// ErrNotLoaded is returned by Seek before Load has succeeded.
	ErrNotLoaded = errors.New("video metadata not loaded")
	// ErrNoFrame is returned by ReadFrame before a seek has produced a frame.
	ErrNoFrame = errors.New("no frame decoded")
)

// FFmpegProvider decodes single frames of a video file with ffmpeg. One
// provider serves one file; calls must not overlap.
type FFmpegProvider struct {
	path         string
	ffmpeg       string
	ffprobe      string
	probeTimeout time.Duration
	frameTimeout time.Duration
	runner       Runner

	mu    sync.Mutex
	info  *ProbeInfo
	frame *detection.Frame
}

// NewFFmpegProvider creates a provider for path. A nil runner uses ExecRunner.
func NewFFmpegProvider(path string, cfg *config.DetectionConfig, runner Runner) *FFmpegProvider {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &FFmpegProvider{
		path:         path,
		ffmpeg:       cfg.FFmpegPath,
		ffprobe:      cfg.FFprobePath,
		probeTimeout: cfg.ProbeTimeout,
		frameTimeout: cfg.FrameTimeout,
		runner:       runner,
	}
}

// Info returns the probe result, or nil before Load.
func (p *FFmpegProvider) Info() *ProbeInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

func (p *FFmpegProvider) VideoSize() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.info == nil {
		return 0, 0
	}
	return p.info.Width, p.info.Height
}

func (p *FFmpegProvider) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.info == nil {
		return 0
	}
	return p.info.Duration
}

// Load probes the file once; later calls are no-ops.
func (p *FFmpegProvider) Load(ctx context.Context) error {
	if p.Info() != nil {
		return nil
	}

	ctx, cancel := withTimeout(ctx, p.probeTimeout)
	defer cancel()

	info, err := Probe(ctx, p.runner, p.ffprobe, p.path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.info = info
	p.mu.Unlock()
	return nil
}

// Seek decodes the frame at the given offset as raw RGBA at native size.
func (p *FFmpegProvider) Seek(ctx context.Context, at time.Duration) error {
	info := p.Info()
	if info == nil {
		return ErrNotLoaded
	}

	ctx, cancel := withTimeout(ctx, p.frameTimeout)
	defer cancel()

	out, err := p.runner.Output(ctx, p.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64),
		"-noautorotate",
		"-i", p.path,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)
	if err != nil {
		return fmt.Errorf("frame extraction at %s: %w", at, err)
	}

	want := info.Width * info.Height * 4
	if len(out) < want {
		return fmt.Errorf("frame extraction at %s: got %d bytes, want %d", at, len(out), want)
	}

	p.mu.Lock()
	p.frame = &detection.Frame{Width: info.Width, Height: info.Height, Pix: out[:want]}
	p.mu.Unlock()
	return nil
}

func (p *FFmpegProvider) ReadFrame() (*detection.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		return nil, ErrNoFrame
	}
	return p.frame, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
