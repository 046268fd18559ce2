package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vrplayer/vrprobe/internal/config"
	"github.com/vrplayer/vrprobe/internal/logger"
	"github.com/vrplayer/vrprobe/internal/metrics"
)

// DefaultMetadataTimeout bounds the wait for a provider to report its size.
const DefaultMetadataTimeout = 10 * time.Second

var (
	ErrMetadataTimeout = errors.New("timed out waiting for video metadata")
	ErrLoadFailed      = errors.New("video failed to load")
	ErrUnknownSize     = errors.New("video size unknown")
	ErrSeekFailed      = errors.New("seek failed")
	ErrNoFrame         = errors.New("no frame available")
	ErrShortBuffer     = errors.New("frame buffer shorter than width*height*4")
	ErrProviderPanic   = errors.New("frame provider panicked")
)

// Analyzer drives a FrameProvider to the middle of the video and classifies
// the frame found there.
type Analyzer struct {
	metadataTimeout time.Duration
	seekTimeout     time.Duration
	logger          logger.Logger
}

// NewAnalyzer creates an Analyzer. A nil cfg uses the defaults and a nil
// log discards output.
func NewAnalyzer(cfg *config.DetectionConfig, log logger.Logger) *Analyzer {
	a := &Analyzer{
		metadataTimeout: DefaultMetadataTimeout,
		logger:          log,
	}
	if cfg != nil {
		if cfg.MetadataTimeout > 0 {
			a.metadataTimeout = cfg.MetadataTimeout
		}
		a.seekTimeout = cfg.SeekTimeout
	}
	if a.logger == nil {
		a.logger = logger.NewNullLogger()
	}
	return a
}

// Analyze returns the frame classification for p, or nil when any step
// fails. Failures are logged and never returned.
func (a *Analyzer) Analyze(ctx context.Context, p FrameProvider) *Match {
	if p == nil {
		return nil
	}

	m, err := a.analyze(ctx, p)
	if err != nil {
		reason := failureReason(err)
		metrics.IncrementFrameFailure(reason)
		a.logger.WithError(err).WithField("reason", reason).Warn("Frame analysis produced no result")
		return nil
	}

	a.logger.WithFields(map[string]interface{}{
		"fov":    m.FOV,
		"format": m.Format,
	}).Debug(m.Description)
	return m
}

func (a *Analyzer) analyze(ctx context.Context, p FrameProvider) (*Match, error) {
	w, h, err := videoSize(p)
	if err != nil {
		return nil, err
	}

	if w == 0 && h == 0 {
		if err := a.waitForMetadata(ctx, p); err != nil {
			return nil, err
		}
		if w, h, err = videoSize(p); err != nil {
			return nil, err
		}
	}

	if w <= 0 || h <= 0 {
		return nil, ErrUnknownSize
	}

	if err := a.seekToMiddle(ctx, p); err != nil {
		return nil, err
	}

	frame, err := readFrame(p)
	if err != nil {
		return nil, err
	}
	if frame == nil || frame.Width <= 0 || frame.Height <= 0 {
		return nil, ErrNoFrame
	}
	if len(frame.Pix) < frame.Width*frame.Height*4 {
		return nil, fmt.Errorf("%w: got %d bytes for %dx%d", ErrShortBuffer, len(frame.Pix), frame.Width, frame.Height)
	}

	return AnalyzeFrame(frame), nil
}

func (a *Analyzer) waitForMetadata(ctx context.Context, p FrameProvider) error {
	loadCtx, cancel := context.WithTimeout(ctx, a.metadataTimeout)
	defer cancel()

	a.logger.WithField("timeout", a.metadataTimeout).Debug("Waiting for video metadata")

	err := await(loadCtx, p.Load)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProviderPanic):
		return err
	case errors.Is(loadCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return fmt.Errorf("%w after %s", ErrMetadataTimeout, a.metadataTimeout)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
}

func (a *Analyzer) seekToMiddle(ctx context.Context, p FrameProvider) error {
	seekCtx := ctx
	if a.seekTimeout > 0 {
		var cancel context.CancelFunc
		seekCtx, cancel = context.WithTimeout(ctx, a.seekTimeout)
		defer cancel()
	}

	var at time.Duration
	if err := guard(func() { at = p.Duration() / 2 }); err != nil {
		return err
	}

	a.logger.WithField("at", at).Debug("Seeking to middle of video")

	err := await(seekCtx, func(ctx context.Context) error { return p.Seek(ctx, at) })
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProviderPanic):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(seekCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: no seek completion after %s", ErrSeekFailed, a.seekTimeout)
	default:
		return fmt.Errorf("%w: %w", ErrSeekFailed, err)
	}
}

// await runs fn in its own goroutine and returns when fn returns or ctx is
// done, whichever comes first. fn still owns ctx and must return once ctx
// is done.
func await(ctx context.Context, fn func(context.Context) error) error {
	done := make(chan error, 1)
	go func() {
		var err error
		if perr := guard(func() { err = fn(ctx) }); perr != nil {
			err = perr
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// guard converts a panic in fn into ErrProviderPanic.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProviderPanic, r)
		}
	}()
	fn()
	return nil
}

func videoSize(p FrameProvider) (w, h int, err error) {
	err = guard(func() { w, h = p.VideoSize() })
	return w, h, err
}

func readFrame(p FrameProvider) (f *Frame, err error) {
	if perr := guard(func() { f, err = p.ReadFrame() }); perr != nil {
		return nil, perr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFrame, err)
	}
	return f, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrMetadataTimeout):
		return "metadata_timeout"
	case errors.Is(err, ErrLoadFailed):
		return "load_error"
	case errors.Is(err, ErrUnknownSize):
		return "unknown_size"
	case errors.Is(err, ErrSeekFailed):
		return "seek_error"
	case errors.Is(err, ErrShortBuffer):
		return "short_buffer"
	case errors.Is(err, ErrNoFrame):
		return "read_error"
	case errors.Is(err, ErrProviderPanic):
		return "panic"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
