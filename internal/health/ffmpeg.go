package health

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vrplayer/vrprobe/internal/config"
	"github.com/vrplayer/vrprobe/internal/media"
)

// FFmpegChecker verifies that the ffmpeg and ffprobe binaries used for frame
// extraction are present and can emit raw RGBA frames.
type FFmpegChecker struct {
	ffmpegPath  string
	ffprobePath string
	runner      media.Runner
	timeout     time.Duration
}

// NewFFmpegChecker builds a checker for the binaries named in cfg. A nil
// runner uses media.ExecRunner.
func NewFFmpegChecker(cfg *config.DetectionConfig, runner media.Runner) *FFmpegChecker {
	if runner == nil {
		runner = media.ExecRunner{}
	}
	return &FFmpegChecker{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		runner:      runner,
		timeout:     5 * time.Second,
	}
}

func (f *FFmpegChecker) Name() string {
	return "ffmpeg"
}

func (f *FFmpegChecker) Check(ctx context.Context) error {
	if _, err := f.version(ctx, f.ffmpegPath, "ffmpeg version"); err != nil {
		return fmt.Errorf("ffmpeg binary check failed: %w", err)
	}

	if _, err := f.version(ctx, f.ffprobePath, "ffprobe version"); err != nil {
		return fmt.Errorf("ffprobe binary check failed: %w", err)
	}

	if err := f.requireListed(ctx, "-muxers", "rawvideo"); err != nil {
		return err
	}

	return f.requireListed(ctx, "-pix_fmts", "rgba")
}

// Info describes the installation for the debug endpoint. Fields that
// cannot be determined are omitted.
func (f *FFmpegChecker) Info(ctx context.Context) map[string]interface{} {
	info := map[string]interface{}{
		"ffmpeg_path":  f.ffmpegPath,
		"ffprobe_path": f.ffprobePath,
	}

	if v, err := f.version(ctx, f.ffmpegPath, "ffmpeg version"); err == nil {
		info["ffmpeg_version"] = v
	}
	if v, err := f.version(ctx, f.ffprobePath, "ffprobe version"); err == nil {
		info["ffprobe_version"] = v
	}
	if accels, err := f.hwaccels(ctx); err == nil {
		info["hardware_accelerators"] = accels
	}

	return info
}

func (f *FFmpegChecker) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("binary path not configured")
	}

	cmdCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	return f.runner.Output(cmdCtx, name, args...)
}

// version returns the first line of "<bin> -version" after checking that
// it starts with want.
func (f *FFmpegChecker) version(ctx context.Context, bin, want string) (string, error) {
	out, err := f.run(ctx, bin, "-version")
	if err != nil {
		return "", err
	}

	line, _, _ := strings.Cut(string(out), "\n")
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, want) {
		return "", fmt.Errorf("unexpected version output from %s", bin)
	}
	return line, nil
}

// requireListed checks that name appears as a column in one of ffmpeg's
// capability listings such as -muxers or -pix_fmts.
func (f *FFmpegChecker) requireListed(ctx context.Context, listing, name string) error {
	out, err := f.run(ctx, f.ffmpegPath, "-hide_banner", listing)
	if err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w", listing, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			if field == name {
				return nil
			}
		}
	}
	return fmt.Errorf("ffmpeg does not list %s in %s", name, listing)
}

func (f *FFmpegChecker) hwaccels(ctx context.Context) ([]string, error) {
	out, err := f.run(ctx, f.ffmpegPath, "-hide_banner", "-hwaccels")
	if err != nil {
		return nil, err
	}

	accels := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		accels = append(accels, line)
	}
	return accels, nil
}
