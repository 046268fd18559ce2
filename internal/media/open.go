package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vrplayer/vrprobe/internal/config"
	"github.com/vrplayer/vrprobe/internal/detection"
	apperrors "github.com/vrplayer/vrprobe/internal/errors"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImage reports whether path has a still image extension.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// OpenProvider picks a FrameProvider for path by extension: images decode in
// process, the configured video formats go through ffmpeg. Anything else
// yields an unsupported media error.
func OpenProvider(path string, detCfg *config.DetectionConfig, videoFormats []string, runner Runner) (detection.FrameProvider, error) {
	if IsImage(path) {
		return NewImageProvider(path), nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range videoFormats {
		if strings.EqualFold(f, ext) {
			return NewFFmpegProvider(path, detCfg, runner), nil
		}
	}

	return nil, fmt.Errorf("open provider: %w", apperrors.NewUnsupportedMediaError(path))
}
