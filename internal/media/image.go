package media

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/vrplayer/vrprobe/internal/detection"
)

// ImageProvider serves a still image as a single-frame video. It lets
// screenshots and equirectangular stills go through the same detector.
type ImageProvider struct {
	path string

	mu    sync.Mutex
	frame *detection.Frame
}

// NewImageProvider creates a provider for the image at path.
func NewImageProvider(path string) *ImageProvider {
	return &ImageProvider{path: path}
}

func (p *ImageProvider) VideoSize() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		return 0, 0
	}
	return p.frame.Width, p.frame.Height
}

// Duration is always zero for a still.
func (p *ImageProvider) Duration() time.Duration { return 0 }

// Load decodes the image once.
func (p *ImageProvider) Load(ctx context.Context) error {
	p.mu.Lock()
	loaded := p.frame != nil
	p.mu.Unlock()
	if loaded {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", p.path, err)
	}

	frame := toFrame(img)
	if frame.Width == 0 || frame.Height == 0 {
		return fmt.Errorf("image %s (%s) has no pixels", p.path, format)
	}

	p.mu.Lock()
	p.frame = frame
	p.mu.Unlock()
	return nil
}

// Seek is a no-op; every offset shows the same picture.
func (p *ImageProvider) Seek(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (p *ImageProvider) ReadFrame() (*detection.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		return nil, ErrNoFrame
	}
	return p.frame, nil
}

// toFrame converts any decoded image to packed RGBA with origin (0,0).
func toFrame(img image.Image) *detection.Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) || rgba.Stride != b.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return &detection.Frame{Width: b.Dx(), Height: b.Dy(), Pix: rgba.Pix}
}
