// Package detection decides whether a video is a VR video and, if so, which
// field of view and stereo layout it uses. Three independent signals are
// fused: the file name, the pixels of a sampled frame and the aspect ratio.
package detection

import (
	"context"
	"time"
)

// FieldOfView is the horizontal coverage of a VR video.
type FieldOfView string

const (
	FOV180 FieldOfView = "180"
	FOV360 FieldOfView = "360"
)

// StereoFormat is how the eye views are packed into one frame.
type StereoFormat string

const (
	FormatMono StereoFormat = "mono"
	FormatSBS  StereoFormat = "sbs" // side by side, left eye in the left half
	FormatTB   StereoFormat = "tb"  // top/bottom, left eye in the top half
)

// Method names a detection signal.
type Method string

const (
	MethodFilename   Method = "filename"
	MethodFrame      Method = "frame"
	MethodResolution Method = "resolution"
)

// Confidence weights per method.
const (
	weightFilename   = 0.4
	weightFrame      = 0.3
	weightResolution = 0.3
)

// Match is what a single detection method reports. A nil *Match means the
// method found no signal.
type Match struct {
	IsVR        bool         `json:"is_vr"`
	FOV         FieldOfView  `json:"fov,omitempty"`
	Format      StereoFormat `json:"format,omitempty"`
	Description string       `json:"description,omitempty"`
}

// Result is the fused verdict for one video.
type Result struct {
	IsVR       bool         `json:"is_vr"`
	FOV        FieldOfView  `json:"fov"`
	Format     StereoFormat `json:"format"`
	Confidence float64      `json:"confidence"`
	Methods    []Method     `json:"methods"`
}

// HasMethod reports whether m contributed to the result.
func (r Result) HasMethod(m Method) bool {
	for _, got := range r.Methods {
		if got == m {
			return true
		}
	}
	return false
}

// Frame is a decoded RGBA image, 4 bytes per pixel, rows packed with a
// stride of Width*4.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// FrameProvider is a seekable video source.
//
// Load and Seek block until the source reports completion, fails, or ctx is
// done. Implementations detach any listeners they register before returning.
type FrameProvider interface {
	// VideoSize returns the native pixel size, or 0,0 while unknown.
	VideoSize() (width, height int)
	Duration() time.Duration
	Load(ctx context.Context) error
	Seek(ctx context.Context, at time.Duration) error
	// ReadFrame returns the current frame at native size.
	ReadFrame() (*Frame, error)
}
