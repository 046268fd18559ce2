package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeamScores(t *testing.T) {
	sbs := sbsFrame(200, 100)
	assert.Equal(t, 1.0, SBSScore(sbs))
	assert.Equal(t, 0.0, TBScore(sbs))

	tb := tbFrame(200, 100)
	assert.Equal(t, 0.0, SBSScore(tb))
	assert.Equal(t, 1.0, TBScore(tb))

	flat := uniformFrame(64, 32, 128)
	assert.Equal(t, 0.0, SBSScore(flat))
	assert.Equal(t, 0.0, TBScore(flat))
}

func TestPanoramaScoreUsesEyeView(t *testing.T) {
	// Left eye is uniform, right eye is a gradient: only the left eye's
	// edges wrap around.
	f := newFrame(200, 100, func(x, _ int) (byte, byte, byte) {
		if x < 100 {
			return gray(100)
		}
		return gray(byte((x - 100) * 255 / 99))
	})

	assert.Equal(t, 0.0, PanoramaScore(f, FormatMono))
	assert.Equal(t, 1.0, PanoramaScore(f, FormatSBS))
}

func TestPanoramaScoreTopBottom(t *testing.T) {
	// Top eye wraps, bottom eye does not.
	f := newFrame(100, 100, func(x, y int) (byte, byte, byte) {
		if y < 50 {
			return gray(30)
		}
		return gray(byte(x * 255 / 99))
	})

	assert.Equal(t, 1.0, PanoramaScore(f, FormatTB))
	assert.Equal(t, 0.5, PanoramaScore(f, FormatMono))
}

func TestAnalyzeFrame(t *testing.T) {
	tests := []struct {
		name       string
		frame      *Frame
		wantFOV    FieldOfView
		wantFormat StereoFormat
	}{
		{
			name:       "side by side gradients",
			frame:      sbsFrame(200, 100),
			wantFOV:    FOV180,
			wantFormat: FormatSBS,
		},
		{
			name:       "top bottom gradients",
			frame:      tbFrame(200, 100),
			wantFOV:    FOV360,
			wantFormat: FormatTB,
		},
		{
			name:       "uniform wraps around",
			frame:      uniformFrame(200, 100, 50),
			wantFOV:    FOV360,
			wantFormat: FormatMono,
		},
		{
			name: "continuous gradient",
			frame: newFrame(200, 100, func(x, _ int) (byte, byte, byte) {
				return gray(byte(x * 255 / 199))
			}),
			wantFOV:    FOV180,
			wantFormat: FormatMono,
		},
		{
			name:       "single pixel",
			frame:      uniformFrame(1, 1, 0),
			wantFOV:    FOV360,
			wantFormat: FormatMono,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeFrame(tt.frame)
			require.NotNil(t, got)
			assert.True(t, got.IsVR)
			assert.Equal(t, tt.wantFOV, got.FOV)
			assert.Equal(t, tt.wantFormat, got.Format)
			assert.Contains(t, got.Description, "frame analysis")
		})
	}
}

func TestAnalyzeFrameRejectsBadBuffers(t *testing.T) {
	assert.Nil(t, AnalyzeFrame(nil))
	assert.Nil(t, AnalyzeFrame(&Frame{}))
	assert.Nil(t, AnalyzeFrame(&Frame{Width: 10, Height: 10, Pix: make([]byte, 399)}))

	assert.Equal(t, 0.0, SBSScore(&Frame{Width: 10, Height: 10}))
	assert.Equal(t, 0.0, TBScore(nil))
	assert.Equal(t, 0.0, PanoramaScore(nil, FormatMono))
}

func TestAnalyzeFrameIgnoresAlpha(t *testing.T) {
	f := uniformFrame(20, 10, 80)
	for i := 3; i < len(f.Pix); i += 4 {
		f.Pix[i] = byte(i)
	}
	got := AnalyzeFrame(f)
	require.NotNil(t, got)
	assert.Equal(t, FormatMono, got.Format)
	assert.Equal(t, FOV360, got.FOV)
}
