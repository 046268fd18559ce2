package detection

import "math"

type aspectRatio struct {
	ratio     float64
	tolerance float64
	label     string
}

// vrAspectRatios is checked in order; the first match wins.
var vrAspectRatios = []aspectRatio{
	{2.0, 0.12, "360° mono equirectangular (2:1)"},
	{1.0, 0.10, "180° mono square or 360° TB stereo (1:1)"},
	{16.0 / 9, 0.10, "180° mono video (16:9)"},
	{4.0 / 3, 0.10, "180° mono video (4:3)"},
	{4.0, 0.20, "360° SBS stereo video (4:1)"},
	{32.0 / 9, 0.20, "180° SBS stereo video (32:9)"},
	{8.0 / 3, 0.20, "180° SBS stereo video (8:3)"},
	{16.0 / 18, 0.10, "180° TB stereo video (16:18)"},
	{2.0 / 3, 0.10, "180° TB stereo video (2:3)"},
	{2.35, 0.10, "Ultra-wide VR video"},
}

// DetectFromResolution reports whether the aspect ratio of a frame matches a
// known VR layout. The returned Match only sets IsVR and Description: an
// aspect ratio alone does not determine field of view or packing.
func DetectFromResolution(width, height int) *Match {
	if width <= 0 || height <= 0 {
		return nil
	}

	ar := float64(width) / float64(height)
	for _, vr := range vrAspectRatios {
		if math.Abs(ar-vr.ratio) < vr.tolerance {
			return &Match{IsVR: true, Description: vr.label}
		}
	}
	return nil
}
