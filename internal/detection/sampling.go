package detection

import "fmt"

const (
	// seamThreshold is the summed |ΔR|+|ΔG|+|ΔB| above which two neighbouring
	// pixels count as a discontinuity.
	seamThreshold = 20
	// wrapThreshold is the summed difference below which the left and right
	// edges of an eye view count as continuous.
	wrapThreshold = 20

	stereoCutoff   = 0.3
	panoramaCutoff = 0.5

	seamSamples = 50
	edgeSamples = 20
)

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// rgbDiff sums the per-channel RGB difference of the pixels at byte offsets
// i and j. Alpha is ignored.
func rgbDiff(pix []byte, i, j int) int {
	return absDiff(pix[i], pix[j]) + absDiff(pix[i+1], pix[j+1]) + absDiff(pix[i+2], pix[j+2])
}

func clampOffset(off, n int) int {
	if off < 0 {
		return 0
	}
	if off > n-4 {
		return n - 4
	}
	return off
}

func sampleStep(extent, samples int) int {
	return max(1, extent/samples)
}

func validFrame(f *Frame) bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Pix) >= f.Width*f.Height*4
}

// SBSScore is the fraction of rows sampled along the vertical centre line
// where the centre pixel differs sharply from a horizontal neighbour.
func SBSScore(f *Frame) float64 {
	if !validFrame(f) {
		return 0
	}

	w, h, n := f.Width, f.Height, len(f.Pix)
	cx := w / 2
	step := sampleStep(h, seamSamples)

	hits, samples := 0, 0
	for y := 0; y < h; y += step {
		idx := (y*w + cx) * 4
		left := clampOffset((y*w+cx-1)*4, n)
		right := clampOffset((y*w+cx+1)*4, n)

		if rgbDiff(f.Pix, idx, left) > seamThreshold || rgbDiff(f.Pix, idx, right) > seamThreshold {
			hits++
		}
		samples++
	}

	if samples == 0 {
		return 0
	}
	return float64(hits) / float64(samples)
}

// TBScore is the fraction of columns sampled along the horizontal centre
// line where the centre pixel differs sharply from a vertical neighbour.
func TBScore(f *Frame) float64 {
	if !validFrame(f) {
		return 0
	}

	w, h, n := f.Width, f.Height, len(f.Pix)
	cy := h / 2
	step := sampleStep(w, seamSamples)

	hits, samples := 0, 0
	for x := 0; x < w; x += step {
		idx := (cy*w + x) * 4
		above := clampOffset(((cy-1)*w+x)*4, n)
		below := clampOffset(((cy+1)*w+x)*4, n)

		if rgbDiff(f.Pix, idx, above) > seamThreshold || rgbDiff(f.Pix, idx, below) > seamThreshold {
			hits++
		}
		samples++
	}

	if samples == 0 {
		return 0
	}
	return float64(hits) / float64(samples)
}

// PanoramaScore is the fraction of sampled rows in the first eye view whose
// leftmost and rightmost pixels are nearly equal, which is what an
// equirectangular 360° projection looks like where it wraps around.
func PanoramaScore(f *Frame, format StereoFormat) float64 {
	if !validFrame(f) {
		return 0
	}

	stride := f.Width * 4
	w, h := f.Width, f.Height
	switch format {
	case FormatSBS:
		w /= 2
	case FormatTB:
		h /= 2
	}
	if w <= 0 || h <= 0 {
		return 0
	}

	step := sampleStep(h, edgeSamples)
	hits, samples := 0, 0
	for y := 0; y < h; y += step {
		left := y * stride
		right := y*stride + (w-1)*4

		if rgbDiff(f.Pix, left, right) < wrapThreshold {
			hits++
		}
		samples++
	}

	if samples == 0 {
		return 0
	}
	return float64(hits) / float64(samples)
}

// AnalyzeFrame classifies a decoded frame by its pixel structure. It returns
// nil for frames with no pixels or a buffer shorter than Width*Height*4.
func AnalyzeFrame(f *Frame) *Match {
	if !validFrame(f) {
		return nil
	}

	format := FormatMono
	switch {
	case SBSScore(f) > stereoCutoff:
		format = FormatSBS
	case TBScore(f) > stereoCutoff:
		format = FormatTB
	}

	fov := FOV180
	if PanoramaScore(f, format) > panoramaCutoff {
		fov = FOV360
	}

	var desc string
	switch format {
	case FormatSBS:
		desc = fmt.Sprintf("%s° SBS stereo video detected from frame analysis", fov)
	case FormatTB:
		desc = fmt.Sprintf("%s° TB stereo video detected from frame analysis", fov)
	default:
		desc = fmt.Sprintf("%s° panoramic video detected from frame analysis", fov)
	}

	return &Match{IsVR: true, FOV: fov, Format: format, Description: desc}
}
