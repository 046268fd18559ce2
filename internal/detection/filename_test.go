package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFromFilename(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantNil    bool
		wantFOV    FieldOfView
		wantFormat StereoFormat
	}{
		{name: "empty path", path: "", wantNil: true},
		{name: "no keyword", path: "vacation.mp4", wantNil: true},
		{name: "keyword inside word service", path: "service.mp4", wantNil: true},
		{name: "keyword inside word archive", path: "archive.mp4", wantNil: true},
		{name: "keyword only in directory", path: "/media/360/holiday.mp4", wantNil: true},
		{name: "glued keyword", path: "vr180hike.mp4", wantNil: true},
		{name: "underscore separated", path: "movie_360_sbs.mp4", wantFOV: FOV360, wantFormat: FormatSBS},
		{name: "tb with vr", path: "clip_180_tb_vr.mov", wantFOV: FOV180, wantFormat: FormatTB},
		{name: "defaults", path: "Oculus Demo.mp4", wantFOV: FOV180, wantFormat: FormatMono},
		{name: "uppercase", path: "/videos/CONCERT.STEREO.MKV", wantFOV: FOV180, wantFormat: FormatSBS},
		{name: "windows path", path: `C:\Users\me\Videos\dive-360-ou.mp4`, wantFOV: FOV360, wantFormat: FormatTB},
		{name: "360 overrides 180", path: "compare_180_vs_360.mp4", wantFOV: FOV360, wantFormat: FormatMono},
		{name: "tb overrides sbs", path: "sbs-or-tb.mp4", wantFOV: FOV180, wantFormat: FormatTB},
		{name: "hyphenated keyword", path: "side-by-side demo.webm", wantFOV: FOV180, wantFormat: FormatSBS},
		{name: "degree sign", path: "alps 360°.mp4", wantFOV: FOV360, wantFormat: FormatMono},
		{name: "equirectangular is 360", path: "city_equirectangular.mp4", wantFOV: FOV360, wantFormat: FormatMono},
		{name: "hemisphere alone is not vr", path: "hemisphere.mp4", wantNil: true},
		{name: "cjk letters delimit keyword", path: "风景360度.mp4", wantFOV: FOV360, wantFormat: FormatMono},
		{name: "cjk after vr", path: "vr视频.mp4", wantFOV: FOV180, wantFormat: FormatMono},
		{name: "accented letter delimits keyword", path: "visite_ré360é.mp4", wantFOV: FOV360, wantFormat: FormatMono},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectFromFilename(tt.path)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.IsVR)
			assert.Equal(t, tt.wantFOV, got.FOV)
			assert.Equal(t, tt.wantFormat, got.Format)
			assert.NotEmpty(t, got.Description)
		})
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a.mp4", baseName("a.mp4"))
	assert.Equal(t, "a.mp4", baseName("/x/y/a.mp4"))
	assert.Equal(t, "a.mp4", baseName(`x\y\a.mp4`))
	assert.Equal(t, "", baseName("/x/"))
}

func TestWordPatternQuotesKeywords(t *testing.T) {
	p := wordPattern([]string{"a.b"})
	assert.True(t, p.MatchString("x a.b y"))
	assert.False(t, p.MatchString("x axb y"))
}
