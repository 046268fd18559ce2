package detection

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	vrKeywords = []string{
		"vr", "360", "180", "sbs", "side-by-side", "sidebyside",
		"tb", "top-bottom", "topbottom", "ou", "over-under",
		"stereo", "3d", "cardboard", "oculus", "gear",
		"pano", "panorama", "spherical", "equirectangular",
		"cubemap", "fisheye", "fulldome", "immersive",
		"monoscopic", "stereoscopic", "dome", "planetarium",
		"quest", "vive", "rift", "pico", "wmr", "valve",
		"varjo", "pimax", "samsung", "daydream", "gopro",
		"4k360", "8k360", "4k180", "8k180", "6k", "8k", "360p", "180p",
		"virtual", "reality", "experience", "immerse",
		"spatial", "volumetric", "ambisonics",
	}

	keywords360 = []string{
		"360", "360°", "full360", "full-360",
		"4k360", "8k360", "360p", "360vr", "vr360",
		"spherical", "equirectangular", "full-sphere",
	}

	keywords180 = []string{
		"180", "180°", "half180", "half-180",
		"4k180", "8k180", "180p", "180vr", "vr180",
		"hemisphere", "half-sphere", "front180",
	}

	keywordsSBS = []string{"sbs", "side-by-side", "sidebyside", "stereo"}
	keywordsTB  = []string{"tb", "top-bottom", "topbottom", "ou", "over-under"}
)

var (
	vrPattern  = wordPattern(vrKeywords)
	pattern360 = wordPattern(keywords360)
	pattern180 = wordPattern(keywords180)
	patternSBS = wordPattern(keywordsSBS)
	patternTB  = wordPattern(keywordsTB)
)

// wordPattern matches any keyword as a complete word in a lower-cased name.
// Words are delimited by the ends of the text or by anything other than an
// ASCII letter or digit, so "_", "-", "." and spaces separate words, and so
// do CJK or accented letters as in "风景360度.mp4".
func wordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?:^|[^a-z0-9])(?:` + strings.Join(quoted, "|") + `)(?:$|[^a-z0-9])`)
}

// baseName strips both slash and backslash directories so Windows paths
// classify the same on every platform.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// DetectFromFilename classifies a video by the keywords in its base name.
// It returns nil when the name carries no VR keyword.
func DetectFromFilename(path string) *Match {
	if path == "" {
		return nil
	}

	name := strings.ToLower(baseName(path))
	if !vrPattern.MatchString(name) {
		return nil
	}

	m := &Match{IsVR: true, FOV: FOV180, Format: FormatMono}

	// 360 keywords win over 180 keywords, TB keywords over SBS keywords.
	if pattern180.MatchString(name) {
		m.FOV = FOV180
	}
	if pattern360.MatchString(name) {
		m.FOV = FOV360
	}
	if patternSBS.MatchString(name) {
		m.Format = FormatSBS
	}
	if patternTB.MatchString(name) {
		m.Format = FormatTB
	}

	m.Description = fmt.Sprintf("%s° %s video detected from filename", m.FOV, strings.ToUpper(string(m.Format)))
	return m
}
