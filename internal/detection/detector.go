package detection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vrplayer/vrprobe/internal/config"
	"github.com/vrplayer/vrprobe/internal/logger"
	"github.com/vrplayer/vrprobe/internal/metrics"
)

// Detector fuses filename, frame and resolution signals into a Result. It
// holds no per-call state and is safe for concurrent use with distinct
// providers.
type Detector struct {
	analyzer *Analyzer
	logger   logger.Logger
}

// NewDetector creates a Detector. A nil log discards output.
func NewDetector(cfg *config.DetectionConfig, log logger.Logger) *Detector {
	if log == nil {
		log = logger.NewNullLogger()
	}
	log = log.WithField("component", "detector")
	return &Detector{
		analyzer: NewAnalyzer(cfg, log),
		logger:   log,
	}
}

// EmptyResult is the verdict when no method contributes.
func EmptyResult() Result {
	return Result{
		FOV:     FOV180,
		Format:  FormatMono,
		Methods: []Method{},
	}
}

// Detect runs every available method and fuses their answers. The filename
// sets field of view and format; a frame analysis overrides them but never
// marks a video as VR on its own; a matching aspect ratio marks the video as
// VR without touching field of view or format. provider may be nil, in which
// case only the filename is used. Detect never fails: a method that errors
// or panics simply contributes nothing.
func (d *Detector) Detect(ctx context.Context, path string, provider FrameProvider) Result {
	start := time.Now()
	log := d.logger.WithField("path", path)
	res := EmptyResult()

	if m := d.run(log, MethodFilename, func() *Match { return DetectFromFilename(path) }); m != nil && m.IsVR {
		res.IsVR = true
		res.FOV = m.FOV
		res.Format = m.Format
		res.Methods = append(res.Methods, MethodFilename)
		res.Confidence += weightFilename
	}

	if provider != nil {
		if m := d.run(log, MethodFrame, func() *Match { return d.analyzer.Analyze(ctx, provider) }); m != nil {
			res.FOV = m.FOV
			res.Format = m.Format
			res.Methods = append(res.Methods, MethodFrame)
			res.Confidence += weightFrame
		}

		m := d.run(log, MethodResolution, func() *Match {
			w, h := provider.VideoSize()
			if w <= 0 || h <= 0 {
				return nil
			}
			return DetectFromResolution(w, h)
		})
		if m != nil && m.IsVR {
			res.IsVR = true
			res.Methods = append(res.Methods, MethodResolution)
			res.Confidence += weightResolution
		}
	}

	res.Confidence = math.Round(res.Confidence*100) / 100

	methods := make([]string, len(res.Methods))
	for i, m := range res.Methods {
		methods[i] = string(m)
	}
	metrics.RecordDetection(res.IsVR, string(res.FOV), string(res.Format), methods, time.Since(start))

	if res.IsVR {
		log.WithFields(map[string]interface{}{
			"fov":        res.FOV,
			"format":     res.Format,
			"confidence": res.Confidence,
			"methods":    methods,
		}).Info("VR video detected")
	} else {
		log.Debug("No VR signal")
	}

	return res
}

// run invokes one detection method, logging its outcome and turning a panic
// into a nil result.
func (d *Detector) run(log logger.Logger, method Method, fn func() *Match) (m *Match) {
	defer func() {
		if r := recover(); r != nil {
			log.WithError(fmt.Errorf("%v", r)).WithField("method", method).Warn("Detection method panicked")
			m = nil
		}
	}()

	m = fn()
	if m == nil {
		log.WithField("method", method).Debug("No signal")
		return nil
	}
	log.WithFields(map[string]interface{}{
		"method":      method,
		"description": m.Description,
	}).Debug("Signal found")
	return m
}
