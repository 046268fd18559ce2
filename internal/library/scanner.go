package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vrplayer/vrprobe/internal/config"
	"github.com/vrplayer/vrprobe/internal/detection"
	"github.com/vrplayer/vrprobe/internal/logger"
	"github.com/vrplayer/vrprobe/internal/metrics"
)

// ProviderOpener returns a frame source for a file.
type ProviderOpener func(path string) (detection.FrameProvider, error)

// Progress reports one finished file during a scan.
type Progress struct {
	Done  int
	Total int
	Path  string
	Entry *Entry // nil when the file failed
	Err   error
}

// Summary totals one scan.
type Summary struct {
	Total   int      `json:"total"`
	VR      int      `json:"vr"`
	Flat    int      `json:"flat"`
	Invalid int      `json:"invalid"`
	Failed  int      `json:"failed"`
	Entries []*Entry `json:"entries"`
}

// Scanner detects every supported video in a set of directories and stores
// the results in a Catalog.
type Scanner struct {
	detector *detection.Detector
	catalog  Catalog
	open     ProviderOpener
	formats  []string
	minSize  int64
	workers  int
	logger   logger.Logger
}

// NewScanner creates a Scanner. open may be nil, in which case only file
// names are classified.
func NewScanner(cfg *config.LibraryConfig, det *detection.Detector, cat Catalog, open ProviderOpener, log logger.Logger) *Scanner {
	if log == nil {
		log = logger.NewNullLogger()
	}
	s := &Scanner{
		detector: det,
		catalog:  cat,
		open:     open,
		formats:  cfg.SupportedFormats,
		minSize:  cfg.MinFileSize,
		workers:  cfg.Workers,
		logger:   log.WithField("component", "scanner"),
	}
	if len(s.formats) == 0 {
		s.formats = DefaultFormats
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	return s
}

// Formats returns the extensions the scanner accepts.
func (s *Scanner) Formats() []string { return s.formats }

// ProcessFile validates, detects and catalogs a single file.
func (s *Scanner) ProcessFile(ctx context.Context, path string) (*Entry, error) {
	log := s.logger.WithField("path", path)

	if !IsSupportedVideoFormat(path, s.formats) {
		metrics.IncrementLibraryFile("invalid")
		return nil, fmt.Errorf("%s: unsupported format", path)
	}

	if err := ValidateVideoFile(path, s.minSize); err != nil {
		metrics.IncrementLibraryFile("invalid")
		return nil, fmt.Errorf("invalid video: %w", err)
	}

	info, err := GetVideoInfo(path, s.formats)
	if err != nil {
		metrics.IncrementLibraryFile("error")
		return nil, err
	}

	var provider detection.FrameProvider
	if s.open != nil {
		if provider, err = s.open(path); err != nil {
			log.WithError(err).Warn("No frame source, classifying by name only")
			provider = nil
		}
	}

	res := s.detector.Detect(ctx, path, provider)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:         EntryID(path),
		Path:       path,
		Info:       info,
		Result:     res,
		DetectedAt: time.Now().UTC(),
	}

	if err := s.catalog.Put(ctx, entry); err != nil {
		metrics.IncrementLibraryFile("error")
		return nil, fmt.Errorf("failed to store entry: %w", err)
	}

	if res.IsVR {
		metrics.IncrementLibraryFile("vr")
	} else {
		metrics.IncrementLibraryFile("flat")
	}
	return entry, nil
}

// Scan processes every supported video directly inside dirs. A failing
// file is counted and skipped; only context cancellation or an unreadable
// directory aborts the scan. progress, if non-nil, is called once per file
// from a single goroutine at a time.
func (s *Scanner) Scan(ctx context.Context, dirs []string, progress func(Progress)) (*Summary, error) {
	metrics.ScanStarted()
	defer metrics.ScanFinished()

	var paths []string
	for _, dir := range dirs {
		videos, err := ScanVideoFiles(dir, s.formats)
		if err != nil {
			return nil, err
		}
		for _, v := range videos {
			paths = append(paths, v.Path)
		}
	}

	start := time.Now()
	summary := &Summary{Total: len(paths), Entries: make([]*Entry, 0, len(paths))}
	s.logger.WithFields(map[string]interface{}{
		"directories": len(dirs),
		"files":       len(paths),
		"workers":     s.workers,
	}).Info("Library scan started")

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			entry, err := s.ProcessFile(gctx, path)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			defer mu.Unlock()

			done++
			switch {
			case err == nil && entry.Result.IsVR:
				summary.VR++
			case err == nil:
				summary.Flat++
			case errors.Is(err, ErrTooSmall), errors.Is(err, ErrNotRegularFile):
				summary.Invalid++
			default:
				summary.Failed++
			}
			if err != nil {
				s.logger.WithError(err).WithField("path", path).Warn("Skipping file")
			} else {
				summary.Entries = append(summary.Entries, entry)
			}

			if progress != nil {
				progress(Progress{Done: done, Total: len(paths), Path: path, Entry: entry, Err: err})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	sortEntries(summary.Entries)
	s.updateCatalogGauge(ctx)

	s.logger.WithFields(map[string]interface{}{
		"files":    summary.Total,
		"vr":       summary.VR,
		"flat":     summary.Flat,
		"invalid":  summary.Invalid,
		"failed":   summary.Failed,
		"duration": time.Since(start).String(),
	}).Info("Library scan finished")

	return summary, nil
}

// Remove drops path from the catalog. A path that was never cataloged is
// not an error.
func (s *Scanner) Remove(ctx context.Context, path string) error {
	err := s.catalog.Delete(ctx, EntryID(path))
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return err
	}
	s.updateCatalogGauge(ctx)
	return nil
}

func (s *Scanner) updateCatalogGauge(ctx context.Context) {
	entries, err := s.catalog.List(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to count catalog entries")
		return
	}
	metrics.SetCatalogEntries(len(entries))
}
