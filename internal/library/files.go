// Package library scans directories of videos, runs VR detection on each
// file and keeps the verdicts in a catalog.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultFormats are the container extensions a VR player can open.
var DefaultFormats = []string{".mp4", ".webm", ".avi", ".mov", ".mkv", ".m4v"}

// DefaultMinFileSize is the smallest file accepted as a plausible video.
const DefaultMinFileSize = 1024

var (
	ErrNotRegularFile = errors.New("not a regular file")
	ErrTooSmall       = errors.New("file too small to be a video")
)

// VideoInfo is file-system metadata for one video.
type VideoInfo struct {
	Path          string    `json:"path"`
	Name          string    `json:"name"`
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"size_formatted"`
	Extension     string    `json:"extension"`
	LastModified  time.Time `json:"last_modified"`
	IsSupported   bool      `json:"is_supported"`
}

// IsSupportedVideoFormat reports whether path's extension, compared
// case-insensitively, is one of formats. A nil formats uses DefaultFormats.
func IsSupportedVideoFormat(path string, formats []string) bool {
	if formats == nil {
		formats = DefaultFormats
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, f := range formats {
		if strings.ToLower(f) == ext {
			return true
		}
	}
	return false
}

// FormatFileSize renders a byte count with IEC units, e.g. "1.5 GiB".
func FormatFileSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}

// GetVideoInfo stats path and describes it.
func GetVideoInfo(path string, formats []string) (*VideoInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return &VideoInfo{
		Path:          path,
		Name:          filepath.Base(path),
		Size:          st.Size(),
		SizeFormatted: FormatFileSize(st.Size()),
		Extension:     strings.ToLower(filepath.Ext(path)),
		LastModified:  st.ModTime(),
		IsSupported:   IsSupportedVideoFormat(path, formats),
	}, nil
}

// ScanVideoFiles lists the supported videos directly inside dir, sorted by
// name. Subdirectories are not descended into.
func ScanVideoFiles(dir string, formats []string) ([]*VideoInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	videos := make([]*VideoInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !IsSupportedVideoFormat(path, formats) {
			continue
		}
		info, err := GetVideoInfo(path, formats)
		if err != nil {
			// Removed between ReadDir and Stat.
			continue
		}
		videos = append(videos, info)
	}

	sort.Slice(videos, func(i, j int) bool {
		return strings.ToLower(videos[i].Name) < strings.ToLower(videos[j].Name)
	})
	return videos, nil
}

// ValidateVideoFile checks that path is a readable regular file of at least
// minSize bytes. It does not parse the container.
func ValidateVideoFile(path string, minSize int64) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}
	if st.Size() < minSize {
		return fmt.Errorf("%s is %d bytes: %w", path, st.Size(), ErrTooSmall)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
