package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestIsSupportedVideoFormat(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"movie.mp4", true},
		{"MOVIE.MKV", true},
		{"/a/b/clip.webm", true},
		{"clip.m4v", true},
		{"clip.avi", true},
		{"clip.mov", true},
		{"still.png", false},
		{"noext", false},
		{"archive.mp4.zip", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupportedVideoFormat(tt.path, nil))
		})
	}

	assert.True(t, IsSupportedVideoFormat("x.ts", []string{".TS"}))
	assert.False(t, IsSupportedVideoFormat("x.mp4", []string{".ts"}))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatFileSize(0))
	assert.Equal(t, "1.0 KiB", FormatFileSize(1024))
	assert.Equal(t, "1.5 MiB", FormatFileSize(1536*1024))
	assert.Equal(t, "0 B", FormatFileSize(-5))
}

func TestGetVideoInfo(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Trip_360.MP4", 2048)

	info, err := GetVideoInfo(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, info.Path)
	assert.Equal(t, "Trip_360.MP4", info.Name)
	assert.Equal(t, int64(2048), info.Size)
	assert.Equal(t, "2.0 KiB", info.SizeFormatted)
	assert.Equal(t, ".mp4", info.Extension)
	assert.True(t, info.IsSupported)
	assert.False(t, info.LastModified.IsZero())

	_, err = GetVideoInfo(filepath.Join(dir, "missing.mp4"), nil)
	assert.Error(t, err)
}

func TestScanVideoFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_tb.mkv", 10)
	writeFile(t, dir, "A_sbs.mp4", 10)
	writeFile(t, dir, "notes.txt", 10)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.mp4"), 0o755))
	writeFile(t, filepath.Join(dir, "nested.mp4"), "deep.mp4", 10)

	videos, err := ScanVideoFiles(dir, nil)
	require.NoError(t, err)

	require.Len(t, videos, 2)
	assert.Equal(t, "A_sbs.mp4", videos[0].Name)
	assert.Equal(t, "b_tb.mkv", videos[1].Name)

	_, err = ScanVideoFiles(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}

func TestValidateVideoFile(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, ValidateVideoFile(writeFile(t, dir, "ok.mp4", 1024), DefaultMinFileSize))
	assert.ErrorIs(t, ValidateVideoFile(writeFile(t, dir, "tiny.mp4", 1023), DefaultMinFileSize), ErrTooSmall)
	assert.ErrorIs(t, ValidateVideoFile(dir, DefaultMinFileSize), ErrNotRegularFile)
	assert.ErrorIs(t, ValidateVideoFile(filepath.Join(dir, "missing.mp4"), DefaultMinFileSize), os.ErrNotExist)
}

func TestEntryID(t *testing.T) {
	a := EntryID("/videos/a.mp4")
	assert.Len(t, a, 32)
	assert.Equal(t, a, EntryID("/videos/../videos/a.mp4"))
	assert.NotEqual(t, a, EntryID("/videos/b.mp4"))
}
