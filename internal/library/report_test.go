package library

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "library.json")
	entries := []*Entry{
		testEntry("/videos/a.mp4", false),
		testEntry("/videos/b_360_sbs.mp4", true),
	}

	require.NoError(t, WriteReport(path, entries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.VR)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, "/videos/b_360_sbs.mp4", report.Entries[1].Path)

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), st.Mode().Perm())

	// Overwrite in place; no temp files left behind.
	require.NoError(t, WriteReport(path, nil))
	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, files, 1)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entries": []`)
}
