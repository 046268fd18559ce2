package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryChecker(t *testing.T) {
	good := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(good, "clip.mp4"), []byte("x"), 0o644))
	empty := t.TempDir()
	missing := filepath.Join(t.TempDir(), "gone")
	file := filepath.Join(good, "clip.mp4")

	tests := []struct {
		name         string
		dirs         []string
		wantErr      bool
		wantDegraded bool
	}{
		{name: "no directories configured"},
		{name: "all readable", dirs: []string{good, empty}},
		{name: "one missing", dirs: []string{good, missing}, wantErr: true, wantDegraded: true},
		{name: "all missing", dirs: []string{missing}, wantErr: true},
		{name: "file instead of directory", dirs: []string{file}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewDirectoryChecker(tt.dirs)
			assert.Equal(t, "library_directories", checker.Name())

			err := checker.Check(context.Background())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantDegraded, IsDegraded(err))
		})
	}
}

func TestDirectoryChecker_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewDirectoryChecker([]string{t.TempDir()}).Check(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
