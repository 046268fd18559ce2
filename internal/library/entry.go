package library

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/vrplayer/vrprobe/internal/detection"
)

// Entry is the catalog record for one analysed file.
type Entry struct {
	ID         string           `json:"id"`
	Path       string           `json:"path"`
	Info       *VideoInfo       `json:"info,omitempty"`
	Result     detection.Result `json:"result"`
	DetectedAt time.Time        `json:"detected_at"`
}

// EntryID derives a stable catalog ID from the absolute form of path.
func EntryID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return hex.EncodeToString(sum[:16])
}
