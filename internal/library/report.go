package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/vrplayer/vrprobe/pkg/version"
)

// Report is the JSON document written by WriteReport.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
	Total       int       `json:"total"`
	VR          int       `json:"vr"`
	Entries     []*Entry  `json:"entries"`
}

// NewReport summarizes entries.
func NewReport(entries []*Entry) *Report {
	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Version:     version.GetInfo().Version,
		Total:       len(entries),
		Entries:     entries,
	}
	if r.Entries == nil {
		r.Entries = []*Entry{}
	}
	for _, e := range entries {
		if e.Result.IsVR {
			r.VR++
		}
	}
	return r
}

// WriteReport writes entries to path as indented JSON. Readers see either
// the previous report or the new one, never a partial file.
func WriteReport(path string, entries []*Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	// No-op once the file has been committed.
	defer func() { _ = pending.Cleanup() }()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewReport(entries)); err != nil {
		return fmt.Errorf("write report data: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace report file: %w", err)
	}
	return nil
}
