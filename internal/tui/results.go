package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vrplayer/vrprobe/internal/library"
)

var resultHeaders = []string{"FILE", "VR", "FOV", "FORMAT", "CONFIDENCE", "METHODS", "SIZE"}

// Verdict is the short label shown for a result, e.g. "360° SBS" or "flat".
func Verdict(e *library.Entry) string {
	if !e.Result.IsVR {
		return "flat"
	}
	return fmt.Sprintf("%s° %s", e.Result.FOV, strings.ToUpper(string(e.Result.Format)))
}

// RenderResults draws entries as a table, one row per file.
func RenderResults(entries []*library.Entry) string {
	if len(entries) == 0 {
		return MutedStyle.Render("No videos found.") + "\n"
	}

	rows := make([][]string, 0, len(entries))
	vr := 0
	for _, e := range entries {
		if e.Result.IsVR {
			vr++
		}
		rows = append(rows, resultRow(e))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers(resultHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderCellStyle
			}
			if col == 1 && row >= 0 && row < len(entries) {
				if entries[row].Result.IsVR {
					return VRStyle.Padding(0, 1)
				}
				return FlatStyle.Padding(0, 1)
			}
			return CellStyle
		})

	footer := MutedStyle.Render(fmt.Sprintf("%d files, %d VR, %d flat", len(entries), vr, len(entries)-vr))
	return lipgloss.JoinVertical(lipgloss.Left, t.String(), footer) + "\n"
}

func resultRow(e *library.Entry) []string {
	vr, fov, format := "no", "-", "-"
	if e.Result.IsVR {
		vr = "yes"
		fov = string(e.Result.FOV) + "°"
		format = strings.ToUpper(string(e.Result.Format))
	}

	methods := make([]string, len(e.Result.Methods))
	for i, m := range e.Result.Methods {
		methods[i] = string(m)
	}
	if len(methods) == 0 {
		methods = []string{"-"}
	}

	size := "-"
	if e.Info != nil {
		size = e.Info.SizeFormatted
	}

	return []string{
		filepath.Base(e.Path),
		vr,
		fov,
		format,
		fmt.Sprintf("%.2f", e.Result.Confidence),
		strings.Join(methods, ","),
		size,
	}
}
