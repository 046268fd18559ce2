package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vrplayer/vrprobe/internal/library"
)

const recentLines = 6

// ProgressMsg carries one finished file from the scanner.
type ProgressMsg library.Progress

// DoneMsg ends the scan.
type DoneMsg struct {
	Summary *library.Summary
	Err     error
}

type tickMsg time.Time

// ScanModel is a bubbletea model that follows a library scan.
type ScanModel struct {
	cancel context.CancelFunc

	done    int
	total   int
	vr      int
	flat    int
	failed  int
	recent  []string
	started time.Time
	elapsed time.Duration
	width   int

	summary  *library.Summary
	err      error
	finished bool
	quitting bool
}

// NewScanModel creates a model. cancel, if non-nil, is called when the
// user quits before the scan finishes.
func NewScanModel(cancel context.CancelFunc) *ScanModel {
	return &ScanModel{
		cancel:  cancel,
		started: time.Now(),
		width:   40,
	}
}

func (m *ScanModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if w := msg.Width - 30; w > 10 {
			m.width = w
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tickMsg:
		if m.finished || m.quitting {
			return m, nil
		}
		m.elapsed = time.Since(m.started)
		return m, tick()

	case ProgressMsg:
		m.apply(library.Progress(msg))
		return m, nil

	case DoneMsg:
		m.finished = true
		m.summary = msg.Summary
		m.err = msg.Err
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	}

	return m, nil
}

func (m *ScanModel) apply(p library.Progress) {
	m.done = p.Done
	m.total = p.Total

	var line string
	switch {
	case p.Err != nil:
		m.failed++
		line = ErrorStyle.Render("✗ ") + filepath.Base(p.Path) + MutedStyle.Render(" "+p.Err.Error())
	case p.Entry != nil && p.Entry.Result.IsVR:
		m.vr++
		line = VRStyle.Render("● ") + filepath.Base(p.Path) + " " + VRStyle.Render(Verdict(p.Entry))
	default:
		m.flat++
		line = FlatStyle.Render("○ ") + filepath.Base(p.Path) + " " + FlatStyle.Render("flat")
	}

	m.recent = append(m.recent, line)
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
}

func (m *ScanModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("vrprobe library scan"))
	b.WriteString("\n\n")

	b.WriteString(progressBar(m.done, m.total, m.width))
	b.WriteString(fmt.Sprintf(" %d/%d  %s\n", m.done, m.total, m.elapsed.Round(time.Second)))

	b.WriteString(fmt.Sprintf("%s  %s  %s\n",
		VRStyle.Render(fmt.Sprintf("VR %d", m.vr)),
		FlatStyle.Render(fmt.Sprintf("flat %d", m.flat)),
		ErrorStyle.Render(fmt.Sprintf("failed %d", m.failed))))

	if len(m.recent) > 0 {
		b.WriteString(PanelStyle.Render(strings.Join(m.recent, "\n")))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(ErrorStyle.Render("Scan failed: "+m.err.Error()) + "\n")
	case m.finished:
		b.WriteString(VRStyle.Render("Scan complete") + "\n")
	case m.quitting:
		b.WriteString(WarningStyle.Render("Canceling scan...") + "\n")
	default:
		b.WriteString(MutedStyle.Render("q to cancel") + "\n")
	}

	return b.String()
}

// Summary returns the scan result once DoneMsg arrived.
func (m *ScanModel) Summary() (*library.Summary, error) {
	return m.summary, m.err
}

func progressBar(done, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}

	bar := lipgloss.NewStyle().Foreground(Success).Render(strings.Repeat("█", filled))
	rest := lipgloss.NewStyle().Foreground(Muted).Render(strings.Repeat("░", width-filled))
	return bar + rest
}

// RunScan runs s over dirs while a ScanModel draws progress to out. When the
// user quits early the scan is canceled and its partial summary returned
// with the context error.
func RunScan(ctx context.Context, s *library.Scanner, dirs []string, in io.Reader, out io.Writer) (*library.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A nil in disables keyboard handling.
	p := tea.NewProgram(NewScanModel(cancel),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	type result struct {
		summary *library.Summary
		err     error
	}
	done := make(chan result, 1)

	go func() {
		summary, err := s.Scan(ctx, dirs, func(pr library.Progress) {
			p.Send(ProgressMsg(pr))
		})
		p.Send(DoneMsg{Summary: summary, Err: err})
		done <- result{summary, err}
	}()

	_, runErr := p.Run()
	cancel()
	res := <-done

	if res.err != nil {
		return res.summary, res.err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return res.summary, fmt.Errorf("scan view: %w", runErr)
	}
	return res.summary, nil
}
