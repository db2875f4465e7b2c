package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/output"
)

// TUIRenderer draws an animated progress view with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexingModel
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails when the output is not
// a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !output.IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newIndexingModel(cfg.SourceDir)
	if cfg.NoColor || output.DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:   cfg,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		return nil
	}

	// Signals stay with the command so cancellation reaches the runner.
	r.program = tea.NewProgram(r.model,
		tea.WithOutput(r.cfg.Output),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// Update implements Renderer.
func (r *TUIRenderer) Update(stage index.Stage, current, total int, name string) {
	r.send(progressMsg{stage: stage, current: current, total: total, name: name})
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(result *index.Result) {
	r.send(completeMsg{result: result})
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p == nil {
		return nil
	}

	p.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

type progressMsg struct {
	stage   index.Stage
	current int
	total   int
	name    string
}

type completeMsg struct {
	result *index.Result
}

// indexingModel is the bubbletea model of one ingestion run.
type indexingModel struct {
	stage     index.Stage
	current   int
	total     int
	name      string
	complete  bool
	sourceDir string

	spinner spinner.Model
	bar     progress.Model
	styles  Styles
}

func newIndexingModel(sourceDir string) *indexingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	return &indexingModel{
		stage:     index.StageScan,
		sourceDir: sourceDir,
		spinner:   s,
		bar: progress.New(
			progress.WithSolidFill(ColorLime),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *indexingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-30, 10), 40)
	case progressMsg:
		m.stage, m.current, m.total, m.name = msg.stage, msg.current, msg.total, msg.name
	case completeMsg:
		m.complete = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model. The finished view is empty; the command
// prints its own summary.
func (m *indexingModel) View() string {
	if m.complete {
		return ""
	}

	var sb strings.Builder
	if m.sourceDir != "" {
		sb.WriteString(m.styles.Header.Render("Indexing " + m.sourceDir))
		sb.WriteString("\n")
	}

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.current) / float64(m.total)
	}
	fmt.Fprintf(&sb, "%s %s %s %s\n",
		m.spinner.View(),
		m.styles.Active.Render(fmt.Sprintf("%-9s", StageLabel(m.stage))),
		m.bar.ViewAs(pct),
		m.styles.Label.Render(fmt.Sprintf("%d/%d", m.current, m.total)))

	if m.name != "" {
		sb.WriteString(m.styles.Dim.Render("  " + truncateName(m.name, 60)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// truncateName shortens name to maxLen runes, keeping its end.
func truncateName(name string, maxLen int) string {
	r := []rune(name)
	if len(r) <= maxLen || maxLen < 4 {
		return name
	}
	return "..." + string(r[len(r)-maxLen+3:])
}
