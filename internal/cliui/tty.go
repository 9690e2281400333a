package cliui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

// ttyRenderer drives a bubbletea program showing a spinner, stage name,
// and progress bar, updated from indexing-goroutine events through the
// program's message channel.
type ttyRenderer struct {
	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	styl    Styles
}

func newTTYRenderer(cfg Config) *ttyRenderer {
	m := newModel(styles(cfg.NoColor))
	return &ttyRenderer{
		program: tea.NewProgram(m),
		done:    make(chan struct{}),
		styl:    styles(cfg.NoColor),
	}
}

func (r *ttyRenderer) Start(ctx context.Context) error {
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	go func() {
		<-ctx.Done()
		r.program.Quit()
	}()
	return nil
}

func (r *ttyRenderer) Update(event Event)      { r.program.Send(progressMsg(event)) }
func (r *ttyRenderer) AddError(event ErrorEvent) { r.program.Send(errorMsg(event)) }
func (r *ttyRenderer) Complete(stats Stats)    { r.program.Send(completeMsg(stats)) }

func (r *ttyRenderer) Stop() error {
	r.program.Quit()
	<-r.done
	return nil
}

type progressMsg Event
type errorMsg ErrorEvent
type completeMsg Stats

type model struct {
	spinner  spinner.Model
	bar      progress.Model
	styl     Styles
	stage    Stage
	current  int
	total    int
	message  string
	errors   int
	warnings int
	stats    Stats
	done     bool
}

func newModel(s Styles) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Active
	return model{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		styl:    s,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		m.message = msg.Message
		if m.message == "" {
			m.message = msg.CurrentFile
		}
		return m, nil
	case errorMsg:
		if msg.IsWarn {
			m.warnings++
		} else {
			m.errors++
		}
		return m, nil
	case completeMsg:
		m.done = true
		m.stats = Stats(msg)
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		line := fmt.Sprintf("%s Indexed %s files, %s snippets in %s",
			m.styl.Success.Render("done"),
			humanize.Comma(int64(m.stats.Files)), humanize.Comma(int64(m.stats.Snippets)),
			m.stats.Duration.Round(10*time.Millisecond))
		if m.stats.Errors > 0 || m.stats.Warnings > 0 {
			line += fmt.Sprintf(" (%d errors, %d warnings)", m.stats.Errors, m.stats.Warnings)
		}
		return line + "\n"
	}

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.current) / float64(m.total)
	}

	return fmt.Sprintf("%s %s %s  %s\n%s\n",
		m.spinner.View(),
		m.styl.Stage.Render(m.stage.String()),
		m.message,
		m.styl.Dim.Render(fmt.Sprintf("%d/%d", m.current, m.total)),
		m.bar.ViewAs(pct))
}
