package cliui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Renderer displays indexing progress as it happens.
type Renderer interface {
	Start(ctx context.Context) error
	Update(event Event)
	AddError(event ErrorEvent)
	Complete(stats Stats)
	Stop() error
}

// Config selects and parameterizes a Renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	ProjectDir string
}

// NewRenderer picks a TTY renderer when Output is an interactive
// terminal and ForcePlain is not set, otherwise a PlainRenderer.
func NewRenderer(cfg Config) Renderer {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if !cfg.ForcePlain && IsTTY(cfg.Output) {
		return newTTYRenderer(cfg)
	}
	return NewPlainRenderer(cfg)
}

// IsTTY reports whether w is a terminal codex7 should draw a live view to.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PlainRenderer writes one line per event, suitable for CI logs and pipes.
type PlainRenderer struct {
	mu   sync.Mutex
	out  io.Writer
	styl Styles
}

// NewPlainRenderer creates a plain-text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, styl: styles(cfg.NoColor)}
}

func (r *PlainRenderer) Start(ctx context.Context) error { return nil }

func (r *PlainRenderer) Update(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := event.Message
	if msg == "" {
		msg = event.CurrentFile
	}
	if event.Total > 0 {
		fmt.Fprintf(r.out, "[%s] %d/%d %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
	} else if msg != "" {
		fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	}
}

func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.File != "" {
		fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

func (r *PlainRenderer) Complete(stats Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "Indexed %s files, %s snippets in %s",
		humanize.Comma(int64(stats.Files)), humanize.Comma(int64(stats.Snippets)),
		stats.Duration.Round(10*time.Millisecond))
	if stats.Errors > 0 || stats.Warnings > 0 {
		fmt.Fprintf(r.out, " (%d errors, %d warnings)", stats.Errors, stats.Warnings)
	}
	fmt.Fprintln(r.out)
}

func (r *PlainRenderer) Stop() error { return nil }
