package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	coreapp "pipelinedag/internal/core/app"
	"pipelinedag/internal/core/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// resultSink receives validation results as documents change.
type resultSink interface {
	validating()
	publish(results []docResult)
}

type streamSink struct {
	mu     sync.Mutex
	out    io.Writer
	asJSON bool
}

func (s *streamSink) validating() {}

func (s *streamSink) publish(results []docResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.asJSON {
		enc := json.NewEncoder(s.out)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				slog.Debug("write result failed", "error", err)
			}
		}
		return
	}
	for _, r := range results {
		fmt.Fprintln(s.out, renderResult(r))
	}
}

type programSink struct {
	p *tea.Program
}

func (s programSink) validating() { s.p.Send(validatingMsg{}) }

func (s programSink) publish(results []docResult) { s.p.Send(resultsMsg{results: results}) }

// runWatch validates the documents under opts.args, then again on every save
// until ctx is cancelled or the UI quits.
func runWatch(ctx context.Context, app *coreapp.App, opts cliOptions, out io.Writer) int {
	cfg := app.Config()
	paths, err := watcher.ExpandPaths(opts.args, cfg.Watch.Include, cfg.Watch.Exclude)
	if err != nil {
		slog.Error("failed to resolve pipeline paths", "error", err)
		return exitInvalid
	}

	var program *tea.Program
	var sink resultSink
	if opts.ui {
		program = tea.NewProgram(initialModel(), tea.WithAltScreen(), tea.WithContext(ctx))
		sink = programSink{p: program}
	} else {
		sink = &streamSink{out: out, asJSON: opts.jsonOut}
	}

	svc := app.PipelineService()
	refresh := func(docs []string) {
		sink.validating()
		sink.publish(validateFiles(ctx, svc, docs))
	}

	w, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Watch.Include, cfg.Watch.Exclude, refresh)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		return exitFailure
	}
	defer w.Close()

	if err := w.Watch(opts.args); err != nil {
		slog.Error("failed to watch pipeline paths", "error", err)
		return exitFailure
	}
	slog.Info("watching pipeline documents", "paths", opts.args, "documents", len(paths))

	if program == nil {
		refresh(paths)
		<-ctx.Done()
		return exitOK
	}

	go refresh(paths)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		slog.Error("failed to run UI", "error", err)
		return exitFailure
	}
	return exitOK
}
