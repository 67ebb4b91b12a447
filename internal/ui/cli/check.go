package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	coreapp "pipelinedag/internal/core/app"
	"pipelinedag/internal/core/errors"
	"pipelinedag/internal/core/ports"
	"pipelinedag/internal/core/watcher"
	"pipelinedag/internal/engine/graph"
)

type docStatus int

const (
	statusDAG docStatus = iota
	statusCyclic
	statusInvalid
	statusRemoved
)

func (s docStatus) String() string {
	switch s {
	case statusDAG:
		return "dag"
	case statusCyclic:
		return "cyclic"
	case statusRemoved:
		return "removed"
	default:
		return "invalid"
	}
}

// docResult is the validation outcome for one pipeline document.
type docResult struct {
	Path    string        `json:"path"`
	Status  string        `json:"status"`
	Summary graph.Summary `json:"summary"`
	Code    string        `json:"code,omitempty"`
	Error   string        `json:"error,omitempty"`

	status docStatus
}

func validateFile(ctx context.Context, svc ports.PipelineService, path string) docResult {
	res := docResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			res.setStatus(statusRemoved)
			return res
		}
		res.setStatus(statusInvalid)
		res.Code = string(errors.CodeValidationError)
		res.Error = err.Error()
		return res
	}

	summary, err := svc.ParseDocument(ctx, data)
	if err != nil {
		res.setStatus(statusInvalid)
		res.Code = string(errors.CodeOf(err))
		res.Error = describeError(err)
		return res
	}

	res.Summary = summary
	if summary.IsDAG {
		res.setStatus(statusDAG)
	} else {
		res.setStatus(statusCyclic)
	}
	return res
}

func (r *docResult) setStatus(s docStatus) {
	r.status = s
	r.Status = s.String()
}

func validateFiles(ctx context.Context, svc ports.PipelineService, paths []string) []docResult {
	results := make([]docResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, validateFile(ctx, svc, path))
	}
	return results
}

// describeError renders a domain error without its code prefix or context map.
func describeError(err error) string {
	var de *errors.DomainError
	if !stderrors.As(err, &de) {
		return err.Error()
	}
	if de.Err != nil {
		return de.Err.Error()
	}
	return de.Message
}

// exitCodeFor folds results into one exit status: any invalid document wins
// over any cyclic one.
func exitCodeFor(results []docResult) int {
	code := exitOK
	for _, r := range results {
		switch r.status {
		case statusInvalid:
			return exitInvalid
		case statusCyclic:
			code = exitCyclic
		}
	}
	return code
}

func runCheck(ctx context.Context, app *coreapp.App, opts cliOptions, out io.Writer) int {
	cfg := app.Config()
	paths, err := watcher.ExpandPaths(opts.args, cfg.Watch.Include, cfg.Watch.Exclude)
	if err != nil {
		slog.Error("failed to resolve pipeline paths", "error", err)
		return exitInvalid
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, statusStyle.Render("No pipeline documents found."))
		return exitOK
	}

	results := validateFiles(ctx, app.PipelineService(), paths)

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			slog.Error("failed to write results", "error", err)
			return exitFailure
		}
		return exitCodeFor(results)
	}

	fmt.Fprint(out, renderResults(results))
	return exitCodeFor(results)
}

func renderResult(r docResult) string {
	switch r.status {
	case statusDAG:
		return fmt.Sprintf("%s %s  %s",
			successStyle.Render("✔ DAG   "), r.Path, statusStyle.Render(countsText(r.Summary)))
	case statusCyclic:
		return fmt.Sprintf("%s %s  %s",
			cycleStyle.Render("✘ CYCLE "), r.Path, statusStyle.Render(countsText(r.Summary)))
	case statusRemoved:
		return fmt.Sprintf("%s %s", statusStyle.Render("- GONE  "), r.Path)
	default:
		return fmt.Sprintf("%s %s  %s",
			invalidStyle.Render("! ERROR "), r.Path, statusStyle.Render(r.Error))
	}
}

func renderResults(results []docResult) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(renderResult(r))
		b.WriteByte('\n')
	}
	b.WriteString(summaryLine(results))
	b.WriteByte('\n')
	return b.String()
}

func countsText(s graph.Summary) string {
	return fmt.Sprintf("%d nodes, %d edges", s.NumNodes, s.NumEdges)
}

type tally struct {
	dags, cyclic, invalid int
}

func countResults(results []docResult) tally {
	var t tally
	for _, r := range results {
		switch r.status {
		case statusDAG:
			t.dags++
		case statusCyclic:
			t.cyclic++
		case statusInvalid:
			t.invalid++
		}
	}
	return t
}

func summaryLine(results []docResult) string {
	t := countResults(results)
	if t.cyclic == 0 && t.invalid == 0 {
		return successStyle.Render(fmt.Sprintf("All %d pipelines are DAGs", t.dags))
	}
	return fmt.Sprintf("%s | %s | %s",
		successStyle.Render(fmt.Sprintf("%d DAG", t.dags)),
		cycleStyle.Render(fmt.Sprintf("%d Cyclic", t.cyclic)),
		invalidStyle.Render(fmt.Sprintf("%d Invalid", t.invalid)))
}
