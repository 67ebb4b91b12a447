package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	coreapp "pipelinedag/internal/core/app"
	"pipelinedag/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dagDoc     = `{"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"source":"a","target":"b"}]}`
	cyclicDoc  = `{"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"source":"a","target":"b"},{"source":"b","target":"a"}]}`
	invalidDoc = `{"nodes":[{"id":"a"},{"type":"x"}],"edges":[]}`
)

func writeDoc(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	return writeDoc(t, t.TempDir(), "pipelinedag.toml", "version = 1\n")
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", writeTestConfig(t)}, args...), &stdout, &stderr)
	return code, stdout.String()
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	code := run([]string{"--version"}, &stdout, &bytes.Buffer{})
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "pipelinedag v")
}

func TestRun_UsageError(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"lint"}, &bytes.Buffer{}, &stderr)
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, stderr.String(), "unknown command")
}

func TestRun_MissingExplicitConfig(t *testing.T) {
	code := run([]string{"--config", filepath.Join(t.TempDir(), "absent.toml"), "check", "x.json"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, exitFailure, code)
}

func TestRun_CheckExitCodes(t *testing.T) {
	dir := t.TempDir()
	dag := writeDoc(t, dir, "dag.json", dagDoc)
	cyclic := writeDoc(t, dir, "cyclic.json", cyclicDoc)
	invalid := writeDoc(t, dir, "invalid.json", invalidDoc)

	code, out := runCLI(t, "check", dag)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, dag)
	assert.Contains(t, out, "All 1 pipelines are DAGs")

	code, out = runCLI(t, "check", dag, cyclic)
	assert.Equal(t, exitCyclic, code)
	assert.Contains(t, out, "1 Cyclic")

	code, out = runCLI(t, "check", cyclic, invalid)
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, out, "nodes[1].id")
}

func TestRun_CheckJSONDirectory(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.json", dagDoc)
	writeDoc(t, dir, "nested/b.json", cyclicDoc)
	writeDoc(t, dir, "notes.txt", "not a pipeline")
	writeDoc(t, dir, "node_modules/c.json", invalidDoc)

	code, out := runCLI(t, "check", "--json", dir)
	assert.Equal(t, exitCyclic, code)

	var results []docResult
	require.NoError(t, json.Unmarshal([]byte(out), &results), out)
	require.Len(t, results, 2)

	assert.Equal(t, filepath.Join(dir, "a.json"), results[0].Path)
	assert.Equal(t, "dag", results[0].Status)
	assert.Equal(t, 2, results[0].Summary.NumNodes)

	assert.Equal(t, filepath.Join(dir, "nested", "b.json"), results[1].Path)
	assert.Equal(t, "cyclic", results[1].Status)
	assert.False(t, results[1].Summary.IsDAG)
}

func TestValidateFile(t *testing.T) {
	app, err := coreapp.New(config.DefaultConfig())
	require.NoError(t, err)
	svc := app.PipelineService()
	dir := t.TempDir()

	res := validateFile(context.Background(), svc, writeDoc(t, dir, "dup.json", `{"nodes":[{"id":1},{"id":1.0}],"edges":[]}`))
	assert.Equal(t, statusInvalid, res.status)
	assert.Equal(t, "INVALID_GRAPH_INPUT", res.Code)
	assert.Contains(t, res.Error, "duplicate node id")

	res = validateFile(context.Background(), svc, filepath.Join(dir, "gone.json"))
	assert.Equal(t, statusRemoved, res.status)

	res = validateFile(context.Background(), svc, writeDoc(t, dir, "broken.json", `{"nodes": [`))
	assert.Equal(t, statusInvalid, res.status)
}

func TestExitCodeFor(t *testing.T) {
	mk := func(s docStatus) docResult {
		var r docResult
		r.setStatus(s)
		return r
	}

	assert.Equal(t, exitOK, exitCodeFor(nil))
	assert.Equal(t, exitOK, exitCodeFor([]docResult{mk(statusDAG), mk(statusRemoved)}))
	assert.Equal(t, exitCyclic, exitCodeFor([]docResult{mk(statusDAG), mk(statusCyclic)}))
	assert.Equal(t, exitInvalid, exitCodeFor([]docResult{mk(statusCyclic), mk(statusInvalid)}))
}
