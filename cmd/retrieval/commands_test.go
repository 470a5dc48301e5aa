package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"retrievalagent/retrieval"
)

const inputDocument = `{
  "destination_city": "Singapore",
  "trip_dates": {"start_date": "2025-06-01", "end_date": "2025-06-02"},
  "duration_days": 2,
  "budget": "low",
  "pace": "relaxed",
  "optional": {
    "interests": ["museums"],
    "accommodation_location": {"neighborhood": "Bugis", "lat": 1.3006, "lng": 103.8559}
  }
}`

type workspace struct {
	dir    string
	config string
	db     string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		db:     filepath.Join(dir, "places.db"),
	}
	cfg := "log:\n  level: ERROR\nproviders:\n  catalog:\n    path: " + ws.db + "\n"
	require.NoError(t, os.WriteFile(ws.config, []byte(cfg), 0o600))
	return ws
}

func (ws workspace) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(ws.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, ws workspace, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&app{})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", ws.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand_SeededCatalog(t *testing.T) {
	ws := newWorkspace(t)
	_, err := execute(t, ws, "catalog", "seed", "--seed", "7", "--places-per-cluster", "20")
	require.NoError(t, err)

	input := ws.file(t, "input.json", inputDocument)
	output := filepath.Join(ws.dir, "output.json")
	audit := filepath.Join(ws.dir, "audit.xlsx")

	_, err = execute(t, ws, "run", input, output, "--audit", audit)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var doc retrieval.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotEmpty(t, doc.Retrieval.PlacesMatrix.Candidates)
	assert.LessOrEqual(t, len(doc.Retrieval.PlacesMatrix.Candidates), 4)

	_, err = os.Stat(audit)
	assert.NoError(t, err)
}

func TestRunCommand_StdoutOnEmptyCatalog(t *testing.T) {
	ws := newWorkspace(t)
	input := ws.file(t, "input.json", inputDocument)

	out, err := execute(t, ws, "run", input)
	require.NoError(t, err, "budget exhaustion is not an error")
	assert.JSONEq(t, `{"retrieval": {"places_matrix": {"candidates": []}}}`, out)
}

func TestRunCommand_InputErrors(t *testing.T) {
	ws := newWorkspace(t)

	_, err := execute(t, ws, "run", filepath.Join(ws.dir, "missing.json"))
	assert.Error(t, err)

	invalid := ws.file(t, "invalid.json", `{"pace": "relaxed"}`)
	_, err = execute(t, ws, "run", invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field: trip_dates")

	_, err = execute(t, ws, "run")
	assert.Error(t, err)
}

func TestRunCommand_TracingExportsRunSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ws := newWorkspace(t)
	ws.config = ws.file(t, "tracing.yaml", "log:\n  level: ERROR\nproviders:\n  catalog:\n    path: "+ws.db+
		"\ntracing:\n  enabled: true\n  exporter: stdout\n")
	input := ws.file(t, "input.json", inputDocument)

	a := &app{}
	root := newRootCmd(a)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"--config", ws.config, "run", input})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.NotNil(t, a.tracer)

	a.close()
	assert.Nil(t, a.tracer)
	traces := errOut.String()
	assert.Contains(t, traces, `"Name":"retrieval.Run"`)
	assert.Contains(t, traces, `"Name":"retrieval.Iteration"`)
	assert.Contains(t, traces, `"Name":"websearch.Search"`)
}

func TestRunCommand_AccommodationOverride(t *testing.T) {
	ws := newWorkspace(t)
	input := ws.file(t, "input.json", inputDocument)

	out, err := execute(t, ws, "run", input, "--accommodation", "1.2834,103.8607")
	require.NoError(t, err)
	assert.JSONEq(t, `{"retrieval": {"places_matrix": {"candidates": []}}}`, out)

	_, err = execute(t, ws, "run", input, "--accommodation", "marina bay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accommodation must be lat,lon")
}

func TestRootCommand_ConfigErrors(t *testing.T) {
	ws := newWorkspace(t)
	ws.config = ws.file(t, "broken.yaml", "controller:\n  max_iterations: -1\n")

	input := ws.file(t, "input.json", inputDocument)
	_, err := execute(t, ws, "run", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestCatalogImportExport(t *testing.T) {
	ws := newWorkspace(t)
	_, err := execute(t, ws, "catalog", "seed", "--places-per-cluster", "2")
	require.NoError(t, err)

	exported, err := execute(t, ws, "catalog", "export")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(exported), "\n")
	require.Greater(t, len(lines), 1)

	csvPath := ws.file(t, "places.csv", exported)
	otherDB := filepath.Join(ws.dir, "other.db")
	_, err = execute(t, ws, "catalog", "import", csvPath, "--db", otherDB)
	require.NoError(t, err)

	reexported, err := execute(t, ws, "catalog", "export", "--db", otherDB)
	require.NoError(t, err)
	assert.Equal(t, exported, reexported)
}

func TestCatalogIndex_RequiresElasticURL(t *testing.T) {
	ws := newWorkspace(t)
	_, err := execute(t, ws, "catalog", "index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elasticsearch url is required")
}
