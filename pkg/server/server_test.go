package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Broccolito/PilotR/pkg/config"
	"github.com/Broccolito/PilotR/pkg/preview"
	"github.com/Broccolito/PilotR/pkg/response"
	"github.com/Broccolito/PilotR/pkg/scripts"
	"github.com/Broccolito/PilotR/pkg/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(&config.Config{})
}

func selectWorkdir(t *testing.T, s *Server) string {
	t.Helper()
	dir := t.TempDir()
	env := s.handleSetWorkdir(t.Context(), setWorkdirArgs{Path: dir})
	require.True(t, env.OK, "set_workdir failed: %+v", env.Err)
	return env.Data.(*session.Info).Workdir
}

// fakeInterpreter installs a shell stub as the configured interpreter.
func fakeInterpreter(t *testing.T, s *Server, script string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Rscript")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	s.runner.Interpreter = path
}

func TestHandlers_RequireWorkdir(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()

	envelopes := []response.Envelope{
		s.handleCreateFile(ctx, createFileArgs{Filename: "a"}),
		s.handleRenameFile(ctx, renameFileArgs{OldName: "a", NewName: "b"}),
		s.handleSetPrimary(ctx, setPrimaryArgs{Filename: "a"}),
		s.handleAppendCode(ctx, appendCodeArgs{Code: "x"}),
		s.handleWriteCode(ctx, writeCodeArgs{Code: "x"}),
		s.handleRunScript(ctx, runScriptArgs{}),
		s.handleRunExpression(ctx, runExpressionArgs{Expr: "1"}),
		s.handleListExports(ctx, listExportsArgs{}),
		s.handleReadExport(ctx, readExportArgs{Name: "a"}),
		s.handlePreviewTable(ctx, previewTableArgs{Name: "a"}),
		s.handleInspectObjects(ctx, inspectObjectsArgs{}),
		s.handleListRFiles(ctx, emptyArgs{}),
	}
	for _, env := range envelopes {
		require.False(t, env.OK)
		assert.Equal(t, response.CodeNoWorkdir, env.Err.Code)
	}
}

func TestHandleSetWorkdir_CreateDefaultsTrue(t *testing.T) {
	s := newTestServer(t)
	target := filepath.Join(t.TempDir(), "fresh")

	env := s.handleSetWorkdir(t.Context(), setWorkdirArgs{Path: target})
	require.True(t, env.OK)
	assert.DirExists(t, env.Data.(*session.Info).Workdir)
}

func TestHandleGetState(t *testing.T) {
	s := newTestServer(t)

	env := s.handleGetState(t.Context(), emptyArgs{})
	require.True(t, env.OK)
	data := env.Data.(map[string]any)
	assert.Nil(t, data["workdir"])
	assert.Equal(t, session.DefaultPrimaryFile, data["primary_file"])
	assert.Contains(t, data, "r_available")

	root := selectWorkdir(t, s)
	env = s.handleGetState(t.Context(), emptyArgs{})
	require.True(t, env.OK)
	assert.Equal(t, root, env.Data.(map[string]any)["workdir"])
}

func TestScriptLifecycle(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()
	selectWorkdir(t, s)

	env := s.handleCreateFile(ctx, createFileArgs{Filename: "agent"})
	require.True(t, env.OK)
	assert.Equal(t, "agent.R", env.Data.(*scripts.CreateResult).Filename)

	env = s.handleWriteCode(ctx, writeCodeArgs{Code: "x = 1+1", Overwrite: true})
	require.True(t, env.OK)

	env = s.handleAppendCode(ctx, appendCodeArgs{Code: "y = x * 2"})
	require.True(t, env.OK)
	assert.Equal(t, 1, env.Data.(*scripts.AppendResult).LinesAppended)

	env = s.handleListRFiles(ctx, emptyArgs{})
	require.True(t, env.OK)
	assert.Equal(t, []string{"agent.R"}, env.Data.(*scripts.ScriptListing).Files)

	env = s.handleRenameFile(ctx, renameFileArgs{OldName: "agent", NewName: "main"})
	require.True(t, env.OK)

	env = s.handleSetPrimary(ctx, setPrimaryArgs{Filename: "main"})
	require.True(t, env.OK)
}

func TestHandleRunScript(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()
	selectWorkdir(t, s)

	env := s.handleRunScript(ctx, runScriptArgs{})
	require.False(t, env.OK)
	assert.Equal(t, response.CodeFileNotFound, env.Err.Code)

	require.True(t, s.handleWriteCode(ctx, writeCodeArgs{Code: "x = 1+1"}).OK)

	fakeInterpreter(t, s, `printf '%s\n' "$@" > invoked.txt`)
	env = s.handleRunScript(ctx, runScriptArgs{})
	require.True(t, env.OK)

	data := env.Data.(*runScriptData)
	assert.Equal(t, "agent.R", data.Filename)
	assert.True(t, data.SaveRdata, "save_rdata defaults to true")
	assert.Equal(t, 0, data.ExitCode)

	invoked, err := os.ReadFile(filepath.Join(s.sess.Root(), "invoked.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(invoked), "--save\n")
	assert.Contains(t, string(invoked), "agent.R")
}

func TestHandleRunExpression(t *testing.T) {
	s := newTestServer(t)
	selectWorkdir(t, s)
	fakeInterpreter(t, s, `echo "[1] 2"`)

	env := s.handleRunExpression(t.Context(), runExpressionArgs{Expr: "1+1"})
	require.True(t, env.OK)

	data := env.Data.(*runExpressionData)
	assert.Equal(t, "1+1", data.Expression)
	assert.Equal(t, []string{"[1] 2"}, data.Stdout)
}

func TestHandleInspectObjects(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()
	root := selectWorkdir(t, s)
	fakeInterpreter(t, s, `echo "=== Object: x ==="`)

	env := s.handleInspectObjects(ctx, inspectObjectsArgs{Objects: []string{"x"}})
	require.False(t, env.OK)
	assert.Equal(t, response.CodeNoRData, env.Err.Code)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".RData"), nil, 0o644))

	env = s.handleInspectObjects(ctx, inspectObjectsArgs{Objects: []string{"x"}})
	require.True(t, env.OK)
	data := env.Data.(*inspectObjectsData)
	assert.Equal(t, []string{"x"}, data.ObjectsInspected)
	assert.Contains(t, data.Stdout[0], "=== Object: x ===")

	env = s.handleInspectObjects(ctx, inspectObjectsArgs{})
	require.True(t, env.OK)
	assert.Equal(t, "all", env.Data.(*inspectObjectsData).ObjectsInspected)
}

func TestHandleReadExport_Defaults(t *testing.T) {
	s := newTestServer(t)
	root := selectWorkdir(t, s)

	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), make([]byte, 60000), 0o644))
	env := s.handleReadExport(t.Context(), readExportArgs{Name: "big.txt"})
	require.False(t, env.OK)
	assert.Equal(t, response.CodeFileTooLarge, env.Err.Code, "default max_bytes is 50000")

	require.NoError(t, os.WriteFile(filepath.Join(root, "small.txt"), []byte("ok\n"), 0o644))
	env = s.handleReadExport(t.Context(), readExportArgs{Name: "small.txt"})
	require.True(t, env.OK)
	assert.Equal(t, "ok\n", env.Data.(*scripts.TextContent).Content)
}

func TestHandlePreviewTable(t *testing.T) {
	s := newTestServer(t)
	root := selectWorkdir(t, s)

	env := s.handlePreviewTable(t.Context(), previewTableArgs{Name: "missing.csv"})
	require.False(t, env.OK)
	assert.Equal(t, response.CodeFileNotFound, env.Err.Code)

	require.NoError(t, os.WriteFile(filepath.Join(root, "data.csv"), []byte("a,b\n1,2\n3,4\n"), 0o644))
	env = s.handlePreviewTable(t.Context(), previewTableArgs{Name: "data.csv"})
	require.True(t, env.OK)
	table := env.Data.(*preview.Table)
	assert.Equal(t, 2, table.TotalRows)
	assert.False(t, table.Truncated)
}

func TestHandleStyleCheck(t *testing.T) {
	s := newTestServer(t)

	env := s.handleStyleCheck(t.Context(), styleCheckArgs{Code: "x <- 1"})
	require.True(t, env.OK)
	data := env.Data.(*styleCheckData)
	assert.Equal(t, "x = 1", data.OptimizedCode)
	assert.NotEmpty(t, data.StyleGuide)
}

func TestHandleWhichR(t *testing.T) {
	s := newTestServer(t)
	t.Setenv("PATH", t.TempDir())

	env := s.handleWhichR(t.Context(), emptyArgs{})
	require.False(t, env.OK)
	assert.Equal(t, response.CodeRNotFound, env.Err.Code)
}

func TestEnvelopeResult(t *testing.T) {
	result := envelopeResult(response.OK(map[string]any{"n": 1}))
	require.Len(t, result.Content, 1)

	var env map[string]any
	text := result.Content[0].(*mcp.TextContent).Text
	require.NoError(t, json.Unmarshal([]byte(text), &env))
	assert.Equal(t, true, env["ok"])
}
