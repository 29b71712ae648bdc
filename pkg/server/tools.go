package server

import (
	"context"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Broccolito/PilotR/pkg/preview"
	"github.com/Broccolito/PilotR/pkg/response"
	"github.com/Broccolito/PilotR/pkg/rexec"
	"github.com/Broccolito/PilotR/pkg/style"
)

type emptyArgs struct{}

type setWorkdirArgs struct {
	Path   string `json:"path" jsonschema:"Directory path to work in"`
	Create *bool  `json:"create,omitempty" jsonschema:"Create the directory if it does not exist (default: true)"`
}

type createFileArgs struct {
	Filename  string `json:"filename" jsonschema:"Name of the R script file; .R is appended when missing"`
	Overwrite bool   `json:"overwrite,omitempty" jsonschema:"Replace an existing file (default: false)"`
	Scaffold  *bool  `json:"scaffold,omitempty" jsonschema:"Start from the scaffold template (default: true)"`
}

type renameFileArgs struct {
	OldName   string `json:"old_name" jsonschema:"Current file name"`
	NewName   string `json:"new_name" jsonschema:"New file name"`
	Overwrite bool   `json:"overwrite,omitempty" jsonschema:"Replace the target if it exists (default: false)"`
}

type setPrimaryArgs struct {
	Filename string `json:"filename" jsonschema:"Existing R script file to select as primary"`
}

type appendCodeArgs struct {
	Code                  string `json:"code" jsonschema:"R code to append"`
	Filename              string `json:"filename,omitempty" jsonschema:"Target file; defaults to the primary file"`
	EnsureTrailingNewline *bool  `json:"ensure_trailing_newline,omitempty" jsonschema:"End the appended code with a newline (default: true)"`
}

type writeCodeArgs struct {
	Code              string `json:"code" jsonschema:"R code to write"`
	Filename          string `json:"filename,omitempty" jsonschema:"Target file; defaults to the primary file"`
	Overwrite         bool   `json:"overwrite,omitempty" jsonschema:"Replace an existing file (default: false)"`
	UseScaffoldHeader *bool  `json:"use_scaffold_header,omitempty" jsonschema:"Prefix the scaffold header (default: true)"`
}

type runScriptArgs struct {
	Filename   string   `json:"filename,omitempty" jsonschema:"Script to execute; defaults to the primary file"`
	Args       []string `json:"args,omitempty" jsonschema:"Extra command-line arguments passed to the script"`
	TimeoutSec int      `json:"timeout_sec,omitempty" jsonschema:"Wall-clock timeout in seconds (default: 120)"`
	SaveRdata  *bool    `json:"save_rdata,omitempty" jsonschema:"Save the workspace to .RData after the run (default: true)"`
}

type runExpressionArgs struct {
	Expr       string `json:"expr" jsonschema:"Single R expression to evaluate"`
	TimeoutSec int    `json:"timeout_sec,omitempty" jsonschema:"Wall-clock timeout in seconds (default: 60)"`
}

type listExportsArgs struct {
	Glob       string `json:"glob,omitempty" jsonschema:"Glob pattern to match file names (default: *)"`
	SortBy     string `json:"sort_by,omitempty" jsonschema:"Sort key: mtime, size, or name (default: mtime)"`
	Descending *bool  `json:"descending,omitempty" jsonschema:"Sort in descending order (default: true)"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum number of entries returned (default: 200)"`
}

type readExportArgs struct {
	Name     string `json:"name" jsonschema:"File to read, relative to the working directory"`
	MaxBytes int64  `json:"max_bytes,omitempty" jsonschema:"Reject files larger than this many bytes (default: 50000)"`
	AsText   *bool  `json:"as_text,omitempty" jsonschema:"Decode as text; false returns base64 (default: true)"`
	Encoding string `json:"encoding,omitempty" jsonschema:"Text encoding (default: utf-8)"`
}

type previewTableArgs struct {
	Name      string `json:"name" jsonschema:"Delimited file to preview"`
	Delimiter string `json:"delimiter,omitempty" jsonschema:"Field delimiter; 'tab' for tab, 'auto' to sniff (default: ,)"`
	MaxRows   int    `json:"max_rows,omitempty" jsonschema:"Maximum data rows returned (default: 50)"`
}

type styleCheckArgs struct {
	Code string `json:"code" jsonschema:"ggplot code to analyze"`
}

type inspectObjectsArgs struct {
	Objects     []string `json:"objects,omitempty" jsonschema:"Objects to inspect; empty inspects all"`
	StrMaxLevel int      `json:"str_max_level,omitempty" jsonschema:"Maximum nesting level shown by str() (default: 1)"`
	TimeoutSec  int      `json:"timeout_sec,omitempty" jsonschema:"Wall-clock timeout in seconds (default: 60)"`
}

func (s *Server) register(srv *mcp.Server) {
	addTool(srv, "set_workdir", "Set the working directory for all R operations", s.handleSetWorkdir)
	addTool(srv, "get_state", "Get current PilotR state and configuration", s.handleGetState)
	addTool(srv, "create_R_file", "Create a new R script file", s.handleCreateFile)
	addTool(srv, "rename_R_file", "Rename an R script file", s.handleRenameFile)
	addTool(srv, "set_primary_file", "Set the primary R script file", s.handleSetPrimary)
	addTool(srv, "append_R_code", "Append R code to an existing script file", s.handleAppendCode)
	addTool(srv, "write_R_code", "Write R code to a script file", s.handleWriteCode)
	addTool(srv, "run_R_script", "Execute an R script file", s.handleRunScript)
	addTool(srv, "run_R_expression", "Execute a single R expression", s.handleRunExpression)
	addTool(srv, "list_exports", "List files in the working directory", s.handleListExports)
	addTool(srv, "read_export", "Read a file from the working directory", s.handleReadExport)
	addTool(srv, "preview_table", "Preview a CSV/TSV file as a table", s.handlePreviewTable)
	addTool(srv, "ggplot_style_check", "Analyze and optimize ggplot code for publication-quality styling", s.handleStyleCheck)
	addTool(srv, "inspect_R_objects", "Inspect R objects from the last saved session", s.handleInspectObjects)
	addTool(srv, "which_R", "Find R executable in PATH", s.handleWhichR)
	addTool(srv, "list_R_files", "List all R script files in the working directory", s.handleListRFiles)
}

func (s *Server) handleSetWorkdir(_ context.Context, args setWorkdirArgs) response.Envelope {
	info, rerr := s.sess.SelectDirectory(args.Path, orTrue(args.Create))
	if rerr != nil {
		return fail(rerr)
	}
	return ok(info)
}

func (s *Server) handleGetState(_ context.Context, _ emptyArgs) response.Envelope {
	snapshot := s.sess.Snapshot()
	snapshot["r_available"] = s.runner.Available()
	return ok(snapshot)
}

func (s *Server) handleCreateFile(_ context.Context, args createFileArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	result, rerr := s.files.Create(args.Filename, args.Overwrite, orTrue(args.Scaffold))
	if rerr != nil {
		return fail(rerr)
	}
	return ok(result)
}

func (s *Server) handleRenameFile(_ context.Context, args renameFileArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	result, rerr := s.files.Rename(args.OldName, args.NewName, args.Overwrite)
	if rerr != nil {
		return fail(rerr)
	}
	return ok(result)
}

func (s *Server) handleSetPrimary(_ context.Context, args setPrimaryArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	name, rerr := s.sess.SelectPrimary(args.Filename)
	if rerr != nil {
		return fail(rerr)
	}
	return ok(map[string]any{"primary_file": name})
}

func (s *Server) handleAppendCode(_ context.Context, args appendCodeArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	result, rerr := s.files.Append(args.Code, args.Filename, orTrue(args.EnsureTrailingNewline))
	if rerr != nil {
		return fail(rerr)
	}
	return ok(result)
}

func (s *Server) handleWriteCode(_ context.Context, args writeCodeArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	result, rerr := s.files.Write(args.Code, args.Filename, args.Overwrite, orTrue(args.UseScaffoldHeader))
	if rerr != nil {
		return fail(rerr)
	}
	return ok(result)
}

type runScriptData struct {
	*rexec.Result
	Filename  string `json:"filename"`
	SaveRdata bool   `json:"save_rdata"`
}

func (s *Server) handleRunScript(ctx context.Context, args runScriptArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	name, path, rerr := s.sess.ScriptPath(args.Filename)
	if rerr != nil {
		return fail(rerr)
	}
	if _, err := os.Stat(path); err != nil {
		return fail(response.Errf(response.CodeFileNotFound, "Script file %s does not exist", name).
			WithHints("Create and write the script first", "Check the filename is correct"))
	}

	save := orTrue(args.SaveRdata)
	result, rerr := s.runner.RunScript(ctx, s.sess.Root(), path, args.Args,
		timeoutOr(args.TimeoutSec, s.cfg.ScriptTimeout()), save)
	if rerr != nil {
		return fail(rerr)
	}
	return ok(&runScriptData{Result: result, Filename: name, SaveRdata: save})
}

type runExpressionData struct {
	*rexec.Result
	Expression string `json:"expression"`
}

func (s *Server) handleRunExpression(ctx context.Context, args runExpressionArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	result, rerr := s.runner.RunExpression(ctx, s.sess.Root(), args.Expr,
		timeoutOr(args.TimeoutSec, s.cfg.ExprTimeout()))
	if rerr != nil {
		return fail(rerr)
	}
	return ok(&runExpressionData{Result: result, Expression: args.Expr})
}

func (s *Server) handleListExports(_ context.Context, args listExportsArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	glob := args.Glob
	if glob == "" {
		glob = "*"
	}
	sortBy := args.SortBy
	if sortBy == "" {
		sortBy = "mtime"
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 200
	}
	result, rerr := s.files.ListExports(glob, sortBy, orTrue(args.Descending), limit)
	if rerr != nil {
		return fail(rerr)
	}
	return ok(result)
}

func (s *Server) handleReadExport(_ context.Context, args readExportArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	maxBytes := args.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 50000
	}
	encoding := args.Encoding
	if encoding == "" {
		encoding = "utf-8"
	}
	result, rerr := s.files.Read(args.Name, maxBytes, orTrue(args.AsText), encoding)
	if rerr != nil {
		return fail(rerr)
	}
	return ok(result)
}

func (s *Server) handlePreviewTable(_ context.Context, args previewTableArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	path, rerr := s.sess.GuardPath(args.Name)
	if rerr != nil {
		return fail(rerr)
	}
	if _, err := os.Stat(path); err != nil {
		return fail(response.Errf(response.CodeFileNotFound, "File %s does not exist", args.Name))
	}
	delimiter := args.Delimiter
	if delimiter == "" {
		delimiter = ","
	}
	maxRows := args.MaxRows
	if maxRows <= 0 {
		maxRows = 50
	}
	table, rerr := preview.File(path, delimiter, maxRows)
	if rerr != nil {
		return fail(rerr)
	}
	return ok(table)
}

type styleCheckData struct {
	*style.CheckResult
	StyleGuide string `json:"style_guide"`
}

func (s *Server) handleStyleCheck(_ context.Context, args styleCheckArgs) response.Envelope {
	return ok(&styleCheckData{
		CheckResult: style.Check(args.Code),
		StyleGuide:  style.GGplotStyleGuide,
	})
}

type inspectObjectsData struct {
	*rexec.Result
	ObjectsInspected any `json:"objects_inspected"`
}

func (s *Server) handleInspectObjects(ctx context.Context, args inspectObjectsArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	maxLevel := args.StrMaxLevel
	if maxLevel <= 0 {
		maxLevel = 1
	}
	result, rerr := s.runner.InspectObjects(ctx, s.sess.Root(), args.Objects, maxLevel,
		timeoutOr(args.TimeoutSec, s.cfg.ExprTimeout()))
	if rerr != nil {
		return fail(rerr)
	}

	inspected := any("all")
	if len(args.Objects) > 0 {
		inspected = args.Objects
	}
	return ok(&inspectObjectsData{Result: result, ObjectsInspected: inspected})
}

func (s *Server) handleWhichR(_ context.Context, _ emptyArgs) response.Envelope {
	loc, rerr := s.runner.Locate()
	if rerr != nil {
		return fail(rerr)
	}
	return ok(loc)
}

func (s *Server) handleListRFiles(_ context.Context, _ emptyArgs) response.Envelope {
	if rerr := s.sess.Require(); rerr != nil {
		return fail(rerr)
	}
	result, rerr := s.files.ListRFiles()
	if rerr != nil {
		return fail(rerr)
	}
	return ok(result)
}

// orTrue resolves an optional boolean whose omitted value means true.
func orTrue(b *bool) bool {
	return b == nil || *b
}

func timeoutOr(sec int, fallback time.Duration) time.Duration {
	if sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return fallback
}
