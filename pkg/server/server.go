// Package server exposes the agent's operations as MCP tools over a
// stdio transport. Each tool returns a JSON envelope as text content;
// operation failures become structured error envelopes, never protocol
// errors.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Broccolito/PilotR/pkg/config"
	"github.com/Broccolito/PilotR/pkg/response"
	"github.com/Broccolito/PilotR/pkg/rexec"
	"github.com/Broccolito/PilotR/pkg/scripts"
	"github.com/Broccolito/PilotR/pkg/session"
	"github.com/Broccolito/PilotR/pkg/version"
)

// Server wires the directory session, file operations, and interpreter
// runner behind the MCP tool catalog.
type Server struct {
	sess   *session.Session
	files  *scripts.Files
	runner *rexec.Runner
	cfg    *config.Config
}

func New(cfg *config.Config) *Server {
	sess := session.New()
	return &Server{
		sess:   sess,
		files:  scripts.NewFiles(sess),
		runner: &rexec.Runner{Interpreter: cfg.Interpreter},
		cfg:    cfg,
	}
}

// Run serves MCP over stdin/stdout until ctx is canceled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Workdir != "" {
		if _, rerr := s.sess.SelectDirectory(s.cfg.Workdir, true); rerr != nil {
			return fmt.Errorf("selecting configured workdir: %s", rerr.Message)
		}
	}

	impl := &mcp.Implementation{
		Name:    "pilotr",
		Title:   "PilotR",
		Version: version.Version,
	}
	srv := mcp.NewServer(impl, nil)
	s.register(srv)

	slog.Info("Starting PilotR MCP server",
		"version", version.Version,
		"started", time.Now().Format(time.DateTime))

	return srv.Run(ctx, &mcp.StdioTransport{})
}

// addTool registers one operation: argument schema derived from Args,
// handler output wrapped into the JSON envelope, panics converted to
// INTERNAL_ERROR.
func addTool[Args any](srv *mcp.Server, name, description string, handler func(ctx context.Context, args Args) response.Envelope) {
	tool := &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mustSchemaFor[Args](),
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, _ *mcp.CallToolRequest, args Args) (result *mcp.CallToolResult, _ any, err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Tool handler panicked", "tool", name, "panic", r, "stack", string(debug.Stack()))
				result = envelopeResult(response.Fail(
					response.Errf(response.CodeInternalError, "Internal error: %v", r)))
				err = nil
			}
		}()
		slog.Debug("Calling tool", "tool", name)
		return envelopeResult(handler(ctx, args)), nil, nil
	})
}

func envelopeResult(env response.Envelope) *mcp.CallToolResult {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		slog.Error("Failed to encode envelope", "error", err)
		data = []byte(`{"ok": false, "error": {"code": "INTERNAL_ERROR", "message": "failed to encode response"}}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// ok and fail are shorthands for building envelopes in handlers.
func ok(data any) response.Envelope { return response.OK(data) }

func fail(err *response.Error) response.Envelope { return response.Fail(err) }
