// Package mcp exposes a workflow engine over the Model Context Protocol so
// LLM agents can drive flows as tools. State lives in the engine's store and
// every tool addresses a flow by id, so clients never round-trip variables or
// position themselves.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sendahq/senda"
	"github.com/sendahq/senda/pkg/flow"
)

// Engine is the slice of the senda facade the MCP server drives.
type Engine interface {
	Definitions() []string
	Definition(id string) (*flow.Definition, error)
	Start(ctx context.Context, templateID string) (string, error)
	StartAt(ctx context.Context, domain, signature string, template *flow.Definition) (string, bool, error)
	Advance(ctx context.Context, flowID, choice string) (bool, error)
	View(ctx context.Context, flowID string) (*flow.View, error)
	Variables(ctx context.Context, flowID string) (map[string]string, error)
	SetVariable(ctx context.Context, flowID, key, value string) error
	Remove(ctx context.Context, flowID string) error
}

var _ Engine = (*senda.Engine)(nil)

// AdvanceResponse reports whether a transition fired and where the flow now
// rests. It matches the HTTP adapter's advance payload so agents and REST
// clients see the same shape.
type AdvanceResponse struct {
	Advanced bool       `json:"advanced" jsonschema_description:"Whether a transition matched and fired"`
	View     *flow.View `json:"view,omitempty" jsonschema_description:"The node the workflow rests on after the attempt"`
}

// StartResponse identifies a freshly started flow.
type StartResponse struct {
	FlowID string     `json:"flow_id" jsonschema_description:"Identifier of the new flow"`
	View   *flow.View `json:"view,omitempty" jsonschema_description:"The entry node of the new flow"`
}

// StartAtResponse reports a deterministic start: either a resumed flow or a
// fresh one claimed under the derived id.
type StartAtResponse struct {
	FlowID  string     `json:"flow_id" jsonschema_description:"Flow id derived from domain and signature"`
	Resumed bool       `json:"resumed" jsonschema_description:"True when an existing flow inside the resume window was reused"`
	View    *flow.View `json:"view,omitempty" jsonschema_description:"The node the flow rests on"`
}

// VariablesResponse is the full variable bag of a flow.
type VariablesResponse struct {
	FlowID    string            `json:"flow_id" jsonschema_description:"Flow identifier"`
	Variables map[string]string `json:"variables" jsonschema_description:"Variable bag; keys are lower-cased"`
}

// RemoveResponse confirms removal of a flow.
type RemoveResponse struct {
	FlowID  string `json:"flow_id" jsonschema_description:"Identifier of the removed flow"`
	Removed bool   `json:"removed" jsonschema_description:"Always true on success"`
}

// Server exposes an Engine as an MCP server over stdio or SSE.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger routes server diagnostics to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer wires every workflow tool and resource onto a fresh MCP server.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    slog.Default(),
		mcpServer: server.NewMCPServer("senda-mcp", strings.TrimSpace(senda.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves the protocol on stdin/stdout and blocks until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the protocol over SSE on the given port and blocks until
// ctx is cancelled or the listener fails.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", allowCORS(sse.SSEHandler()))
	mux.Handle("/message", allowCORS(sse.MessageHandler()))

	srv := &http.Server{Addr: addr, Handler: mux}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening", "address", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("stop mcp server: %w", err)
		}
		return nil
	}
}

func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: senda_flows
	s.mcpServer.AddTool(mcp.NewTool("senda_flows",
		mcp.WithDescription("List the ids of every registered workflow."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, _ := json.Marshal(s.engine.Definitions())
		return mcp.NewToolResultText(string(out)), nil
	})

	// TOOL: senda_view
	viewTool := mcp.NewTool("senda_view",
		mcp.WithDescription("Render the node a workflow currently rests on, including its choices and variables."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Workflow identifier")),
		mcp.WithOutputSchema[flow.View](),
	)
	s.mcpServer.AddTool(viewTool, mcp.NewStructuredToolHandler(s.handleView))

	// TOOL: senda_advance
	advanceTool := mcp.NewTool("senda_advance",
		mcp.WithDescription("Advance a workflow along a matching transition. Omit choice to follow an unconditional transition."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Workflow identifier")),
		mcp.WithString("choice", mcp.Description("Guard value to match against outgoing transitions (optional)")),
		mcp.WithOutputSchema[AdvanceResponse](),
	)
	s.mcpServer.AddTool(advanceTool, mcp.NewStructuredToolHandler(s.handleAdvance))

	// TOOL: senda_start
	startTool := mcp.NewTool("senda_start",
		mcp.WithDescription("Start a fresh flow from a registered template."),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Id of the template definition")),
		mcp.WithOutputSchema[StartResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	// TOOL: senda_start_at
	startAtTool := mcp.NewTool("senda_start_at",
		mcp.WithDescription("Start or resume a flow under a deterministic id derived from domain and signature. The same signature lands on the same flow while it stays inside the resume window."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Namespace for the derived id, e.g. \"support\"")),
		mcp.WithString("signature", mcp.Required(), mcp.Description("Context string hashed into the id; case and surrounding space are ignored")),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Template to instantiate when no flow is resumable")),
		mcp.WithOutputSchema[StartAtResponse](),
	)
	s.mcpServer.AddTool(startAtTool, mcp.NewStructuredToolHandler(s.handleStartAt))

	// TOOL: senda_set_variable
	setVarTool := mcp.NewTool("senda_set_variable",
		mcp.WithDescription("Set a variable on a flow. Keys are case-insensitive."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Workflow identifier")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Variable name")),
		mcp.WithString("value", mcp.Description("Variable value; omitting it stores the empty string")),
		mcp.WithOutputSchema[VariablesResponse](),
	)
	s.mcpServer.AddTool(setVarTool, mcp.NewStructuredToolHandler(s.handleSetVariable))

	// TOOL: senda_remove
	removeTool := mcp.NewTool("senda_remove",
		mcp.WithDescription("Remove a flow's definition and state."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Workflow identifier")),
		mcp.WithOutputSchema[RemoveResponse](),
	)
	s.mcpServer.AddTool(removeTool, mcp.NewStructuredToolHandler(s.handleRemove))
}

// Handler methods for structured tools

func (s *Server) handleView(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (flow.View, error) {
	id, _ := args["flow_id"].(string)

	v, err := s.engine.View(ctx, id)
	if err != nil {
		return flow.View{}, fmt.Errorf("view failed: %w", err)
	}
	return *v, nil
}

func (s *Server) handleAdvance(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (AdvanceResponse, error) {
	id, _ := args["flow_id"].(string)
	raw, _ := args["choice"].(string)

	choice, err := senda.SanitizeInput(raw)
	if err != nil {
		s.logger.Warn("mcp advance: input rejected", "err", err, "size", len(raw))
		return AdvanceResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	advanced, err := s.engine.Advance(ctx, id, choice)
	if err != nil {
		return AdvanceResponse{}, fmt.Errorf("advance failed: %w", err)
	}

	v, err := s.engine.View(ctx, id)
	if err != nil {
		s.logger.Error("mcp advance: view failed", "err", err, "flow", id)
		return AdvanceResponse{Advanced: advanced}, nil
	}
	return AdvanceResponse{Advanced: advanced, View: v}, nil
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StartResponse, error) {
	templateID, _ := args["template_id"].(string)

	id, err := s.engine.Start(ctx, templateID)
	if err != nil {
		return StartResponse{}, fmt.Errorf("start failed: %w", err)
	}

	v, err := s.engine.View(ctx, id)
	if err != nil {
		s.logger.Error("mcp start: view failed", "err", err, "flow", id)
		return StartResponse{FlowID: id}, nil
	}
	return StartResponse{FlowID: id, View: v}, nil
}

func (s *Server) handleStartAt(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StartAtResponse, error) {
	domain, _ := args["domain"].(string)
	signature, _ := args["signature"].(string)
	templateID, _ := args["template_id"].(string)

	template, err := s.engine.Definition(templateID)
	if err != nil {
		return StartAtResponse{}, fmt.Errorf("start_at failed: %w", err)
	}

	id, resumed, err := s.engine.StartAt(ctx, domain, signature, template)
	if err != nil {
		return StartAtResponse{}, fmt.Errorf("start_at failed: %w", err)
	}

	v, err := s.engine.View(ctx, id)
	if err != nil {
		s.logger.Error("mcp start_at: view failed", "err", err, "flow", id)
		return StartAtResponse{FlowID: id, Resumed: resumed}, nil
	}
	return StartAtResponse{FlowID: id, Resumed: resumed, View: v}, nil
}

func (s *Server) handleSetVariable(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (VariablesResponse, error) {
	id, _ := args["flow_id"].(string)
	key, _ := args["key"].(string)
	value, _ := args["value"].(string)

	if err := s.engine.SetVariable(ctx, id, key, value); err != nil {
		return VariablesResponse{}, fmt.Errorf("set variable failed: %w", err)
	}

	vars, err := s.engine.Variables(ctx, id)
	if err != nil {
		return VariablesResponse{}, fmt.Errorf("set variable failed: %w", err)
	}
	return VariablesResponse{FlowID: id, Variables: vars}, nil
}

func (s *Server) handleRemove(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RemoveResponse, error) {
	id, _ := args["flow_id"].(string)

	if err := s.engine.Remove(ctx, id); err != nil {
		return RemoveResponse{}, fmt.Errorf("remove failed: %w", err)
	}
	return RemoveResponse{FlowID: id, Removed: true}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: senda://flows
	s.mcpServer.AddResource(mcp.NewResource("senda://flows", "Registered Workflow Definitions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids := s.engine.Definitions()
		defs := make(map[string]*flow.Definition, len(ids))
		for _, id := range ids {
			def, err := s.engine.Definition(id)
			if err != nil {
				continue
			}
			defs[id] = def
		}
		out, err := json.Marshal(defs)
		if err != nil {
			return nil, fmt.Errorf("marshal definitions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "senda://flows",
				MIMEType: "application/json",
				Text:     string(out),
			},
		}, nil
	})
}
