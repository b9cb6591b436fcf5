// Package mcp exposes the workflow engine as MCP tools so LLM clients can
// trigger workflows and inspect the configuration alongside the desktop
// agent.
package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"fieldbridge/internal/engine"
	"fieldbridge/internal/registry"
	"fieldbridge/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	engine    *engine.Engine
}

func NewServer(eng *engine.Engine) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Fieldbridge",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		engine: eng,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"trigger_workflow",
			mcp.WithDescription("Run the workflow bound to a trigger against the given text"),
			mcp.WithString("trigger", mcp.Required(), mcp.Description("Symbolic trigger key, e.g. CTRL+ALT+V")),
			mcp.WithString("text", mcp.Required(), mcp.Description("Input text for the workflow")),
		),
		s.handleTrigger,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List configured workflows and their triggers"),
		),
		s.handleListWorkflows,
	)
}

func (s *Server) handleTrigger(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	trigger, ok := args["trigger"].(string)
	if !ok || trigger == "" {
		return mcp.NewToolResultError("Missing required parameter: trigger"), nil
	}
	text, ok := args["text"].(string)
	if !ok || text == "" {
		return mcp.NewToolResultError("Missing required parameter: text"), nil
	}

	result := s.engine.Execute(ctx, trigger, models.Context{Text: text})

	jsonBytes, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg := s.engine.Registry()
	summaries := make([]models.WorkflowSummary, 0, len(reg.Workflows()))
	for _, wf := range reg.Workflows() {
		summaries = append(summaries, models.WorkflowSummary{
			ID:        wf.ID,
			Name:      wf.Name,
			Trigger:   registry.NormalizeTrigger(wf.Trigger),
			Connector: wf.ConnectorID,
			Enabled:   wf.Enabled,
		})
	}

	jsonBytes, _ := json.Marshal(summaries)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
