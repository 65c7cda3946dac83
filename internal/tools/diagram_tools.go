package tools

import (
	"context"
	"net/http"

	"umlgen-backend/internal/model"
	"umlgen-backend/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	GenerateToolName = "generate_diagram"
	RenderToolName   = "render_diagram"
)

// NewMCPServer 以 MCP 工具形式暴露生成与渲染
func NewMCPServer(diagramService *service.DiagramService, version string) *server.MCPServer {
	s := server.NewMCPServer("umlgen", version, server.WithToolCapabilities(false))
	s.AddTool(generateTool(), generateHandler(diagramService))
	s.AddTool(renderTool(), renderHandler(diagramService))
	return s
}

// NewHTTPHandler streamable HTTP 传输
func NewHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s)
}

func generateTool() mcp.Tool {
	return mcp.NewTool(GenerateToolName,
		mcp.WithDescription("Generate a PlantUML diagram from a natural-language description and return the render URL, source and explanation."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("What the diagram should show"),
		),
		mcp.WithString("access_code",
			mcp.Description("Access code, required only when the server has one configured"),
		),
	)
}

func renderTool() mcp.Tool {
	return mcp.NewTool(RenderToolName,
		mcp.WithDescription("Encode existing PlantUML source into a render URL without calling a model."),
		mcp.WithString("plantuml_code",
			mcp.Required(),
			mcp.Description("PlantUML source delimited by @startuml and @enduml"),
		),
	)
}

func generateHandler(diagramService *service.DiagramService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := diagramService.Generate(ctx, model.GenerateRequest{
			Prompt:     req.GetString("prompt", ""),
			AccessCode: req.GetString("access_code", ""),
		})
		if err != nil {
			return toolError(GenerateToolName, err), nil
		}
		return jsonResult(model.GenerateResponse{
			URL:          result.URL,
			PlantUMLCode: result.Source,
			Explanation:  result.Explanation,
		})
	}
}

func renderHandler(diagramService *service.DiagramService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := diagramService.Render(model.RenderRequest{
			PlantUMLCode: req.GetString("plantuml_code", ""),
		})
		if err != nil {
			return toolError(RenderToolName, err), nil
		}
		return jsonResult(model.RenderResponse{
			URL:          result.URL,
			PlantUMLCode: result.Source,
		})
	}
}
