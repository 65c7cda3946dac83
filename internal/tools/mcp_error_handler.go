package tools

import (
	"encoding/json"

	"umlgen-backend/internal/service"
	"umlgen-backend/pkg/logger"

	"github.com/mark3labs/mcp-go/mcp"
)

// MCPErrorResult 工具失败时返回给 MCP 客户端的统一格式
type MCPErrorResult struct {
	Success      bool   `json:"success"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
	ErrorKind    string `json:"error_kind"`
	Status       int    `json:"status"`
	ToolName     string `json:"tool_name"`
}

// toolError 将服务错误转换为工具错误结果，而不是协议层错误，客户端可以直接展示提示
func toolError(name string, err error) *mcp.CallToolResult {
	logger.Infof("MCP tool '%s' failed: %v", name, err)

	payload := MCPErrorResult{
		Success:      false,
		Error:        true,
		ErrorMessage: service.PublicMessage(err),
		ErrorKind:    service.KindName(err),
		Status:       service.StatusCode(err),
		ToolName:     name,
	}

	data, mErr := json.Marshal(payload)
	if mErr != nil {
		return mcp.NewToolResultError(payload.ErrorMessage)
	}
	return mcp.NewToolResultError(string(data))
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
