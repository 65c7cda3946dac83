package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"umlgen-backend/internal/model"
	"umlgen-backend/internal/service"
	"umlgen-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestIDKey gin 上下文中请求 ID 的键
const RequestIDKey = "request_id"

// MaxBodyBytes 请求体上限，超出返回 413
const MaxBodyBytes = 1 << 20

type DiagramHandler struct {
	diagramService *service.DiagramService
}

func NewDiagramHandler(diagramService *service.DiagramService) *DiagramHandler {
	return &DiagramHandler{
		diagramService: diagramService,
	}
}

// Generate POST /api/generate
func (h *DiagramHandler) Generate(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	h.generate(c, body)
}

// Render POST /api/render
func (h *DiagramHandler) Render(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	h.render(c, body)
}

// Dispatch 单入口部署时按请求体形状分发
func (h *DiagramHandler) Dispatch(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	route := RouteFor(body)
	logger.WithFields(logrus.Fields{
		RequestIDKey: c.GetString(RequestIDKey),
		"route":      route.String(),
	}).Debug("dispatching request by body shape")

	if route == RouteRender {
		h.render(c, body)
		return
	}
	h.generate(c, body)
}

// CatchAll 部署环境中路径会被折叠到同一个入口
func (h *DiagramHandler) CatchAll(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		MethodNotAllowed(c)
		return
	}
	h.Dispatch(c)
}

func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, model.ErrorResponse{Error: "Method not allowed"})
}

func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Not found"})
}

func (h *DiagramHandler) generate(c *gin.Context, body []byte) {
	var req model.GenerateRequest
	// 请求体不合法时按空对象处理
	if err := json.Unmarshal(body, &req); err != nil {
		req = model.GenerateRequest{}
	}

	result, err := h.diagramService.Generate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "generate", err)
		return
	}

	c.JSON(http.StatusOK, model.GenerateResponse{
		URL:          result.URL,
		PlantUMLCode: result.Source,
		Explanation:  result.Explanation,
	})
}

func (h *DiagramHandler) render(c *gin.Context, body []byte) {
	var req model.RenderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		req = model.RenderRequest{}
	}

	result, err := h.diagramService.Render(req)
	if err != nil {
		h.fail(c, "render", err)
		return
	}

	c.JSON(http.StatusOK, model.RenderResponse{
		URL:          result.URL,
		PlantUMLCode: result.Source,
	})
}

func (h *DiagramHandler) fail(c *gin.Context, op string, err error) {
	status := service.StatusCode(err)
	entry := logger.WithFields(logrus.Fields{
		RequestIDKey: c.GetString(RequestIDKey),
		"operation":  op,
		"kind":       service.KindName(err),
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.Errorf("request failed: %v", err)
	} else {
		entry.Infof("request rejected: %v", err)
	}

	c.JSON(status, model.ErrorResponse{Error: service.PublicMessage(err)})
}

// readBody 读取受限大小的请求体；超限时已写出 413，返回 false
func readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.WithFields(logrus.Fields{
				RequestIDKey: c.GetString(RequestIDKey),
				"limit":      tooLarge.Limit,
			}).Info("request body too large")
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "Request body too large"})
			return nil, false
		}
		logger.Warnf("failed to read request body: %v", err)
		return nil, true
	}
	return body, true
}
