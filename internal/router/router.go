package router

import (
	"net/http"
	"time"

	"umlgen-backend/internal/config"
	"umlgen-backend/internal/handler"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New 创建路由。mcpHandler 为 nil 时不挂载 MCP 端点
func New(cfg *config.Config, diagramHandler *handler.DiagramHandler, mcpHandler http.Handler) *gin.Engine {
	router := gin.New()

	// 非 POST 访问图表端点时返回 405
	router.HandleMethodNotAllowed = true

	// 中间件
	router.Use(RequestID())
	router.Use(AccessLog())
	router.Use(gin.Recovery())

	// CORS配置
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	if len(corsConfig.AllowOrigins) == 0 || (len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*") {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	if len(corsConfig.AllowMethods) == 0 {
		corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	router.Use(cors.New(corsConfig))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	if cfg.Metrics.Enabled {
		router.GET(pathOr(cfg.Metrics.Path, "/metrics"), gin.WrapH(promhttp.Handler()))
	}

	if cfg.MCP.Enabled && mcpHandler != nil {
		router.Any(pathOr(cfg.MCP.Path, "/mcp"), gin.WrapH(mcpHandler))
	}

	// API路由
	api := router.Group("/api")
	{
		api.POST("/generate", diagramHandler.Generate)
		api.POST("/render", diagramHandler.Render)
	}

	// 单入口：按请求体形状分发
	router.POST("/", diagramHandler.Dispatch)

	router.NoMethod(handler.MethodNotAllowed)
	if cfg.Server.Hosted {
		// 部署平台会把所有路径折叠到同一个函数
		router.NoRoute(diagramHandler.CatchAll)
	} else {
		router.NoRoute(handler.NotFound)
	}

	return router
}

func pathOr(p, def string) string {
	if p == "" {
		return def
	}
	return p
}
