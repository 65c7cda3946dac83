package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"umlgen-backend/internal/config"
	"umlgen-backend/internal/handler"
	"umlgen-backend/internal/metrics"
	"umlgen-backend/internal/model"
	"umlgen-backend/internal/router"
	"umlgen-backend/internal/service"
	"umlgen-backend/internal/tools"
	"umlgen-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var version = "dev"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	// 初始化模型；缺少凭证时仅生成接口不可用，渲染接口照常工作
	ctx := context.Background()
	var chatModel einoModel.BaseChatModel
	chatModel, err = model.NewChatModel(ctx, cfg)
	switch {
	case errors.Is(err, model.ErrNoCredential):
		logger.Warnf("No API key configured for provider %q, /api/generate will report a misconfigured server", cfg.Model.Provider)
		chatModel = nil
	case err != nil:
		logger.Fatalf("Failed to create chat model: %v", err)
	}

	if cfg.AccessCodeEnabled() {
		logger.Info("Access code check is enabled for /api/generate")
	} else {
		logger.Info("Access code check is disabled (set ACCESS_CODE to enable)")
	}

	// 初始化服务与处理器
	diagramService := service.NewDiagramService(cfg, chatModel)
	diagramHandler := handler.NewDiagramHandler(diagramService)

	var mcpHandler http.Handler
	if cfg.MCP.Enabled {
		mcpHandler = tools.NewHTTPHandler(tools.NewMCPServer(diagramService, version))
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(cfg, diagramHandler, mcpHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("Server listening on http://localhost:%d (hosted=%v)", cfg.Server.Port, cfg.Server.Hosted)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start (try another port with PORT=%d): %v", cfg.Server.Port+1, err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
