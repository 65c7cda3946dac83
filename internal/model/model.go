package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"umlgen-backend/internal/config"
	"umlgen-backend/internal/utils"
	"umlgen-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
)

var (
	// ErrNoCredential 当前模型提供方未配置 API Key
	ErrNoCredential = errors.New("model provider credential is not configured")
	// ErrEmptyCompletion 模型返回了空的 choices
	ErrEmptyCompletion = errors.New("model returned no choices")
	// ErrRefusal 模型拒绝按结构化格式作答
	ErrRefusal = errors.New("model refused to answer")
)

// NewChatModel 按 model.provider 创建聊天模型
func NewChatModel(ctx context.Context, cfg *config.Config) (einoModel.BaseChatModel, error) {
	provider := cfg.Model.Provider
	if provider == "" {
		provider = "openai"
	}

	active := cfg.Active()
	if strings.TrimSpace(active.APIKey) == "" {
		return nil, ErrNoCredential
	}

	switch provider {
	case "openai":
		chatModel, err := newOpenAIChatModel(cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		return chatModel, nil
	case "doubao":
		return createDoubaoModel(ctx, cfg.Doubao)
	case "qwen":
		return createQwenModel(ctx, cfg.Qwen)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", provider)
	}
}

func createDoubaoModel(ctx context.Context, cfg config.ProviderConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Doubao model: %s", cfg.Model)

	chatModel, err := ark.NewChatModel(ctx, doubaoConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create doubao model: %w", err)
	}
	return chatModel, nil
}

// doubaoConfig 超时由 HTTPClient 负责；未配置的采样参数保持 nil，由 ark 使用服务端默认值
func doubaoConfig(cfg config.ProviderConfig) *ark.ChatModelConfig {
	arkCfg := &ark.ChatModelConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		HTTPClient: utils.NewHTTPClient(cfg.Timeout, cfg.DebugRequest),
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		arkCfg.MaxTokens = &maxTokens
	}
	if cfg.Temperature > 0 {
		temperature := cfg.Temperature
		arkCfg.Temperature = &temperature
	}
	if cfg.TopP > 0 {
		topP := cfg.TopP
		arkCfg.TopP = &topP
	}
	return arkCfg
}

func createQwenModel(ctx context.Context, cfg config.ProviderConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Qwen model: %s, base url: %s", cfg.Model, cfg.BaseURL)

	maxTokens := cfg.MaxTokens
	temperature := cfg.Temperature
	topP := cfg.TopP

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
		Timeout:     cfg.Timeout,
		HTTPClient:  utils.NewHTTPClient(cfg.Timeout, cfg.DebugRequest),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qwen model: %w", err)
	}
	return chatModel, nil
}
